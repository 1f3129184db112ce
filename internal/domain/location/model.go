package location

// Absolute depths of the levels of a treatment-center hierarchy.
const (
	DepthRoot = 0
	DepthZone = 1
	DepthTent = 2
	DepthBed  = 3
)

// Record is one row of the flat location list a forest is built from.
// An empty ParentUUID marks a root.
type Record struct {
	UUID         string `json:"uuid"`
	ParentUUID   string `json:"parent_uuid,omitempty"`
	Name         string `json:"name"`
	PatientCount int    `json:"patient_count"`
}

// Node is a location inside a built Forest. Nodes are immutable and belong
// to exactly one forest.
type Node struct {
	Record

	forest   *Forest
	index    int
	depth    int
	parent   *Node
	children []*Node
	subtree  int
}

// Depth returns the node's distance from its root (0 for roots).
func (n *Node) Depth() int { return n.depth }

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the direct children in input order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// SubtreePatientCount returns the node's own patient count plus that of all
// of its descendants.
func (n *Node) SubtreePatientCount() int { return n.subtree }

// DisplayName returns the name to show for locale. See DisplayName.
func (n *Node) DisplayName(locale string) string { return DisplayName(n.Name, locale) }

func (n *Node) String() string { return n.DisplayName("") }
