// Package location models the physical layout of a treatment center
// (facility, zones, tents, beds) as a forest built from flat records.
package location

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/platform/cursor"
)

var (
	// ErrNotFound is returned for a uuid or node that is not in the forest.
	ErrNotFound = errors.New("location: not found")

	// ErrMalformedHierarchy is returned by Build for duplicate uuids, empty
	// uuids and cyclic parent links.
	ErrMalformedHierarchy = errors.New("location: malformed hierarchy")
)

// Forest is an immutable tree (or trees) of locations. All read methods are
// safe for concurrent use. Rebuilding means calling Build again.
type Forest struct {
	nodes    []*Node // input order
	preorder []*Node
	roots    []*Node
	byUUID   map[string]*Node
	def      *Node
	total    int
	src      cursor.TypedCursor[Record]
}

type buildOptions struct {
	logger zerolog.Logger
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithLogger sets the logger Build reports to.
func WithLogger(l zerolog.Logger) BuildOption {
	return func(o *buildOptions) { o.logger = l }
}

// Build reads every record from records and links them into a forest.
//
// Build takes ownership of records. On success the forest keeps it and
// Forest.Close closes it; on failure Build closes it before returning.
// Records whose parent is not in the batch become roots.
func Build(records cursor.TypedCursor[Record], opts ...BuildOption) (*Forest, error) {
	o := buildOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := build(records)
	if err != nil {
		_ = records.Close()
		o.logger.Error().Err(err).Msg("location forest build failed")
		return nil, err
	}
	f.src = records

	o.logger.Info().
		Int("locations", len(f.nodes)).
		Int("roots", len(f.roots)).
		Int("patients", f.total).
		Msg("loaded location forest")
	return f, nil
}

func build(records cursor.TypedCursor[Record]) (*Forest, error) {
	it, err := records.Iterator()
	if err != nil {
		return nil, fmt.Errorf("read location records: %w", err)
	}

	f := &Forest{byUUID: make(map[string]*Node)}
	for it.Next() {
		rec := it.Value()
		if rec.UUID == "" {
			return nil, fmt.Errorf("%w: record %d has no uuid", ErrMalformedHierarchy, it.Position())
		}
		if _, dup := f.byUUID[rec.UUID]; dup {
			return nil, fmt.Errorf("%w: duplicate uuid %q", ErrMalformedHierarchy, rec.UUID)
		}
		n := &Node{Record: rec, forest: f, index: len(f.nodes)}
		f.nodes = append(f.nodes, n)
		f.byUUID[rec.UUID] = n
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("read location records: %w", err)
	}

	for _, n := range f.nodes {
		parent, ok := f.byUUID[n.ParentUUID]
		if n.ParentUUID == "" || !ok {
			f.roots = append(f.roots, n)
			continue
		}
		n.parent = parent
		parent.children = append(parent.children, n)
	}

	// Walk from the roots. Anything not reached hangs off a cycle.
	f.preorder = make([]*Node, 0, len(f.nodes))
	stack := make([]*Node, 0, len(f.roots))
	for i := len(f.roots) - 1; i >= 0; i-- {
		stack = append(stack, f.roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.parent != nil {
			n.depth = n.parent.depth + 1
		}
		f.preorder = append(f.preorder, n)
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
	if len(f.preorder) != len(f.nodes) {
		seen := make(map[*Node]bool, len(f.preorder))
		for _, n := range f.preorder {
			seen[n] = true
		}
		for _, n := range f.nodes {
			if !seen[n] {
				return nil, fmt.Errorf("%w: cycle through %q", ErrMalformedHierarchy, n.UUID)
			}
		}
	}

	// Descendants follow their ancestors in pre-order, so walking it
	// backwards finishes every subtree before its root.
	for _, n := range f.nodes {
		n.subtree = n.PatientCount
		f.total += n.PatientCount
	}
	for i := len(f.preorder) - 1; i >= 0; i-- {
		if n := f.preorder[i]; n.parent != nil {
			n.parent.subtree += n.subtree
		}
	}

	for _, n := range f.preorder {
		if isDefaultMarked(n.Name) {
			f.def = n
			break
		}
	}
	if f.def == nil {
		for _, n := range f.preorder {
			if n.IsLeaf() {
				f.def = n
				break
			}
		}
	}
	return f, nil
}

// Close releases the record cursor the forest was built from. The forest
// stays readable. Calling Close more than once is a no-op.
func (f *Forest) Close() error {
	if f.src == nil {
		return nil
	}
	return f.src.Close()
}

// Closed reports whether Close has been called.
func (f *Forest) Closed() bool {
	return f.src == nil || f.src.Closed()
}

func (f *Forest) owns(n *Node) error {
	if n == nil || n.forest != f {
		return ErrNotFound
	}
	return nil
}

// Get looks a location up by uuid.
func (f *Forest) Get(uuid string) (*Node, error) {
	n, ok := f.byUUID[uuid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, uuid)
	}
	return n, nil
}

// Contains reports whether n belongs to this forest.
func (f *Forest) Contains(n *Node) bool { return f.owns(n) == nil }

// Size returns the number of locations.
func (f *Forest) Size() int { return len(f.nodes) }

// Roots returns every node without a resolvable parent, in input order.
func (f *Forest) Roots() []*Node { return clone(f.roots) }

// AllNodes returns every node in input order.
func (f *Forest) AllNodes() []*Node { return clone(f.nodes) }

// Parent returns the parent of n, or nil when n is a root.
func (f *Forest) Parent(n *Node) (*Node, error) {
	if err := f.owns(n); err != nil {
		return nil, err
	}
	return n.parent, nil
}

// Children returns the direct children of n in input order.
func (f *Forest) Children(n *Node) ([]*Node, error) {
	if err := f.owns(n); err != nil {
		return nil, err
	}
	return n.Children(), nil
}

// Depth returns 0 for roots and one more than the parent's depth otherwise.
func (f *Forest) Depth(n *Node) (int, error) {
	if err := f.owns(n); err != nil {
		return 0, err
	}
	return n.depth, nil
}

// Subtree returns n and all of its descendants in pre-order.
func (f *Forest) Subtree(n *Node) ([]*Node, error) {
	if err := f.owns(n); err != nil {
		return nil, err
	}
	var out []*Node
	var walk func(*Node)
	walk = func(m *Node) {
		out = append(out, m)
		for _, c := range m.children {
			walk(c)
		}
	}
	walk(n)
	return out, nil
}

// DescendantsAtDepth returns every node at an absolute depth, in input order.
// DepthZone enumerates the zones of a facility.
func (f *Forest) DescendantsAtDepth(depth int) []*Node {
	var out []*Node
	for _, n := range f.nodes {
		if n.depth == depth {
			out = append(out, n)
		}
	}
	return out
}

// DescendantsAtRelativeDepth returns the descendants of n that are depth
// levels below it, in input order. Depth 0 returns n itself.
func (f *Forest) DescendantsAtRelativeDepth(n *Node, depth int) ([]*Node, error) {
	if err := f.owns(n); err != nil {
		return nil, err
	}
	sub, _ := f.Subtree(n)
	in := make(map[*Node]bool, len(sub))
	for _, m := range sub {
		in[m] = true
	}
	var out []*Node
	for _, m := range f.nodes {
		if in[m] && m.depth == n.depth+depth {
			out = append(out, m)
		}
	}
	return out, nil
}

// SubtreePatientCount returns n's patient count plus all descendants'.
func (f *Forest) SubtreePatientCount(n *Node) (int, error) {
	if err := f.owns(n); err != nil {
		return 0, err
	}
	return n.subtree, nil
}

// TotalPatientCount returns the number of patients in the whole forest.
func (f *Forest) TotalPatientCount() int { return f.total }

// Leaves returns the nodes without children, in pre-order.
func (f *Forest) Leaves() []*Node {
	var out []*Node
	for _, n := range f.preorder {
		if n.IsLeaf() {
			out = append(out, n)
		}
	}
	return out
}

// DefaultLocation returns where new patients are placed: the first location
// whose name carries a [*] marker, else the first leaf. Nil only for an
// empty forest.
func (f *Forest) DefaultLocation() *Node { return f.def }

func clone(ns []*Node) []*Node {
	out := make([]*Node, len(ns))
	copy(out, ns)
	return out
}
