package filter

import "strings"

// Op joins the members of a group.
type Op int

const (
	OpAnd Op = iota
	OpOr
)

func (o Op) String() string {
	if o == OpOr {
		return "OR"
	}
	return "AND"
}

// Group combines selections under AND or OR. Groups nest.
type Group struct {
	op      Op
	filters []Selection
	name    string
}

// NewGroup returns a group joining filters with op.
func NewGroup(op Op, filters ...Selection) *Group {
	fs := make([]Selection, len(filters))
	copy(fs, filters)
	return &Group{op: op, filters: fs}
}

// And is NewGroup(OpAnd, filters...).
func And(filters ...Selection) *Group { return NewGroup(OpAnd, filters...) }

// Or is NewGroup(OpOr, filters...).
func Or(filters ...Selection) *Group { return NewGroup(OpOr, filters...) }

// Named returns a copy of g carrying a display name.
func (g *Group) Named(name string) *Group {
	cp := *g
	cp.name = name
	return &cp
}

// Op returns the group operator.
func (g *Group) Op() Op { return g.op }

// Filters returns the group members in order.
func (g *Group) Filters() []Selection {
	out := make([]Selection, len(g.filters))
	copy(out, g.filters)
	return out
}

// SelectionString joins the non-blank member selections with the operator and
// parenthesizes the result. A group with no non-blank members selects
// everything and returns "".
func (g *Group) SelectionString() string {
	var parts []string
	for _, f := range g.filters {
		s := strings.TrimSpace(f.SelectionString())
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " "+g.op.String()+" ") + ")"
}

// SelectionArgs concatenates member arguments in member order. Members with a
// blank selection contribute no placeholders and must contribute no args.
func (g *Group) SelectionArgs(constraint string) []string {
	var args []string
	for _, f := range g.filters {
		args = append(args, f.SelectionArgs(constraint)...)
	}
	return args
}

func (g *Group) Description() string { return Describe(g, g.name) }
