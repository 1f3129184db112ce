package filter

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// fixed is a leaf selection with canned output.
type fixed struct {
	sel  string
	args []string
}

func (f fixed) SelectionString() string { return f.sel }

func (f fixed) SelectionArgs(_ string) []string { return f.args }

func (f fixed) Description() string { return Describe(f, "") }

// ---------------------------------------------------------------------------
// Leaves
// ---------------------------------------------------------------------------

func TestAll_PassThrough(t *testing.T) {
	var f All
	if f.SelectionString() != "" {
		t.Errorf("expected empty selection, got %q", f.SelectionString())
	}
	if args := f.SelectionArgs("anything"); len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
	if f.Description() != "All" {
		t.Errorf("expected type-name description, got %q", f.Description())
	}
}

func TestEquals_UsesConstraint(t *testing.T) {
	f, err := NewEquals("uuid", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.SelectionString() != "uuid = ?" {
		t.Errorf("got %q", f.SelectionString())
	}
	if got := f.SelectionArgs("abc"); !reflect.DeepEqual(got, []string{"abc"}) {
		t.Errorf("got %v", got)
	}
}

func TestEquals_MissingColumn(t *testing.T) {
	_, err := NewEquals("", "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestIn_Placeholders(t *testing.T) {
	f := In{Column: "location_uuid", Values: []string{"a", "b", "c"}}
	if f.SelectionString() != "location_uuid IN (?,?,?)" {
		t.Errorf("got %q", f.SelectionString())
	}
	if got := f.SelectionArgs(""); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("got %v", got)
	}
	if (In{Column: "x"}).SelectionString() != "" {
		t.Error("empty In should add no constraint")
	}
}

func TestDescribe_PrefersLabel(t *testing.T) {
	if got := (NotEquals{Label: "Present"}).Description(); got != "Present" {
		t.Errorf("got %q", got)
	}
	if got := (NotEquals{}).Description(); got != "NotEquals" {
		t.Errorf("got %q", got)
	}
}

// ---------------------------------------------------------------------------
// Groups
// ---------------------------------------------------------------------------

func TestGroup_ArgsConcatenateInOrder(t *testing.T) {
	f1 := fixed{"a = ?", []string{"1"}}
	f2 := fixed{"b IN (?,?)", []string{"2", "3"}}
	f3 := fixed{"c > ?", []string{"4"}}

	for _, op := range []Op{OpAnd, OpOr} {
		g := NewGroup(op, f1, f2, f3)
		want := []string{"1", "2", "3", "4"}
		if got := g.SelectionArgs("x"); !reflect.DeepEqual(got, want) {
			t.Errorf("%s: got %v, want %v", op, got, want)
		}
		if n := strings.Count(g.SelectionString(), "?"); n != len(want) {
			t.Errorf("%s: %d placeholders for %d args", op, n, len(want))
		}
	}
}

func TestGroup_SelectionString(t *testing.T) {
	g := Or(fixed{sel: "a = ?"}, fixed{sel: "b = ?"})
	if got := g.SelectionString(); got != "(a = ? OR b = ?)" {
		t.Errorf("got %q", got)
	}
	g = And(fixed{sel: "a = ?"}, fixed{sel: "b = ?"})
	if got := g.SelectionString(); got != "(a = ? AND b = ?)" {
		t.Errorf("got %q", got)
	}
}

func TestGroup_SkipsBlankMembers(t *testing.T) {
	eq := fixed{"a = ?", []string{"1"}}
	g := And(All{}, eq, fixed{sel: "   "})
	if got := g.SelectionString(); got != "(a = ?)" {
		t.Errorf("got %q", got)
	}
	if strings.Contains(g.SelectionString(), "AND") {
		t.Error("blank member produced a stray operator")
	}
	if got := g.SelectionArgs(""); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("got %v", got)
	}
}

func TestGroup_EmptyIsPassThrough(t *testing.T) {
	if got := And().SelectionString(); got != "" {
		t.Errorf("got %q", got)
	}
	if got := Or(All{}, All{}).SelectionString(); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestGroup_Nested(t *testing.T) {
	inner := Or(fixed{"a = ?", []string{"1"}}, fixed{"b = ?", []string{"2"}})
	outer := And(inner, fixed{"c = ?", []string{"3"}})
	if got := outer.SelectionString(); got != "((a = ? OR b = ?) AND c = ?)" {
		t.Errorf("got %q", got)
	}
	if got := outer.SelectionArgs(""); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Errorf("got %v", got)
	}
}

func TestGroup_NamedCopies(t *testing.T) {
	g := And(All{})
	named := g.Named("Children under 5")
	if named.Description() != "Children under 5" {
		t.Errorf("got %q", named.Description())
	}
	if g.Description() != "Group" {
		t.Errorf("source group renamed: %q", g.Description())
	}
}

// ---------------------------------------------------------------------------
// Matchers
// ---------------------------------------------------------------------------

var (
	prefix = MatcherFunc[string](func(s, c string) bool { return strings.HasPrefix(s, c) })
	suffix = MatcherFunc[string](func(s, c string) bool { return strings.HasSuffix(s, c) })
)

func TestMatchGroup_Or(t *testing.T) {
	g := MatchAny[string](prefix, suffix)
	for _, c := range []string{"foo", "bar", "foobar"} {
		if !g.Matches("foobar", c) {
			t.Errorf("expected %q to match", c)
		}
	}
	if g.Matches("foobar", "oba") {
		t.Error("interior text should not match prefix OR suffix")
	}
}

func TestMatchGroup_And(t *testing.T) {
	g := MatchAll[string](prefix, suffix)
	if g.Matches("foobar", "foo") || g.Matches("foobar", "bar") {
		t.Error("AND group matched on a single member")
	}
	if !g.Matches("foobar", "foobar") {
		t.Error("expected full string to match both")
	}
}

func TestMatchGroup_SingleMember(t *testing.T) {
	for _, op := range []Op{OpAnd, OpOr} {
		g := NewMatchGroup[string](op, prefix)
		if !g.Matches("foobar", "foo") || g.Matches("foobar", "bar") {
			t.Errorf("%s single-member group differs from its member", op)
		}
	}
}

func TestMatchGroup_Empty(t *testing.T) {
	if !MatchAll[string]().Matches("x", "y") {
		t.Error("empty AND group should match")
	}
	if MatchAny[string]().Matches("x", "y") {
		t.Error("empty OR group should not match")
	}
}
