// Package filter composes predicates over patient lists. A Selection turns
// into a WHERE-clause fragment with positional "?" placeholders and is pushed
// down to the store; a Matcher is evaluated against records already in memory.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument is returned when a filter is constructed without a
// required parameter. Filters fail at construction, never at evaluation.
var ErrInvalidArgument = errors.New("filter: invalid argument")

// Selection is a predicate expressible as a store query fragment.
//
// SelectionArgs returns one argument per placeholder in SelectionString, in
// order. constraint is the free-text value supplied to the whole composed
// filter; most filters ignore it.
type Selection interface {
	SelectionString() string
	SelectionArgs(constraint string) []string
	Description() string
}

// Describe returns desc, or the type name of s when desc is empty.
func Describe(s Selection, desc string) string {
	if desc != "" {
		return desc
	}
	name := strings.TrimPrefix(fmt.Sprintf("%T", s), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// All matches every record.
type All struct {
	Label string
}

func (f All) SelectionString() string { return "" }

func (f All) SelectionArgs(_ string) []string { return nil }

func (f All) Description() string { return Describe(f, f.Label) }

// Equals matches records whose Column equals the caller's constraint.
type Equals struct {
	Column string
	Label  string
}

// NewEquals returns an Equals filter on column.
func NewEquals(column, label string) (Equals, error) {
	if column == "" {
		return Equals{}, fmt.Errorf("%w: equality filter needs a column", ErrInvalidArgument)
	}
	return Equals{Column: column, Label: label}, nil
}

func (f Equals) SelectionString() string { return f.Column + " = ?" }

func (f Equals) SelectionArgs(constraint string) []string { return []string{constraint} }

func (f Equals) Description() string { return Describe(f, f.Label) }

// NotEquals matches records whose Column differs from a fixed Value.
type NotEquals struct {
	Column string
	Value  string
	Label  string
}

func (f NotEquals) SelectionString() string { return f.Column + " != ?" }

func (f NotEquals) SelectionArgs(_ string) []string { return []string{f.Value} }

func (f NotEquals) Description() string { return Describe(f, f.Label) }

// In matches records whose Column is one of Values. An empty Values list
// adds no constraint.
type In struct {
	Column string
	Values []string
	Label  string
}

func (f In) SelectionString() string {
	if len(f.Values) == 0 {
		return ""
	}
	return fmt.Sprintf("%s IN (%s)", f.Column, Placeholders(len(f.Values)))
}

func (f In) SelectionArgs(_ string) []string {
	if len(f.Values) == 0 {
		return nil
	}
	out := make([]string, len(f.Values))
	copy(out, f.Values)
	return out
}

func (f In) Description() string { return Describe(f, f.Label) }

// Placeholders returns n comma-separated "?" markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
