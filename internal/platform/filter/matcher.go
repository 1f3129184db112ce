package filter

// Matcher is a predicate evaluated directly against an in-memory record and
// the caller's free-text constraint. Matchers have no side effects, so groups
// are free to stop evaluating early.
type Matcher[T any] interface {
	Matches(item T, constraint string) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc[T any] func(item T, constraint string) bool

func (f MatcherFunc[T]) Matches(item T, constraint string) bool { return f(item, constraint) }

// MatchGroup combines matchers under AND or OR.
type MatchGroup[T any] struct {
	op       Op
	matchers []Matcher[T]
}

// NewMatchGroup returns a group joining matchers with op. An empty AND group
// matches everything; an empty OR group matches nothing.
func NewMatchGroup[T any](op Op, matchers ...Matcher[T]) *MatchGroup[T] {
	ms := make([]Matcher[T], len(matchers))
	copy(ms, matchers)
	return &MatchGroup[T]{op: op, matchers: ms}
}

// MatchAll requires every matcher to match.
func MatchAll[T any](matchers ...Matcher[T]) *MatchGroup[T] {
	return NewMatchGroup(OpAnd, matchers...)
}

// MatchAny requires at least one matcher to match.
func MatchAny[T any](matchers ...Matcher[T]) *MatchGroup[T] {
	return NewMatchGroup(OpOr, matchers...)
}

func (g *MatchGroup[T]) Matches(item T, constraint string) bool {
	if g.op == OpOr {
		for _, m := range g.matchers {
			if m.Matches(item, constraint) {
				return true
			}
		}
		return false
	}
	for _, m := range g.matchers {
		if !m.Matches(item, constraint) {
			return false
		}
	}
	return true
}
