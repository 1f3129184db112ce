package cursor

import "github.com/ehr/records/internal/platform/filter"

// FilteredCursor narrows an already-fetched cursor with an in-memory matcher.
// The backing cursor is scanned once, at construction, and the matching
// positions are remembered; afterwards Get is a plain index translation.
type FilteredCursor[T any] struct {
	src     TypedCursor[T]
	indices []int
}

// Filter scans src with m and constraint and returns the narrowed view.
// The FilteredCursor owns src from here on: closing it closes src.
func Filter[T any](src TypedCursor[T], m filter.Matcher[T], constraint string) (*FilteredCursor[T], error) {
	it, err := src.Iterator()
	if err != nil {
		return nil, err
	}
	var indices []int
	for it.Next() {
		if m.Matches(it.Value(), constraint) {
			indices = append(indices, it.Position())
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return &FilteredCursor[T]{src: src, indices: indices}, nil
}

func (c *FilteredCursor[T]) Count() (int, error) {
	if c.src.Closed() {
		return 0, ErrClosed
	}
	return len(c.indices), nil
}

func (c *FilteredCursor[T]) Get(position int) (T, error) {
	var zero T
	if c.src.Closed() {
		return zero, ErrClosed
	}
	if position < 0 || position >= len(c.indices) {
		return zero, outOfRange(position, len(c.indices))
	}
	return c.src.Get(c.indices[position])
}

// BackingPosition maps a filtered position to its position in the backing cursor.
func (c *FilteredCursor[T]) BackingPosition(position int) (int, error) {
	if position < 0 || position >= len(c.indices) {
		return 0, outOfRange(position, len(c.indices))
	}
	return c.indices[position], nil
}

func (c *FilteredCursor[T]) Iterator() (*Iterator[T], error) {
	return newIterator[T](c)
}

func (c *FilteredCursor[T]) Close() error { return c.src.Close() }

func (c *FilteredCursor[T]) Closed() bool { return c.src.Closed() }
