package cursor

import "sync/atomic"

// closer runs a release function at most once.
type closer struct {
	closed  atomic.Bool
	release func() error
}

func (c *closer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.release != nil {
		return c.release()
	}
	return nil
}

func (c *closer) Closed() bool { return c.closed.Load() }

// SliceCursor is a TypedCursor over records already held in memory.
type SliceCursor[T any] struct {
	closer
	items []T
}

// FromSlice wraps items in a cursor. release, if non-nil, runs once on the
// first Close; it is where a data-access layer frees whatever produced items.
func FromSlice[T any](items []T, release func() error) *SliceCursor[T] {
	return &SliceCursor[T]{closer: closer{release: release}, items: items}
}

func (c *SliceCursor[T]) Count() (int, error) {
	if c.Closed() {
		return 0, ErrClosed
	}
	return len(c.items), nil
}

func (c *SliceCursor[T]) Get(position int) (T, error) {
	var zero T
	if c.Closed() {
		return zero, ErrClosed
	}
	if position < 0 || position >= len(c.items) {
		return zero, outOfRange(position, len(c.items))
	}
	return c.items[position], nil
}

func (c *SliceCursor[T]) Iterator() (*Iterator[T], error) {
	return newIterator[T](c)
}
