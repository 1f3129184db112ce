package cursor

import "fmt"

// ConvertedCursor presents a cursor of U as a cursor of T. Each backing
// record is converted on first access and the result is kept, so repeated Get
// calls for the same position convert once.
type ConvertedCursor[U, T any] struct {
	src     TypedCursor[U]
	convert func(U) (T, error)
	cache   map[int]T
}

// Convert wraps src. Closing the returned cursor closes src.
func Convert[U, T any](src TypedCursor[U], convert func(U) (T, error)) *ConvertedCursor[U, T] {
	return &ConvertedCursor[U, T]{src: src, convert: convert, cache: make(map[int]T)}
}

func (c *ConvertedCursor[U, T]) Count() (int, error) { return c.src.Count() }

func (c *ConvertedCursor[U, T]) Get(position int) (T, error) {
	var zero T
	if c.src.Closed() {
		return zero, ErrClosed
	}
	if v, ok := c.cache[position]; ok {
		return v, nil
	}
	raw, err := c.src.Get(position)
	if err != nil {
		return zero, err
	}
	v, err := c.convert(raw)
	if err != nil {
		return zero, fmt.Errorf("convert record %d: %w", position, err)
	}
	c.cache[position] = v
	return v, nil
}

func (c *ConvertedCursor[U, T]) Iterator() (*Iterator[T], error) {
	return newIterator[T](c)
}

func (c *ConvertedCursor[U, T]) Close() error { return c.src.Close() }

func (c *ConvertedCursor[U, T]) Closed() bool { return c.src.Closed() }
