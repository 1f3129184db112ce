// Package cursor provides closeable, randomly indexable result sets of typed
// records. Every list of patients or locations in the app is a TypedCursor,
// and every TypedCursor has exactly one owner responsible for closing it.
package cursor

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by any operation on a cursor after Close.
	ErrClosed = errors.New("cursor: use after close")

	// ErrOutOfRange is returned by Get for a position outside [0, Count()).
	ErrOutOfRange = errors.New("cursor: position out of range")
)

// TypedCursor is a finite, read-only view over a materialized list of T.
//
// A TypedCursor is not safe for concurrent Get calls, but Close may be called
// from any goroutine and only the first call releases resources.
type TypedCursor[T any] interface {
	// Count returns the number of records.
	Count() (int, error)
	// Get returns the record at a zero-based position.
	Get(position int) (T, error)
	// Iterator returns a new forward-only iterator positioned before the
	// first record.
	Iterator() (*Iterator[T], error)
	// Close releases the cursor. Calling it more than once is a no-op.
	Close() error
	// Closed reports whether Close has been called.
	Closed() bool
}

func outOfRange(position, count int) error {
	return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, position, count)
}

// Iterator walks a cursor front to back. It is restartable only by creating a
// new one from the cursor.
type Iterator[T any] struct {
	src   TypedCursor[T]
	pos   int
	count int
	cur   T
	err   error
}

func newIterator[T any](src TypedCursor[T]) (*Iterator[T], error) {
	n, err := src.Count()
	if err != nil {
		return nil, err
	}
	return &Iterator[T]{src: src, pos: -1, count: n}, nil
}

// Next advances to the next record and reports whether one is available.
func (it *Iterator[T]) Next() bool {
	if it.err != nil || it.pos+1 >= it.count {
		return false
	}
	v, err := it.src.Get(it.pos + 1)
	if err != nil {
		it.err = err
		return false
	}
	it.pos++
	it.cur = v
	return true
}

// Value returns the record at the current position.
func (it *Iterator[T]) Value() T { return it.cur }

// Position returns the index of the current record, or -1 before the first Next.
func (it *Iterator[T]) Position() int { return it.pos }

// Err returns the error that stopped iteration, if any. A cursor closed while
// iterating yields ErrClosed here.
func (it *Iterator[T]) Err() error { return it.err }

// Collect drains a cursor into a slice without closing it.
func Collect[T any](c TypedCursor[T]) ([]T, error) {
	it, err := c.Iterator()
	if err != nil {
		return nil, err
	}
	var out []T
	for it.Next() {
		out = append(out, it.Value())
	}
	return out, it.Err()
}
