package appmodel

import (
	"fmt"

	"github.com/ehr/records/internal/domain/location"
	"github.com/ehr/records/internal/platform/cursor"
	"github.com/ehr/records/internal/platform/filter"
)

// ForestFetched carries a freshly built location forest. The handler that
// accepts it owns the forest and must Close it.
type ForestFetched struct {
	Forest *location.Forest
}

func (e ForestFetched) Release() error { return e.Forest.Close() }

// CursorFetched carries the result of a filtered fetch. The handler that
// accepts it owns Cursor and must Close it.
type CursorFetched[T any] struct {
	Cursor     cursor.TypedCursor[T]
	Selection  filter.Selection
	Constraint string
}

func (e CursorFetched[T]) Release() error { return e.Cursor.Close() }

// SingleItemFetched carries one record. It owns no resources.
type SingleItemFetched[T any] struct {
	Item T
}

// ItemNotFound reports a single-item fetch that matched nothing.
type ItemNotFound struct {
	Op  string
	Key string
}

// FetchFailed reports a fetch that did not produce a result. Subscribers
// waiting for Op should stop waiting.
type FetchFailed struct {
	Op  string
	Err error
}

func (e FetchFailed) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e FetchFailed) Unwrap() error { return e.Err }
