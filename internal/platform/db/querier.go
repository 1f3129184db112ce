package db

import (
	"context"
)

// Rows is the subset of a result set the repositories need. pgx.Rows
// satisfies it directly; database/sql rows are adapted in sqlite.go.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier runs SQL written with "?" positional placeholders against the local
// store. Implementations translate placeholders for their driver.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) error
	Ping(ctx context.Context) error
	Driver() string
	Close()
}

// StringArgs converts selection arguments to driver arguments.
func StringArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}
