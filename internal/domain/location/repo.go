package location

import (
	"context"

	"github.com/ehr/records/internal/platform/cursor"
)

type Repository interface {
	// Records returns every location with its direct patient count, ordered
	// by ordinal. The caller owns the cursor.
	Records(ctx context.Context) (cursor.TypedCursor[Record], error)
	Create(ctx context.Context, rec Record, ordinal int) error
}
