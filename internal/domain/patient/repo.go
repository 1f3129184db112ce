package patient

import (
	"context"

	"github.com/ehr/records/internal/platform/cursor"
)

type Repository interface {
	// Query returns the patients matching a selection built by a
	// filter.Selection. An empty selection returns every patient. The caller
	// owns the cursor.
	Query(ctx context.Context, selection string, args []string) (cursor.TypedCursor[Patient], error)
	Create(ctx context.Context, p *Patient) error
	AddObservation(ctx context.Context, obs Observation) error
}
