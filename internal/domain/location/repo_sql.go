package location

import (
	"context"
	"fmt"

	"github.com/ehr/records/internal/platform/cursor"
	"github.com/ehr/records/internal/platform/db"
)

type repoSQL struct {
	q db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoSQL{q: q}
}

const recordsQuery = `
	SELECT l.uuid, COALESCE(l.parent_uuid, ''), l.name, COUNT(p.uuid)
	FROM locations l
	LEFT JOIN patients p ON p.location_uuid = l.uuid
	GROUP BY l.uuid, l.parent_uuid, l.name, l.ordinal
	ORDER BY l.ordinal, l.uuid`

func (r *repoSQL) Records(ctx context.Context) (cursor.TypedCursor[Record], error) {
	rows, err := r.q.Query(ctx, recordsQuery)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.UUID, &rec.ParentUUID, &rec.Name, &rec.PatientCount); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return cursor.FromSlice(recs, nil), nil
}

func (r *repoSQL) Create(ctx context.Context, rec Record, ordinal int) error {
	var parent any
	if rec.ParentUUID != "" {
		parent = rec.ParentUUID
	}
	err := r.q.Exec(ctx,
		`INSERT INTO locations (uuid, parent_uuid, name, ordinal) VALUES (?, ?, ?, ?)`,
		rec.UUID, parent, rec.Name, ordinal,
	)
	if err != nil {
		return fmt.Errorf("insert location %s: %w", rec.UUID, err)
	}
	return nil
}
