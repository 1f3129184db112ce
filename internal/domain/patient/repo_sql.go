package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/records/internal/platform/cursor"
	"github.com/ehr/records/internal/platform/db"
)

type repoSQL struct {
	q db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoSQL{q: q}
}

const patientCols = `uuid, id, COALESCE(given_name, ''), COALESCE(family_name, ''),
	gender, COALESCE(birthdate, ''), COALESCE(location_uuid, '')`

// row is a patient as stored; conversion to Patient happens on first access.
type row struct {
	uuid, id, given, family, gender, birthdate, location string
}

func (r *repoSQL) Query(ctx context.Context, selection string, args []string) (cursor.TypedCursor[Patient], error) {
	query := `SELECT ` + patientCols + ` FROM patients`
	if strings.TrimSpace(selection) != "" {
		query += ` WHERE ` + selection
	}
	query += ` ORDER BY id, uuid`

	rows, err := r.q.Query(ctx, query, db.StringArgs(args)...)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	var raw []row
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.uuid, &rw.id, &rw.given, &rw.family, &rw.gender, &rw.birthdate, &rw.location); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		raw = append(raw, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return cursor.Convert[row, Patient](cursor.FromSlice(raw, nil), fromRow), nil
}

func fromRow(rw row) (Patient, error) {
	p := Patient{
		UUID:         rw.uuid,
		ID:           rw.id,
		GivenName:    rw.given,
		FamilyName:   rw.family,
		Gender:       rw.gender,
		LocationUUID: rw.location,
	}
	if rw.birthdate != "" {
		b, err := time.Parse(DateLayout, rw.birthdate)
		if err != nil {
			return Patient{}, fmt.Errorf("patient %s birthdate: %w", rw.uuid, err)
		}
		p.Birthdate = &b
	}
	return p, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *repoSQL) Create(ctx context.Context, p *Patient) error {
	if p.UUID == "" {
		p.UUID = uuid.New().String()
	}
	var birthdate any
	if p.Birthdate != nil {
		birthdate = p.Birthdate.Format(DateLayout)
	}
	err := r.q.Exec(ctx, `
		INSERT INTO patients (uuid, id, given_name, family_name, gender, birthdate, location_uuid)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UUID, p.ID, nullable(p.GivenName), nullable(p.FamilyName), p.Gender, birthdate, nullable(p.LocationUUID),
	)
	if err != nil {
		return fmt.Errorf("insert patient %s: %w", p.UUID, err)
	}
	return nil
}

func (r *repoSQL) AddObservation(ctx context.Context, obs Observation) error {
	err := r.q.Exec(ctx, `
		INSERT INTO observations (patient_uuid, concept_uuid, encounter_time, value)
		VALUES (?, ?, ?, ?)`,
		obs.PatientUUID, obs.ConceptUUID, obs.EncounterTime.UnixMilli(), obs.Value,
	)
	if err != nil {
		return fmt.Errorf("insert observation for %s: %w", obs.PatientUUID, err)
	}
	return nil
}
