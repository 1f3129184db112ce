package db

import (
	"context"
	"fmt"
	"sort"
)

// Migration represents a single schema change.
type Migration struct {
	Version int
	Name    string
	SQL     []string
}

// MigrationStatus represents the status of a migration (applied or pending).
type MigrationStatus struct {
	Version int
	Name    string
	Applied bool
}

// Schema is the ward store layout. The statements are valid for both SQLite
// and PostgreSQL.
var Schema = []Migration{
	{
		Version: 1,
		Name:    "locations",
		SQL: []string{
			`CREATE TABLE IF NOT EXISTS locations (
				uuid        TEXT PRIMARY KEY,
				parent_uuid TEXT,
				name        TEXT NOT NULL,
				ordinal     INTEGER NOT NULL DEFAULT 0
			)`,
		},
	},
	{
		Version: 2,
		Name:    "patients",
		SQL: []string{
			`CREATE TABLE IF NOT EXISTS patients (
				uuid          TEXT PRIMARY KEY,
				id            TEXT NOT NULL DEFAULT '',
				given_name    TEXT,
				family_name   TEXT,
				gender        TEXT NOT NULL DEFAULT '',
				birthdate     TEXT,
				location_uuid TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS patients_location_uuid ON patients (location_uuid)`,
		},
	},
	{
		Version: 3,
		Name:    "observations",
		SQL: []string{
			`CREATE TABLE IF NOT EXISTS observations (
				patient_uuid   TEXT NOT NULL,
				concept_uuid   TEXT NOT NULL,
				encounter_time BIGINT NOT NULL,
				value          TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS observations_patient_concept ON observations (patient_uuid, concept_uuid)`,
		},
	},
}

// Migrator applies Schema to a store and records applied versions in the
// _migrations table.
type Migrator struct {
	q          Querier
	migrations []Migration
}

// NewMigrator creates a Migrator for the given migrations (usually Schema).
func NewMigrator(q Querier, migrations []Migration) *Migrator {
	ms := make([]Migration, len(migrations))
	copy(ms, migrations)
	sort.Slice(ms, func(i, j int) bool { return ms[i].Version < ms[j].Version })
	return &Migrator{q: q, migrations: ms}
}

// EnsureMigrationsTable creates the _migrations tracking table if it does not
// already exist.
func (m *Migrator) EnsureMigrationsTable(ctx context.Context) error {
	err := m.q.Exec(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		version INTEGER PRIMARY KEY,
		name    TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create _migrations table: %w", err)
	}
	return nil
}

// AppliedVersions returns the set of migration versions already applied.
func (m *Migrator) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.q.Query(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied versions: %w", err)
	}

	return applied, nil
}

// Up applies all pending migrations in version order. Returns the count of
// applied migrations.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.EnsureMigrationsTable(ctx); err != nil {
		return 0, err
	}

	applied, err := m.AppliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range m.migrations {
		if applied[mig.Version] {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return count, fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		count++
	}

	return count, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	for _, stmt := range mig.SQL {
		if err := m.q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute SQL: %w", err)
		}
	}
	if err := m.q.Exec(ctx,
		"INSERT INTO _migrations (version, name) VALUES (?, ?)",
		mig.Version, mig.Name,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return nil
}

// Status returns the status of all known migrations, applied and pending.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.EnsureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	var statuses []MigrationStatus
	for _, mig := range m.migrations {
		statuses = append(statuses, MigrationStatus{
			Version: mig.Version,
			Name:    mig.Name,
			Applied: applied[mig.Version],
		})
	}
	return statuses, nil
}
