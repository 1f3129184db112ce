// Package appmodel runs fetches against the local store in the background
// and posts their results on an event bus.
package appmodel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/domain/location"
	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/platform/cursor"
	"github.com/ehr/records/internal/platform/filter"
	"github.com/ehr/records/internal/platform/telemetry"
)

// Fetch operation names used in FetchFailed and metrics.
const (
	OpLocations     = "locations"
	OpPatients      = "patients"
	OpSinglePatient = "single_patient"
)

// Poster is the part of eventbus.Bus fetches need.
type Poster interface {
	Post(ev any) bool
}

// Model starts fetches. Every Fetch method returns at once; the result, or a
// FetchFailed, arrives on the bus.
type Model struct {
	locations location.Repository
	patients  patient.Repository
	logger    zerolog.Logger
	metrics   *telemetry.Metrics

	wg sync.WaitGroup
}

// Option configures a Model.
type Option func(*Model)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) { m.logger = l.With().Str("component", "appmodel").Logger() }
}

func WithMetrics(mt *telemetry.Metrics) Option {
	return func(m *Model) { m.metrics = mt }
}

func New(locations location.Repository, patients patient.Repository, opts ...Option) *Model {
	m := &Model{locations: locations, patients: patients, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wait blocks until every fetch started so far has posted its result.
func (m *Model) Wait() { m.wg.Wait() }

func (m *Model) run(op string, fn func() error) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		start := time.Now()
		err := fn()
		m.metrics.ObserveFetch(op, start, err)
	}()
}

func (m *Model) fail(bus Poster, op string, err error) error {
	m.logger.Error().Err(err).Str("op", op).Msg("fetch failed")
	bus.Post(FetchFailed{Op: op, Err: err})
	return err
}

// FetchLocationForest loads all locations, builds a forest and posts
// ForestFetched.
func (m *Model) FetchLocationForest(ctx context.Context, bus Poster) {
	m.run(OpLocations, func() error {
		recs, err := m.locations.Records(ctx)
		if err != nil {
			return m.fail(bus, OpLocations, err)
		}
		forest, err := location.Build(recs, location.WithLogger(m.logger))
		if err != nil {
			return m.fail(bus, OpLocations, err)
		}
		if err := ctx.Err(); err != nil {
			_ = forest.Close()
			return m.fail(bus, OpLocations, err)
		}
		bus.Post(ForestFetched{Forest: forest})
		return nil
	})
}

// FetchPatients queries patients matching sel and posts
// CursorFetched[patient.Patient]. A nil sel is the default filter.
func (m *Model) FetchPatients(ctx context.Context, bus Poster, sel filter.Selection, constraint string) {
	if sel == nil {
		sel = patient.DefaultFilter()
	}
	m.run(OpPatients, func() error {
		cur, err := m.query(ctx, sel, constraint)
		if err != nil {
			return m.fail(bus, OpPatients, err)
		}
		if err := ctx.Err(); err != nil {
			_ = cur.Close()
			return m.fail(bus, OpPatients, err)
		}
		m.logger.Debug().Str("filter", sel.Description()).Msg("patients fetched")
		bus.Post(CursorFetched[patient.Patient]{Cursor: cur, Selection: sel, Constraint: constraint})
		return nil
	})
}

// FetchSinglePatient looks a patient up by uuid and posts
// SingleItemFetched[patient.Patient], or ItemNotFound.
func (m *Model) FetchSinglePatient(ctx context.Context, bus Poster, uuid string) {
	m.run(OpSinglePatient, func() error {
		cur, err := m.query(ctx, patient.UUIDFilter(), uuid)
		if err != nil {
			return m.fail(bus, OpSinglePatient, err)
		}
		defer cur.Close()

		n, err := cur.Count()
		if err != nil {
			return m.fail(bus, OpSinglePatient, err)
		}
		if n == 0 {
			bus.Post(ItemNotFound{Op: OpSinglePatient, Key: uuid})
			return nil
		}
		p, err := cur.Get(0)
		if err != nil {
			return m.fail(bus, OpSinglePatient, err)
		}
		if err := ctx.Err(); err != nil {
			return m.fail(bus, OpSinglePatient, err)
		}
		bus.Post(SingleItemFetched[patient.Patient]{Item: p})
		return nil
	})
}

func (m *Model) query(ctx context.Context, sel filter.Selection, constraint string) (cursor.TypedCursor[patient.Patient], error) {
	cur, err := m.patients.Query(ctx, sel.SelectionString(), sel.SelectionArgs(constraint))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sel.Description(), err)
	}
	return telemetry.TrackCursor(m.metrics, cur), nil
}

// SearchPatients narrows an already-fetched patient cursor to those whose id
// or name matches query. The returned cursor takes over cur.
func (m *Model) SearchPatients(cur cursor.TypedCursor[patient.Patient], query string) (*cursor.FilteredCursor[patient.Patient], error) {
	return cursor.Filter(cur, patient.SearchMatcher(), query)
}
