// Package wardview serves the location tree and filtered patient lists as
// JSON for ward dashboards.
package wardview

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/domain/appmodel"
	"github.com/ehr/records/internal/domain/location"
	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/platform/cursor"
	"github.com/ehr/records/internal/platform/eventbus"
	"github.com/ehr/records/internal/platform/filter"
)

type Handler struct {
	model   *appmodel.Model
	zones   location.Zones
	locale  string
	now     patient.Clock
	logger  zerolog.Logger
	busOpts []eventbus.Option
}

// Option configures a Handler.
type Option func(*Handler)

func WithLocale(locale string) Option { return func(h *Handler) { h.locale = locale } }

func WithClock(now patient.Clock) Option { return func(h *Handler) { h.now = now } }

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.logger = l.With().Str("component", "wardview").Logger() }
}

// WithBusOptions configures the per-request buses, e.g. to attach metrics.
func WithBusOptions(opts ...eventbus.Option) Option {
	return func(h *Handler) { h.busOpts = append(h.busOpts, opts...) }
}

func NewHandler(model *appmodel.Model, zones location.Zones, opts ...Option) *Handler {
	h := &Handler{model: model, zones: zones, now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/locations", h.GetLocations)
	g.GET("/filters", h.ListFilters)
	g.GET("/patients", h.ListPatients)
	g.GET("/patients/:uuid", h.GetPatient)
}

func (h *Handler) loadForest(c echo.Context) (*location.Forest, error) {
	ev, err := await[appmodel.ForestFetched](c.Request().Context(), h.busOpts, appmodel.OpLocations,
		func(bus appmodel.Poster) { h.model.FetchLocationForest(c.Request().Context(), bus) })
	if err != nil {
		return nil, h.fetchError(err)
	}
	return ev.Forest, nil
}

func (h *Handler) fetchError(err error) error {
	var ff appmodel.FetchFailed
	switch {
	case errors.Is(err, errNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, location.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, filter.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &ff):
		h.logger.Error().Err(ff.Err).Str("op", ff.Op).Msg("fetch failed")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable")
	}
	return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
}

// ---------------------------------------------------------------------------
// Locations
// ---------------------------------------------------------------------------

type locationJSON struct {
	UUID                string         `json:"uuid"`
	Name                string         `json:"name"`
	Depth               int            `json:"depth"`
	PatientCount        int            `json:"patient_count"`
	SubtreePatientCount int            `json:"subtree_patient_count"`
	Default             bool           `json:"default,omitempty"`
	Children            []locationJSON `json:"children,omitempty"`
}

type forestJSON struct {
	TotalPatientCount int            `json:"total_patient_count"`
	Roots             []locationJSON `json:"roots"`
}

func (h *Handler) nodeJSON(f *location.Forest, n *location.Node, locale string) locationJSON {
	out := locationJSON{
		UUID:                n.UUID,
		Name:                n.DisplayName(locale),
		Depth:               n.Depth(),
		PatientCount:        n.PatientCount,
		SubtreePatientCount: n.SubtreePatientCount(),
		Default:             f.DefaultLocation() == n,
	}
	for _, child := range n.Children() {
		out.Children = append(out.Children, h.nodeJSON(f, child, locale))
	}
	return out
}

// GetLocations returns the location forest with patient counts rolled up.
func (h *Handler) GetLocations(c echo.Context) error {
	forest, err := h.loadForest(c)
	if err != nil {
		return err
	}
	defer forest.Close()

	locale := c.QueryParam("locale")
	if locale == "" {
		locale = h.locale
	}
	out := forestJSON{TotalPatientCount: forest.TotalPatientCount(), Roots: []locationJSON{}}
	for _, root := range forest.Roots() {
		out.Roots = append(out.Roots, h.nodeJSON(forest, root, locale))
	}
	return c.JSON(http.StatusOK, out)
}

// ---------------------------------------------------------------------------
// Filters
// ---------------------------------------------------------------------------

type filterJSON struct {
	Key          string `json:"key,omitempty"`
	Description  string `json:"description,omitempty"`
	SectionBreak bool   `json:"section_break,omitempty"`
}

func filterKey(sel filter.Selection) string {
	switch f := sel.(type) {
	case patient.LocationFilter:
		return "zone:" + f.RootUUID()
	case patient.AgeFilter:
		return fmt.Sprintf("under%d", f.Years())
	case patient.ConceptFilter:
		return "pregnant"
	case filter.NotEquals:
		return "present"
	}
	return "all"
}

// ListFilters returns the filters offered to users, in display order.
func (h *Handler) ListFilters(c echo.Context) error {
	forest, err := h.loadForest(c)
	if err != nil {
		return err
	}
	defer forest.Close()

	out := []filterJSON{}
	for _, sel := range patient.FiltersForDisplay(forest, h.zones, h.now) {
		if sel == nil {
			out = append(out, filterJSON{SectionBreak: true})
			continue
		}
		out = append(out, filterJSON{Key: filterKey(sel), Description: sel.Description()})
	}
	return c.JSON(http.StatusOK, out)
}

// ---------------------------------------------------------------------------
// Patients
// ---------------------------------------------------------------------------

type patientListJSON struct {
	Filter   string            `json:"filter"`
	Query    string            `json:"query,omitempty"`
	Count    int               `json:"count"`
	Patients []patient.Patient `json:"patients"`
}

// ListPatients returns the patients selected by ?filter=, narrowed by the
// free-text ?q= search.
func (h *Handler) ListPatients(c echo.Context) error {
	forest, err := h.loadForest(c)
	if err != nil {
		return err
	}
	defer forest.Close()

	catalog := patient.Catalog{Forest: forest, Zones: h.zones, Now: h.now}
	sel, err := catalog.Lookup(c.QueryParam("filter"))
	if err != nil {
		return h.fetchError(err)
	}

	ctx := c.Request().Context()
	ev, err := await[appmodel.CursorFetched[patient.Patient]](ctx, h.busOpts, appmodel.OpPatients,
		func(bus appmodel.Poster) { h.model.FetchPatients(ctx, bus, sel, "") })
	if err != nil {
		return h.fetchError(err)
	}

	var cur cursor.TypedCursor[patient.Patient] = ev.Cursor
	query := c.QueryParam("q")
	if query != "" {
		fc, err := h.model.SearchPatients(cur, query)
		if err != nil {
			_ = cur.Close()
			return h.fetchError(err)
		}
		cur = fc
	}
	defer cur.Close()

	patients, err := cursor.Collect(cur)
	if err != nil {
		return h.fetchError(err)
	}
	if patients == nil {
		patients = []patient.Patient{}
	}
	return c.JSON(http.StatusOK, patientListJSON{
		Filter:   sel.Description(),
		Query:    query,
		Count:    len(patients),
		Patients: patients,
	})
}

// GetPatient returns one patient by uuid.
func (h *Handler) GetPatient(c echo.Context) error {
	ctx := c.Request().Context()
	uuid := c.Param("uuid")
	ev, err := await[appmodel.SingleItemFetched[patient.Patient]](ctx, h.busOpts, appmodel.OpSinglePatient,
		func(bus appmodel.Poster) { h.model.FetchSinglePatient(ctx, bus, uuid) })
	if err != nil {
		return h.fetchError(err)
	}
	return c.JSON(http.StatusOK, ev.Item)
}
