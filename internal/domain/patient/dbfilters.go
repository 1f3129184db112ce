// Package patient holds the patient record, its store, and the filters that
// select and search patient lists.
package patient

import (
	"fmt"
	"strings"
	"time"

	"github.com/ehr/records/internal/domain/location"
	"github.com/ehr/records/internal/platform/filter"
)

// Patient table columns referenced by selections.
const (
	ColUUID         = "uuid"
	ColBirthdate    = "birthdate"
	ColLocationUUID = "location_uuid"
)

// UUIDFilter selects the patient whose uuid is the caller's constraint.
func UUIDFilter() filter.Equals {
	return filter.Equals{Column: ColUUID, Label: "Patient"}
}

// PresentFilter selects every patient not in the discharged zone. It needs
// no location tree, so it works before the forest has loaded.
func PresentFilter(zones location.Zones) filter.NotEquals {
	return filter.NotEquals{Column: ColLocationUUID, Value: zones.Discharged, Label: "Present"}
}

// Clock returns the current time. Age bounds are computed from it on every
// evaluation.
type Clock func() time.Time

// AgeFilter selects patients younger than Years.
type AgeFilter struct {
	years int
	now   Clock
}

// NewAgeFilter returns a filter for patients under years old. now defaults to
// time.Now.
func NewAgeFilter(years int, now Clock) (AgeFilter, error) {
	if years <= 0 {
		return AgeFilter{}, fmt.Errorf("%w: age filter needs a positive number of years, got %d",
			filter.ErrInvalidArgument, years)
	}
	if now == nil {
		now = time.Now
	}
	return AgeFilter{years: years, now: now}, nil
}

// Years returns the age bound.
func (f AgeFilter) Years() int { return f.years }

func (f AgeFilter) SelectionString() string { return ColBirthdate + " > ?" }

func (f AgeFilter) SelectionArgs(_ string) []string {
	return []string{yearsBefore(f.now(), f.years).Format(DateLayout)}
}

// yearsBefore moves t back by years, clamping Feb 29 to Feb 28 in non-leap
// years instead of rolling over into March.
func yearsBefore(t time.Time, years int) time.Time {
	y := t.Year() - years
	d := t.Day()
	if last := time.Date(y, t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day(); d > last {
		d = last
	}
	return time.Date(y, t.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func (f AgeFilter) Description() string {
	return fmt.Sprintf("Children under %d", f.years)
}

// LocationFilter selects patients anywhere in the subtree of a location.
type LocationFilter struct {
	rootUUID    string
	uuids       []string
	description string
}

// NewLocationFilter expands subroot's subtree into a uuid list. With no
// forest or no subroot the filter adds no constraint. A subroot from another
// forest is location.ErrNotFound.
func NewLocationFilter(forest *location.Forest, subroot *location.Node) (LocationFilter, error) {
	if forest == nil || subroot == nil {
		return LocationFilter{}, nil
	}
	sub, err := forest.Subtree(subroot)
	if err != nil {
		return LocationFilter{}, fmt.Errorf("location filter %s: %w", subroot.UUID, err)
	}
	uuids := make([]string, len(sub))
	for i, n := range sub {
		uuids[i] = n.UUID
	}
	return LocationFilter{
		rootUUID:    subroot.UUID,
		uuids:       uuids,
		description: strings.Repeat("        ", subroot.Depth()) + subroot.DisplayName(""),
	}, nil
}

// RootUUID returns the uuid of the subtree root, or "" for a pass-through filter.
func (f LocationFilter) RootUUID() string { return f.rootUUID }

func (f LocationFilter) SelectionString() string {
	if len(f.uuids) == 0 {
		return ""
	}
	return fmt.Sprintf("%s IN (%s)", ColLocationUUID, filter.Placeholders(len(f.uuids)))
}

func (f LocationFilter) SelectionArgs(_ string) []string {
	out := make([]string, len(f.uuids))
	copy(out, f.uuids)
	return out
}

func (f LocationFilter) Description() string { return f.description }

const conceptSubquery = `uuid IN (
	SELECT patient_uuid FROM (
		SELECT obs.patient_uuid AS patient_uuid, obs.value AS concept_value
		FROM observations AS obs
		INNER JOIN (
			SELECT concept_uuid, patient_uuid, MAX(encounter_time) AS maxtime
			FROM observations
			GROUP BY patient_uuid, concept_uuid
		) maxs
		ON obs.encounter_time = maxs.maxtime
			AND obs.concept_uuid = maxs.concept_uuid
			AND obs.patient_uuid = maxs.patient_uuid
		WHERE obs.concept_uuid = ?
		ORDER BY obs.patient_uuid
	) latest
	WHERE concept_value = ?
)`

// ConceptFilter selects patients whose most recent observation of a concept
// has a given value.
type ConceptFilter struct {
	description string
	concept     string
	value       string
}

// NewConceptFilter returns a filter on the latest value of concept.
func NewConceptFilter(description, concept, value string) (ConceptFilter, error) {
	if concept == "" {
		return ConceptFilter{}, fmt.Errorf("%w: concept filter needs a concept uuid", filter.ErrInvalidArgument)
	}
	if value == "" {
		return ConceptFilter{}, fmt.Errorf("%w: concept filter needs a value", filter.ErrInvalidArgument)
	}
	return ConceptFilter{description: description, concept: concept, value: value}, nil
}

func (f ConceptFilter) SelectionString() string { return conceptSubquery }

func (f ConceptFilter) SelectionArgs(_ string) []string { return []string{f.concept, f.value} }

func (f ConceptFilter) Description() string { return filter.Describe(f, f.description) }
