package patient

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ehr/records/internal/domain/location"
	"github.com/ehr/records/internal/platform/filter"
)

// ErrUnknownFilter is returned by Catalog.Lookup for a name it does not list.
var ErrUnknownFilter = fmt.Errorf("%w: unknown filter", filter.ErrInvalidArgument)

// DefaultFilter is what a patient list shows before the user picks a filter.
func DefaultFilter() filter.Selection {
	return filter.All{Label: "All Patients"}
}

// ZoneFilters returns one location filter per zone of the forest, with the
// well-known zones first in ward order.
func ZoneFilters(forest *location.Forest, zones location.Zones) []filter.Selection {
	var out []filter.Selection
	for _, zone := range sortedZones(forest, zones) {
		// zone comes from forest, so the lookup cannot miss
		f, _ := NewLocationFilter(forest, zone)
		out = append(out, f)
	}
	return out
}

func sortedZones(forest *location.Forest, zones location.Zones) []*location.Node {
	if forest == nil {
		return nil
	}
	nodes := forest.DescendantsAtDepth(location.DepthZone)
	slices.SortStableFunc(nodes, zones.Compare)
	return nodes
}

// OtherFilters returns the filters that do not depend on location.
func OtherFilters(now Clock) []filter.Selection {
	pregnant, _ := NewConceptFilter("Pregnant", ConceptPregnancy, ConceptYes)
	under5, _ := NewAgeFilter(5, now)
	under2, _ := NewAgeFilter(2, now)
	return []filter.Selection{pregnant, under5, under2}
}

// FiltersForDisplay returns every filter offered to the user: present
// patients, each zone, a nil section break, then the other filters.
func FiltersForDisplay(forest *location.Forest, zones location.Zones, now Clock) []filter.Selection {
	out := []filter.Selection{PresentFilter(zones)}
	out = append(out, ZoneFilters(forest, zones)...)
	out = append(out, nil)
	return append(out, OtherFilters(now)...)
}

// Catalog resolves filter names typed on the command line or passed in a
// query string.
type Catalog struct {
	Forest *location.Forest
	Zones  location.Zones
	Now    Clock
}

// Names lists the keys Lookup accepts, in display order.
func (c Catalog) Names() []string {
	names := []string{"all", "present"}
	for _, zone := range sortedZones(c.Forest, c.Zones) {
		names = append(names, "zone:"+zone.UUID)
	}
	return append(names, "pregnant", "under5", "under2")
}

// Lookup returns the filter registered under name. An empty name is the
// default filter. "zone:<uuid>" and "location:<uuid>" select a subtree.
func (c Catalog) Lookup(name string) (filter.Selection, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "", "all":
		return DefaultFilter(), nil
	case "present":
		return PresentFilter(c.Zones), nil
	case "pregnant":
		return NewConceptFilter("Pregnant", ConceptPregnancy, ConceptYes)
	case "under5":
		return NewAgeFilter(5, c.Now)
	case "under2":
		return NewAgeFilter(2, c.Now)
	}

	kind, uuid, ok := strings.Cut(strings.TrimSpace(name), ":")
	kind = strings.ToLower(kind)
	if !ok || (kind != "zone" && kind != "location") {
		return nil, fmt.Errorf("%w %q", ErrUnknownFilter, name)
	}
	if c.Forest == nil {
		return nil, fmt.Errorf("%w %q: locations not loaded", ErrUnknownFilter, name)
	}
	node, err := c.Forest.Get(uuid)
	if err != nil {
		return nil, err
	}
	f, err := NewLocationFilter(c.Forest, node)
	if err != nil {
		return nil, err
	}
	return f, nil
}
