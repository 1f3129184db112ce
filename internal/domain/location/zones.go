package location

// Zones holds the well-known uuids of the zones every treatment center has.
// They are assigned by the server and passed in from configuration.
type Zones struct {
	Triage     string `mapstructure:"ZONE_TRIAGE_UUID"`
	Suspect    string `mapstructure:"ZONE_SUSPECT_UUID"`
	Probable   string `mapstructure:"ZONE_PROBABLE_UUID"`
	Confirmed  string `mapstructure:"ZONE_CONFIRMED_UUID"`
	Morgue     string `mapstructure:"ZONE_MORGUE_UUID"`
	Outside    string `mapstructure:"ZONE_OUTSIDE_UUID"`
	Discharged string `mapstructure:"ZONE_DISCHARGED_UUID"`
}

// DefaultZones returns the zone uuids the records server ships with.
func DefaultZones() Zones {
	return Zones{
		Triage:     "3f75ca61-ec1a-4739-af09-25a84e3dd237",
		Suspect:    "2f1e2418-ede6-481a-ad80-b9939a7fde8e",
		Probable:   "3b11e7c8-a68a-4a5f-afb3-a4a053592d0e",
		Confirmed:  "b9038895-9c9d-4908-9e0d-51fd535ddd3c",
		Morgue:     "4ef642b9-9843-4d0d-9b2b-84fe1984801f",
		Outside:    "00eee068-4d2a-4b41-bfe1-41e3066ab213",
		Discharged: "d7ca63c3-6ea0-4357-82fd-0910cc17a2cb",
	}
}

// Ordered returns the zone uuids in the order wards list them.
func (z Zones) Ordered() []string {
	return []string{z.Triage, z.Suspect, z.Probable, z.Confirmed, z.Morgue, z.Outside, z.Discharged}
}

// Rank returns the position of uuid in Ordered, or len(Ordered()) for
// locations that are not well-known zones.
func (z Zones) Rank(uuid string) int {
	ordered := z.Ordered()
	for i, u := range ordered {
		if u == uuid {
			return i
		}
	}
	return len(ordered)
}

// Compare orders zone nodes by Rank, then by display name.
func (z Zones) Compare(a, b *Node) int {
	ra, rb := z.Rank(a.UUID), z.Rank(b.UUID)
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	}
	na, nb := a.DisplayName(""), b.DisplayName("")
	switch {
	case na < nb:
		return -1
	case na > nb:
		return 1
	}
	return 0
}

// Validate reports the first empty zone uuid.
func (z Zones) Validate() error {
	names := []string{"triage", "suspect", "probable", "confirmed", "morgue", "outside", "discharged"}
	for i, u := range z.Ordered() {
		if u == "" {
			return &MissingZoneError{Zone: names[i]}
		}
	}
	return nil
}

// MissingZoneError reports a zone without a configured uuid.
type MissingZoneError struct {
	Zone string
}

func (e *MissingZoneError) Error() string {
	return "location: no uuid configured for zone " + e.Zone
}
