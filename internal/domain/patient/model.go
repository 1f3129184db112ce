package patient

import (
	"time"
)

// DateLayout is how birthdates are stored and compared in the local store.
const DateLayout = "2006-01-02"

// Patient is one row of the patients table.
type Patient struct {
	UUID         string     `json:"uuid"`
	ID           string     `json:"id"`
	GivenName    string     `json:"given_name,omitempty"`
	FamilyName   string     `json:"family_name,omitempty"`
	Gender       string     `json:"gender,omitempty"`
	Birthdate    *time.Time `json:"birthdate,omitempty"`
	LocationUUID string     `json:"location_uuid,omitempty"`
}

// AgeYears returns the patient's age in whole years on day now, or -1 when
// the birthdate is unknown.
func (p *Patient) AgeYears(now time.Time) int {
	if p.Birthdate == nil {
		return -1
	}
	b := *p.Birthdate
	years := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		years--
	}
	return years
}

// Observation is a single coded value recorded for a patient at an encounter.
type Observation struct {
	PatientUUID   string
	ConceptUUID   string
	EncounterTime time.Time
	Value         string
}

// Well-known concept uuids used by the built-in filters.
const (
	ConceptPregnancy = "5272AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	ConceptYes       = "1065AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	ConceptNo        = "1066AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
)
