package patient

import (
	"context"
	"testing"
	"time"

	"github.com/ehr/records/internal/domain/location"
	"github.com/ehr/records/internal/platform/cursor"
	"github.com/ehr/records/internal/platform/db"
	"github.com/ehr/records/internal/platform/filter"
)

func openStore(t *testing.T) *db.SQLite {
	t.Helper()
	s, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(s.Close)
	if _, err := db.NewMigrator(s, db.Schema).Up(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func date(s string) *time.Time {
	d, _ := time.Parse(DateLayout, s)
	return &d
}

func query(t *testing.T, repo Repository, sel filter.Selection, constraint string) []Patient {
	t.Helper()
	cur, err := repo.Query(context.Background(), sel.SelectionString(), sel.SelectionArgs(constraint))
	if err != nil {
		t.Fatalf("Query(%s): %v", sel.Description(), err)
	}
	defer cur.Close()
	out, err := cursor.Collect(cur)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return out
}

func ids(ps []Patient) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func seedPatients(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	zones := location.DefaultZones()
	for _, p := range []*Patient{
		{UUID: "p1", ID: "001", GivenName: "Ama", FamilyName: "Kamara", Gender: "F", Birthdate: date("1990-05-01"), LocationUUID: zones.Triage},
		{UUID: "p2", ID: "002", GivenName: "Sia", Gender: "F", Birthdate: date("2013-06-01"), LocationUUID: zones.Suspect},
		{UUID: "p3", ID: "003", FamilyName: "Conteh", Gender: "M", LocationUUID: zones.Discharged},
	} {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create(%s): %v", p.UUID, err)
		}
	}
}

func TestRepo_QueryWithSelections(t *testing.T) {
	repo := NewRepo(openStore(t))
	seedPatients(t, repo)
	zones := location.DefaultZones()

	all := query(t, repo, DefaultFilter(), "")
	if !equalArgs(ids(all), []string{"001", "002", "003"}) {
		t.Errorf("all = %v", ids(all))
	}
	if all[1].FamilyName != "" || all[1].Birthdate == nil || all[1].Birthdate.Year() != 2013 {
		t.Errorf("unexpected conversion: %+v", all[1])
	}
	if all[2].Birthdate != nil {
		t.Errorf("expected unknown birthdate, got %v", all[2].Birthdate)
	}

	if got := ids(query(t, repo, PresentFilter(zones), "")); !equalArgs(got, []string{"001", "002"}) {
		t.Errorf("present = %v", got)
	}
	if got := ids(query(t, repo, UUIDFilter(), "p3")); !equalArgs(got, []string{"003"}) {
		t.Errorf("uuid = %v", got)
	}

	under5, _ := NewAgeFilter(5, fixedClock("2015-01-01"))
	if got := ids(query(t, repo, filter.And(PresentFilter(zones), under5), "")); !equalArgs(got, []string{"002"}) {
		t.Errorf("present and under 5 = %v", got)
	}

	either := filter.Or(UUIDFilter(), UUIDFilter())
	if got := ids(query(t, repo, either, "p1")); !equalArgs(got, []string{"001"}) {
		t.Errorf("or group = %v", got)
	}
}

func TestRepo_ConceptFilterUsesLatestObservation(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(openStore(t))
	seedPatients(t, repo)

	t0 := time.Date(2015, 1, 1, 8, 0, 0, 0, time.UTC)
	for _, obs := range []Observation{
		// p1 was pregnant, now is not.
		{PatientUUID: "p1", ConceptUUID: ConceptPregnancy, EncounterTime: t0, Value: ConceptYes},
		{PatientUUID: "p1", ConceptUUID: ConceptPregnancy, EncounterTime: t0.Add(time.Hour), Value: ConceptNo},
		// p2 was not, now is.
		{PatientUUID: "p2", ConceptUUID: ConceptPregnancy, EncounterTime: t0, Value: ConceptNo},
		{PatientUUID: "p2", ConceptUUID: ConceptPregnancy, EncounterTime: t0.Add(2 * time.Hour), Value: ConceptYes},
		// A later observation of another concept does not matter.
		{PatientUUID: "p1", ConceptUUID: "other", EncounterTime: t0.Add(3 * time.Hour), Value: ConceptYes},
	} {
		if err := repo.AddObservation(ctx, obs); err != nil {
			t.Fatalf("AddObservation: %v", err)
		}
	}

	pregnant, _ := NewConceptFilter("Pregnant", ConceptPregnancy, ConceptYes)
	if got := ids(query(t, repo, pregnant, "")); !equalArgs(got, []string{"002"}) {
		t.Errorf("pregnant = %v", got)
	}
	notPregnant, _ := NewConceptFilter("Not pregnant", ConceptPregnancy, ConceptNo)
	if got := ids(query(t, repo, notPregnant, "")); !equalArgs(got, []string{"001"}) {
		t.Errorf("not pregnant = %v", got)
	}
}

func TestRepo_CreateAssignsUUID(t *testing.T) {
	repo := NewRepo(openStore(t))
	p := &Patient{ID: "010", GivenName: "Fatu"}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(p.UUID) != 36 {
		t.Errorf("expected generated uuid, got %q", p.UUID)
	}
	got := query(t, repo, UUIDFilter(), p.UUID)
	if len(got) != 1 || got[0].GivenName != "Fatu" {
		t.Errorf("lookup by generated uuid = %+v", got)
	}
}
