package main

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/domain/location"
	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/platform/db"
)

func seededStore(t *testing.T, count int) *db.SQLite {
	t.Helper()
	ctx := context.Background()
	store, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)
	if _, err := db.NewMigrator(store, db.Schema).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s := &seeder{
		locations: location.NewRepo(store),
		patients:  patient.NewRepo(store),
		zones:     location.DefaultZones(),
		rng:       rand.New(rand.NewSource(7)),
		now:       time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	n, err := s.run(ctx, count)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	// facility, seven zones, five tents of four beds
	if n != 33 {
		t.Fatalf("expected 33 locations, got %d", n)
	}
	return store
}

func TestSeeder_BuildsZoneTree(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, 25)

	forest, err := loadForest(ctx, zerolog.Nop(), store)
	if err != nil {
		t.Fatalf("load forest: %v", err)
	}
	defer forest.Close()

	if len(forest.Roots()) != 1 {
		t.Fatalf("expected one root, got %d", len(forest.Roots()))
	}
	zones := forest.DescendantsAtDepth(location.DepthZone)
	if len(zones) != 7 {
		t.Fatalf("expected 7 zones, got %d", len(zones))
	}
	if forest.TotalPatientCount() != 25 {
		t.Errorf("expected 25 patients, got %d", forest.TotalPatientCount())
	}
	if def := forest.DefaultLocation(); def == nil || def.UUID != location.DefaultZones().Triage {
		t.Errorf("expected triage as default location, got %v", def)
	}
}

func TestPrintForest(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, 10)

	forest, err := loadForest(ctx, zerolog.Nop(), store)
	if err != nil {
		t.Fatalf("load forest: %v", err)
	}
	defer forest.Close()

	var buf bytes.Buffer
	printForest(&buf, forest, "fr")
	out := buf.String()

	if !strings.HasPrefix(out, "Centre de traitement (10)\n") {
		t.Errorf("unexpected first line: %q", strings.SplitN(out, "\n", 2)[0])
	}
	if !strings.Contains(out, "\n  Triage (") || !strings.Contains(out, ") *\n") {
		t.Errorf("expected default triage zone marked:\n%s", out)
	}
	if !strings.Contains(out, "\n      Bed 1 (") {
		t.Errorf("expected beds indented at depth 3:\n%s", out)
	}
	if !strings.HasSuffix(out, "total: 10\n") {
		t.Errorf("missing total line:\n%s", out)
	}
}

func TestListPatients_FilterAndSearch(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, 30)
	repo := patient.NewRepo(store)

	all, err := listPatients(ctx, repo, "", nil, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 30 || all[0].ID != "KT-001" {
		t.Fatalf("expected 30 patients starting at KT-001, got %d", len(all))
	}

	found, err := listPatients(ctx, repo, "", nil, "kt-02")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 10 {
		t.Errorf("expected KT-020..KT-029, got %d", len(found))
	}

	present := patient.PresentFilter(location.DefaultZones())
	kept, err := listPatients(ctx, repo, present.SelectionString(), present.SelectionArgs(""), "")
	if err != nil {
		t.Fatalf("present: %v", err)
	}
	for _, p := range kept {
		if p.LocationUUID == location.DefaultZones().Discharged {
			t.Errorf("discharged patient %s listed as present", p.ID)
		}
	}

	var buf bytes.Buffer
	forest, err := loadForest(ctx, zerolog.Nop(), store)
	if err != nil {
		t.Fatalf("load forest: %v", err)
	}
	defer forest.Close()
	printPatients(&buf, forest, found)
	if !strings.HasSuffix(buf.String(), "10 patient(s)\n") {
		t.Errorf("unexpected listing:\n%s", buf.String())
	}
}
