package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/records/internal/config"
	"github.com/ehr/records/internal/domain/location"
	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/platform/db"
)

func seedCmd() *cobra.Command {
	var (
		count int
		seed  int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a demo treatment center into an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, q db.Querier) error {
				if _, err := db.NewMigrator(q, db.Schema).Up(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				s := &seeder{
					locations: location.NewRepo(q),
					patients:  patient.NewRepo(q),
					zones:     cfg.Zones,
					rng:       rand.New(rand.NewSource(seed)),
					now:       time.Now(),
				}
				n, err := s.run(ctx, count)
				if err != nil {
					return err
				}
				logger.Info().Int("locations", n).Int("patients", count).Msg("seeded demo data")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&count, "patients", 40, "number of patients to create")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}

var (
	givenNames  = []string{"Ama", "Sia", "Musa", "Fatmata", "Mohamed", "Isatu", "Abu", "Mariama", "Ibrahim", "Kadiatu"}
	familyNames = []string{"Kamara", "Conteh", "Sesay", "Bangura", "Koroma", "Turay", "Jalloh", "Mansaray"}
)

type seeder struct {
	locations location.Repository
	patients  patient.Repository
	zones     location.Zones
	rng       *rand.Rand
	now       time.Time

	ordinal int
	beds    []string
}

func (s *seeder) add(ctx context.Context, uuid, parent, name string) error {
	err := s.locations.Create(ctx, location.Record{UUID: uuid, ParentUUID: parent, Name: name}, s.ordinal)
	if err != nil {
		return fmt.Errorf("create location %s: %w", name, err)
	}
	s.ordinal++
	return nil
}

// run creates the facility tree and count patients. It returns the number of
// locations created.
func (s *seeder) run(ctx context.Context, count int) (int, error) {
	const root = "facility"
	if err := s.add(ctx, root, "", "Treatment Center [fr:Centre de traitement]"); err != nil {
		return 0, err
	}

	z := s.zones
	zones := []struct {
		uuid, name string
		tents      int
	}{
		{z.Triage, "Triage [*]", 0},
		{z.Suspect, "Suspect Zone [fr:Zone suspecte]", 2},
		{z.Probable, "Probable Zone [fr:Zone probable]", 1},
		{z.Confirmed, "Confirmed Zone [fr:Zone confirmée]", 2},
		{z.Morgue, "Morgue", 0},
		{z.Outside, "Outside", 0},
		{z.Discharged, "Discharged", 0},
	}
	for zi, zone := range zones {
		if err := s.add(ctx, zone.uuid, root, zone.name); err != nil {
			return 0, err
		}
		if zone.tents == 0 {
			s.beds = append(s.beds, zone.uuid)
		}
		for t := 1; t <= zone.tents; t++ {
			tent := fmt.Sprintf("zone%d-tent%d", zi, t)
			if err := s.add(ctx, tent, zone.uuid, fmt.Sprintf("Tent %d", t)); err != nil {
				return 0, err
			}
			for b := 1; b <= 4; b++ {
				bed := fmt.Sprintf("%s-bed%d", tent, b)
				if err := s.add(ctx, bed, tent, fmt.Sprintf("Bed %d", b)); err != nil {
					return 0, err
				}
				s.beds = append(s.beds, bed)
			}
		}
	}

	for i := 1; i <= count; i++ {
		if err := s.addPatient(ctx, i); err != nil {
			return 0, err
		}
	}
	return s.ordinal, nil
}

func (s *seeder) addPatient(ctx context.Context, n int) error {
	p := &patient.Patient{
		ID:           fmt.Sprintf("KT-%03d", n),
		GivenName:    givenNames[s.rng.Intn(len(givenNames))],
		FamilyName:   familyNames[s.rng.Intn(len(familyNames))],
		Gender:       []string{"F", "M"}[s.rng.Intn(2)],
		LocationUUID: s.beds[s.rng.Intn(len(s.beds))],
	}
	if s.rng.Intn(10) > 0 {
		birth := s.now.AddDate(0, 0, -s.rng.Intn(60*365)).Truncate(24 * time.Hour)
		p.Birthdate = &birth
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return fmt.Errorf("create patient %s: %w", p.ID, err)
	}

	if p.Gender != "F" || p.AgeYears(s.now) < 15 {
		return nil
	}
	value := patient.ConceptNo
	if s.rng.Intn(4) == 0 {
		value = patient.ConceptYes
	}
	return s.patients.AddObservation(ctx, patient.Observation{
		PatientUUID:   p.UUID,
		ConceptUUID:   patient.ConceptPregnancy,
		EncounterTime: s.now.Add(-time.Duration(s.rng.Intn(72)) * time.Hour),
		Value:         value,
	})
}
