package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/records/internal/config"
	"github.com/ehr/records/internal/domain/location"
	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/platform/cursor"
	"github.com/ehr/records/internal/platform/db"
)

func loadForest(ctx context.Context, logger zerolog.Logger, q db.Querier) (*location.Forest, error) {
	records, err := location.NewRepo(q).Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	return location.Build(records, location.WithLogger(logger))
}

func locationsCmd() *cobra.Command {
	var locale string
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "Print the location tree with patient counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, q db.Querier) error {
				forest, err := loadForest(ctx, logger, q)
				if err != nil {
					return err
				}
				defer forest.Close()
				if locale == "" {
					locale = cfg.Locale
				}
				printForest(cmd.OutOrStdout(), forest, locale)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "locale used to pick location names")
	return cmd
}

// printForest writes one line per location, indented by depth, with the
// subtree patient count.
func printForest(w io.Writer, forest *location.Forest, locale string) {
	for _, root := range forest.Roots() {
		nodes, _ := forest.Subtree(root)
		for _, n := range nodes {
			marker := ""
			if forest.DefaultLocation() == n {
				marker = " *"
			}
			fmt.Fprintf(w, "%s%s (%d)%s\n", strings.Repeat("  ", n.Depth()), n.DisplayName(locale), n.SubtreePatientCount(), marker)
		}
	}
	fmt.Fprintf(w, "total: %d\n", forest.TotalPatientCount())
}

func filtersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the patient filters and their keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, q db.Querier) error {
				forest, err := loadForest(ctx, logger, q)
				if err != nil {
					return err
				}
				defer forest.Close()

				catalog := patient.Catalog{Forest: forest, Zones: cfg.Zones, Now: time.Now}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-46s %s\n", "KEY", "DESCRIPTION")
				for _, name := range catalog.Names() {
					sel, err := catalog.Lookup(name)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%-46s %s\n", name, strings.TrimSpace(sel.Description()))
				}
				return nil
			})
		},
	}
}

func patientsCmd() *cobra.Command {
	var filterName, search string
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List patients matching a filter and search text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, q db.Querier) error {
				forest, err := loadForest(ctx, logger, q)
				if err != nil {
					return err
				}
				defer forest.Close()

				catalog := patient.Catalog{Forest: forest, Zones: cfg.Zones, Now: time.Now}
				sel, err := catalog.Lookup(filterName)
				if err != nil {
					return err
				}
				patients, err := listPatients(ctx, patient.NewRepo(q), sel.SelectionString(), sel.SelectionArgs(""), search)
				if err != nil {
					return err
				}
				printPatients(cmd.OutOrStdout(), forest, patients)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filterName, "filter", "", "filter key, see the filters command")
	cmd.Flags().StringVarP(&search, "query", "q", "", "search text matched against ids and names")
	return cmd
}

func listPatients(ctx context.Context, repo patient.Repository, selection string, args []string, search string) ([]patient.Patient, error) {
	cur, err := repo.Query(ctx, selection, args)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	if search != "" {
		fc, err := cursor.Filter[patient.Patient](cur, patient.SearchMatcher(), search)
		if err != nil {
			_ = cur.Close()
			return nil, err
		}
		cur = fc
	}
	defer cur.Close()
	return cursor.Collect(cur)
}

func printPatients(w io.Writer, forest *location.Forest, patients []patient.Patient) {
	fmt.Fprintf(w, "%-10s %-28s %-4s %s\n", "ID", "NAME", "AGE", "LOCATION")
	now := time.Now()
	for _, p := range patients {
		age := "?"
		if years := p.AgeYears(now); years >= 0 {
			age = fmt.Sprint(years)
		}
		where := p.LocationUUID
		if n, err := forest.Get(p.LocationUUID); err == nil {
			where = n.DisplayName("")
		}
		name := strings.TrimSpace(p.GivenName + " " + p.FamilyName)
		fmt.Fprintf(w, "%-10s %-28s %-4s %s\n", p.ID, name, age, where)
	}
	fmt.Fprintf(w, "%d patient(s)\n", len(patients))
}
