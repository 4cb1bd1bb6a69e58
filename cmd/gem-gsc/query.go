package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/gem-gsc/internal/duckdb"
	"github.com/inodb/gem-gsc/internal/gmt"
	"github.com/inodb/gem-gsc/internal/gsc"
)

func newQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query recorded extraction runs",
		Long: `Query gene set collections recorded with 'gem-gsc extract --db'.
The history database is ~/.gem-gsc/gsc.duckdb unless db.path is configured.`,
		Example: `  gem-gsc query runs
  gem-gsc query gene ENSG00000156515
  gem-gsc query export 4f0c2a1e-... glycolysis.gmt
  gem-gsc query latest Human-GEM subsystem subsystems.gmt
  gem-gsc query clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("db-path", "", "History database path (default: ~/.gem-gsc/gsc.duckdb)")
	viper.BindPFlag("db.path", cmd.PersistentFlags().Lookup("db-path"))

	cmd.AddCommand(&cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(a, func(s *duckdb.Store) error {
				runs, err := s.Runs()
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, "run_id\tmodel\tmode\tsets\tcreated_at\tmodel_path")
				for _, r := range runs {
					fmt.Fprintf(a.stdout, "%s\t%s\t%s\t%d\t%s\t%s\n",
						r.ID, r.ModelID, r.Mode, r.SetCount,
						r.CreatedAt.Local().Format(time.DateTime), r.Model.Path)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "gene <gene-id>",
		Short: "List recorded sets containing a gene",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(a, func(s *duckdb.Store) error {
				hits, err := s.SetsForGene(args[0])
				if err != nil {
					return err
				}
				if len(hits) == 0 {
					return fmt.Errorf("gene %s not found in any recorded set", args[0])
				}
				fmt.Fprintln(a.stdout, "run_id\tmodel\tmode\tset")
				for _, h := range hits {
					fmt.Fprintf(a.stdout, "%s\t%s\t%s\t%s\n", h.RunID, h.ModelID, h.Mode, h.SetName)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export <run-id> <output.gmt>",
		Short: "Write a recorded run as a GMT file",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(a, func(s *duckdb.Store) error {
				return exportRun(a, s, args[0], args[1])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "latest <model-id> <mode> <output.gmt>",
		Short: "Write the newest recorded run for a model and mode as a GMT file",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := gsc.ParseMode(args[1])
			if err != nil {
				return &usageError{err}
			}
			return withStore(a, func(s *duckdb.Store) error {
				run, err := s.LatestRun(args[0], mode)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("no %s run recorded for model %s", mode, args[0])
				}
				return exportRun(a, s, run.ID, args[2])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(a, func(s *duckdb.Store) error {
				if err := s.ClearRuns(); err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, "Cleared extraction history")
				return nil
			})
		},
	})

	return cmd
}

func exportRun(a *app, s *duckdb.Store, runID, path string) error {
	c, err := s.LoadCollection(runID)
	if err != nil {
		return err
	}
	if c.Len() == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	if err := gmt.WriteFile(path, c); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Wrote %d sets to %s\n", c.Len(), path)
	return nil
}

// withStore opens the history database for the duration of fn.
func withStore(a *app, fn func(*duckdb.Store) error) error {
	path := dbPath()
	if path == "" {
		return fmt.Errorf("cannot determine history database path")
	}
	s, err := duckdb.Open(path)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer s.Close()
	s.SetLogger(a.logger)
	return fn(s)
}
