package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/gem-gsc/internal/duckdb"
	"github.com/inodb/gem-gsc/internal/gmt"
	"github.com/inodb/gem-gsc/internal/gsc"
	"github.com/inodb/gem-gsc/internal/model"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		prefix  string
		format  string
		record  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "extract [flags] <model>",
		Short: "Extract gene set collections from a model",
		Long: `Extract gene set collections from a genome-scale metabolic model and write
one GMT file per grouping mode, named <prefix>.<mode>.gmt.

Modes:
  subsystem          one set per subsystem
  metabolite         one set per metabolite in each compartment, e.g. water[cytosol]
  metabolite-merged  one set per metabolite name across compartments

The model argument is a file path or the name of a downloaded model.`,
		Example: `  gem-gsc extract Human-GEM.yml
  gem-gsc extract --mode subsystem --min-size 5 --output-dir gsc/ Human-GEM.xml
  gem-gsc extract --exclude-metabolite H2O --exclude-metabolite ATP human-gem
  gem-gsc extract --db human-gem    # also record the run for 'gem-gsc query'`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := model.ParseFormat(format)
			if err != nil {
				return &usageError{err}
			}
			modes, err := parseModes(listSetting("extract.modes"))
			if err != nil {
				return &usageError{err}
			}
			path, err := resolveModelPath(args[0])
			if err != nil {
				return err
			}
			return runExtract(a, extractConfig{
				src:       modelSource{path: path, format: f, noCache: noCache},
				modes:     modes,
				outputDir: viper.GetString("output.dir"),
				prefix:    prefix,
				opts: gsc.Options{
					ExcludeSubsystems:  listSetting("extract.exclude_subsystems"),
					ExcludeMetabolites: listSetting("extract.exclude_metabolites"),
				},
				filter: gsc.FilterOptions{
					MinSize: viper.GetInt("extract.min_size"),
					MaxSize: viper.GetInt("extract.max_size"),
				},
				record: record,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringSlice("mode", modeNames(gsc.AllModes()), "Grouping mode: subsystem, metabolite, metabolite-merged (repeatable)")
	flags.StringP("output-dir", "o", ".", "Output directory for GMT files")
	flags.StringVar(&prefix, "prefix", "", "Output file name prefix (default: model ID)")
	flags.StringArray("exclude-subsystem", nil, "Subsystem to leave out (repeatable)")
	flags.StringArray("exclude-metabolite", nil, "Metabolite name to leave out, e.g. H2O (repeatable)")
	flags.Int("min-size", 1, "Drop sets with fewer genes")
	flags.Int("max-size", 0, "Drop sets with more genes (0: no limit)")
	flags.StringVar(&format, "format", "", "Model format: sbml, json, yaml (auto-detected if not specified)")
	flags.BoolVar(&record, "db", false, "Record the extracted collections in the history database")
	flags.BoolVar(&noCache, "no-cache", false, "Parse the model file even if a cached copy exists")

	viper.BindPFlag("extract.modes", flags.Lookup("mode"))
	viper.BindPFlag("output.dir", flags.Lookup("output-dir"))
	viper.BindPFlag("extract.exclude_subsystems", flags.Lookup("exclude-subsystem"))
	viper.BindPFlag("extract.exclude_metabolites", flags.Lookup("exclude-metabolite"))
	viper.BindPFlag("extract.min_size", flags.Lookup("min-size"))
	viper.BindPFlag("extract.max_size", flags.Lookup("max-size"))

	return cmd
}

type extractConfig struct {
	src       modelSource
	modes     []gsc.Mode
	outputDir string
	prefix    string
	opts      gsc.Options
	filter    gsc.FilterOptions
	record    bool
}

func runExtract(a *app, cfg extractConfig) error {
	m, fp, err := loadModel(cfg.src, a.logger)
	if err != nil {
		return err
	}

	prefix := cfg.prefix
	if prefix == "" {
		prefix = defaultPrefix(m, cfg.src.path)
	}

	var store *duckdb.Store
	if cfg.record {
		store, err = duckdb.Open(dbPath())
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer store.Close()
		store.SetLogger(a.logger)
	}

	filter := gsc.NewFilter(cfg.filter)
	filter.SetLogger(a.logger)

	for _, mode := range cfg.modes {
		raw, err := gsc.Extract(m, mode, cfg.opts)
		if err != nil {
			return err
		}
		c, report := filter.Apply(raw)

		out := filepath.Join(cfg.outputDir, prefix+"."+string(mode)+".gmt")
		if err := gmt.WriteFile(out, c); err != nil {
			return fmt.Errorf("write %s: %w", mode, err)
		}

		a.logger.Info("wrote gene sets",
			zap.String("mode", string(mode)),
			zap.String("path", out),
			zap.Int("sets", c.Len()),
			zap.Int("genes", c.GeneCount()),
			zap.Int("dropped_empty", report.Count(gsc.IssueEmpty)),
			zap.Int("dropped_size", report.Count(gsc.IssueTooSmall)+report.Count(gsc.IssueTooLarge)),
			zap.Int("collisions", report.Count(gsc.IssueCollision)))
		fmt.Fprintf(a.stdout, "%s\t%d sets\t%s\n", mode, c.Len(), out)

		if store != nil {
			run := duckdb.NewRun(m.ID, fp, mode)
			if err := store.RecordRun(run, c); err != nil {
				return fmt.Errorf("record %s run: %w", mode, err)
			}
		}
	}
	return nil
}

// defaultPrefix is the model ID, or the file name without extensions.
func defaultPrefix(m *model.Model, path string) string {
	if m.ID != "" {
		return gsc.Sanitize(m.ID)
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseModes converts mode names, defaulting to every mode when none are given.
func parseModes(names []string) ([]gsc.Mode, error) {
	seen := make(map[gsc.Mode]bool)
	var modes []gsc.Mode
	for _, name := range names {
		// env and config values may hold several modes in one string
		for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == ',' || r == ';' }) {
			mode, err := gsc.ParseMode(part)
			if err != nil {
				return nil, err
			}
			if !seen[mode] {
				seen[mode] = true
				modes = append(modes, mode)
			}
		}
	}
	if len(modes) == 0 {
		return gsc.AllModes(), nil
	}
	return modes, nil
}

func modeNames(modes []gsc.Mode) []string {
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return names
}
