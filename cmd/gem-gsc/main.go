// Package main provides the gem-gsc command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// usageError marks errors caused by invalid command-line usage.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	var ue *usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		return ExitUsage
	}
	return ExitError
}

// app carries state shared by subcommands.
type app struct {
	logger  *zap.Logger
	cfgFile string
	verbose bool
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{logger: zap.NewNop(), stdout: stdout, stderr: stderr}

	var showVersion bool
	cmd := &cobra.Command{
		Use:   "gem-gsc",
		Short: "Gene set collections from genome-scale metabolic models",
		Long: `gem-gsc extracts gene set collections from a genome-scale metabolic model
(SBML, COBRA JSON or Human-GEM YAML) and writes them as GMT files for
enrichment analysis.`,
		Example: `  # Download Human-GEM (one-time setup)
  gem-gsc download

  # Write subsystem and metabolite gene sets
  gem-gsc extract human-gem --output-dir gsc/

  # Summarize a model
  gem-gsc inspect Human-GEM.xml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(a.cfgFile); err != nil {
				return err
			}
			a.logger = newLogger(a.stderr, a.verbose)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(a.stdout, "gem-gsc version %s (%s) built %s\n", version, commit, date)
				return nil
			}
			return cmd.Help()
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err}
	})

	cmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.gem-gsc.yaml)")

	cmd.AddCommand(newExtractCmd(a))
	cmd.AddCommand(newInspectCmd(a))
	cmd.AddCommand(newDownloadCmd(a))
	cmd.AddCommand(newQueryCmd(a))
	cmd.AddCommand(newConfigCmd(a))

	return cmd
}

var envReplacer = strings.NewReplacer(".", "_", "-", "_")

// initConfig loads the config file and environment. A missing default config
// file is not an error.
func initConfig(cfgFile string) error {
	viper.SetEnvPrefix("GEM_GSC")
	viper.SetEnvKeyReplacer(envReplacer)
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".gem-gsc")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if cfgFile == "" && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// newLogger builds a console logger on w, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	)
	return zap.New(core)
}

// exactArgs is cobra.ExactArgs with errors reported as usage errors.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

// defaultDataDir returns ~/.gem-gsc, or "" if the home directory is unknown.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".gem-gsc")
}

// cacheDir returns the model cache directory from config, or the default.
func cacheDir() string {
	if dir := viper.GetString("cache.dir"); dir != "" {
		return dir
	}
	if base := defaultDataDir(); base != "" {
		return filepath.Join(base, "cache")
	}
	return ""
}

// dbPath returns the extraction history database path from config, or the default.
func dbPath() string {
	if p := viper.GetString("db.path"); p != "" {
		return p
	}
	if base := defaultDataDir(); base != "" {
		return filepath.Join(base, "gsc.duckdb")
	}
	return ""
}
