package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configKeys lists the recognized configuration keys.
var configKeys = []string{
	"output.dir",
	"extract.modes",
	"extract.min_size",
	"extract.max_size",
	"extract.exclude_subsystems",
	"extract.exclude_metabolites",
	"db.path",
	"cache.dir",
}

// listKeys are keys holding lists. Values are separated by semicolons since
// subsystem and metabolite names may contain commas.
var listKeys = map[string]bool{
	"extract.modes":               true,
	"extract.exclude_subsystems":  true,
	"extract.exclude_metabolites": true,
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gem-gsc configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.gem-gsc.yaml.",
		Example: `  gem-gsc config                                  # show all config
  gem-gsc config set extract.min_size 5           # drop sets with fewer than 5 genes
  gem-gsc config set extract.exclude_metabolites "H2O;ATP;ADP"
  gem-gsc config get extract.min_size             # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(a)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(a, args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(a, args[0])
		},
	})

	return cmd
}

func runConfigShow(a *app) error {
	settings := make(map[string]any)
	for _, key := range configKeys {
		if viper.InConfig(key) || os.Getenv(envKey(key)) != "" {
			settings[key] = viper.Get(key)
		}
	}
	if len(settings) == 0 {
		fmt.Fprintln(a.stdout, "# No configuration set. Config file: ~/.gem-gsc.yaml")
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(a.stdout, string(out))
	return nil
}

func runConfigSet(a *app, key, value string) error {
	if !knownKey(key) {
		return &usageError{fmt.Errorf("unknown config key %q", key)}
	}

	// Store typed values so the YAML reads back as lists and integers
	if listKeys[key] {
		viper.Set(key, splitList(value))
	} else if n, err := strconv.Atoi(value); err == nil {
		viper.Set(key, n)
	} else {
		viper.Set(key, value)
	}

	// Ensure config file exists
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".gem-gsc.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(a.stdout, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(a *app, key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(a.stdout, val)
	return nil
}

func knownKey(key string) bool {
	for _, k := range configKeys {
		if k == key {
			return true
		}
	}
	return false
}

// envKey returns the environment variable that overrides key.
func envKey(key string) string {
	return "GEM_GSC_" + strings.ToUpper(envReplacer.Replace(key))
}

// listSetting reads a list-valued key. Env vars and plain config strings
// arrive as one string and are split on semicolons; viper would otherwise
// split them on whitespace.
func listSetting(key string) []string {
	if s, ok := viper.Get(key).(string); ok {
		return splitList(s)
	}
	var out []string
	for _, item := range viper.GetStringSlice(key) {
		out = append(out, splitList(item)...)
	}
	return out
}

// splitList splits a semicolon-separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
