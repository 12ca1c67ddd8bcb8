// Package cli wires configuration, storage and the HTTP server into the
// conduit command.
package cli

import (
	"fmt"
	"os"

	"github.com/msomdec/conduit/internal/config"
	"github.com/spf13/cobra"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand builds the conduit command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "conduit",
		Short: "Conduit blogging platform API server",
		Long: `Conduit serves the RealWorld blogging API: users, profiles, articles,
favorites, follows and comments, backed by SQLite or Postgres.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "path to a YAML config file")
	flags.String("database-url", "", "SQLite path or postgres:// URL")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json, both)")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd())
	return root
}

// loadConfig resolves the effective configuration for cmd: defaults, the
// --config file, the environment and finally any flags set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var path string
	if f := cmd.Flag("config"); f != nil {
		path = f.Value.String()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	stringFlag(cmd, "addr", &cfg.Addr)
	stringFlag(cmd, "database-url", &cfg.DatabaseURL)
	stringFlag(cmd, "log-level", &cfg.LogLevel)
	stringFlag(cmd, "log-format", &cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func stringFlag(cmd *cobra.Command, name string, dst *string) {
	if f := cmd.Flag(name); f != nil && f.Changed {
		*dst = f.Value.String()
	}
}
