// Package cmd implements the thomson command line.
package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solatis/thomson/internal/core/config"
	"github.com/solatis/thomson/internal/core/db"
	"github.com/solatis/thomson/internal/core/history"
	"github.com/solatis/thomson/internal/logging"
)

const Version = "0.1.0"

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "thomson",
		Short:         "Thomson rule-driven nested key remapper",
		Long:          `Thomson remaps nested TOML, JSON and YAML documents into JSON, grouping keys as declared by a rule document.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&opts.dbURL, "db-url", "", "history database URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "json", "log format (json, text)")

	rootCmd.AddCommand(
		newTransformCmd(opts),
		newPathsCmd(opts),
		newServeCmd(opts),
		newMigrateCmd(opts),
		newHistoryCmd(opts),
		newKeygenCmd(),
	)
	return rootCmd
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// load resolves configuration (flags > env > file > defaults) and builds the
// logger on cmd's error stream.
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(o.configFile)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.Store.URL = o.dbURL
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	if err := config.Validate(cfg); err != nil {
		return nil, zerolog.Nop(), err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

// openDB connects to the history database named by cfg.
func openDB(cfg *config.Config, logger zerolog.Logger) (*sqlx.DB, error) {
	if cfg.Store.URL == "" {
		return nil, fmt.Errorf("history store not configured (set --db-url or THOMSON_STORE_URL)")
	}
	database, err := db.Open(cfg.Store.URL, logger.With().Str("component", "db").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// openStore connects to the history database and verifies every embedded
// migration has been applied.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sqlx.DB, *history.Store, error) {
	database, err := openDB(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return nil, nil, fmt.Errorf("migration %s not applied - run 'thomson migrate' first", s.ID)
		}
	}

	store, err := history.NewStore(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, store, nil
}
