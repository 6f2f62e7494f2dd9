package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-dmx/internal/diagnostics"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-dmx/migrations"
)

// defaultPruneAge is how old a persisted error must be before prune-errors
// removes it.
const defaultPruneAge = 30 * 24 * time.Hour

// newRootCmd builds the command tree. Running the root command with no
// subcommand starts the engine.
func newRootCmd() *cobra.Command {
	var configFlag string

	root := &cobra.Command{
		Use:   "graylogic-dmx",
		Short: "Gray Logic DMX lighting control engine",
		Long: `Gray Logic DMX holds the live DMX channel table, plays timed lighting
shows into it, and ingests sACN traffic from the network relay.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath(configFlag))
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "",
		"path to config file (default $"+configEnvVar+" or "+defaultConfigPath+")")

	root.AddCommand(
		newServeCmd(&configFlag),
		newCheckConfigCmd(&configFlag),
		newPruneErrorsCmd(&configFlag),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine and its API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath(*configFlag))
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "graylogic-dmx %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// newCheckConfigCmd validates the config file and reports which database
// migrations are applied and pending. It never applies migrations.
func newCheckConfigCmd(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate configuration and report migration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := getConfigPath(*configFlag)
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config: %s OK\n", path)
			fmt.Fprintf(out, "site: %s\n", cfg.Site.ID)
			fmt.Fprintf(out, "network: %t (multicast %s:%d)\n",
				cfg.Network.Enabled, cfg.Network.Multicast.Address, cfg.Network.Multicast.Port)
			fmt.Fprintf(out, "api: %t (%s:%d)\n", cfg.API.Enabled, cfg.API.Host, cfg.API.Port)

			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, pending, err := db.MigrationStatus(cmd.Context(), migrations.FS)
			if err != nil {
				return fmt.Errorf("reading migration status: %w", err)
			}
			fmt.Fprintf(out, "migrations: %d applied, %d pending\n", len(applied), len(pending))
			for _, m := range pending {
				fmt.Fprintf(out, "  pending %s %s\n", m.Version, m.Name)
			}
			return nil
		},
	}
}

// newPruneErrorsCmd deletes persisted network errors older than --older-than.
func newPruneErrorsCmd(configFlag *string) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune-errors",
		Short: "Delete persisted network errors older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}

			cfg, err := config.Load(getConfigPath(*configFlag))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context(), migrations.FS); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}

			errorLog := diagnostics.NewErrorLog(db.DB, nil)
			defer errorLog.Close()

			n, err := errorLog.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d network errors\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", defaultPruneAge, "minimum age of errors to delete")
	return cmd
}

func openDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
