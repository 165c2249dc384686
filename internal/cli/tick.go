package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/redrive/internal/config"
	"github.com/me/redrive/internal/metrics"
	"github.com/me/redrive/internal/processor"
	"github.com/me/redrive/internal/scheduler"
	"github.com/me/redrive/internal/store"
)

// newTickCmd runs one tick of every configured trigger against the database
// directly. Meant for draining a backlog without a running daemon; do not run
// it while redrived is using the same database with a different config.
func newTickCmd() *cobra.Command {
	var (
		configFile string
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one tick of every trigger against the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("no database path; pass --db or set db_path in the config")
			}

			st, err := store.NewSQLiteStore(cfg.DBPath, logger)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}

			reg := processor.NewRegistryFromConfig(cfg.Processor, logger)
			sched := scheduler.New(cfg, st, reg, metrics.NopObserver{}, scheduler.RealClock(), logger)

			for _, state := range sched.RunOnce(cmd.Context()) {
				r := state.LastResult
				fmt.Printf("%s: selected %d, claimed %d, succeeded %d, failed %d, skipped %d, reclaimed %d, persist errors %d\n",
					state.Name, r.Selected, r.Claimed, r.Succeeded, r.Failed, r.Skipped, r.Reclaimed, r.PersistErrors)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to YAML config file")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database path (overrides config)")
	return cmd
}
