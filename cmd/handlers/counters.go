package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"newsgate/internal/config"
	"newsgate/internal/metrics"
)

// NewCountersCmd creates the command that prints the latest persisted
// operational counters.
func NewCountersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counters",
		Short: "Show the latest persisted operational counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			store, err := metrics.NewSQLiteStore(cfg.Metrics.SnapshotPath)
			if err != nil {
				return fmt.Errorf("failed to open counter store: %w", err)
			}
			defer func() { _ = store.Close() }()

			snapshot, err := store.ReadLatest()
			if err != nil {
				return err
			}
			if snapshot == nil {
				fmt.Println("no counter snapshot recorded yet")
				return nil
			}
			return printJSON(snapshot)
		},
	}
}
