package cmd

import (
	"fmt"
	"time"

	"github.com/recallhq/recall/internal/store"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		if err := s.InitSchema(); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}

		stats, err := s.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}

		fmt.Printf("Database: %s\n", cfg.DatabasePath())
		fmt.Printf("  Messages: %d\n", stats.TotalCount)
		fmt.Printf("  Authors:  %d\n", stats.DistinctAuthors)
		if stats.EarliestTimestamp != nil {
			fmt.Printf("  Earliest: %s\n", stats.EarliestTimestamp.UTC().Format(time.RFC3339))
		}
		if stats.LatestTimestamp != nil {
			fmt.Printf("  Latest:   %s\n", stats.LatestTimestamp.UTC().Format(time.RFC3339))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
