package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/recallhq/recall/internal/api"
	"github.com/recallhq/recall/internal/query"
	"github.com/recallhq/recall/internal/retention"
	"github.com/recallhq/recall/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recall HTTP API server",
	Long: `Run recall as a long-running HTTP API server.

The server runs in the foreground and provides:
  - Message archive API on the configured port (default: 8000)
  - Optional retention sweeps that delete messages past their maximum age

Configure retention in config.toml:
  [retention]
  enabled = true
  max_age_days = 365
  schedule = "0 3 * * *"   # 3am daily (cron format)

Use Ctrl+C to stop the server gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()

	if err := s.InitSchema(); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	service := query.NewService(s)
	apiServer := api.NewServer(cfg, s, service, logger)

	var sweeper *retention.Sweeper
	if cfg.Retention.Enabled {
		sweeper, err = retention.New(s, cfg.Retention.MaxAgeDays, cfg.Retention.Schedule, logger)
		if err != nil {
			return fmt.Errorf("configure retention: %w", err)
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	fmt.Printf("recall server started\n")
	fmt.Printf("  API server: http://%s\n", cfg.ListenAddr())
	fmt.Printf("  Database:   %s\n", cfg.DatabasePath())
	if cfg.Retention.Enabled {
		fmt.Printf("  Retention:  delete after %d days (schedule %q)\n", cfg.Retention.MaxAgeDays, cfg.Retention.Schedule)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")

	select {
	case <-cmd.Context().Done():
		logger.Info("received shutdown signal")
		fmt.Println("\nShutting down...")
	case err := <-serverErr:
		logger.Error("API server error", "error", err)
		return fmt.Errorf("api server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}

	fmt.Println("Shutdown complete.")
	return nil
}
