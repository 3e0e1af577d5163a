// Package retention provides cron-based expiry of old archive messages.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Store defines the store operation the sweeper needs.
type Store interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper deletes messages older than a configured age on a cron schedule.
type Sweeper struct {
	cron   *cron.Cron
	store  Store
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Sweeper that removes messages older than maxAgeDays on the
// given 5-field cron schedule. Returns an error if the schedule does not
// parse or maxAgeDays is not positive.
func New(store Store, maxAgeDays int, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if maxAgeDays <= 0 {
		return nil, fmt.Errorf("max age must be positive, got %d days", maxAgeDays)
	}

	s := &Sweeper{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		))),
		store:  store,
		maxAge: time.Duration(maxAgeDays) * 24 * time.Hour,
		logger: logger,
		now:    time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("retention sweep failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start begins the cron scheduler in its own goroutine.
func (s *Sweeper) Start() {
	s.logger.Info("retention sweeper started", "max_age", s.maxAge)
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("retention sweeper stopped")
}

// RunOnce deletes all messages older than the retention window.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	cutoff := s.now().Add(-s.maxAge)

	removed, err := s.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete before %s: %w", cutoff.UTC().Format(time.RFC3339), err)
	}

	if removed > 0 {
		s.logger.Info("retention sweep removed messages", "removed", removed, "cutoff", cutoff.UTC())
	}
	return nil
}
