package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/store"
)

// HousekeepingService periodically removes expired action tokens and
// consumed-token markers. Request handling never depends on it: expiry is
// checked at validation time regardless of sweep cadence.
type HousekeepingService struct {
	Actions  *ActionService
	Ledger   store.Ledger
	Logger   *slog.Logger
	Interval time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(actions *ActionService, ledger store.Ledger, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Actions:  actions,
		Ledger:   ledger,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs one sweep. Each deletion is independent, a failure in
// one does not stop the other.
func (s *HousekeepingService) RunOnce(ctx context.Context) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	actions, err := s.Actions.SweepExpired(ctx)
	if err != nil {
		s.Logger.Error("failed to delete expired actions", "error", err)
	}

	markers, err := s.Ledger.DeleteExpired(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired token markers", "error", err)
	}

	s.Logger.Info("housekeeping cleanup completed",
		"actions_deleted", actions,
		"markers_deleted", markers,
	)
}
