package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/rollcall-app/rollcall/internal/session"
)

// SweepManager periodically removes idle browser sessions
type SweepManager struct {
	sessions *session.Manager
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweepManager creates a new sweep manager
func NewSweepManager(sessions *session.Manager, logger *slog.Logger, interval time.Duration) *SweepManager {
	return &SweepManager{
		sessions: sessions,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (sm *SweepManager) Start(ctx context.Context) {
	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.runSweep()
		case <-sm.stopCh:
			sm.logger.Info("session sweeper stopped")
			return
		case <-ctx.Done():
			sm.logger.Info("session sweeper context cancelled")
			return
		}
	}
}

func (sm *SweepManager) runSweep() {
	removed := sm.sessions.SweepExpired()
	if removed > 0 {
		sm.logger.Info("idle sessions swept",
			slog.Int("removed", removed),
			slog.Int("remaining", sm.sessions.Len()))
	}
}

// Stop signals the sweep manager to stop
func (sm *SweepManager) Stop() {
	close(sm.stopCh)
}
