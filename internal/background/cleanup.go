package background

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is anything holding in-memory state that decays over time.
type Sweeper interface {
	Sweep() int
}

// CleanupManager periodically purges expired rate-limit windows and IP block
// records. Purging changes nothing observable, both stores expire entries
// lazily on read; it only bounds memory held for clients that never return.
type CleanupManager struct {
	sweepers []Sweeper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(logger *slog.Logger, interval time.Duration, sweepers ...Sweeper) *CleanupManager {
	return &CleanupManager{
		sweepers: sweepers,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.runSweep()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runSweep() {
	total := 0
	for _, s := range cm.sweepers {
		total += s.Sweep()
	}
	if total > 0 {
		cm.logger.Info("expired abuse-protection entries purged", slog.Int("entries_removed", total))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
