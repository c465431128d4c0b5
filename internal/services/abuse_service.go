package services

import (
	"log/slog"
	"sync"
	"time"
)

// AbuseConfig holds the failed-attempt thresholds.
type AbuseConfig struct {
	MaxFailedAttempts int
	BlockDuration     time.Duration
}

// DefaultAbuseConfig mirrors the production values: 5 failures, 30 minutes.
func DefaultAbuseConfig() AbuseConfig {
	return AbuseConfig{
		MaxFailedAttempts: 5,
		BlockDuration:     30 * time.Minute,
	}
}

// AbuseTracker counts failed login attempts per client IP and serves a
// temporary block once the threshold is reached. All state is in-memory and
// process-local; a restart clears abuse history.
type AbuseTracker struct {
	mu             sync.Mutex
	failedAttempts map[string]int
	blockedIPs     map[string]time.Time // block start
	config         AbuseConfig
	clock          Clock
	logger         *slog.Logger
}

func NewAbuseTracker(config AbuseConfig, clock Clock, logger *slog.Logger) *AbuseTracker {
	return &AbuseTracker{
		failedAttempts: make(map[string]int),
		blockedIPs:     make(map[string]time.Time),
		config:         config,
		clock:          clock,
		logger:         logger,
	}
}

// IsBlocked reports whether ip is currently blocked and, if so, how long
// until the block lapses. An expired block is purged on the spot together
// with the failure counter; there is no background sweeper requirement.
func (t *AbuseTracker) IsBlocked(ip string) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	blockStart, ok := t.blockedIPs[ip]
	if !ok {
		return false, 0
	}

	elapsed := t.clock.Now().Sub(blockStart)
	if elapsed < t.config.BlockDuration {
		return true, t.config.BlockDuration - elapsed
	}

	// Lazy expiry: both records go at once.
	delete(t.blockedIPs, ip)
	delete(t.failedAttempts, ip)
	return false, 0
}

// RecordFailure increments the failure counter for ip and reports whether
// this failure tripped the block threshold.
func (t *AbuseTracker) RecordFailure(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failedAttempts[ip]++
	attempts := t.failedAttempts[ip]

	if attempts >= t.config.MaxFailedAttempts {
		t.blockedIPs[ip] = t.clock.Now()
		t.logger.Warn("ip blocked after repeated failed login attempts",
			slog.String("ip_address", ip),
			slog.Int("failed_attempts", attempts))
		return true
	}

	return false
}

// RecordSuccess clears the failure counter for ip. A block that is already
// serving is left in place: success inside the block window does not lift it.
func (t *AbuseTracker) RecordSuccess(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.failedAttempts, ip)
}

// Sweep removes expired blocks and their counters. Purely memory hygiene;
// every read path already expires lazily.
func (t *AbuseTracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	removed := 0
	for ip, blockStart := range t.blockedIPs {
		if now.Sub(blockStart) >= t.config.BlockDuration {
			delete(t.blockedIPs, ip)
			delete(t.failedAttempts, ip)
			removed++
		}
	}
	return removed
}
