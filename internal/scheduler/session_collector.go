package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/logger"
	"github.com/MrSnakeDoc/tripdesk/internal/metrics"
)

const (
	// DefaultIdleTTL is how long a search session may stay untouched
	DefaultIdleTTL = 30 * time.Minute
)

// Sweeper drops sessions idle for longer than ttl.
type Sweeper interface {
	Sweep(ttl time.Duration) int
	Count() int
}

// SessionCollector removes abandoned search sessions
type SessionCollector struct {
	sessions Sweeper
	metrics  *metrics.Metrics
	logger   logger.Logger
	interval time.Duration
	idleTTL  time.Duration
	stopCh   chan struct{}
}

// NewSessionCollector creates a new session collector
func NewSessionCollector(
	sessions Sweeper,
	m *metrics.Metrics,
	log logger.Logger,
	interval time.Duration,
	idleTTL time.Duration,
) *SessionCollector {
	if idleTTL == 0 {
		idleTTL = DefaultIdleTTL
	}
	if interval <= 0 {
		interval = time.Minute
	}

	return &SessionCollector{
		sessions: sessions,
		metrics:  m,
		logger:   log,
		interval: interval,
		idleTTL:  idleTTL,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection process
func (sc *SessionCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(sc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sc.Collect(ctx)
			case <-sc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the collector
func (sc *SessionCollector) Stop() {
	close(sc.stopCh)
}

// Collect removes idle sessions and returns how many were dropped
func (sc *SessionCollector) Collect(_ context.Context) int {
	removed := sc.sessions.Sweep(sc.idleTTL)
	sc.metrics.SetSessions(sc.sessions.Count())

	if removed > 0 {
		sc.logger.Info("garbage collected idle sessions",
			logger.Int("removed", removed),
			logger.Duration("idle_ttl", sc.idleTTL))
	} else {
		sc.logger.Debug("no sessions to garbage collect")
	}

	return removed
}
