package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
)

// Pinger issues one harmless read against the backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the outcome of the latest probe.
type Status struct {
	Mode      domain.ConnectivityMode
	CheckedAt time.Time
	Err       error
}

// Probe decides whether the backend is reachable. The decision is made once
// per session; sessions override it reactively when remote calls fail.
type Probe struct {
	pinger  Pinger
	timeout time.Duration
	logger  logger.Logger
	now     func() time.Time

	mu   sync.RWMutex
	last Status
}

// New creates a probe. timeout bounds the probe call only; 0 means none.
func New(p Pinger, timeout time.Duration, log logger.Logger) *Probe {
	return &Probe{
		pinger:  p,
		timeout: timeout,
		logger:  log,
		now:     time.Now,
	}
}

// Detect pings the backend and returns the mode a new session starts in.
func (p *Probe) Detect(ctx context.Context) domain.ConnectivityMode {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err := p.pinger.Ping(ctx)
	mode := domain.ModeRemote
	if err != nil {
		mode = domain.ModeLocal
		p.logger.Warn("backend not available, using local data",
			logger.Error(err))
	} else {
		p.logger.Debug("backend reachable")
	}

	p.mu.Lock()
	p.last = Status{Mode: mode, CheckedAt: p.now(), Err: err}
	p.mu.Unlock()

	return mode
}

// Last returns the result of the most recent Detect call. Mode is empty
// when no probe has run yet.
func (p *Probe) Last() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}
