package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
)

// ModeDetector decides the mode a new session starts in.
type ModeDetector interface {
	Detect(ctx context.Context) domain.ConnectivityMode
}

// Manager owns the open sessions.
type Manager struct {
	engine *Engine
	probe  ModeDetector
	logger logger.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager. probe may be nil, in which case sessions
// start in remote mode.
func NewManager(engine *Engine, probe ModeDetector) *Manager {
	return &Manager{
		engine:   engine,
		probe:    probe,
		logger:   engine.Logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session. The backend is probed once here; the result is
// the session's starting mode.
func (m *Manager) Create(ctx context.Context) *Session {
	mode := domain.ModeRemote
	if m.probe != nil {
		mode = m.probe.Detect(ctx)
	}

	s := newSession(uuid.NewString(), mode, m.engine, m.now)

	m.mu.Lock()
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.engine.Metrics.SetSessions(n)
	m.logger.Debug("session created",
		logger.String("session", s.id),
		logger.String("mode", string(mode)))
	return s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete discards a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	m.engine.Metrics.SetSessions(n)
	return nil
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than ttl. Busy sessions are kept.
func (m *Manager) Sweep(ttl time.Duration) int {
	now := m.now()

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		idle, busy := s.idleSince(now)
		if busy || idle < ttl {
			continue
		}
		delete(m.sessions, id)
		removed++
	}
	n := len(m.sessions)
	m.mu.Unlock()

	m.engine.Metrics.SetSessions(n)
	return removed
}
