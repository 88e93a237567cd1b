package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rubiojr/bookexplorer/pkg/metrics"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 30 * time.Minute

// Manager keeps sessions keyed by a random UUID.
type Manager struct {
	deps Deps
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(deps Deps, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		deps:     deps,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// SetDeps replaces the dependencies used for sessions created from now on.
func (m *Manager) SetDeps(deps Deps) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deps = deps
}

func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := New(uuid.NewString(), m.deps)
	s.lastSeen = m.now()
	m.sessions[s.id] = s
	metrics.ActiveSessions.Inc()
	logger.Debugf("created session %s", s.id)
	return s
}

// Get returns a live session. Expired sessions are removed and reported as
// ErrNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(s) {
		m.removeLocked(id, s)
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes and removes a session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		m.removeLocked(id, s)
	}
	return ok
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes idle sessions and returns how many were dropped. Sessions
// with event listeners attached never expire.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			m.removeLocked(id, s)
			n++
		}
	}
	if n > 0 {
		logger.Debugf("expired %d sessions", n)
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close removes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		m.removeLocked(id, s)
	}
}

func (m *Manager) expired(s *Session) bool {
	return s.listeners() == 0 && m.now().Sub(s.idleSince()) > m.ttl
}

func (m *Manager) removeLocked(id string, s *Session) {
	delete(m.sessions, id)
	s.Close()
	metrics.ActiveSessions.Dec()
}
