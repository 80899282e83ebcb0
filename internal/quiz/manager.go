package quiz

import (
	"sync"

	"github.com/google/uuid"
)

// Manager keys sessions by an opaque identifier so simultaneous users never
// share quiz state. Each session itself is still single-actor; the manager
// only guards the map.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Get returns the session for id, or nil if none exists.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Create registers a fresh session and returns its new identifier.
func (m *Manager) Create() (string, *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	s := NewSession()
	m.sessions[id] = s
	return id, s
}

// Drop removes a session, discarding its state.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
