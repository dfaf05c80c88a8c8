package player

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// Factory builds the session for a guild the first time it is needed.
type Factory func(guildID snowflake.ID) *Session

// Manager maps guilds to their sessions. Sessions are created lazily and
// live for the life of the process; leaving a channel stops a session
// without removing it.
type Manager struct {
	mu       sync.RWMutex
	sessions map[snowflake.ID]*Session
	factory  Factory
}

func NewManager(factory Factory) *Manager {
	return &Manager{
		sessions: make(map[snowflake.ID]*Session),
		factory:  factory,
	}
}

// Get returns the guild's session, creating it if needed.
func (m *Manager) Get(guildID snowflake.ID) *Session {
	m.mu.RLock()
	s, ok := m.sessions[guildID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[guildID]; ok {
		return s
	}
	s = m.factory(guildID)
	m.sessions[guildID] = s
	return s
}

// Lookup returns the guild's session without creating one.
func (m *Manager) Lookup(guildID snowflake.ID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[guildID]
	return s, ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sessions returns every session created so far.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Shutdown stops every session.
func (m *Manager) Shutdown() {
	for _, s := range m.Sessions() {
		s.Stop()
	}
}
