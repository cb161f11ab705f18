package app

import (
	"sync"

	"github.com/classpoll/classpoll/internal/core"
	"github.com/classpoll/classpoll/internal/domain"
)

type SessionManagerImpl struct {
	mu       sync.RWMutex
	sessions map[domain.SessionName]core.Session
}

func NewSessionManager() core.SessionManager {
	return &SessionManagerImpl{sessions: make(map[domain.SessionName]core.Session)}
}

func (m *SessionManagerImpl) GetOrCreate(name domain.SessionName) core.Session {
	m.mu.RLock()
	sess, ok := m.sessions[name]
	m.mu.RUnlock()
	if ok {
		return sess
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok = m.sessions[name]; ok {
		return sess
	}
	sess = core.NewSession(name)
	m.sessions[name] = sess
	return sess
}

func (m *SessionManagerImpl) Get(name domain.SessionName) (core.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[name]
	return sess, ok
}

func (m *SessionManagerImpl) List() []core.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.SessionInfo, 0, len(m.sessions))
	for name, s := range m.sessions {
		out = append(out, core.SessionInfo{Name: name, ParticipantCount: s.ParticipantCount()})
	}
	return out
}

func (m *SessionManagerImpl) Stop(name domain.SessionName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, name)
}
