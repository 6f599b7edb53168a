package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds the state carried between the duplicate-check pass and the
// confirm pass of an import. Data is owned by the creating handler.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
	Data      interface{}
}

type Manager struct {
	sessions map[string]*Session
	ttl      time.Duration
	mu       sync.Mutex
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
}

func (m *Manager) Name() string {
	return "ImportSessions"
}

// Start launches the janitor goroutine that drops expired sessions.
func (m *Manager) Start() error {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.CleanupExpired()
			}
		}
	}()
	return nil
}

func (m *Manager) Stop() error {
	close(m.stopCh)
	m.wg.Wait()
	return nil
}

func (m *Manager) Create(data interface{}) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(m.ttl),
		Data:      data,
	}
	m.sessions[session.ID] = session
	return session
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, false
	}
	if time.Now().After(session.ExpiresAt) {
		delete(m.sessions, sessionID)
		return nil, false
	}
	return session, true
}

func (m *Manager) Delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
}

func (m *Manager) CleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, session := range m.sessions {
		if time.Now().After(session.ExpiresAt) {
			delete(m.sessions, id)
		}
	}
}
