package session

import (
	"context"
	"sync"
	"time"

	"crmweb/internal/domain"
)

// MemoryStore is an in-memory Store for tests and development.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]domain.Session)}
}

func (m *MemoryStore) Create(_ context.Context, sess *domain.Session) (string, error) {
	const op = "session.create"

	token, err := generateToken()
	if err != nil {
		return "", domain.Internal(err, op, "Failed to generate session token")
	}

	sess.CreatedAt = time.Now()

	m.mu.Lock()
	m.sessions[hashToken(token)] = *sess
	m.mu.Unlock()

	return token, nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (*domain.Session, error) {
	const op = "session.get"

	m.mu.RLock()
	sess, ok := m.sessions[hashToken(token)]
	m.mu.RUnlock()

	if !ok {
		return nil, domain.Unauthorized(op, "Invalid session")
	}
	if sess.IsExpired() {
		m.mu.Lock()
		delete(m.sessions, hashToken(token))
		m.mu.Unlock()
		return nil, domain.Unauthorized(op, "Session expired")
	}

	copied := sess
	return &copied, nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, hashToken(token))
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for hash, sess := range m.sessions {
		if sess.IsExpired() {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
