package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCleanupInterval is how often Sweep drops expired sessions.
const DefaultCleanupInterval = time.Minute

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if s.IsExpired(m.now()) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *MemoryStore) Set(ctx context.Context, session *Session) error {
	copied := *session
	m.mu.Lock()
	m.sessions[session.Token] = &copied
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

// Len reports how many sessions are held, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup drops every expired session and returns how many were removed.
func (m *MemoryStore) Cleanup(ctx context.Context) (int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for token, s := range m.sessions {
		if s.IsExpired(now) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed, nil
}

// Sweep runs Cleanup every interval until ctx is done. Tokens that are never
// read again would otherwise stay in memory for the life of the process.
func (m *MemoryStore) Sweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := m.Cleanup(ctx)
			if err != nil {
				slog.Error("failed to sweep expired sessions", "error", err)
				continue
			}
			if removed > 0 {
				slog.Debug("swept expired sessions", "removed", removed, "remaining", m.Len())
			}
		}
	}
}
