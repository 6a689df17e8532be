package advisor

import (
	"context"
	"sync"
	"time"

	"velaris/internal/domain"
)

const sessionIdleAfter = time.Hour

// MemoryStore keeps conversation turns in process. Each session holds at
// most capPerSession messages, oldest dropped first. Sessions with no new
// turn for an hour are forgotten.
type MemoryStore struct {
	mu            sync.Mutex
	sessions      map[string][]domain.ConversationMessage
	capPerSession int
	idleAfter     time.Duration
	lastSweep     time.Time
	now           func() time.Time
}

func NewMemoryStore(capPerSession int) *MemoryStore {
	if capPerSession <= 0 {
		capPerSession = 80
	}
	return &MemoryStore{
		sessions:      make(map[string][]domain.ConversationMessage),
		capPerSession: capPerSession,
		idleAfter:     sessionIdleAfter,
		lastSweep:     time.Now(),
		now:           time.Now,
	}
}

func (m *MemoryStore) AppendMessage(_ context.Context, sessionID, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	m.sweep(now)

	msgs := append(m.sessions[sessionID], domain.ConversationMessage{
		Role:      role,
		Content:   content,
		CreatedAt: now,
	})
	if over := len(msgs) - m.capPerSession; over > 0 {
		msgs = append([]domain.ConversationMessage(nil), msgs[over:]...)
	}
	m.sessions[sessionID] = msgs
	return nil
}

// sweep drops idle sessions at most once per idle window. Callers hold mu.
func (m *MemoryStore) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.idleAfter {
		return
	}
	for id, msgs := range m.sessions {
		if len(msgs) == 0 || now.Sub(msgs[len(msgs)-1].CreatedAt) >= m.idleAfter {
			delete(m.sessions, id)
		}
	}
	m.lastSweep = now
}

// RecentMessages returns up to limit of the newest turns in chronological order.
func (m *MemoryStore) RecentMessages(_ context.Context, sessionID string, limit int) ([]domain.ConversationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.sessions[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.ConversationMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}
