package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"velaris/internal/domain"
)

type alertKey struct {
	coinID string
	typ    domain.SignalType
	hour   int64
}

// MemoryWhaleAlerts stands in for WhaleAlertRepository when no database is
// configured. It keeps at most capacity alerts.
type MemoryWhaleAlerts struct {
	mu       sync.Mutex
	alerts   []domain.WhaleAlert
	seen     map[alertKey]bool
	nextID   int64
	capacity int
}

func NewMemoryWhaleAlerts(capacity int) *MemoryWhaleAlerts {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryWhaleAlerts{seen: make(map[alertKey]bool), capacity: capacity}
}

func (m *MemoryWhaleAlerts) Insert(_ context.Context, a domain.WhaleAlert) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := alertKey{coinID: a.CoinID, typ: a.Type, hour: a.DetectedAt.UTC().Truncate(time.Hour).Unix()}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	m.nextID++
	a.ID = m.nextID
	a.DetectedAt = a.DetectedAt.UTC()
	m.alerts = append(m.alerts, a)

	if over := len(m.alerts) - m.capacity; over > 0 {
		for _, old := range m.alerts[:over] {
			delete(m.seen, alertKey{coinID: old.CoinID, typ: old.Type, hour: old.DetectedAt.Truncate(time.Hour).Unix()})
		}
		m.alerts = append([]domain.WhaleAlert(nil), m.alerts[over:]...)
	}
	return true, nil
}

func (m *MemoryWhaleAlerts) List(_ context.Context, filter domain.WhaleAlertFilter) ([]domain.WhaleAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}

	out := make([]domain.WhaleAlert, 0)
	for _, a := range m.alerts {
		if filter.CoinID == "" || a.CoinID == filter.CoinID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
