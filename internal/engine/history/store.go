// Package history is the append-only store of completed cycle outcomes.
// No update or delete exists in the core's contract.
package history

import (
	"context"
	"strings"
	"sync"
	"time"

	"flip_bot/internal/models"
)

type Store interface {
	Append(ctx context.Context, echo models.MemoryEcho) error
	// Query matches echoes by asset OR pattern class inside the lookback window.
	Query(ctx context.Context, instID, pattern string, lookback time.Duration) ([]models.MemoryEcho, error)
}

// MemoryStore — процесс-локальное хранилище (тесты, симуляция).
type MemoryStore struct {
	mu     sync.RWMutex
	echoes []models.MemoryEcho
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, echo models.MemoryEcho) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.echoes = append(s.echoes, echo)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, instID, pattern string, lookback time.Duration) ([]models.MemoryEcho, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-lookback)
	var out []models.MemoryEcho
	for _, e := range s.echoes {
		if e.CompletedAt.Before(cutoff) {
			continue
		}
		if matches(e, instID, pattern) {
			out = append(out, e)
		}
	}
	return out, nil
}

func matches(e models.MemoryEcho, instID, pattern string) bool {
	if instID != "" && strings.EqualFold(e.InstID, instID) {
		return true
	}
	if pattern != "" && strings.EqualFold(e.Pattern, pattern) {
		return true
	}
	return false
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.echoes)
}
