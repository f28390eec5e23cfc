package vault

import (
	"context"
	"sync"
	"time"

	"flip_bot/internal/models"
)

// MemoryLedger — in-memory леджер для тестов и симуляции.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []models.VaultLedgerEntry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (m *MemoryLedger) Insert(_ context.Context, e models.VaultLedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryLedger) MarkTransferred(_ context.Context, upTo time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if !m.entries[i].CreatedAt.After(upTo) {
			m.entries[i].Transferred = true
		}
	}
	return nil
}

func (m *MemoryLedger) Entries() []models.VaultLedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.VaultLedgerEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
