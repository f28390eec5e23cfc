// Package vault splits realized profit between a protected reserve and
// working capital, batching external transfers under a minimum threshold.
package vault

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flip_bot/internal/models"
	"flip_bot/pkg/logger"
)

// LedgerStore — единственный писатель в леджер, все записи сериализуются
// мьютексом аллокатора.
type LedgerStore interface {
	Insert(ctx context.Context, e models.VaultLedgerEntry) error
	MarkTransferred(ctx context.Context, upTo time.Time) error
}

// TreasuryTransfer — внешний перевод накопленного резерва (коллаборатор).
type TreasuryTransfer func(ctx context.Context, amount float64) error

type Config struct {
	SiphonRate  float64 // 0..1; default 0.30
	MinProfit   float64 // ниже — GLYPH_LOCK пропускает аллокацию
	MinTransfer float64 // batching rule: перевод только при pending >= MinTransfer
}

type Allocator struct {
	cfg      Config
	store    LedgerStore
	transfer TreasuryTransfer

	mu      sync.Mutex
	pending float64 // накопленный, ещё не переведённый резерв
	reserve float64 // всего ушло в резерв за процесс
}

func NewAllocator(cfg Config, store LedgerStore, transfer TreasuryTransfer) *Allocator {
	if cfg.SiphonRate < 0 {
		cfg.SiphonRate = 0
	}
	if cfg.SiphonRate > 1 {
		cfg.SiphonRate = 1
	}
	return &Allocator{cfg: cfg, store: store, transfer: transfer}
}

// Allocate делит gross profit. При grossProfit <= 0 — no-op (nil, nil).
func (a *Allocator) Allocate(ctx context.Context, cycleID string, grossProfit float64) (*models.VaultLedgerEntry, error) {
	if grossProfit <= 0 {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	e := models.VaultLedgerEntry{
		CycleID:         cycleID,
		GrossProfit:     grossProfit,
		Reserve:         grossProfit * a.cfg.SiphonRate,
		WorkingRetained: grossProfit * (1 - a.cfg.SiphonRate),
		CreatedAt:       time.Now(),
	}

	// запись под локом с ретраями: конфликт не теряем молча
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if err = a.store.Insert(ctx, e); err == nil {
			break
		}
		logger.Warn("[VAULT] ledger insert attempt %d failed: %v", attempt, err)
	}
	if err != nil {
		return nil, fmt.Errorf("vault ledger insert: %w", err)
	}

	a.pending += e.Reserve
	a.reserve += e.Reserve
	logger.Info("[VAULT] cycle=%s gross=%.2f reserve=%.2f retained=%.2f pending=%.2f",
		cycleID, grossProfit, e.Reserve, e.WorkingRetained, a.pending)
	return &e, nil
}

// Pending — накопленный непереведённый резерв.
func (a *Allocator) Pending() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// ReserveTotal — всего отведено в резерв за время процесса.
func (a *Allocator) ReserveTotal() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reserve
}

// Sweep выполняет внешний перевод, если накопилось не меньше MinTransfer.
// Суб-пороговые аллокации остаются записанными, но не переведёнными.
func (a *Allocator) Sweep(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending < a.cfg.MinTransfer {
		return nil
	}
	amount := a.pending
	if a.transfer != nil {
		if err := a.transfer(ctx, amount); err != nil {
			return fmt.Errorf("treasury transfer %.2f: %w", amount, err)
		}
	}
	if err := a.store.MarkTransferred(ctx, time.Now()); err != nil {
		return fmt.Errorf("mark transferred: %w", err)
	}
	a.pending = 0
	logger.Info("[VAULT] swept %.2f to reserve", amount)
	return nil
}

// MinProfit — порог GLYPH_LOCK.
func (a *Allocator) MinProfit() float64 {
	return a.cfg.MinProfit
}
