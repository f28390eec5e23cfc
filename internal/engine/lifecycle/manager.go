package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flip_bot/internal/engine/history"
	"flip_bot/internal/engine/vault"
	"flip_bot/internal/models"
	"flip_bot/internal/modules/metrics"
	"flip_bot/pkg/logger"

	"github.com/google/uuid"
)

type Config struct {
	CognitiveExitBelow float64
	MinMemoryMatch     float64 // порог «высокого» совпадения памяти (spearhead + windmark)

	MaxActiveCycles int
	WorkingCapital  float64

	PollInterval   time.Duration
	CognitiveEvery time.Duration
	LadderDecay    time.Duration
	MemoryLookback time.Duration
	ReentryWindow  time.Duration
	Cooldown       time.Duration
	FeedTimeout    time.Duration

	CancelRetryBase   time.Duration
	CancelHardTimeout time.Duration

	TrailActivatePct float64
	TrailPct         float64

	PrefillFirstRung bool
}

func (c *Config) defaults() {
	if c.CognitiveExitBelow <= 0 {
		c.CognitiveExitBelow = 40
	}
	if c.MinMemoryMatch <= 0 {
		c.MinMemoryMatch = 0.6
	}
	if c.MaxActiveCycles <= 0 {
		c.MaxActiveCycles = 5
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.CognitiveEvery <= 0 {
		c.CognitiveEvery = time.Minute
	}
	if c.LadderDecay <= 0 {
		c.LadderDecay = 15 * time.Minute
	}
	if c.MemoryLookback <= 0 {
		c.MemoryLookback = 7 * 24 * time.Hour
	}
	if c.ReentryWindow <= 0 {
		c.ReentryWindow = 2 * time.Hour
	}
	if c.FeedTimeout <= 0 {
		c.FeedTimeout = 10 * time.Second
	}
	if c.CancelRetryBase <= 0 {
		c.CancelRetryBase = 2 * time.Second
	}
	if c.CancelHardTimeout <= 0 {
		c.CancelHardTimeout = 2 * time.Minute
	}
}

// Manager владеет контроллерами активных циклов: один ACTIVE цикл на
// инструмент, глобальный кап на число одновременных циклов, пул
// рабочего капитала.
type Manager struct {
	cfg Config

	scoring ScoringStrategy
	ladders LadderStrategy

	feed  PriceFeed
	exch  Exchange
	n     Notifier
	hist  history.Store
	vault *vault.Allocator
	snaps SnapshotSink

	mu          sync.Mutex
	active      map[string]*Controller // instID -> controller
	slotsInUse  int
	available   float64 // свободный рабочий капитал
	cooldownTil map[string]time.Time
	reentryTil  map[string]time.Time

	wg sync.WaitGroup
}

type Deps struct {
	Scoring ScoringStrategy
	Ladders LadderStrategy
	Feed    PriceFeed
	Exch    Exchange
	N       Notifier
	Hist    history.Store
	Vault   *vault.Allocator
	Snaps   SnapshotSink
}

func NewManager(cfg Config, d Deps) *Manager {
	cfg.defaults()
	return &Manager{
		cfg:         cfg,
		scoring:     d.Scoring,
		ladders:     d.Ladders,
		feed:        d.Feed,
		exch:        d.Exch,
		n:           d.N,
		hist:        d.Hist,
		vault:       d.Vault,
		snaps:       d.Snaps,
		active:      make(map[string]*Controller),
		available:   cfg.WorkingCapital,
		cooldownTil: make(map[string]time.Time),
		reentryTil:  make(map[string]time.Time),
	}
}

// OnSignal — вход фазы SIGNAL_RECEIVED. При отказе цикл НЕ создаётся,
// причина всегда человекочитаемая.
func (m *Manager) OnSignal(ctx context.Context, sig models.Signal) (*models.FlipCycle, error) {
	if err := sig.Validate(); err != nil {
		metrics.IncSignal("rejected")
		m.n.Sendf("⛔️ [%s] Сигнал отклонён: %v", sig.InstID, err)
		return nil, err
	}

	mctx := m.liveContext(ctx, sig.InstID)
	breakdown, accepted, reason := m.scoring.Score(sig, mctx)
	if !accepted {
		metrics.IncSignal("rejected")
		m.n.Sendf("⛔️ [%s] NO-GO: %s", sig.InstID, reason)
		return nil, fmt.Errorf("%w: %s", models.ErrScoreBelowThreshold, reason)
	}

	m.mu.Lock()
	if _, running := m.active[sig.InstID]; running {
		m.mu.Unlock()
		metrics.IncSignal("rejected")
		return nil, fmt.Errorf("%w: %s", models.ErrCycleAlreadyActive, sig.InstID)
	}
	// кулдаун не действует внутри окна реэнтри (WINDMARK)
	now := time.Now()
	inReentry := now.Before(m.reentryTil[sig.InstID])
	if !inReentry {
		if until, ok := m.cooldownTil[sig.InstID]; ok && now.Before(until) {
			m.mu.Unlock()
			metrics.IncSignal("rejected")
			return nil, fmt.Errorf("cooldown until %s for %s", until.Format(time.RFC3339), sig.InstID)
		}
	}

	cycle := &models.FlipCycle{
		ID:              uuid.NewString(),
		InstID:          sig.InstID,
		Signal:          sig,
		Phase:           models.PhaseSignalReceived,
		Status:          models.StatusActive,
		Score:           breakdown,
		EntryVolatility: abs(mctx.Change24h),
		StartedAt:       now,
	}
	c := newController(m, cycle)
	m.active[sig.InstID] = c
	metrics.SetActiveCycles(len(m.active))
	m.mu.Unlock()

	metrics.IncSignal("accepted")
	m.n.Sendf("🔔 [%s] GO score=%.1f rr=%.2f capital=%.2f%s",
		sig.InstID, breakdown.Total, sig.RiskReward(), sig.Capital,
		map[bool]string{true: " (reentry)", false: ""}[inReentry])

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		c.Run(ctx)
		m.finish(c)
	}()
	return cycle, nil
}

// liveContext: отказ фида здесь не фатален — скоринг работает по сигналу,
// рыночная компонента просто не получает бонусов.
func (m *Manager) liveContext(ctx context.Context, instID string) models.MarketContext {
	tctx, cancel := context.WithTimeout(ctx, m.cfg.FeedTimeout)
	defer cancel()
	price, change, err := m.feed.GetPrice(tctx, instID)
	if err != nil {
		logger.Warn("[CYCLE] %s: live context unavailable: %v", instID, err)
		return models.MarketContext{InstID: instID, At: time.Now()}
	}
	return models.MarketContext{InstID: instID, Price: price, Change24h: change, At: time.Now()}
}

// acquireSlot — консенсус-гейт фазы SPEARHEAD: кап циклов + капитал.
func (m *Manager) acquireSlot(capital float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slotsInUse >= m.cfg.MaxActiveCycles {
		return models.ErrCycleCapReached
	}
	if capital > m.available {
		return models.ErrCapitalUnavailable
	}
	m.slotsInUse++
	m.available -= capital
	return nil
}

func (m *Manager) releaseSlot(capital float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slotsInUse--
	m.available += capital
}

// overexposed — системная перегрузка для CRYSTAL_SCAN. Вызывающий цикл
// уже держит свой слот, поэтому занятый кап сам по себе не перегрузка:
// сверх капа можно оказаться только чужими слотами.
func (m *Manager) overexposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slotsInUse > m.cfg.MaxActiveCycles
}

func (m *Manager) noteReentryWindow(instID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reentryTil[instID] = time.Now().Add(m.cfg.ReentryWindow)
}

func (m *Manager) finish(c *Controller) {
	m.mu.Lock()
	delete(m.active, c.cycle.InstID)
	if m.cfg.Cooldown > 0 && !c.cycle.Status.Blocked() {
		m.cooldownTil[c.cycle.InstID] = time.Now().Add(m.cfg.Cooldown)
	}
	n := len(m.active)
	m.mu.Unlock()
	metrics.SetActiveCycles(n)
}

func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Manager) Available() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Wait блокируется до завершения всех контроллеров (останов/симуляция).
func (m *Manager) Wait() {
	m.wg.Wait()
}

// HealthLoop — периодический срез состояния (как health-лог раннера).
func (m *Manager) HealthLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			activeCount := len(m.active)
			available := m.available
			m.mu.Unlock()
			logger.Info("[HEALTH] cycles=%d capital=%.2f vaultPending=%.2f",
				activeCount, available, m.vault.Pending())
		}
	}
}
