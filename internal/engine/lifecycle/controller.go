// Package lifecycle drives one FlipCycle through its nine phases:
//
//	SIGNAL_RECEIVED → MEMORY_WEIGHTING → SPEARHEAD_INVOKED →
//	LADDER_DEPLOYED → CRYSTAL_SCAN → (ASHEN_FLAME | WINDMARK) →
//	GLYPH_LOCK → ECHO_IMPRINT
//
// Гейты фаз 1 и 3 — единственные терминальные отказы; любой другой путь
// доходит до ECHO_IMPRINT: ни один цикл не остаётся без финальной записи.
package lifecycle

import (
	"context"
	"strconv"
	"strings"
	"time"

	"flip_bot/internal/engine/exitmon"
	"flip_bot/internal/engine/ladder"
	"flip_bot/internal/engine/scorer"
	"flip_bot/internal/models"
	"flip_bot/internal/modules/metrics"
	"flip_bot/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// Controller эксклюзивно владеет своим FlipCycle от создания до финальной
// записи. Все таймеры и поллеры живут не дольше самого цикла.
type Controller struct {
	ctx    context.Context
	cancel context.CancelFunc

	mgr   *Manager
	cfg   Config
	cycle *models.FlipCycle

	tracker ladder.Tracker
	monitor *exitmon.Monitor

	cogScore  float64 // последний скор ре-валидации с поправкой памяти
	feedFails int     // подряд неудачных тиков фида
	exitPrice float64

	span      opentracing.Span // корневой спан цикла
	phaseSpan opentracing.Span
}

func newController(m *Manager, cycle *models.FlipCycle) *Controller {
	return &Controller{
		mgr:   m,
		cfg:   m.cfg,
		cycle: cycle,
		monitor: exitmon.New(exitmon.Config{
			TrailActivatePct:   m.cfg.TrailActivatePct,
			TrailPct:           m.cfg.TrailPct,
			CognitiveExitBelow: m.cfg.CognitiveExitBelow,
		}),
	}
}

// Run гонит цикл по фазам 2..9 (фаза 1 пройдена в Manager.OnSignal).
func (c *Controller) Run(parent context.Context) {
	c.ctx, c.cancel = context.WithCancel(parent)
	defer c.cancel()

	c.span = opentracing.StartSpan("flip_cycle")
	c.span.SetTag("cycle_id", c.cycle.ID)
	c.span.SetTag("inst_id", c.cycle.InstID)
	defer func() {
		if c.phaseSpan != nil {
			c.phaseSpan.Finish()
		}
		c.span.SetTag("status", string(c.cycle.Status))
		c.span.Finish()
	}()

	// 2. MEMORY_WEIGHTING
	c.setPhase(models.PhaseMemoryWeighting)
	c.runMemoryWeighting()

	// 3. SPEARHEAD_INVOKED — консенсус-гейт; отказ терминален
	c.setPhase(models.PhaseSpearheadInvoked)
	if status, reason, ok := c.runSpearheadGate(); !ok {
		c.block(status, reason)
		return
	}
	defer c.mgr.releaseSlot(c.cycle.Signal.Capital)

	// 4. LADDER_DEPLOYED
	c.setPhase(models.PhaseLadderDeployed)
	if err := c.deployLadder(); err != nil {
		// лесенка не построилась — гейт по сути не пройден
		c.block(models.StatusBlockedConsensus, err.Error())
		return
	}

	// 5. CRYSTAL_SCAN — ветвление на аварийный выход или обычный мониторинг
	c.setPhase(models.PhaseCrystalScan)
	risky, riskReason := c.runCrystalScan()

	var decision models.ExitDecision
	reason := riskReason
	if !risky {
		decision, reason = c.monitorLoop()
	}

	if risky || decision == models.ExitCognitive {
		// 6. ASHEN_FLAME
		c.setPhase(models.PhaseEmergencyExit)
		c.runAshenFlame(reason)
	} else {
		c.closePosition(reason)

		// 7. WINDMARK
		c.setPhase(models.PhaseReentryEval)
		c.runWindmark()
	}

	// 8. GLYPH_LOCK
	c.setPhase(models.PhaseVaultInject)
	c.runGlyphLock()

	// 9. ECHO_IMPRINT
	c.setPhase(models.PhaseEchoImprint)
	c.runEchoImprint()
}

func (c *Controller) setPhase(p models.Phase) {
	if c.phaseSpan != nil {
		c.phaseSpan.Finish()
	}
	c.phaseSpan = opentracing.StartSpan(p.String(), opentracing.ChildOf(c.span.Context()))
	c.cycle.Phase = p
	logger.Info("[CYCLE] %s %s -> %s", c.cycle.InstID, c.cycle.ID[:8], p)
	c.writeSnapshot()
}

// block — терминальный отказ фазы 3/4: цикл записан, но не исполнен.
func (c *Controller) block(status models.CycleStatus, reason string) {
	c.cycle.Status = status
	c.cycle.ExitReason = reason
	c.cycle.CompletedAt = time.Now()
	metrics.IncSignal("blocked")
	c.mgr.n.Sendf("🚫 [%s] Цикл заблокирован (%s): %s", c.cycle.InstID, status, reason)
	c.writeSnapshot()
}

// --- 2. MEMORY_WEIGHTING -------------------------------------------------

func (c *Controller) runMemoryWeighting() {
	echoes, err := c.mgr.hist.Query(c.ctx, c.cycle.InstID, c.cycle.Signal.Pattern, c.cfg.MemoryLookback)
	if err != nil {
		logger.Warn("[CYCLE] %s: history query: %v", c.cycle.InstID, err)
	}
	c.cycle.MemoryMultiplier = scorer.MemoryMultiplier(echoes)
	// стартовое значение ре-валидации: первичный скор с поправкой памяти
	c.cogScore = scorer.AdjustedScore(c.cycle.Score.Total, c.cycle.MemoryMultiplier)
	logger.Info("[CYCLE] %s: memory echoes=%d multiplier=%.2f",
		c.cycle.InstID, len(echoes), c.cycle.MemoryMultiplier)
}

// --- 3. SPEARHEAD_INVOKED ------------------------------------------------

// Гейт требует одновременно: приемлемый скор (уже пройден в фазе 1),
// приемлемый когнитивный контекст и доступный капитал/слот.
func (c *Controller) runSpearheadGate() (models.CycleStatus, string, bool) {
	if c.cogScore < c.cfg.CognitiveExitBelow {
		return models.StatusBlockedScore,
			"memory-adjusted score " + fmtF(c.cogScore) + " below cognitive floor", false
	}
	if err := c.mgr.acquireSlot(c.cycle.Signal.Capital); err != nil {
		switch err {
		case models.ErrCycleCapReached:
			return models.StatusBlockedCapacity, err.Error(), false
		default:
			return models.StatusBlockedCapital, err.Error(), false
		}
	}
	return "", "", true
}

// --- 4. LADDER_DEPLOYED --------------------------------------------------

func (c *Controller) deployLadder() error {
	sig := c.cycle.Signal
	tiers := c.mgr.ladders.Tiers(sig)
	l, err := c.mgr.ladders.Build(sig, tiers, c.cfg.PrefillFirstRung)
	if err != nil {
		return err
	}
	c.cycle.Ladder = l

	// постановка лимиток по рангам; отказ одного ранга не трогает остальные
	for i := range l.Rungs {
		r := &l.Rungs[i]
		if r.Filled || r.OrderID != "" {
			continue
		}
		orderID, err := c.mgr.exch.PlaceLimitOrder(c.ctx, l.InstID, l.Side, r.Size, r.Price)
		if err != nil {
			c.tracker.MarkFailed(l, i)
			logger.Warn("[LADDER] %s: rung %d rejected: %v", l.InstID, i, err)
			c.mgr.n.Sendf("⚠️ [%s] Ранг %d не выставлен: %v", l.InstID, i, err)
			continue
		}
		r.OrderID = orderID
	}

	c.mgr.n.Sendf("🪜 [%s] Лесенка: %d рангов %.4f..%.4f | SL=%.4f TP=%.4f",
		l.InstID, len(l.Rungs), l.Rungs[0].Price, l.Rungs[len(l.Rungs)-1].Price,
		l.HardStop, l.TakeProfit)
	return nil
}

// --- 5. CRYSTAL_SCAN -----------------------------------------------------

// Одноразовая mid-flight проверка: системная переэкспозиция + живой ре-скор.
func (c *Controller) runCrystalScan() (bool, string) {
	if c.mgr.overexposed() {
		return true, "overexposure: active cycles at cap"
	}
	c.recomputeCognitive()
	if c.cogScore > 0 && c.cogScore < c.cfg.CognitiveExitBelow {
		return true, "re-validation score collapsed to " + fmtF(c.cogScore)
	}
	return false, ""
}

// --- profit --------------------------------------------------------------

// closePosition закрывает набранное по рынку и фиксирует результат.
func (c *Controller) closePosition(reason string) {
	l := c.cycle.Ladder
	c.cycle.ExitReason = reason

	// добиваем невисполненные ранги (decay уже мог их снять)
	for _, id := range c.tracker.CancelUnfilled(l) {
		if _, err := c.mgr.exch.CancelOrder(c.ctx, id); err != nil {
			logger.Warn("[CYCLE] %s: cancel %s: %v", l.InstID, id, err)
		}
	}

	if l.FilledSize > 0 {
		if _, err := c.mgr.exch.PlaceMarketOrder(c.ctx, l.InstID, closeSide(l.Side), l.FilledSize); err != nil {
			logger.Error("[CYCLE] %s: market close: %v", l.InstID, err)
			c.mgr.n.Sendf("❗️ [%s] Ошибка рыночного закрытия: %v", l.InstID, err)
		}
		c.cycle.RealizedProfit = realized(l, c.exitPrice)
	}

	metrics.IncExit(strings.ToLower(reason))
	c.mgr.n.Sendf("🏁 [%s] Выход %s @ %.4f | avgEntry=%.4f size=%.6f pnl=%.2f",
		l.InstID, reason, c.exitPrice, l.AvgEntry, l.FilledSize, c.cycle.RealizedProfit)
}

func realized(l *models.LadderOrder, exitPrice float64) float64 {
	if l.FilledSize <= 0 || exitPrice <= 0 {
		return 0
	}
	if l.Side == models.SideSell {
		return (l.AvgEntry - exitPrice) * l.FilledSize
	}
	return (exitPrice - l.AvgEntry) * l.FilledSize
}

func closeSide(s models.Side) models.Side {
	if s == models.SideSell {
		return models.SideBuy
	}
	return models.SideSell
}

// --- 7. WINDMARK ---------------------------------------------------------

// Реэнтри-окно: чистое заполнение + профит + высокое совпадение памяти.
// Фаза всегда идёт дальше в GLYPH_LOCK независимо от исхода.
func (c *Controller) runWindmark() {
	l := c.cycle.Ladder
	if l == nil || !l.FullyFilled() {
		return
	}
	if c.cycle.RealizedProfit <= 0 {
		return
	}
	if c.cycle.MemoryMultiplier < c.cfg.MinMemoryMatch {
		return
	}
	c.mgr.noteReentryWindow(c.cycle.InstID)
	c.mgr.n.Sendf("🔁 [%s] Окно реэнтри открыто на %s", c.cycle.InstID, c.cfg.ReentryWindow)
}

// --- 8. GLYPH_LOCK -------------------------------------------------------

func (c *Controller) runGlyphLock() {
	profit := c.cycle.RealizedProfit
	if profit < c.mgr.vault.MinProfit() {
		return
	}
	entry, err := c.mgr.vault.Allocate(c.ctx, c.cycle.ID, profit)
	if err != nil {
		logger.Error("[VAULT] %s: allocate: %v", c.cycle.ID, err)
		c.mgr.n.Sendf("❗️ [%s] Vault не записан: %v", c.cycle.InstID, err)
		return
	}
	if entry != nil {
		metrics.SetVaultReserve(c.mgr.vault.ReserveTotal())
		c.mgr.n.Sendf("🏦 [%s] Vault: резерв %.2f, в работе %.2f",
			c.cycle.InstID, entry.Reserve, entry.WorkingRetained)
	}
}

// --- 9. ECHO_IMPRINT -----------------------------------------------------

func (c *Controller) runEchoImprint() {
	deployed := c.cycle.Signal.Capital
	if l := c.cycle.Ladder; l != nil && l.FilledValue > 0 {
		deployed = l.FilledValue
	}
	echo := models.MemoryEcho{
		InstID:          c.cycle.InstID,
		Pattern:         c.cycle.Signal.Pattern,
		Success:         c.cycle.RealizedProfit > 0,
		ProfitRatio:     c.cycle.RealizedProfit / deployed,
		EntryScore:      c.cycle.Score.Total,
		EntryVolatility: c.cycle.EntryVolatility,
		CompletedAt:     time.Now(),
	}

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if err = c.mgr.hist.Append(c.ctx, echo); err == nil {
			break
		}
		logger.Warn("[CYCLE] %s: echo append attempt %d: %v", c.cycle.InstID, attempt, err)
	}
	if err != nil {
		logger.Error("[CYCLE] %s: echo lost: %v", c.cycle.InstID, err)
	}

	if c.cycle.Status == models.StatusActive {
		c.cycle.Status = models.StatusCompleted
	}
	c.cycle.CompletedAt = time.Now()
	c.writeSnapshot()
	logger.Info("[CYCLE] %s %s done: status=%s pnl=%.2f",
		c.cycle.InstID, c.cycle.ID[:8], c.cycle.Status, c.cycle.RealizedProfit)
}

// --- re-validation -------------------------------------------------------

// recomputeCognitive перегоняет сигнал через скоринг с живым контекстом
// и поправкой памяти. Множитель памяти корректирует границу, но не
// перекрывает решение скорера.
func (c *Controller) recomputeCognitive() {
	mctx := c.mgr.liveContext(c.ctx, c.cycle.InstID)
	if mctx.Price <= 0 {
		return // нет живого контекста — старый скор остаётся
	}
	breakdown, _, _ := c.mgr.scoring.Score(c.cycle.Signal, mctx)
	c.cogScore = scorer.AdjustedScore(breakdown.Total, c.cycle.MemoryMultiplier)
}

func fmtF(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
