package lifecycle

import (
	"context"
	"time"

	"flip_bot/internal/models"
	"flip_bot/internal/modules/metrics"
	"flip_bot/pkg/logger"
)

// monitorLoop — фаза между CRYSTAL_SCAN и выходом: поллинг цены,
// периодическая ре-валидация и decay-таймер лесенки. Возвращает первое
// сработавшее решение о выходе.
func (c *Controller) monitorLoop() (models.ExitDecision, string) {
	l := c.cycle.Ladder

	poll := time.NewTicker(c.cfg.PollInterval)
	defer poll.Stop()
	cognitive := time.NewTicker(c.cfg.CognitiveEvery)
	defer cognitive.Stop()
	decay := time.NewTimer(c.cfg.LadderDecay)
	defer decay.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return models.ExitNone, "SHUTDOWN"

		case <-poll.C:
			price, ok := c.pollPrice()
			if !ok {
				continue // тик пропускается, устаревшая цена не подставляется
			}
			c.exitPrice = price
			c.applyFills(price)

			if l.FilledSize <= 0 {
				continue // стопы/трейл не имеют смысла без позиции
			}
			if d := c.monitor.Evaluate(l, price, c.cogScore); d != models.ExitNone {
				return d, d.String()
			}

		case <-cognitive.C:
			c.recomputeCognitive()
			// cognitive exit не зависит ни от цены, ни от заполненности:
			// пустая лесенка с рухнувшим ре-скором тоже снимается целиком
			if c.cogScore > 0 && c.cogScore < c.cfg.CognitiveExitBelow {
				return models.ExitCognitive, models.ExitCognitive.String()
			}

		case <-decay.C:
			if done := c.onDecay(); done {
				return models.ExitNone, "DECAY"
			}
		}
	}
}

// pollPrice: три подряд отказа фида — WARN, цикл продолжает жить.
func (c *Controller) pollPrice() (float64, bool) {
	tctx, cancel := context.WithTimeout(c.ctx, c.cfg.FeedTimeout)
	defer cancel()

	price, _, err := c.mgr.feed.GetPrice(tctx, c.cycle.InstID)
	if err != nil {
		c.feedFails++
		metrics.IncFeedFailure()
		if c.feedFails >= 3 {
			logger.Warn("[FEED] %s: %d consecutive failures: %v", c.cycle.InstID, c.feedFails, err)
		}
		return 0, false
	}
	c.feedFails = 0
	return price, true
}

// applyFills отмечает ранги, чья цена достигнута текущим тиком.
func (c *Controller) applyFills(price float64) {
	l := c.cycle.Ladder
	now := time.Now()
	for _, idx := range c.tracker.EligibleOnTick(l, price) {
		if !c.tracker.Fill(l, idx, now) {
			continue
		}
		metrics.IncFill()
		r := l.Rungs[idx]
		logger.Info("[LADDER] %s: rung %d filled @ %.4f, avgEntry=%.4f (%d/%d)",
			l.InstID, idx, r.Price, l.AvgEntry, l.FilledCount(), len(l.Rungs))
		c.mgr.n.Sendf("✅ [%s] Ранг %d исполнен @ %.4f | avg=%.4f", l.InstID, idx, r.Price, l.AvgEntry)
	}
}

// onDecay снимает невисполненные лимитки по истечении срока жизни лесенки.
// true — позиции нет вовсе, цикл сворачивается без выхода.
func (c *Controller) onDecay() bool {
	l := c.cycle.Ladder
	ids := c.tracker.CancelUnfilled(l)
	for _, id := range ids {
		if _, err := c.mgr.exch.CancelOrder(c.ctx, id); err != nil {
			logger.Warn("[LADDER] %s: decay cancel %s: %v", l.InstID, id, err)
		}
	}
	if len(ids) > 0 {
		c.mgr.n.Sendf("⏳ [%s] Decay: снято %d рангов, исполнено %d", l.InstID, len(ids), l.FilledCount())
	}
	return l.FilledSize <= 0
}

// runAshenFlame — аварийное сворачивание: снять все лимитки (с ретраями и
// подтверждением каждой отмены), закрыть набранное по рынку. Фаза не
// прерывает конвейер — после неё идут GLYPH_LOCK и ECHO_IMPRINT.
func (c *Controller) runAshenFlame(reason string) {
	l := c.cycle.Ladder
	c.cycle.Status = models.StatusEmergencyExit
	c.cycle.ExitReason = reason

	pending := map[string]bool{}
	for _, id := range l.OpenOrderIDs() {
		pending[id] = true
	}

	deadline := time.Now().Add(c.cfg.CancelHardTimeout)
	backoff := c.cfg.CancelRetryBase
	for len(pending) > 0 {
		for id := range pending {
			ok, err := c.mgr.exch.CancelOrder(c.ctx, id)
			if err != nil {
				logger.Warn("[ASHEN] %s: cancel %s: %v", l.InstID, id, err)
				continue
			}
			if ok {
				c.tracker.MarkCanceled(l, id)
				delete(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}
		if time.Now().After(deadline) {
			// биржа так и не подтвердила отмены — дальше только руками
			c.cycle.NeedsManualIntervention = true
			c.cycle.ManualInterventionReason = "unconfirmed cancels: " + joinKeys(pending)
			logger.Error("[ASHEN] %s: cancel hard timeout, %d orders unconfirmed", l.InstID, len(pending))
			break
		}
		select {
		case <-c.ctx.Done():
			c.cycle.NeedsManualIntervention = true
			c.cycle.ManualInterventionReason = "shutdown during emergency cancel"
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	if l.FilledSize > 0 {
		if _, err := c.mgr.exch.PlaceMarketOrder(c.ctx, l.InstID, closeSide(l.Side), l.FilledSize); err != nil {
			logger.Error("[ASHEN] %s: market exit: %v", l.InstID, err)
			c.cycle.NeedsManualIntervention = true
			c.cycle.ManualInterventionReason = "market exit failed: " + err.Error()
		} else {
			c.cycle.RealizedProfit = realized(l, c.exitPrice)
		}
	}

	metrics.IncExit("ashen_flame")
	flag := ""
	if c.cycle.NeedsManualIntervention {
		flag = " ⚠️ ТРЕБУЕТСЯ РУЧНОЕ ВМЕШАТЕЛЬСТВО"
	}
	c.mgr.n.Sendf("🔥 [%s] ASHEN_FLAME: %s | pnl=%.2f%s", l.InstID, reason, c.cycle.RealizedProfit, flag)
}

func joinKeys(m map[string]bool) string {
	s := ""
	for k := range m {
		if s != "" {
			s += ","
		}
		s += k
	}
	return s
}
