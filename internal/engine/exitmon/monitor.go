// Package exitmon evaluates hard-stop, trailing-stop, take-profit and
// cognitive-exit conditions for one cycle.
//
// Priority when several trigger on the same tick:
// HARD_STOP > COGNITIVE_EXIT > TRAILING_STOP > TAKE_PROFIT.
package exitmon

import (
	"flip_bot/internal/models"
)

type Config struct {
	TrailActivatePct   float64 // нереализованный гейн от avg entry, активирующий трейл; default 0.03
	TrailPct           float64 // отступ трейла от trailing high; default 0.02
	CognitiveExitBelow float64 // порог ре-валидации; независим от порога принятия; default 40
}

// Monitor держит трейлинг-стейт одного цикла. Им владеет контроллер цикла,
// конкурентного доступа нет.
type Monitor struct {
	cfg Config

	activated    bool
	trailingHigh float64
	trailingStop float64
}

func New(cfg Config) *Monitor {
	if cfg.TrailActivatePct <= 0 {
		cfg.TrailActivatePct = 0.03
	}
	if cfg.TrailPct <= 0 {
		cfg.TrailPct = 0.02
	}
	if cfg.CognitiveExitBelow <= 0 {
		cfg.CognitiveExitBelow = 40
	}
	return &Monitor{cfg: cfg}
}

// Evaluate — одна оценка на тик. cognitiveScore — последний скор
// ре-валидации, скорректированный множителем памяти; ноль означает
// «ре-скора ещё не было» и cognitive exit не проверяется.
func (m *Monitor) Evaluate(l *models.LadderOrder, price, cognitiveScore float64) models.ExitDecision {
	long := l.Side != models.SideSell

	// 1. Hard stop — проверяется первым, капитал важнее всего
	if (long && price <= l.HardStop) || (!long && price >= l.HardStop) {
		return models.ExitHardStop
	}

	// 2. Cognitive exit: независим от цены и P&L
	if cognitiveScore > 0 && cognitiveScore < m.cfg.CognitiveExitBelow {
		return models.ExitCognitive
	}

	// 3. Trailing stop — только после активации по нереализованному гейну
	if l.AvgEntry > 0 {
		if !m.activated && gain(long, l.AvgEntry, price) >= m.cfg.TrailActivatePct {
			m.activated = true
			m.trailingHigh = price
			m.trailingStop = stopFor(long, price, m.cfg.TrailPct)
		}
		if m.activated {
			// trailing high и trailing stop двигаются только в сторону профита
			if (long && price > m.trailingHigh) || (!long && price < m.trailingHigh) {
				m.trailingHigh = price
				cand := stopFor(long, price, m.cfg.TrailPct)
				if (long && cand > m.trailingStop) || (!long && cand < m.trailingStop) {
					m.trailingStop = cand
				}
			}
			if (long && price <= m.trailingStop) || (!long && price >= m.trailingStop) {
				return models.ExitTrailingStop
			}
		}
	}

	// 4. Take profit
	if (long && price >= l.TakeProfit) || (!long && price <= l.TakeProfit) {
		return models.ExitTakeProfit
	}

	return models.ExitNone
}

func gain(long bool, entry, price float64) float64 {
	if long {
		return (price - entry) / entry
	}
	return (entry - price) / entry
}

func stopFor(long bool, high, trailPct float64) float64 {
	if long {
		return high * (1 - trailPct)
	}
	return high * (1 + trailPct)
}

// TrailingStop отдаёт текущий трейл-стоп (для снапшотов). ok=false до активации.
func (m *Monitor) TrailingStop() (float64, bool) {
	return m.trailingStop, m.activated
}
