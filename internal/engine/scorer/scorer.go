// Package scorer turns a raw signal into a bounded, weighted validation
// score and a GO/NO-GO decision.
//
// Five factors, weights fixed and summing to 100:
//
//	quality 20 / risk-reward 25 / market 15 / sizing 15 / alignment 25
package scorer

import (
	"fmt"
	"strings"

	"flip_bot/internal/models"
)

const (
	weightQuality   = 20
	weightRR        = 25
	weightMarket    = 15
	weightSizing    = 15
	weightAlignment = 25
)

type Config struct {
	RejectBelow     float64 // default 60
	ReferenceEquity float64 // для фактора position-sizing

	MajorSymbols []string
	MidSymbols   []string
	HoldAssets   []string
	ActiveAssets []string
}

type Scorer struct {
	cfg Config
}

func New(cfg Config) *Scorer {
	if cfg.RejectBelow <= 0 {
		cfg.RejectBelow = 60
	}
	if cfg.ReferenceEquity <= 0 {
		cfg.ReferenceEquity = 10000
	}
	return &Scorer{cfg: cfg}
}

// Score всегда возвращает разбивку, даже при отказе.
func (s *Scorer) Score(sig models.Signal, mctx models.MarketContext) (models.ScoreBreakdown, bool, string) {
	factors := []models.FactorScore{
		factor("quality", s.scoreQuality(sig), weightQuality),
		factor("risk_reward", scoreRiskReward(sig.RiskReward()), weightRR),
		factor("market", s.scoreMarket(sig, mctx), weightMarket),
		factor("sizing", s.scoreSizing(sig), weightSizing),
		factor("alignment", s.scoreAlignment(sig), weightAlignment),
	}

	var total float64
	for _, f := range factors {
		total += f.Weighted
	}
	breakdown := models.ScoreBreakdown{Factors: factors, Total: total}

	if total < s.cfg.RejectBelow {
		return breakdown, false, fmt.Sprintf(
			"score %.1f below threshold %.1f (rr=%.2f move=%.1f%%)",
			total, s.cfg.RejectBelow, sig.RiskReward(), sig.ExpectedMovePct(),
		)
	}
	return breakdown, true, fmt.Sprintf("score %.1f >= %.1f", total, s.cfg.RejectBelow)
}

func factor(name string, raw, weight float64) models.FactorScore {
	raw = clamp(raw, 0, 100)
	return models.FactorScore{
		Name:     name,
		Raw:      raw,
		Weight:   weight,
		Weighted: raw * weight / 100,
	}
}

// quality: полнота обязательных полей + уверенность продюсера.
func (s *Scorer) scoreQuality(sig models.Signal) float64 {
	var score float64
	if sig.InstID != "" && sig.EntryLow > 0 && sig.Target > 0 && sig.Stop > 0 {
		score += 25
	}
	if sig.Capital > 0 {
		score += 10
	}
	if sig.Pattern != "" {
		score += 5
	}
	// confidence 0..1 линейно добавляет до 60
	score += clamp(sig.Confidence, 0, 1) * 60
	return score
}

// risk-reward: ступени монотонно неубывающие по ratio.
func scoreRiskReward(ratio float64) float64 {
	switch {
	case ratio >= 4.0:
		return 100
	case ratio >= 3.0:
		return 85
	case ratio >= 2.0:
		return 65
	case ratio >= 1.5:
		return 50
	case ratio >= 1.0:
		return 35
	default:
		return 20
	}
}

// market: бонус за тир символа + «здравый» размер хода 5–25%.
func (s *Scorer) scoreMarket(sig models.Signal, mctx models.MarketContext) float64 {
	var score float64
	switch {
	case containsFold(s.cfg.MajorSymbols, sig.InstID):
		score = 50
	case containsFold(s.cfg.MidSymbols, sig.InstID):
		score = 35
	default:
		score = 20 // speculative
	}

	move := sig.ExpectedMovePct()
	switch {
	case move >= 5 && move <= 25:
		score += 40
	case move > 25 && move <= 40:
		score += 25
	case move > 40:
		score -= 10 // фантазии не оплачиваем
	default:
		score += 20 // < 5%: слишком мелко, но не криминал
	}

	// перегретый суточный ход режет оценку
	if mctx.Change24h > 40 || mctx.Change24h < -40 {
		score -= 15
	}
	return score
}

// sizing: 2–5% от референсного депозита — норма.
func (s *Scorer) scoreSizing(sig models.Signal) float64 {
	pct := sig.Capital / s.cfg.ReferenceEquity * 100
	switch {
	case pct >= 2 && pct <= 5:
		return 90
	case (pct >= 1 && pct < 2) || (pct > 5 && pct <= 8):
		return 70
	case (pct >= 0.5 && pct < 1) || (pct > 8 && pct <= 12):
		return 50
	default:
		return 25 // <0.5% или >12%
	}
}

// alignment: hold-класс + покупка, либо active-класс в любую сторону;
// плюс sanity-check ожидаемой доходности.
func (s *Scorer) scoreAlignment(sig models.Signal) float64 {
	var score float64
	switch {
	case containsFold(s.cfg.HoldAssets, sig.InstID) && sig.Side == models.SideBuy:
		score = 80
	case containsFold(s.cfg.ActiveAssets, sig.InstID):
		score = 70
	default:
		score = 40
	}

	move := sig.ExpectedMovePct()
	switch {
	case move >= 10 && move <= 50:
		score += 20
	case move > 100:
		score -= 20
	}
	return score
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
