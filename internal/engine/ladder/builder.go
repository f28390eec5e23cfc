// Package ladder builds multi-tier entry ladders and tracks their fills.
package ladder

import (
	"fmt"
	"math"
	"time"

	"flip_bot/internal/models"
)

var (
	ErrEntryBand = fmt.Errorf("%w: entry_high <= entry_low", models.ErrSignalInvalid)
	ErrTierCount = fmt.Errorf("%w: tierCount < 1", models.ErrSignalInvalid)
	ErrNoCapital = fmt.Errorf("%w: capital <= 0", models.ErrSignalInvalid)
)

// фронт-нагруженные веса капитала; обрезаются и ренормируются под tierCount
var baseWeights = []float64{0.30, 0.25, 0.20, 0.15, 0.08, 0.02}

type Config struct {
	Curve         float64 // >1 смещает цены рангов к нижней границе; default 1.2
	HardStopPct   float64 // от худшего (нижнего) ранга; default 0.03
	TakeProfitPct float64 // от лучшего (верхнего) ранга; default 0.04
}

type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	if cfg.Curve <= 1 {
		cfg.Curve = 1.2
	}
	if cfg.HardStopPct <= 0 {
		cfg.HardStopPct = 0.03
	}
	if cfg.TakeProfitPct <= 0 {
		cfg.TakeProfitPct = 0.04
	}
	return &Builder{cfg: cfg}
}

// Tiers выбирает число рангов 3–6 по уверенности сигнала.
func (b *Builder) Tiers(sig models.Signal) int {
	switch {
	case sig.Confidence >= 0.9:
		return 6
	case sig.Confidence >= 0.75:
		return 5
	case sig.Confidence >= 0.6:
		return 4
	default:
		return 3
	}
}

// Build строит лесенку. prefillFirst помечает нулевой ранг исполненным
// по рынку (немедленный вход).
func (b *Builder) Build(sig models.Signal, tierCount int, prefillFirst bool) (*models.LadderOrder, error) {
	if tierCount < 1 {
		return nil, ErrTierCount
	}
	if tierCount > len(baseWeights) {
		tierCount = len(baseWeights)
	}
	if sig.EntryHigh <= sig.EntryLow {
		return nil, ErrEntryBand
	}
	if sig.Capital <= 0 {
		return nil, ErrNoCapital
	}

	weights := rungWeights(tierCount)

	rungs := make([]models.LadderRung, tierCount)
	for i := 0; i < tierCount; i++ {
		price := rungPrice(sig.EntryLow, sig.EntryHigh, i, tierCount, b.cfg.Curve)
		capital := sig.Capital * weights[i]
		rungs[i] = models.LadderRung{
			Tier:    i,
			Price:   price,
			Capital: capital,
			Size:    capital / price,
			Weight:  weights[i],
		}
	}

	// worst = нижний ранг для лонга, верхний для шорта
	hardStop := rungs[0].Price * (1 - b.cfg.HardStopPct)
	takeProfit := rungs[tierCount-1].Price * (1 + b.cfg.TakeProfitPct)
	if sig.Side == models.SideSell {
		hardStop = rungs[tierCount-1].Price * (1 + b.cfg.HardStopPct)
		takeProfit = rungs[0].Price * (1 - b.cfg.TakeProfitPct)
	}

	l := &models.LadderOrder{
		InstID:     sig.InstID,
		Side:       sig.Side,
		Rungs:      rungs,
		HardStop:   hardStop,
		TakeProfit: takeProfit,
		DeployedAt: time.Now(),
	}

	if prefillFirst {
		now := time.Now()
		tr := Tracker{}
		rungs[0].OrderID = "market-prefill"
		tr.Fill(l, 0, now)
	}
	return l, nil
}

// rungPrice: entry_low + (entry_high - entry_low) * (i/(n-1))^curve
func rungPrice(low, high float64, i, n int, curve float64) float64 {
	if n == 1 {
		return low
	}
	frac := math.Pow(float64(i)/float64(n-1), curve)
	return low + (high-low)*frac
}

// rungWeights обрезает базовый вектор и ренормирует до суммы 1.0.
func rungWeights(n int) []float64 {
	if n > len(baseWeights) {
		n = len(baseWeights)
	}
	w := make([]float64, n)
	var sum float64
	for i := 0; i < n; i++ {
		sum += baseWeights[i]
	}
	for i := 0; i < n; i++ {
		w[i] = baseWeights[i] / sum
	}
	return w
}
