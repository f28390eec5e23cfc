package scorer

import (
	"testing"
	"time"

	"flip_bot/internal/models"
)

func testConfig() Config {
	return Config{
		RejectBelow:     60,
		ReferenceEquity: 10000,
		MajorSymbols:    []string{"BTC-USDT", "ETH-USDT"},
		MidSymbols:      []string{"SOL-USDT"},
		HoldAssets:      []string{"BTC-USDT"},
		ActiveAssets:    []string{"SOL-USDT"},
	}
}

func strongSignal() models.Signal {
	// BTC лонг: rr=4, ход ~12%, сайзинг 3% от депозита
	return models.Signal{
		InstID:     "BTC-USDT",
		Side:       models.SideBuy,
		EntryLow:   100,
		EntryHigh:  103,
		Target:     112,
		Stop:       97,
		Capital:    300,
		Confidence: 0.9,
		Pattern:    "breakout",
		Source:     "test",
		ReceivedAt: time.Now(),
	}
}

func TestWeightsSumTo100(t *testing.T) {
	s := New(testConfig())
	breakdown, _, _ := s.Score(strongSignal(), models.MarketContext{Price: 101})
	if got := breakdown.WeightSum(); got != 100 {
		t.Fatalf("weight sum = %v, want 100", got)
	}
	if len(breakdown.Factors) != 5 {
		t.Fatalf("factors = %d, want 5", len(breakdown.Factors))
	}
}

func TestScoreBounded(t *testing.T) {
	s := New(testConfig())
	signals := []models.Signal{
		strongSignal(),
		{}, // пустой: все факторы на дне
		{
			InstID:     "XYZ-USDT",
			Side:       models.SideBuy,
			EntryLow:   1,
			EntryHigh:  1.1,
			Target:     50, // ход в тысячи процентов
			Stop:       0.99,
			Capital:    100000, // сайзинг за пределами разумного
			Confidence: 1,
			Pattern:    "moonshot",
		},
	}
	for i, sig := range signals {
		breakdown, _, _ := s.Score(sig, models.MarketContext{Change24h: 90})
		if breakdown.Total < 0 || breakdown.Total > 100 {
			t.Errorf("signal %d: total %v out of [0,100]", i, breakdown.Total)
		}
		for _, f := range breakdown.Factors {
			if f.Raw < 0 || f.Raw > 100 {
				t.Errorf("signal %d: factor %s raw %v out of [0,100]", i, f.Name, f.Raw)
			}
			if f.Weighted > f.Weight {
				t.Errorf("signal %d: factor %s weighted %v > weight %v", i, f.Name, f.Weighted, f.Weight)
			}
		}
	}
}

func TestRiskRewardMonotonic(t *testing.T) {
	ratios := []float64{0, 0.5, 1, 1.4, 1.5, 2, 2.9, 3, 3.5, 4, 10}
	prev := -1.0
	for _, r := range ratios {
		got := scoreRiskReward(r)
		if got < prev {
			t.Fatalf("scoreRiskReward(%v) = %v, less than previous %v", r, got, prev)
		}
		prev = got
	}
	if scoreRiskReward(4) != 100 {
		t.Errorf("rr=4 should score 100, got %v", scoreRiskReward(4))
	}
	if scoreRiskReward(0.5) != 20 {
		t.Errorf("rr=0.5 should score 20, got %v", scoreRiskReward(0.5))
	}
}

func TestRejectThreshold(t *testing.T) {
	s := New(testConfig())

	_, accepted, reason := s.Score(strongSignal(), models.MarketContext{Price: 101})
	if !accepted {
		t.Fatalf("strong signal rejected: %s", reason)
	}

	weak := models.Signal{
		InstID:     "SHIT-USDT",
		Side:       models.SideBuy,
		EntryLow:   1,
		EntryHigh:  1.01,
		Target:     1.005, // rr < 1
		Stop:       0.99,
		Capital:    10, // 0.1% сайзинг
		Confidence: 0.1,
	}
	breakdown, accepted, reason := s.Score(weak, models.MarketContext{})
	if accepted {
		t.Fatalf("weak signal accepted with score %.1f", breakdown.Total)
	}
	if reason == "" {
		t.Error("rejection must carry a human-readable reason")
	}
	if len(breakdown.Factors) != 5 {
		t.Error("rejection must still return the full breakdown")
	}
}

func TestOverheatedMarketPenalty(t *testing.T) {
	s := New(testConfig())
	sig := strongSignal()

	calm, _, _ := s.Score(sig, models.MarketContext{Change24h: 5})
	hot, _, _ := s.Score(sig, models.MarketContext{Change24h: 55})
	if hot.Total >= calm.Total {
		t.Errorf("overheated 24h move must lower the score: calm=%.1f hot=%.1f", calm.Total, hot.Total)
	}
}

func TestMemoryMultiplier(t *testing.T) {
	if got := MemoryMultiplier(nil); got != 0.5 {
		t.Fatalf("empty history multiplier = %v, want 0.5", got)
	}

	echoes := []models.MemoryEcho{
		{Success: true}, {Success: true}, {Success: false}, {Success: true},
	}
	if got := MemoryMultiplier(echoes); got != 0.75 {
		t.Fatalf("multiplier = %v, want 0.75", got)
	}
}

func TestAdjustedScore(t *testing.T) {
	approx := func(got, want float64) bool {
		d := got - want
		return d < 1e-9 && d > -1e-9
	}
	// нейтральная память не меняет скор
	if got := AdjustedScore(70, 0.5); !approx(got, 70) {
		t.Errorf("neutral memory: got %v, want 70", got)
	}
	// вся история выигрышная: +20%
	if got := AdjustedScore(70, 1.0); !approx(got, 84) {
		t.Errorf("winning memory: got %v, want 84", got)
	}
	// вся история проигрышная: -20%
	if got := AdjustedScore(70, 0); !approx(got, 56) {
		t.Errorf("losing memory: got %v, want 56", got)
	}
	// клампится в 100
	if got := AdjustedScore(95, 1.0); got != 100 {
		t.Errorf("clamp: got %v, want 100", got)
	}
}
