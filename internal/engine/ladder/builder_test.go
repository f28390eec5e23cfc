package ladder

import (
	"errors"
	"math"
	"testing"

	"flip_bot/internal/models"
)

func longSignal(capital float64, conf float64) models.Signal {
	return models.Signal{
		InstID:     "ETH-USDT",
		Side:       models.SideBuy,
		EntryLow:   100,
		EntryHigh:  110,
		Target:     130,
		Stop:       95,
		Capital:    capital,
		Confidence: conf,
	}
}

func TestTiersByConfidence(t *testing.T) {
	b := NewBuilder(Config{})
	cases := []struct {
		conf float64
		want int
	}{
		{0.95, 6},
		{0.9, 6},
		{0.8, 5},
		{0.6, 4},
		{0.3, 3},
		{0, 3},
	}
	for _, c := range cases {
		if got := b.Tiers(longSignal(1000, c.conf)); got != c.want {
			t.Errorf("Tiers(conf=%v) = %d, want %d", c.conf, got, c.want)
		}
	}
}

func TestBuildWeightsAndCapital(t *testing.T) {
	b := NewBuilder(Config{Curve: 1.2, HardStopPct: 0.03, TakeProfitPct: 0.04})
	for tiers := 1; tiers <= 6; tiers++ {
		l, err := b.Build(longSignal(1000, 0.5), tiers, false)
		if err != nil {
			t.Fatalf("tiers=%d: %v", tiers, err)
		}
		if len(l.Rungs) != tiers {
			t.Fatalf("tiers=%d: got %d rungs", tiers, len(l.Rungs))
		}

		var wsum, csum float64
		for _, r := range l.Rungs {
			wsum += r.Weight
			csum += r.Size * r.Price
		}
		if math.Abs(wsum-1.0) > 1e-9 {
			t.Errorf("tiers=%d: weights sum %v, want 1.0", tiers, wsum)
		}
		if math.Abs(csum-1000) > 1e-6 {
			t.Errorf("tiers=%d: capital sum %v, want 1000", tiers, csum)
		}
	}
}

func TestBuildPriceCurve(t *testing.T) {
	b := NewBuilder(Config{Curve: 1.2})
	l, err := b.Build(longSignal(1000, 0.5), 5, false)
	if err != nil {
		t.Fatal(err)
	}

	// первый ранг на нижней границе, последний на верхней
	if l.Rungs[0].Price != 100 {
		t.Errorf("rung 0 price %v, want 100", l.Rungs[0].Price)
	}
	if math.Abs(l.Rungs[4].Price-110) > 1e-9 {
		t.Errorf("rung 4 price %v, want 110", l.Rungs[4].Price)
	}

	// цены строго растут, и кривая >1 прижимает их к низу:
	// каждый ранг ниже линейной интерполяции
	for i := 1; i < len(l.Rungs); i++ {
		if l.Rungs[i].Price <= l.Rungs[i-1].Price {
			t.Fatalf("rung prices not increasing at %d", i)
		}
	}
	for i := 1; i < len(l.Rungs)-1; i++ {
		linear := 100 + 10*float64(i)/4
		if l.Rungs[i].Price >= linear {
			t.Errorf("rung %d price %v not below linear %v", i, l.Rungs[i].Price, linear)
		}
	}

	// фронт-нагрузка: веса не возрастают
	for i := 1; i < len(l.Rungs); i++ {
		if l.Rungs[i].Weight > l.Rungs[i-1].Weight {
			t.Errorf("weights must be non-increasing: rung %d", i)
		}
	}
}

func TestBuildStops(t *testing.T) {
	b := NewBuilder(Config{HardStopPct: 0.03, TakeProfitPct: 0.04})
	l, err := b.Build(longSignal(1000, 0.5), 4, false)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(l.HardStop-97) > 1e-9 { // 100 * 0.97
		t.Errorf("hard stop %v, want 97", l.HardStop)
	}
	if math.Abs(l.TakeProfit-114.4) > 1e-9 { // 110 * 1.04
		t.Errorf("take profit %v, want 114.4", l.TakeProfit)
	}

	short := longSignal(1000, 0.5)
	short.Side = models.SideSell
	short.Target = 80
	short.Stop = 115
	ls, err := b.Build(short, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	if ls.HardStop <= ls.Rungs[3].Price {
		t.Errorf("short hard stop %v must be above worst rung %v", ls.HardStop, ls.Rungs[3].Price)
	}
	if ls.TakeProfit >= ls.Rungs[0].Price {
		t.Errorf("short take profit %v must be below best rung %v", ls.TakeProfit, ls.Rungs[0].Price)
	}
}

func TestBuildRejects(t *testing.T) {
	b := NewBuilder(Config{})

	bad := longSignal(1000, 0.5)
	bad.EntryHigh = bad.EntryLow
	if _, err := b.Build(bad, 3, false); !errors.Is(err, models.ErrSignalInvalid) {
		t.Errorf("degenerate band: err = %v, want ErrSignalInvalid", err)
	}

	if _, err := b.Build(longSignal(1000, 0.5), 0, false); !errors.Is(err, models.ErrSignalInvalid) {
		t.Errorf("zero tiers: err = %v, want ErrSignalInvalid", err)
	}

	if _, err := b.Build(longSignal(0, 0.5), 3, false); !errors.Is(err, models.ErrSignalInvalid) {
		t.Errorf("no capital: err = %v, want ErrSignalInvalid", err)
	}
}

func TestBuildClampsTierCount(t *testing.T) {
	// запрошенных рангов больше, чем весов в базовом векторе:
	// лесенка обрезается до максимума, а не паникует
	b := NewBuilder(Config{})
	l, err := b.Build(longSignal(1000, 0.5), 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Rungs) != 6 {
		t.Fatalf("got %d rungs, want 6", len(l.Rungs))
	}
	var wsum float64
	for _, r := range l.Rungs {
		wsum += r.Weight
	}
	if math.Abs(wsum-1.0) > 1e-9 {
		t.Errorf("weights sum %v, want 1.0", wsum)
	}
	if math.Abs(l.Rungs[5].Price-110) > 1e-9 {
		t.Errorf("top rung price %v, want 110", l.Rungs[5].Price)
	}
}

func TestBuildPrefill(t *testing.T) {
	b := NewBuilder(Config{})
	l, err := b.Build(longSignal(1000, 0.5), 3, true)
	if err != nil {
		t.Fatal(err)
	}
	if !l.Rungs[0].Filled {
		t.Fatal("prefill must fill rung 0")
	}
	if l.FilledSize <= 0 || l.AvgEntry != l.Rungs[0].Price {
		t.Errorf("prefill avg entry %v, want rung0 price %v", l.AvgEntry, l.Rungs[0].Price)
	}
}
