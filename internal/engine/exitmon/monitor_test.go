package exitmon

import (
	"testing"

	"flip_bot/internal/models"
)

func filledLong() *models.LadderOrder {
	return &models.LadderOrder{
		InstID:     "BTC-USDT",
		Side:       models.SideBuy,
		AvgEntry:   100,
		FilledSize: 1,
		HardStop:   95,
		TakeProfit: 120,
	}
}

func newTestMonitor() *Monitor {
	return New(Config{TrailActivatePct: 0.03, TrailPct: 0.02, CognitiveExitBelow: 40})
}

func TestHardStopBeatsEverything(t *testing.T) {
	m := newTestMonitor()
	l := filledLong()

	// cognitive тоже сработал бы, но hard stop важнее
	if got := m.Evaluate(l, 94, 10); got != models.ExitHardStop {
		t.Fatalf("got %v, want HARD_STOP", got)
	}
}

func TestCognitiveExit(t *testing.T) {
	m := newTestMonitor()
	l := filledLong()

	if got := m.Evaluate(l, 101, 39); got != models.ExitCognitive {
		t.Fatalf("got %v, want COGNITIVE_EXIT", got)
	}
	// ноль означает «ре-скора ещё не было»
	if got := m.Evaluate(l, 101, 0); got != models.ExitNone {
		t.Fatalf("cogScore=0: got %v, want NONE", got)
	}
	// на границе выхода нет
	if got := m.Evaluate(l, 101, 40); got != models.ExitNone {
		t.Fatalf("cogScore=40: got %v, want NONE", got)
	}
}

func TestTakeProfit(t *testing.T) {
	m := newTestMonitor()
	l := filledLong()
	l.TakeProfit = 102 // ниже порога активации трейла

	if got := m.Evaluate(l, 102.5, 80); got != models.ExitTakeProfit {
		t.Fatalf("got %v, want TAKE_PROFIT", got)
	}
}

func TestTrailingActivationAndMonotonicity(t *testing.T) {
	m := newTestMonitor()
	l := filledLong()

	// до +3% трейл не активен
	if got := m.Evaluate(l, 102, 80); got != models.ExitNone {
		t.Fatalf("pre-activation: got %v", got)
	}
	if _, ok := m.TrailingStop(); ok {
		t.Fatal("trailing must not be active below +3%")
	}

	// активация на 103: стоп = 103 * 0.98
	if got := m.Evaluate(l, 103, 80); got != models.ExitNone {
		t.Fatalf("activation tick: got %v", got)
	}
	stop1, ok := m.TrailingStop()
	if !ok {
		t.Fatal("trailing must be active at +3%")
	}

	// рост двигает стоп вверх
	m.Evaluate(l, 110, 80)
	stop2, _ := m.TrailingStop()
	if stop2 <= stop1 {
		t.Fatalf("trailing stop must rise: %v -> %v", stop1, stop2)
	}

	// осцилляция вниз НЕ опускает стоп
	m.Evaluate(l, 108.5, 80)
	stop3, _ := m.TrailingStop()
	if stop3 != stop2 {
		t.Fatalf("trailing stop must never decrease: %v -> %v", stop2, stop3)
	}

	// падение ниже стопа — выход
	if got := m.Evaluate(l, stop3-0.01, 80); got != models.ExitTrailingStop {
		t.Fatalf("got %v, want TRAILING_STOP", got)
	}
}

func TestTrailingShort(t *testing.T) {
	m := newTestMonitor()
	l := filledLong()
	l.Side = models.SideSell
	l.HardStop = 110
	l.TakeProfit = 80

	// шорт: профит при падении; активация на -3%
	if got := m.Evaluate(l, 97, 80); got != models.ExitNone {
		t.Fatalf("activation tick: got %v", got)
	}
	stop1, ok := m.TrailingStop()
	if !ok {
		t.Fatal("trailing must activate on short at -3%")
	}
	if stop1 <= 97 {
		t.Fatalf("short trailing stop %v must sit above price", stop1)
	}

	m.Evaluate(l, 90, 80)
	stop2, _ := m.TrailingStop()
	if stop2 >= stop1 {
		t.Fatalf("short trailing stop must fall: %v -> %v", stop1, stop2)
	}

	if got := m.Evaluate(l, stop2+0.01, 80); got != models.ExitTrailingStop {
		t.Fatalf("got %v, want TRAILING_STOP", got)
	}
}

func TestNoPositionMathWithoutEntry(t *testing.T) {
	m := newTestMonitor()
	l := filledLong()
	l.AvgEntry = 0 // ничего не исполнено

	if got := m.Evaluate(l, 150, 80); got != models.ExitTakeProfit {
		// TP задан абсолютной ценой и не зависит от среднего входа
		t.Fatalf("got %v, want TAKE_PROFIT", got)
	}
}
