package ladder

import (
	"math"
	"testing"
	"time"

	"flip_bot/internal/models"
)

// лесенка [100, 98, 96] с равным капиталом на ранг
func equalCapitalLadder() *models.LadderOrder {
	prices := []float64{100, 98, 96}
	rungs := make([]models.LadderRung, len(prices))
	for i, p := range prices {
		rungs[i] = models.LadderRung{
			Tier:    i,
			Price:   p,
			Capital: 100,
			Size:    100 / p,
			Weight:  1.0 / 3,
			OrderID: "ord-" + string(rune('a'+i)),
		}
	}
	return &models.LadderOrder{
		InstID: "BTC-USDT",
		Side:   models.SideBuy,
		Rungs:  rungs,
	}
}

func avgEntryOf(prices []float64, capital float64) float64 {
	var size, value float64
	for _, p := range prices {
		size += capital / p
		value += capital
	}
	return value / size
}

func TestFillIncrementalEqualsBatch(t *testing.T) {
	tr := Tracker{}
	now := time.Now()

	inc := equalCapitalLadder()
	for i := range inc.Rungs {
		if !tr.Fill(inc, i, now) {
			t.Fatalf("fill %d failed", i)
		}
	}

	want := avgEntryOf([]float64{100, 98, 96}, 100)
	if math.Abs(inc.AvgEntry-want) > 1e-9 {
		t.Errorf("incremental avg entry %v, want %v", inc.AvgEntry, want)
	}
}

func TestFillIdempotent(t *testing.T) {
	tr := Tracker{}
	now := time.Now()
	l := equalCapitalLadder()

	if !tr.Fill(l, 0, now) {
		t.Fatal("first fill must succeed")
	}
	size, value, avg := l.FilledSize, l.FilledValue, l.AvgEntry

	if tr.Fill(l, 0, now.Add(time.Second)) {
		t.Fatal("refill of the same rung must be a no-op")
	}
	if l.FilledSize != size || l.FilledValue != value || l.AvgEntry != avg {
		t.Error("refill must not change totals")
	}
}

func TestFillOutOfRange(t *testing.T) {
	tr := Tracker{}
	l := equalCapitalLadder()
	if tr.Fill(l, -1, time.Now()) || tr.Fill(l, 99, time.Now()) {
		t.Error("out-of-range fill must be rejected")
	}
}

func TestEligibleOnTickLong(t *testing.T) {
	tr := Tracker{}
	l := equalCapitalLadder()

	// цена 99: достижимы ранги 98 и 96? нет — лимитка на 98 исполняется
	// при цене <= 98; на 99 достижим только ранг 100
	if got := tr.EligibleOnTick(l, 99); len(got) != 1 || got[0] != 0 {
		t.Fatalf("price 99: eligible %v, want [0]", got)
	}
	if got := tr.EligibleOnTick(l, 97); len(got) != 2 {
		t.Fatalf("price 97: eligible %v, want two rungs", got)
	}

	tr.Fill(l, 0, time.Now())
	// исполненный ранг больше не кандидат
	if got := tr.EligibleOnTick(l, 95); len(got) != 2 {
		t.Fatalf("after fill: eligible %v, want remaining two", got)
	}
}

func TestEligibleOnTickShort(t *testing.T) {
	tr := Tracker{}
	l := equalCapitalLadder()
	l.Side = models.SideSell

	// шорт: лимитка исполняется при цене >= ранга
	if got := tr.EligibleOnTick(l, 99); len(got) != 2 {
		t.Fatalf("short price 99: eligible %v, want rungs 98 and 96", got)
	}
	if got := tr.EligibleOnTick(l, 101); len(got) != 3 {
		t.Fatalf("short price 101: eligible %v, want all", got)
	}
}

func TestCancelUnfilled(t *testing.T) {
	tr := Tracker{}
	l := equalCapitalLadder()
	tr.Fill(l, 0, time.Now())

	ids := tr.CancelUnfilled(l)
	if len(ids) != 2 {
		t.Fatalf("canceled ids %v, want 2", ids)
	}
	if l.Rungs[0].Canceled {
		t.Error("filled rung must not be canceled")
	}
	// отменённые ранги не филлятся
	if tr.Fill(l, 1, time.Now()) {
		t.Error("canceled rung must not fill")
	}
	// повторная отмена — пусто
	if ids := tr.CancelUnfilled(l); len(ids) != 0 {
		t.Errorf("second cancel returned %v", ids)
	}
}

func TestMarkCanceledByOrderID(t *testing.T) {
	tr := Tracker{}
	l := equalCapitalLadder()

	if !tr.MarkCanceled(l, "ord-b") {
		t.Fatal("existing open order must be markable")
	}
	if tr.MarkCanceled(l, "ord-b") {
		t.Error("double mark must be a no-op")
	}
	if tr.MarkCanceled(l, "nope") {
		t.Error("unknown order must not be marked")
	}
}

func TestMarkFailedKeepsLadderWorking(t *testing.T) {
	tr := Tracker{}
	l := equalCapitalLadder()
	tr.MarkFailed(l, 1)

	if got := tr.EligibleOnTick(l, 90); len(got) != 2 {
		t.Fatalf("failed rung must be excluded: eligible %v", got)
	}
	tr.Fill(l, 0, time.Now())
	tr.Fill(l, 2, time.Now())
	if !l.FullyFilled() {
		t.Error("ladder with a failed rung and all others filled must be fully filled")
	}
}
