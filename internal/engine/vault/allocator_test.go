package vault

import (
	"context"
	"errors"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"flip_bot/internal/models"
	"flip_bot/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestAllocateSplit(t *testing.T) {
	ledger := NewMemoryLedger()
	a := NewAllocator(Config{SiphonRate: 0.30, MinTransfer: 100}, ledger, nil)

	e, err := a.Allocate(context.Background(), "cycle-1", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(e.Reserve-300) > 1e-9 {
		t.Errorf("reserve %v, want 300", e.Reserve)
	}
	if math.Abs(e.WorkingRetained-700) > 1e-9 {
		t.Errorf("retained %v, want 700", e.WorkingRetained)
	}
	if math.Abs(e.Reserve+e.WorkingRetained-e.GrossProfit) > 1e-9 {
		t.Error("reserve + retained must equal gross")
	}
	if len(ledger.Entries()) != 1 {
		t.Fatalf("ledger entries %d, want 1", len(ledger.Entries()))
	}
}

func TestAllocateLossIsNoop(t *testing.T) {
	ledger := NewMemoryLedger()
	a := NewAllocator(Config{SiphonRate: 0.30}, ledger, nil)

	for _, gross := range []float64{-50, 0} {
		e, err := a.Allocate(context.Background(), "cycle-loss", gross)
		if err != nil {
			t.Fatalf("gross=%v: %v", gross, err)
		}
		if e != nil {
			t.Fatalf("gross=%v: expected no-op, got entry %+v", gross, e)
		}
	}
	if len(ledger.Entries()) != 0 {
		t.Error("loss must never hit the ledger")
	}
	if a.Pending() != 0 {
		t.Error("loss must not accumulate pending reserve")
	}
}

func TestSweepBatching(t *testing.T) {
	ledger := NewMemoryLedger()
	var transferred []float64
	var mu sync.Mutex
	transfer := func(_ context.Context, amount float64) error {
		mu.Lock()
		transferred = append(transferred, amount)
		mu.Unlock()
		return nil
	}
	a := NewAllocator(Config{SiphonRate: 0.30, MinTransfer: 100}, ledger, transfer)
	ctx := context.Background()

	// 90 в резерв — ниже порога перевода
	if _, err := a.Allocate(ctx, "c1", 300); err != nil {
		t.Fatal(err)
	}
	if err := a.Sweep(ctx); err != nil {
		t.Fatal(err)
	}
	if len(transferred) != 0 {
		t.Fatalf("sub-threshold sweep transferred %v", transferred)
	}
	if math.Abs(a.Pending()-90) > 1e-9 {
		t.Fatalf("pending %v, want 90", a.Pending())
	}

	// ещё 30: итого 120 >= 100, перевод всей суммы
	if _, err := a.Allocate(ctx, "c2", 100); err != nil {
		t.Fatal(err)
	}
	if err := a.Sweep(ctx); err != nil {
		t.Fatal(err)
	}
	if len(transferred) != 1 || math.Abs(transferred[0]-120) > 1e-9 {
		t.Fatalf("transferred %v, want [120]", transferred)
	}
	if a.Pending() != 0 {
		t.Errorf("pending %v after sweep, want 0", a.Pending())
	}
	// суммарный резерв не обнуляется переводом
	if math.Abs(a.ReserveTotal()-120) > 1e-9 {
		t.Errorf("reserve total %v, want 120", a.ReserveTotal())
	}
}

func TestSweepTransferFailureKeepsPending(t *testing.T) {
	ledger := NewMemoryLedger()
	transfer := func(_ context.Context, _ float64) error {
		return errors.New("treasury offline")
	}
	a := NewAllocator(Config{SiphonRate: 0.30, MinTransfer: 50}, ledger, transfer)
	ctx := context.Background()

	if _, err := a.Allocate(ctx, "c1", 500); err != nil {
		t.Fatal(err)
	}
	if err := a.Sweep(ctx); err == nil {
		t.Fatal("failed transfer must surface an error")
	}
	if math.Abs(a.Pending()-150) > 1e-9 {
		t.Errorf("pending %v must survive a failed sweep", a.Pending())
	}
}

type failingLedger struct {
	calls int
}

func (f *failingLedger) Insert(_ context.Context, _ models.VaultLedgerEntry) error {
	f.calls++
	return errors.New("pg down")
}
func (f *failingLedger) MarkTransferred(_ context.Context, _ time.Time) error { return nil }

func TestAllocateRetriesInsert(t *testing.T) {
	fl := &failingLedger{}
	a := NewAllocator(Config{SiphonRate: 0.30}, fl, nil)

	_, err := a.Allocate(context.Background(), "c1", 100)
	if err == nil {
		t.Fatal("persistent insert failure must surface")
	}
	if fl.calls != 3 {
		t.Errorf("insert attempts %d, want 3", fl.calls)
	}
	if a.Pending() != 0 {
		t.Error("failed insert must not count toward pending")
	}
}
