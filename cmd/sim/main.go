// Симулятор жизненного цикла: гоняет конвейер на бумажных коллабораторах
// со случайными ценами и инъецированными отказами фида/биржи, и проверяет,
// что каждый запущенный цикл завершился.
package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"flip_bot/internal/engine/history"
	"flip_bot/internal/engine/ladder"
	"flip_bot/internal/engine/lifecycle"
	"flip_bot/internal/engine/scorer"
	"flip_bot/internal/engine/vault"
	"flip_bot/pkg/logger"
)

type scenario struct {
	Seed        int64
	Signals     int
	Symbols     []string
	StartPrice  float64
	FeedFail    float64
	PlaceFail   float64
	CancelFail  float64
	Drift       float64
	MaxDuration time.Duration
}

func loadScenario() (scenario, error) {
	viper.SetConfigName("sim")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	viper.SetDefault("seed", 1)
	viper.SetDefault("signals", 50)
	viper.SetDefault("symbols", []string{"BTC-USDT", "ETH-USDT", "SOL-USDT"})
	viper.SetDefault("start_price", 100.0)
	viper.SetDefault("feed_fail", 0.05)
	viper.SetDefault("place_fail", 0.05)
	viper.SetDefault("cancel_fail", 0.1)
	viper.SetDefault("drift", 0.002)
	viper.SetDefault("max_duration", "60s")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return scenario{}, errors.Wrap(err, "read scenario")
		}
		// без файла едем на дефолтах
	}

	var s scenario
	s.Seed = viper.GetInt64("seed")
	s.Signals = viper.GetInt("signals")
	s.Symbols = viper.GetStringSlice("symbols")
	s.StartPrice = viper.GetFloat64("start_price")
	s.FeedFail = viper.GetFloat64("feed_fail")
	s.PlaceFail = viper.GetFloat64("place_fail")
	s.CancelFail = viper.GetFloat64("cancel_fail")
	s.Drift = viper.GetFloat64("drift")
	s.MaxDuration = viper.GetDuration("max_duration")
	if len(s.Symbols) == 0 {
		return scenario{}, errors.New("scenario has no symbols")
	}
	return s, nil
}

func main() {
	if err := logger.Init(); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	logger.SetServiceName("flip_sim")

	sc, err := loadScenario()
	if err != nil {
		log.Fatalf("scenario: %v", err)
	}

	start := make(map[string]float64, len(sc.Symbols))
	for _, s := range sc.Symbols {
		start[s] = sc.StartPrice
	}

	feed := newPaperFeed(sc.Seed, sc.FeedFail, sc.Drift, start)
	exch := newPaperExchange(sc.Seed+1, sc.PlaceFail, sc.CancelFail)
	alloc := vault.NewAllocator(vault.Config{
		SiphonRate:  0.30,
		MinProfit:   0.01,
		MinTransfer: 50,
	}, vault.NewMemoryLedger(), nil)
	hist := history.NewMemoryStore()

	scoring, err := lifecycle.NewScoringStrategy("weighted5", scorer.Config{
		RejectBelow:     55,
		ReferenceEquity: 10000,
		MajorSymbols:    sc.Symbols,
		ActiveAssets:    sc.Symbols,
	})
	if err != nil {
		log.Fatalf("scoring: %v", err)
	}
	ladders, err := lifecycle.NewLadderStrategy("frontloaded", ladder.Config{
		Curve:         1.2,
		HardStopPct:   0.03,
		TakeProfitPct: 0.04,
	})
	if err != nil {
		log.Fatalf("ladders: %v", err)
	}

	m := lifecycle.NewManager(lifecycle.Config{
		MaxActiveCycles:   len(sc.Symbols),
		WorkingCapital:    1e6,
		PollInterval:      5 * time.Millisecond,
		CognitiveEvery:    25 * time.Millisecond,
		LadderDecay:       300 * time.Millisecond,
		ReentryWindow:     time.Second,
		FeedTimeout:       time.Second,
		CancelRetryBase:   5 * time.Millisecond,
		CancelHardTimeout: 100 * time.Millisecond,
	}, lifecycle.Deps{
		Scoring: scoring,
		Ladders: ladders,
		Feed:    feed,
		Exch:    exch,
		N:       stdoutNotifier{},
		Hist:    hist,
		Vault:   alloc,
		Snaps:   discardSnapshots{},
	})

	ctx, cancel := context.WithTimeout(context.Background(), sc.MaxDuration)
	defer cancel()

	rng := rand.New(rand.NewSource(sc.Seed + 2))
	launched := 0
	for i := 0; i < sc.Signals; i++ {
		inst := sc.Symbols[rng.Intn(len(sc.Symbols))]
		price, _, err := feed.GetPrice(ctx, inst)
		if err != nil {
			continue
		}
		if _, err := m.OnSignal(ctx, randomSignal(rng, inst, price)); err == nil {
			launched++
		}
		time.Sleep(time.Duration(rng.Intn(20)) * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(sc.MaxDuration):
		log.Printf("FAIL: %d cycles still active after %s", m.ActiveCount(), sc.MaxDuration)
		os.Exit(1)
	}

	// liveness: всё, что стартовало, обязано дойти до терминального статуса
	if m.ActiveCount() != 0 {
		log.Printf("FAIL: %d cycles did not terminate", m.ActiveCount())
		os.Exit(1)
	}

	placed, canceled, markets := exch.stats()
	log.Printf("OK: launched=%d echoes=%d vaultReserve=%.2f orders: placed=%d canceled=%d market=%d",
		launched, hist.Len(), alloc.ReserveTotal(), placed, canceled, markets)
}
