package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"flip_bot/internal/models"
)

// Бумажные коллабораторы: случайное блуждание цены и биржа, которая
// принимает всё. Процент инъецируемых отказов задаётся сценарием.

type paperFeed struct {
	mu       sync.Mutex
	rng      *rand.Rand
	price    map[string]float64
	failRate float64 // 0..1 вероятность отказа на вызов
	drift    float64 // смещение шага, двигает рынок вверх/вниз
}

func newPaperFeed(seed int64, failRate, drift float64, start map[string]float64) *paperFeed {
	prices := make(map[string]float64, len(start))
	for k, v := range start {
		prices[k] = v
	}
	return &paperFeed{
		rng:      rand.New(rand.NewSource(seed)),
		price:    prices,
		failRate: failRate,
		drift:    drift,
	}
}

func (f *paperFeed) GetPrice(_ context.Context, instID string) (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rng.Float64() < f.failRate {
		return 0, 0, fmt.Errorf("%w: injected failure", models.ErrPriceFeedUnavailable)
	}
	p, ok := f.price[instID]
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown instrument %s", models.ErrPriceFeedUnavailable, instID)
	}
	// шаг ±1% с дрейфом
	step := (f.rng.Float64()*2 - 1) * 0.01
	p *= 1 + step + f.drift
	f.price[instID] = p
	change := (step + f.drift) * 100
	return p, change, nil
}

func (f *paperFeed) GetPrices(ctx context.Context, instIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(instIDs))
	for _, id := range instIDs {
		p, _, err := f.GetPrice(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

type paperExchange struct {
	mu         sync.Mutex
	rng        *rand.Rand
	nextID     int
	cancelFail float64 // вероятность неподтверждённой отмены
	placeFail  float64

	placed   int
	canceled int
	markets  int
}

func newPaperExchange(seed int64, placeFail, cancelFail float64) *paperExchange {
	return &paperExchange{
		rng:        rand.New(rand.NewSource(seed)),
		cancelFail: cancelFail,
		placeFail:  placeFail,
	}
}

func (e *paperExchange) PlaceLimitOrder(_ context.Context, instID string, side models.Side, size, price float64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rng.Float64() < e.placeFail {
		return "", fmt.Errorf("%w: injected rejection", models.ErrOrderPlacementFailed)
	}
	e.nextID++
	e.placed++
	return fmt.Sprintf("paper-%s-%d", instID, e.nextID), nil
}

func (e *paperExchange) PlaceMarketOrder(_ context.Context, instID string, side models.Side, size float64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.markets++
	return fmt.Sprintf("paper-mkt-%s-%d", instID, e.nextID), nil
}

func (e *paperExchange) CancelOrder(_ context.Context, orderID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rng.Float64() < e.cancelFail {
		return false, fmt.Errorf("injected cancel timeout for %s", orderID)
	}
	e.canceled++
	return true, nil
}

func (e *paperExchange) stats() (placed, canceled, markets int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placed, e.canceled, e.markets
}

type stdoutNotifier struct{}

func (stdoutNotifier) Send(msg string) { log.Printf("[ALERT] %s", msg) }
func (stdoutNotifier) Sendf(format string, args ...any) {
	log.Printf("[ALERT] "+format, args...)
}

type discardSnapshots struct{}

func (discardSnapshots) WriteSnapshot(_ context.Context, _ models.CycleSnapshot) error { return nil }

// randomSignal генерит валидный (иногда намеренно мусорный) сигнал.
func randomSignal(rng *rand.Rand, instID string, price float64) models.Signal {
	low := price * (1 - 0.01 - rng.Float64()*0.02)
	high := price * (1 - rng.Float64()*0.005)
	sig := models.Signal{
		InstID:     instID,
		Side:       models.SideBuy,
		EntryLow:   low,
		EntryHigh:  high,
		Target:     price * (1 + 0.03 + rng.Float64()*0.05),
		Stop:       low * (1 - 0.02 - rng.Float64()*0.02),
		Capital:    100 + rng.Float64()*400,
		Confidence: 0.4 + rng.Float64()*0.6,
		Pattern:    []string{"breakout", "retest", "sweep"}[rng.Intn(3)],
		Source:     "sim",
		ReceivedAt: time.Now(),
	}
	if rng.Float64() < 0.1 {
		sig.Stop = sig.Target // невалидный: отбраковка на входе
	}
	return sig
}
