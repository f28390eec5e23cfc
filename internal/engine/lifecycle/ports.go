package lifecycle

import (
	"context"

	"flip_bot/internal/models"
)

// Внешние коллабораторы ядра. Ядро их потребляет и никогда не реализует
// протокольные детали само.

// PriceFeed: отказ фида — транзиентная ошибка, тик пропускается,
// устаревшая цена никогда не подставляется вместо текущей.
type PriceFeed interface {
	GetPrice(ctx context.Context, instID string) (price, change24h float64, err error)
	GetPrices(ctx context.Context, instIDs []string) (map[string]float64, error)
}

// Exchange: каждый вызов потенциально частично успешен, сверка — через
// FillTracker.
type Exchange interface {
	PlaceLimitOrder(ctx context.Context, instID string, side models.Side, size, price float64) (string, error)
	PlaceMarketOrder(ctx context.Context, instID string, side models.Side, size float64) (string, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
}

// Notifier — fire-and-forget, ошибки глотаются реализацией.
type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// SnapshotSink — персистентный срез цикла на границе ядра;
// формат хранения принадлежит хост-приложению.
type SnapshotSink interface {
	WriteSnapshot(ctx context.Context, snap models.CycleSnapshot) error
}

// ScoringStrategy / LadderStrategy — подключаемые стратегии, выбираются
// конфигом, а не форком кода.
type ScoringStrategy interface {
	Score(sig models.Signal, mctx models.MarketContext) (models.ScoreBreakdown, bool, string)
}

type LadderStrategy interface {
	Tiers(sig models.Signal) int
	Build(sig models.Signal, tierCount int, prefillFirst bool) (*models.LadderOrder, error)
}
