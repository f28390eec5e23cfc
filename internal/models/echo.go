package models

import "time"

// MemoryEcho — неизменяемая запись исхода завершённого цикла.
// Ядро никогда не обновляет и не удаляет эхо.
type MemoryEcho struct {
	InstID      string
	Pattern     string
	Success     bool
	ProfitRatio float64 // realized profit / deployed capital
	// Context at entry: validation score and 24h volatility when the
	// cycle started, used to weight future signals on the same asset.
	EntryScore      float64
	EntryVolatility float64
	CompletedAt     time.Time
}
