package models

import "time"

// VaultLedgerEntry — одна транзакция деления прибыли.
// Reserve = GrossProfit * siphonRate, остальное остаётся в работе.
type VaultLedgerEntry struct {
	CycleID         string
	GrossProfit     float64
	Reserve         float64
	WorkingRetained float64
	// Transferred flips to true once the batched external transfer
	// actually moved this entry's reserve amount.
	Transferred bool
	CreatedAt   time.Time
}
