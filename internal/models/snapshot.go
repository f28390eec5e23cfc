package models

import "time"

// CycleSnapshot — снимок состояния цикла на границе ядра (формат файла
// принадлежит хост-приложению, ядро отдаёт только поля).
type CycleSnapshot struct {
	CycleID string `json:"cycle_id"`
	InstID  string `json:"inst_id"`
	Phase   string `json:"phase"`
	Status  string `json:"status"`

	Rungs []LadderRung `json:"rungs,omitempty"`

	AvgEntry     float64  `json:"avg_entry"`
	HardStop     float64  `json:"hard_stop"`
	TakeProfit   float64  `json:"take_profit"`
	TrailingStop *float64 `json:"trailing_stop,omitempty"`

	RealizedProfit float64 `json:"realized_profit"`

	NeedsManualIntervention bool   `json:"needs_manual_intervention,omitempty"`
	ExitReason              string `json:"exit_reason,omitempty"`

	At time.Time `json:"at"`
}
