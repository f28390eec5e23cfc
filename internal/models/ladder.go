package models

import "time"

// LadderRung — один уровень лесенки.
type LadderRung struct {
	Tier     int     `json:"tier"`
	Price    float64 `json:"price"`
	Size     float64 `json:"size"`    // Capital / Price
	Capital  float64 `json:"capital"` // allocated quote capital
	Weight   float64 `json:"weight"`  // веса по всем рангам в сумме 1.0

	OrderID  string    `json:"order_id,omitempty"`
	Failed   bool      `json:"failed,omitempty"`   // placement rejected by exchange
	Canceled bool      `json:"canceled,omitempty"` // decay timer / emergency cancel
	Filled   bool      `json:"filled"`
	FilledAt time.Time `json:"filled_at,omitempty"`
}

// Open: ордер висит на бирже и ещё может исполниться.
func (r LadderRung) Open() bool {
	return !r.Filled && !r.Failed && !r.Canceled && r.OrderID != ""
}

// LadderOrder — агрегат лесенки одного цикла.
// Мутируется только FillTracker-ом (см. engine/ladder).
type LadderOrder struct {
	InstID string `json:"inst_id"`
	Side   Side   `json:"side"`

	Rungs []LadderRung `json:"rungs"`

	// AvgEntry is zero until at least one rung is filled.
	AvgEntry    float64 `json:"avg_entry"`
	FilledSize  float64 `json:"filled_size"`
	FilledValue float64 `json:"filled_value"`

	HardStop   float64 `json:"hard_stop"`
	TakeProfit float64 `json:"take_profit"`

	DeployedAt time.Time `json:"deployed_at"`
}

func (l *LadderOrder) FilledCount() int {
	n := 0
	for _, r := range l.Rungs {
		if r.Filled {
			n++
		}
	}
	return n
}

// FullyFilled: все ранги, которые биржа приняла, исполнены.
func (l *LadderOrder) FullyFilled() bool {
	for _, r := range l.Rungs {
		if !r.Filled && !r.Failed && !r.Canceled {
			return false
		}
	}
	return l.FilledCount() > 0
}

func (l *LadderOrder) OpenOrderIDs() []string {
	var ids []string
	for _, r := range l.Rungs {
		if r.Open() {
			ids = append(ids, r.OrderID)
		}
	}
	return ids
}

func (l *LadderOrder) TotalCapital() float64 {
	var sum float64
	for _, r := range l.Rungs {
		sum += r.Capital
	}
	return sum
}
