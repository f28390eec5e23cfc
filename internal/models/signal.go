package models

import (
	"fmt"
	"time"
)

type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Signal — кандидат на сделку от внешнего продюсера.
// Entry band [EntryLow, EntryHigh] задаёт диапазон лесенки.
type Signal struct {
	InstID     string    `json:"inst_id"`
	Side       Side      `json:"side"`
	EntryLow   float64   `json:"entry_low"`
	EntryHigh  float64   `json:"entry_high"`
	Target     float64   `json:"target"`
	Stop       float64   `json:"stop"`
	Capital    float64   `json:"capital"` // quote currency
	Confidence float64   `json:"confidence"` // 0..1, producer's own confidence
	Pattern    string    `json:"pattern"` // pattern class for memory matching
	Source     string    `json:"source"`
	ReceivedAt time.Time `json:"received_at"`
}

// Entry is the reference entry used for risk math: the conservative
// (lowest) edge of the band for longs.
func (s Signal) Entry() float64 {
	return s.EntryLow
}

func (s Signal) Validate() error {
	if s.InstID == "" {
		return fmt.Errorf("%w: empty instId", ErrSignalInvalid)
	}
	if s.Side != SideBuy && s.Side != SideSell {
		return fmt.Errorf("%w: side=%q", ErrSignalInvalid, s.Side)
	}
	if s.EntryLow <= 0 || s.EntryHigh <= 0 || s.Target <= 0 || s.Stop <= 0 {
		return fmt.Errorf("%w: non-positive price", ErrSignalInvalid)
	}
	if s.Capital <= 0 {
		return fmt.Errorf("%w: capital <= 0", ErrSignalInvalid)
	}
	if s.Side == SideBuy {
		if s.Entry() >= s.Target {
			return fmt.Errorf("%w: entry %.6f >= target %.6f", ErrSignalInvalid, s.Entry(), s.Target)
		}
		if s.Stop >= s.Entry() {
			return fmt.Errorf("%w: stop %.6f >= entry %.6f", ErrSignalInvalid, s.Stop, s.Entry())
		}
	} else {
		if s.Entry() <= s.Target {
			return fmt.Errorf("%w: entry %.6f <= target %.6f (short)", ErrSignalInvalid, s.Entry(), s.Target)
		}
		if s.Stop <= s.Entry() {
			return fmt.Errorf("%w: stop %.6f <= entry %.6f (short)", ErrSignalInvalid, s.Stop, s.Entry())
		}
	}
	return nil
}

// RiskReward = (target - entry) / (entry - stop), по модулю для шортов.
func (s Signal) RiskReward() float64 {
	reward := s.Target - s.Entry()
	risk := s.Entry() - s.Stop
	if s.Side == SideSell {
		reward, risk = -reward, -risk
	}
	if risk <= 0 {
		return 0
	}
	return reward / risk
}

// ExpectedMovePct — proposed move from entry to target, in percent.
func (s Signal) ExpectedMovePct() float64 {
	move := (s.Target - s.Entry()) / s.Entry() * 100
	if move < 0 {
		move = -move
	}
	return move
}
