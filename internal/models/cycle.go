package models

import "time"

// Phase — фаза жизненного цикла FlipCycle. Переходы монотонные,
// единственная ветка назад невозможна: аварийный выход идёт вперёд
// через PhaseEmergencyExit.
type Phase int

const (
	PhaseSignalReceived Phase = iota + 1
	PhaseMemoryWeighting
	PhaseSpearheadInvoked
	PhaseLadderDeployed
	PhaseCrystalScan
	PhaseEmergencyExit // ASHEN_FLAME
	PhaseReentryEval   // WINDMARK
	PhaseVaultInject   // GLYPH_LOCK
	PhaseEchoImprint   // terminal
)

func (p Phase) String() string {
	switch p {
	case PhaseSignalReceived:
		return "SIGNAL_RECEIVED"
	case PhaseMemoryWeighting:
		return "MEMORY_WEIGHTING"
	case PhaseSpearheadInvoked:
		return "SPEARHEAD_INVOKED"
	case PhaseLadderDeployed:
		return "LADDER_DEPLOYED"
	case PhaseCrystalScan:
		return "CRYSTAL_SCAN"
	case PhaseEmergencyExit:
		return "ASHEN_FLAME"
	case PhaseReentryEval:
		return "WINDMARK"
	case PhaseVaultInject:
		return "GLYPH_LOCK"
	case PhaseEchoImprint:
		return "ECHO_IMPRINT"
	default:
		return "UNKNOWN"
	}
}

type CycleStatus string

const (
	StatusActive           CycleStatus = "ACTIVE"
	StatusBlockedScore     CycleStatus = "BLOCKED_SCORE"
	StatusBlockedConsensus CycleStatus = "BLOCKED_CONSENSUS"
	StatusBlockedCapacity  CycleStatus = "BLOCKED_CAPACITY"
	StatusBlockedCapital   CycleStatus = "BLOCKED_CAPITAL"
	StatusEmergencyExit    CycleStatus = "EMERGENCY_EXIT"
	StatusCompleted        CycleStatus = "COMPLETED"
)

func (s CycleStatus) Blocked() bool {
	switch s {
	case StatusBlockedScore, StatusBlockedConsensus, StatusBlockedCapacity, StatusBlockedCapital:
		return true
	}
	return false
}

// ExitDecision в порядке приоритета: защита капитала важнее фиксации прибыли.
type ExitDecision int

const (
	ExitNone ExitDecision = iota
	ExitTakeProfit
	ExitTrailingStop
	ExitCognitive
	ExitHardStop
)

func (d ExitDecision) String() string {
	switch d {
	case ExitNone:
		return "NONE"
	case ExitHardStop:
		return "HARD_STOP"
	case ExitTrailingStop:
		return "TRAILING_STOP"
	case ExitTakeProfit:
		return "TAKE_PROFIT"
	case ExitCognitive:
		return "COGNITIVE_EXIT"
	default:
		return "UNKNOWN"
	}
}

// FlipCycle — один полный жизненный цикл по одному инструменту.
// Владеет им ровно один LifecycleController.
type FlipCycle struct {
	ID     string
	InstID string
	Signal Signal

	Ladder *LadderOrder

	Phase  Phase
	Status CycleStatus

	Score            ScoreBreakdown
	MemoryMultiplier float64
	EntryVolatility  float64 // |24h change| на момент принятия сигнала

	StartedAt   time.Time
	CompletedAt time.Time

	RealizedProfit float64
	ExitReason     string

	NeedsManualIntervention  bool
	ManualInterventionReason string
}
