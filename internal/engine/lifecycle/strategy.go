package lifecycle

import (
	"fmt"

	"flip_bot/internal/engine/ladder"
	"flip_bot/internal/engine/scorer"
)

// Фабрики стратегий: одна консолидированная реализация, варианты
// выбираются по имени из конфига.

func NewScoringStrategy(name string, cfg scorer.Config) (ScoringStrategy, error) {
	switch name {
	case "", "weighted5":
		return scorer.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown scoring strategy: %q", name)
	}
}

func NewLadderStrategy(name string, cfg ladder.Config) (LadderStrategy, error) {
	switch name {
	case "", "frontloaded":
		return ladder.NewBuilder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown ladder strategy: %q", name)
	}
}
