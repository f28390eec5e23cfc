package scorer

import "flip_bot/internal/models"

// MemoryMultiplier — средний success-rate по совпавшим эхо, 0.5 без истории.
// Множитель корректирует сигнал границы принятия при ре-валидации
// (cognitive exit), но никогда не перекрывает само решение скорера.
func MemoryMultiplier(echoes []models.MemoryEcho) float64 {
	if len(echoes) == 0 {
		return 0.5
	}
	wins := 0
	for _, e := range echoes {
		if e.Success {
			wins++
		}
	}
	return float64(wins) / float64(len(echoes))
}

// AdjustedScore применяет множитель памяти к сырому скору ре-валидации.
// Нейтральная память (0.5) оставляет скор без изменений; края сдвигают
// его максимум на ±20%.
func AdjustedScore(raw, multiplier float64) float64 {
	return clamp(raw*(0.8+0.4*multiplier), 0, 100)
}
