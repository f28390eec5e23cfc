package models

// FactorScore — одна компонента оценки сигнала.
type FactorScore struct {
	Name     string
	Raw      float64 // 0..100
	Weight   float64 // весы всех факторов в сумме дают 100
	Weighted float64 // Raw * Weight / 100
}

// ScoreBreakdown is returned even on rejection, for observability.
type ScoreBreakdown struct {
	Factors []FactorScore
	Total   float64 // 0..100
}

func (b ScoreBreakdown) WeightSum() float64 {
	var sum float64
	for _, f := range b.Factors {
		sum += f.Weight
	}
	return sum
}
