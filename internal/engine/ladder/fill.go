package ladder

import (
	"time"

	"flip_bot/internal/models"
)

// Tracker — единственный мутатор LadderOrder. Контроллер цикла зовёт его
// из одной горутины, поэтому блокировок здесь нет.
type Tracker struct{}

// Fill помечает ранг исполненным и пересчитывает средний вход.
// Повторная обработка уже исполненного ранга — no-op, не ошибка.
func (t Tracker) Fill(l *models.LadderOrder, idx int, at time.Time) bool {
	if idx < 0 || idx >= len(l.Rungs) {
		return false
	}
	r := &l.Rungs[idx]
	if r.Filled || r.Failed || r.Canceled {
		return false
	}
	r.Filled = true
	r.FilledAt = at

	// FilledSize/FilledValue только растут; ранги не "расфилливаются"
	l.FilledSize += r.Size
	l.FilledValue += r.Size * r.Price
	l.AvgEntry = l.FilledValue / l.FilledSize
	return true
}

// EligibleOnTick возвращает ранги, которые должны считаться исполненными
// на данной цене: для лонга currentPrice <= rung.price.
func (t Tracker) EligibleOnTick(l *models.LadderOrder, price float64) []int {
	var idx []int
	for i, r := range l.Rungs {
		if r.Filled || r.Failed || r.Canceled {
			continue
		}
		if l.Side == models.SideSell {
			if price >= r.Price {
				idx = append(idx, i)
			}
			continue
		}
		if price <= r.Price {
			idx = append(idx, i)
		}
	}
	return idx
}

// CancelUnfilled помечает невисполненные ранги отменёнными (decay timer,
// аварийный выход). Возвращает orderID отменённых рангов.
func (t Tracker) CancelUnfilled(l *models.LadderOrder) []string {
	var ids []string
	for i := range l.Rungs {
		r := &l.Rungs[i]
		if r.Filled || r.Failed || r.Canceled {
			continue
		}
		if r.OrderID != "" {
			ids = append(ids, r.OrderID)
		}
		r.Canceled = true
	}
	return ids
}

// MarkCanceled помечает один ранг по orderID после подтверждённой отмены
// на бирже (ASHEN_FLAME ретраит до подтверждения каждого).
func (t Tracker) MarkCanceled(l *models.LadderOrder, orderID string) bool {
	for i := range l.Rungs {
		r := &l.Rungs[i]
		if r.OrderID == orderID && !r.Filled && !r.Canceled {
			r.Canceled = true
			return true
		}
	}
	return false
}

// MarkFailed: биржа отклонила постановку ранга; остальные ранги не трогаем,
// лесенка продолжает работать с уменьшенной ёмкостью.
func (t Tracker) MarkFailed(l *models.LadderOrder, idx int) {
	if idx >= 0 && idx < len(l.Rungs) {
		l.Rungs[idx].Failed = true
	}
}
