package lifecycle

import (
	"context"
	"os"
	"sync"
	"time"

	"flip_bot/internal/models"
	"flip_bot/pkg/logger"

	"github.com/bytedance/sonic"
)

// writeSnapshot пишет срез цикла после каждого перехода фазы.
// Отказ синка не останавливает цикл.
func (c *Controller) writeSnapshot() {
	if c.mgr.snaps == nil {
		return
	}
	snap := models.CycleSnapshot{
		CycleID:                 c.cycle.ID,
		InstID:                  c.cycle.InstID,
		Phase:                   c.cycle.Phase.String(),
		Status:                  string(c.cycle.Status),
		RealizedProfit:          c.cycle.RealizedProfit,
		NeedsManualIntervention: c.cycle.NeedsManualIntervention,
		ExitReason:              c.cycle.ExitReason,
		At:                      time.Now(),
	}
	if l := c.cycle.Ladder; l != nil {
		snap.Rungs = l.Rungs
		snap.AvgEntry = l.AvgEntry
		snap.HardStop = l.HardStop
		snap.TakeProfit = l.TakeProfit
	}
	if ts, ok := c.monitor.TrailingStop(); ok {
		snap.TrailingStop = &ts
	}

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.mgr.snaps.WriteSnapshot(ctx, snap); err != nil {
		logger.Warn("[SNAPSHOT] %s: %v", c.cycle.ID, err)
	}
}

// FileSink — append-only JSONL файл снапшотов. Одна строка на переход фазы,
// восстановление после рестарта читает файл с конца.
type FileSink struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) WriteSnapshot(_ context.Context, snap models.CycleSnapshot) error {
	raw, err := sonic.Marshal(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(append(raw, '\n')); err != nil {
		return err
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
