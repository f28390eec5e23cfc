package lifecycle

import (
	"context"
	"time"

	"flip_bot/internal/engine/history"
	"flip_bot/internal/engine/ladder"
	"flip_bot/internal/engine/scorer"
	"flip_bot/internal/engine/vault"
	"flip_bot/internal/models"
	"flip_bot/internal/modules/config"
	"flip_bot/pkg/db"
	"flip_bot/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

func newSignalsChan() chan models.Signal {
	return make(chan models.Signal, 4096)
}

func Module() fx.Option {
	return fx.Module("lifecycle",
		fx.Provide(
			newSignalsChan,
			func(ch chan models.Signal) chan<- models.Signal { return ch },

			// персистентность поверх общего tx-менеджера
			func(m *db.PgTxManager) history.Store { return history.NewPgStore(m) },
			func(m *db.PgTxManager) vault.LedgerStore { return vault.NewPgLedger(m) },

			func(cfg *config.Config, store vault.LedgerStore, n Notifier) *vault.Allocator {
				// внешний перевод резерва: пока только алерт, казначейский
				// API подключается здесь
				transfer := vault.TreasuryTransfer(func(_ context.Context, amount float64) error {
					n.Sendf("🏦 Резерв выведен из рабочего капитала: %.2f", amount)
					return nil
				})
				return vault.NewAllocator(vault.Config{
					SiphonRate:  cfg.SiphonRate,
					MinProfit:   cfg.VaultMinProfit,
					MinTransfer: cfg.VaultMinTransfer,
				}, store, transfer)
			},

			func(cfg *config.Config) (ScoringStrategy, error) {
				return NewScoringStrategy(cfg.ScoringStrategy, scorer.Config{
					RejectBelow:     cfg.RejectBelow,
					ReferenceEquity: cfg.ReferenceEquity,
					MajorSymbols:    cfg.MajorSymbols,
					MidSymbols:      cfg.MidSymbols,
					HoldAssets:      cfg.HoldAssets,
					ActiveAssets:    cfg.ActiveAssets,
				})
			},
			func(cfg *config.Config) (LadderStrategy, error) {
				return NewLadderStrategy(cfg.LadderStrategy, ladder.Config{
					Curve:         cfg.LadderCurve,
					HardStopPct:   cfg.HardStopPct,
					TakeProfitPct: cfg.TakeProfitPct,
				})
			},

			func(cfg *config.Config) (SnapshotSink, error) {
				return NewFileSink(cfg.SnapshotPath)
			},

			func(cfg *config.Config, scoring ScoringStrategy, ladders LadderStrategy,
				feed PriceFeed, exch Exchange, n Notifier,
				hist history.Store, alloc *vault.Allocator, snaps SnapshotSink) *Manager {
				return NewManager(managerConfig(cfg), Deps{
					Scoring: scoring,
					Ladders: ladders,
					Feed:    feed,
					Exch:    exch,
					N:       n,
					Hist:    hist,
					Vault:   alloc,
					Snaps:   snaps,
				})
			},
		),

		// потребитель сигналов: единственная точка входа в конвейер
		fx.Invoke(func(lc fx.Lifecycle, m *Manager, signals chan models.Signal) {
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						logger.Info("[LIFECYCLE] signal loop started")
						for {
							select {
							case <-runCtx.Done():
								logger.Info("[LIFECYCLE] signal loop stopped")
								return
							case sig, ok := <-signals:
								if !ok {
									return
								}
								if _, err := m.OnSignal(runCtx, sig); err != nil {
									logger.Info("[LIFECYCLE] %s rejected: %v", sig.InstID, err)
								}
							}
						}
					}()
					go m.HealthLoop(runCtx, time.Minute)
					return nil
				},
				OnStop: func(_ context.Context) error {
					cancel()
					m.Wait()
					return nil
				},
			})
		}),

		// периодический sweep резерва в казну
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, alloc *vault.Allocator) {
			c := cron.New()
			spec := cfg.VaultSweepSpec
			if spec == "" {
				spec = "@every 1h"
			}
			if _, err := c.AddFunc(spec, func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := alloc.Sweep(ctx); err != nil {
					logger.Error("[VAULT] sweep: %v", err)
				}
			}); err != nil {
				logger.Error("[VAULT] bad sweep spec %q: %v", spec, err)
				return
			}
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error { c.Start(); return nil },
				OnStop:  func(_ context.Context) error { c.Stop(); return nil },
			})
		}),
	)
}

func managerConfig(cfg *config.Config) Config {
	return Config{
		CognitiveExitBelow: cfg.CognitiveExitBelow,
		MinMemoryMatch:     cfg.MinMemoryMatch,
		MaxActiveCycles:    cfg.MaxActiveCycles,
		WorkingCapital:     cfg.WorkingCapital,
		PollInterval:       time.Duration(cfg.PollInterval),
		CognitiveEvery:     time.Duration(cfg.CognitiveEvery),
		LadderDecay:        time.Duration(cfg.LadderDecay),
		MemoryLookback:     time.Duration(cfg.MemoryLookback),
		ReentryWindow:      time.Duration(cfg.ReentryWindow),
		Cooldown:           time.Duration(cfg.CooldownPerAsset),
		FeedTimeout:        time.Duration(cfg.Feed.Timeout),
		CancelRetryBase:    time.Duration(cfg.CancelRetryBase),
		CancelHardTimeout:  time.Duration(cfg.CancelHardTimeout),
		TrailActivatePct:   cfg.TrailActivatePct,
		TrailPct:           cfg.TrailPct,
		PrefillFirstRung:   cfg.PrefillFirstRung,
	}
}
