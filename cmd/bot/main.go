package main

import (
	"context"
	"log"

	"flip_bot/internal/engine/lifecycle"
	"flip_bot/internal/modules/config"
	"flip_bot/internal/modules/exchange"
	"flip_bot/internal/modules/intake"
	"flip_bot/internal/modules/metrics"
	"flip_bot/internal/modules/postgres"
	"flip_bot/internal/modules/pricefeed"
	telegram "flip_bot/internal/modules/telegram_bot"
	"flip_bot/pkg/logger"
	"flip_bot/pkg/tracing"

	"go.uber.org/fx"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	logger.SetServiceName("flip_bot")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		metrics.Module(),
		pricefeed.Module(),
		exchange.Module(),
		telegram.Module(),
		lifecycle.Module(),
		intake.Module(),

		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) {
			if cfg.Jaeger.Host == "" {
				return
			}
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				logger.Error("[TRACING] init: %v", err)
				return
			}
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					closeTracer()
					return nil
				},
			})
		}),
	)
	app.Run()
}
