package metrics

import (
	"context"
	"net/http"

	"flip_bot/internal/modules/config"
	"flip_bot/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// Module поднимает /metrics на отдельном порту.
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) {
			addr := cfg.MetricsAddr
			if addr == "" {
				addr = ":9091"
			}
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: addr, Handler: mux}

			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
							logger.Error("[METRICS] listen %s: %v", addr, err)
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return srv.Shutdown(ctx)
				},
			})
		}),
	)
}
