package intake

import (
	"context"
	"io"
	"net/http"
	"time"

	"flip_bot/internal/models"
	"flip_bot/internal/modules/config"
	"flip_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"go.uber.org/fx"
)

// Module принимает внешние сигналы по HTTP (POST /signal) и кладёт их в
// канал конвейера. Валидация и скоринг — не здесь, это дело фазы
// SIGNAL_RECEIVED; intake только декодирует.
func Module() fx.Option {
	return fx.Module("intake",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, signals chan<- models.Signal) {
			addr := cfg.IntakeAddr
			if addr == "" {
				addr = ":8085"
			}

			mux := http.NewServeMux()
			mux.HandleFunc("/signal", func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					w.WriteHeader(http.StatusMethodNotAllowed)
					return
				}
				body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
				if err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				var sig models.Signal
				if err := sonic.Unmarshal(body, &sig); err != nil {
					logger.Warn("[INTAKE] bad payload: %v", err)
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				if sig.ReceivedAt.IsZero() {
					sig.ReceivedAt = time.Now()
				}

				select {
				case signals <- sig:
					w.WriteHeader(http.StatusAccepted)
				default:
					// канал полон — давим источник, не блокируем хендлер
					w.WriteHeader(http.StatusTooManyRequests)
				}
			})

			srv := &http.Server{Addr: addr, Handler: mux}
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						logger.Info("[INTAKE] listening on %s", addr)
						if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
							logger.Error("[INTAKE] listen %s: %v", addr, err)
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
