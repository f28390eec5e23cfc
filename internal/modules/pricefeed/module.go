package pricefeed

import (
	"context"

	"flip_bot/internal/engine/lifecycle"
	"flip_bot/internal/modules/config"
	"flip_bot/internal/modules/pricefeed/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("pricefeed",
		fx.Provide(
			service.NewClient,
			// Адаптер: *service.Client -> lifecycle.PriceFeed
			func(c *service.Client) lifecycle.PriceFeed {
				return c
			},
		),

		// ws-стример тикеров по watchlist-у; без ws_url работает чистый REST
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client, cfg *config.Config) {
			watch := append(append([]string{}, cfg.MajorSymbols...), cfg.MidSymbols...)
			if cfg.Feed.WSURL == "" || len(watch) == 0 {
				return
			}

			streamCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go c.StreamTickers(streamCtx, watch)
					return nil
				},
				OnStop: func(_ context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
