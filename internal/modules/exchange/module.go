package exchange

import (
	"flip_bot/internal/engine/lifecycle"
	"flip_bot/internal/modules/exchange/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(
			service.NewClient,
			// Адаптер: *service.Client -> lifecycle.Exchange
			func(c *service.Client) lifecycle.Exchange {
				return c
			},
		),
	)
}
