package telegram

import (
	"flip_bot/internal/engine/lifecycle"
	"flip_bot/internal/modules/telegram_bot/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			service.NewNotifier,
			// Адаптер: *service.Notifier -> lifecycle.Notifier
			func(n *service.Notifier) lifecycle.Notifier {
				return n
			},
		),
	)
}
