package service

import (
	"fmt"
	"log"

	"flip_bot/internal/modules/config"
	"flip_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier шлёт алерты жизненного цикла в Telegram. Fire-and-forget:
// доставка не влияет на циклы, ошибки только логируются.
// Без токена деградирует в stdout-лог (локальная разработка, симуляция).
type Notifier struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewNotifier(cfg *config.Config) (*Notifier, error) {
	if cfg.Telegram.Token == "" {
		logger.Info("[TG] token отсутствует, алерты уходят в stdout")
		return &Notifier{}, nil
	}
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Notifier{bot: b, chatID: cfg.Telegram.ChatID}, nil
}

func (n *Notifier) Send(msg string) {
	if n.bot == nil {
		log.Printf("[TG] %s", msg)
		return
	}
	go func() {
		if _, err := n.bot.Send(tgbot.NewMessage(n.chatID, msg)); err != nil {
			logger.Error("[TG] send: %v", err)
		}
	}()
}

func (n *Notifier) Sendf(format string, args ...any) {
	n.Send(fmt.Sprintf(format, args...))
}
