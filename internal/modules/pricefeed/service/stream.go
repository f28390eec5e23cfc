package service

import (
	"context"
	"log"
	"strconv"
	"time"

	"flip_bot/internal/models"

	"github.com/bytedance/sonic"
)

// StreamTickers — один WebSocket с пачкой инструментов в args.
// Каждый тик оседает в кэше клиента; GetPrice берёт его, пока он свежий.
// Реконнект вечный, бэкофф секунда.
func (c *Client) StreamTickers(ctx context.Context, instIDs []string) {
	if c.wsURL == "" || len(instIDs) == 0 {
		return
	}

	args := make([]map[string]string, 0, len(instIDs))
	for _, id := range instIDs {
		args = append(args, map[string]string{
			"channel": "tickers",
			"instId":  id,
		})
	}

	for {
		log.Printf("[FEED] ws connect, %d symbols", len(instIDs))
		conn, _, err := c.wsDialer.Dial(c.wsURL, nil)
		if err != nil {
			log.Printf("[FEED] ws dial: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		sub := map[string]any{
			"op":   "subscribe",
			"args": args,
		}
		if err := conn.WriteJSON(sub); err != nil {
			log.Printf("[FEED] ws subscribe: %v", err)
			_ = conn.Close()
			continue
		}

		// keepalive ping каждые 20s — иначе сервер рвёт соединение;
		// stopPing закрывает читающий цикл, иначе пингер живёт до ctx
		stopPing := make(chan struct{})
		go func() {
			t := time.NewTicker(20 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-stopPing:
					return
				case <-t.C:
					_ = conn.WriteJSON(map[string]string{"op": "ping"})
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				log.Printf("[FEED] ws read: %v", err)
				_ = conn.Close()
				close(stopPing)
				break
			}

			var frame struct {
				Arg struct {
					Channel string `json:"channel"`
					InstID  string `json:"instId"`
				} `json:"arg"`
				Data []struct {
					Last    string `json:"last"`
					Open24h string `json:"open24h"`
				} `json:"data"`
			}
			if err := sonic.Unmarshal(msg, &frame); err != nil {
				continue
			}
			if frame.Arg.Channel != "tickers" || len(frame.Data) == 0 {
				continue
			}

			row := frame.Data[len(frame.Data)-1]
			last, err := strconv.ParseFloat(row.Last, 64)
			if err != nil || last <= 0 {
				continue
			}
			var change float64
			if open, err := strconv.ParseFloat(row.Open24h, 64); err == nil && open > 0 {
				change = (last - open) / open * 100
			}

			c.storeTick(models.PriceTick{
				InstID:    frame.Arg.InstID,
				Price:     last,
				Change24h: change,
				At:        time.Now(),
			})
		}

		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(time.Second)
		}
	}
}
