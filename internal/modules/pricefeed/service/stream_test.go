package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"flip_bot/internal/modules/config"

	"github.com/gorilla/websocket"
)

// тестовый ws-сервер: принимает subscribe, шлёт один тикер и рвёт соединение
func tickerServer(t *testing.T, conns *int32) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(conns, 1)
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil { // subscribe frame
			return
		}
		frame := `{"arg":{"channel":"tickers","instId":"BTC-USDT"},` +
			`"data":[{"last":"101.5","open24h":"100"}]}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
		time.Sleep(10 * time.Millisecond)
	}))
}

func streamClient(wsURL string) *Client {
	cfg := &config.Config{}
	cfg.Feed.WSURL = wsURL
	cfg.Feed.Timeout = config.Duration(time.Second)
	return NewClient(cfg)
}

func (c *Client) cachedPrice(instID string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tick, ok := c.last[instID]
	return tick.Price, ok
}

func TestStreamCachesTicks(t *testing.T) {
	var conns int32
	srv := tickerServer(t, &conns)
	defer srv.Close()

	c := streamClient("ws" + strings.TrimPrefix(srv.URL, "http"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.StreamTickers(ctx, []string{"BTC-USDT"})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if price, ok := c.cachedPrice("BTC-USDT"); ok {
			if price != 101.5 {
				t.Fatalf("cached price %v, want 101.5", price)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("tick never reached the cache")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamReconnectsAndStopsOnCancel(t *testing.T) {
	var conns int32
	srv := tickerServer(t, &conns)
	defer srv.Close()

	c := streamClient("ws" + strings.TrimPrefix(srv.URL, "http"))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.StreamTickers(ctx, []string{"BTC-USDT"})
		close(done)
	}()

	// сервер рвёт каждое соединение; бэкофф секунда, ждём второй коннект
	deadline := time.Now().Add(4 * time.Second)
	for atomic.LoadInt32(&conns) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("stream never reconnected after server drop")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not return after ctx cancel")
	}
}
