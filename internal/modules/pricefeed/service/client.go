package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"flip_bot/internal/models"
	"flip_bot/internal/modules/config"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// wsFreshness — возраст ws-тика, после которого он считается устаревшим
// и цена берётся по REST. Устаревшая цена наружу не отдаётся никогда.
const wsFreshness = 5 * time.Second

// Client — фид цен: WebSocket-стрим тикеров с REST-фоллбэком.
type Client struct {
	cfg *config.Config

	http     *http.Client
	wsDialer *websocket.Dialer
	baseURL  string
	wsURL    string

	mu   sync.RWMutex
	last map[string]models.PriceTick // последний ws-тик по инструменту
}

func NewClient(cfg *config.Config) *Client {
	base := cfg.Feed.BaseURL
	if base == "" {
		base = "https://www.okx.com"
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: time.Duration(cfg.Feed.Timeout)},
		wsDialer: &websocket.Dialer{},
		baseURL:  base,
		wsURL:    cfg.Feed.WSURL,
		last:     make(map[string]models.PriceTick),
	}
}

// GetPrice отдаёт цену и 24h change. Свежий ws-тик в приоритете,
// иначе REST. Ошибка транзиентна: вызывающий пропускает тик.
func (c *Client) GetPrice(ctx context.Context, instID string) (float64, float64, error) {
	c.mu.RLock()
	tick, ok := c.last[instID]
	c.mu.RUnlock()
	if ok && time.Since(tick.At) < wsFreshness {
		return tick.Price, tick.Change24h, nil
	}
	return c.restTicker(ctx, instID)
}

// GetPrices — пачка цен одним REST-проходом (health-срезы, симуляция).
func (c *Client) GetPrices(ctx context.Context, instIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(instIDs))
	for _, id := range instIDs {
		price, _, err := c.GetPrice(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = price
	}
	return out, nil
}

func (c *Client) restTicker(ctx context.Context, instID string) (float64, float64, error) {
	url := c.baseURL + "/api/v5/market/ticker?instId=" + instID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", models.ErrPriceFeedUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", models.ErrPriceFeedUnavailable, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return 0, 0, fmt.Errorf("%w: http %d", models.ErrPriceFeedUnavailable, resp.StatusCode)
	}

	var r struct {
		Code string `json:"code"`
		Data []struct {
			Last    string `json:"last"`
			Open24h string `json:"open24h"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return 0, 0, fmt.Errorf("%w: decode: %v", models.ErrPriceFeedUnavailable, err)
	}
	if r.Code != "0" || len(r.Data) == 0 {
		return 0, 0, fmt.Errorf("%w: code=%s", models.ErrPriceFeedUnavailable, r.Code)
	}

	last, err := strconv.ParseFloat(r.Data[0].Last, 64)
	if err != nil || last <= 0 {
		return 0, 0, fmt.Errorf("%w: bad last price %q", models.ErrPriceFeedUnavailable, r.Data[0].Last)
	}

	var change float64
	if open, err := strconv.ParseFloat(r.Data[0].Open24h, 64); err == nil && open > 0 {
		change = (last - open) / open * 100
	}

	c.storeTick(models.PriceTick{InstID: instID, Price: last, Change24h: change, At: time.Now()})
	return last, change, nil
}

func (c *Client) storeTick(t models.PriceTick) {
	c.mu.Lock()
	c.last[t.InstID] = t
	c.mu.Unlock()
}
