package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"flip_bot/internal/models"

	"github.com/bytedance/sonic"
)

// PlaceMarketOrder — рыночное закрытие набранной позиции (штатный выход
// и аварийный выход идут через него).
func (c *Client) PlaceMarketOrder(
	ctx context.Context,
	instID string,
	side models.Side,
	size float64,
) (string, error) {

	if size <= 0 {
		return "", fmt.Errorf("PlaceMarketOrder: size <= 0")
	}

	body := map[string]string{
		"instId":  instID,
		"tdMode":  "cash",
		"side":    strings.ToLower(string(side)),
		"ordType": "market",
		"sz":      formatSize(size),
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("PlaceMarketOrder marshal: %w", err)
	}

	const requestPath = "/api/v5/trade/order"

	ts := isoTS()
	sign := c.sign(ts, http.MethodPost, requestPath, string(payload))

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+requestPath,
		bytes.NewReader(payload),
	)
	if err != nil {
		return "", fmt.Errorf("PlaceMarketOrder new request: %w", err)
	}
	c.authHeaders(req, ts, sign)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrOrderPlacementFailed, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("%w: http %d: %s", models.ErrOrderPlacementFailed, resp.StatusCode, string(data))
	}

	var r struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			OrdId string `json:"ordId"`
			SCode string `json:"sCode"`
			SMsg  string `json:"sMsg"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return "", fmt.Errorf("PlaceMarketOrder decode: %w; body=%s", err, string(data))
	}

	if len(r.Data) > 0 && r.Data[0].SCode != "0" {
		return "", fmt.Errorf("%w: sCode=%s sMsg=%s", models.ErrOrderPlacementFailed, r.Data[0].SCode, r.Data[0].SMsg)
	}
	if r.Code != "0" {
		return "", fmt.Errorf("%w: code=%s msg=%s", models.ErrOrderPlacementFailed, r.Code, r.Msg)
	}
	if len(r.Data) == 0 || r.Data[0].OrdId == "" {
		return "", fmt.Errorf("%w: empty ordId RAW=%s", models.ErrOrderPlacementFailed, string(data))
	}

	return r.Data[0].OrdId, nil
}
