package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

// CancelOrder снимает лимитку. ok=true только при подтверждённой отмене —
// аварийный выход ретраит до подтверждения каждого ордера.
// Уже исполненный/несуществующий ордер считается отменённым (идемпотентность).
func (c *Client) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	if orderID == "" {
		return false, fmt.Errorf("CancelOrder: empty orderID")
	}

	body := map[string]string{
		"ordId": orderID,
	}
	payload, err := sonic.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("CancelOrder marshal: %w", err)
	}

	const requestPath = "/api/v5/trade/cancel-order"

	ts := isoTS()
	sign := c.sign(ts, http.MethodPost, requestPath, string(payload))

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+requestPath,
		bytes.NewReader(payload),
	)
	if err != nil {
		return false, fmt.Errorf("CancelOrder new request: %w", err)
	}
	c.authHeaders(req, ts, sign)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("CancelOrder do: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode/100 != 2 {
		return false, fmt.Errorf("CancelOrder http %d: %s", resp.StatusCode, string(data))
	}

	var r struct {
		Code string `json:"code"`
		Data []struct {
			SCode string `json:"sCode"`
			SMsg  string `json:"sMsg"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return false, fmt.Errorf("CancelOrder decode: %w; body=%s", err, string(data))
	}

	if len(r.Data) > 0 {
		switch r.Data[0].SCode {
		case "0":
			return true, nil
		case "51400", "51401", "51402": // order already filled / canceled / does not exist
			return true, nil
		default:
			return false, fmt.Errorf("CancelOrder rejected: sCode=%s sMsg=%s", r.Data[0].SCode, r.Data[0].SMsg)
		}
	}
	return r.Code == "0", nil
}
