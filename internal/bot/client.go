package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/henryhwan14/DISCORDBOT/internal/model"
)

// APIError is a non-2xx backend response. Detail carries the backend's
// {"detail": ...} text when present, otherwise a body excerpt.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with %d", e.Status)
}

// Client is a thin HTTP client for the trading backend's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Quotes fetches every simulated symbol's current quote.
func (c *Client) Quotes(ctx context.Context) ([]model.Quote, error) {
	var quotes []model.Quote
	if err := c.do(ctx, http.MethodGet, "/api/stocks", nil, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// Quote fetches one symbol's current quote.
func (c *Client) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	var quote model.Quote
	err := c.do(ctx, http.MethodGet, "/api/stocks/"+url.PathEscape(symbol), nil, &quote)
	return quote, err
}

// Portfolio fetches a user's positions and realized PnL.
func (c *Client) Portfolio(ctx context.Context, userID string) (model.Portfolio, error) {
	var portfolio model.Portfolio
	err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/portfolio", nil, &portfolio)
	return portfolio, err
}

// Trade submits a buy or sell order.
func (c *Client) Trade(ctx context.Context, userID, symbol string, side model.Side, quantity float64) (model.TradeResult, error) {
	payload := map[string]interface{}{
		"user_id":  userID,
		"symbol":   symbol,
		"side":     string(side),
		"quantity": quantity,
	}
	var result model.TradeResult
	err := c.do(ctx, http.MethodPost, "/api/trades", payload, &result)
	return result, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		apiErr := &APIError{Status: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(raw, &detail) == nil && detail.Detail != "" {
			apiErr.Detail = detail.Detail
		} else {
			apiErr.Detail = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
