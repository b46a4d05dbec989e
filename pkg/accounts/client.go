package accounts

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
)

// Client is the HTTP implementation of Service, speaking the account
// bot's REST API:
//
//	GET  /accounts/{userID}                -> {"balance": 9500.0, ...}
//	POST /accounts/{userID}/transactions   <- {"amount": -500.0, "description": "..."}
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a Client for the service at baseURL. apiKey, when
// non-empty, is sent as a bearer token.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type balancePayload struct {
	Balance float64 `json:"balance"`
}

type transactionPayload struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// Balance fetches the user's current balance.
func (c *Client) Balance(ctx context.Context, userID string) (Balance, error) {
	var out balancePayload
	err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(userID), nil, &out, "obtain balance", userID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{UserID: userID, Balance: out.Balance}, nil
}

// CreateTransaction posts a signed funds movement and returns the balance
// the service reports afterwards.
func (c *Client) CreateTransaction(ctx context.Context, userID string, amount float64, description string) (Balance, error) {
	body := transactionPayload{Amount: amount, Description: description}
	var out balancePayload
	err := c.do(ctx, http.MethodPost, "/accounts/"+url.PathEscape(userID)+"/transactions", &body, &out, "create transaction", userID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{UserID: userID, Balance: out.Balance}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, op, userID string) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &ServiceError{Op: op, UserID: userID, Err: fmt.Errorf("encode request: %w", err)}
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return &ServiceError{Op: op, UserID: userID, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &ServiceError{Op: op, UserID: userID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ServiceError{
			Op:     op,
			UserID: userID,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(excerpt)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServiceError{Op: op, UserID: userID, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
