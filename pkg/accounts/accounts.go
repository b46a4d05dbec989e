// Package accounts talks to the external account service that owns user
// balances. The trading backend never stores cash itself: it reads
// balances and posts signed transactions through the Service interface.
package accounts

import (
	"context"
	"fmt"
	"time"
)

// DefaultStartingBalance seeds in-memory accounts when no explicit
// balance is configured.
const DefaultStartingBalance = 10_000.0

// Balance is the account service's view of one user's funds.
type Balance struct {
	UserID  string  `json:"user_id"`
	Balance float64 `json:"balance"`
}

// Service is the contract the trade engine needs from the account system:
// read a balance and move funds. A negative amount debits the account.
type Service interface {
	Balance(ctx context.Context, userID string) (Balance, error)
	CreateTransaction(ctx context.Context, userID string, amount float64, description string) (Balance, error)
}

// ServiceError reports a failed account-service call: a transport error,
// or a response with status >= 400. Its message is surfaced to API and
// chat clients.
type ServiceError struct {
	Op     string // "obtain balance" or "create transaction"
	UserID string
	Status int    // HTTP status, 0 on transport errors
	Body   string // response body excerpt, empty on transport errors
	Err    error  // transport/decode error, nil on status errors
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Failed to %s for %s: %v", e.Op, e.UserID, e.Err)
	}
	return fmt.Sprintf("Failed to %s for %s: %d %s", e.Op, e.UserID, e.Status, e.Body)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// New selects a Service implementation: an HTTP client when baseURL is
// set, otherwise an in-memory service for development.
func New(baseURL, apiKey string, timeout time.Duration) Service {
	if baseURL != "" {
		return NewClient(baseURL, apiKey, timeout)
	}
	return NewMemory(DefaultStartingBalance)
}
