package accounts

import (
	"context"
	"sync"
)

// Memory is an in-process Service used for development and tests. Every
// user starts at the configured balance the first time they are seen.
// Memory applies any transaction it is given; the trade engine is the one
// enforcing funds before a debit.
type Memory struct {
	mu       sync.Mutex
	initial  float64
	balances map[string]float64
}

// NewMemory creates a Memory service with the given starting balance.
func NewMemory(initialBalance float64) *Memory {
	return &Memory{
		initial:  initialBalance,
		balances: make(map[string]float64),
	}
}

func (m *Memory) Balance(_ context.Context, userID string) (Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Balance{UserID: userID, Balance: m.balanceLocked(userID)}, nil
}

func (m *Memory) CreateTransaction(_ context.Context, userID string, amount float64, _ string) (Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.balanceLocked(userID) + amount
	m.balances[userID] = b
	return Balance{UserID: userID, Balance: b}, nil
}

func (m *Memory) balanceLocked(userID string) float64 {
	if b, ok := m.balances[userID]; ok {
		return b
	}
	m.balances[userID] = m.initial
	return m.initial
}
