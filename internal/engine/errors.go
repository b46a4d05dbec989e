package engine

import "fmt"

// InvalidQuantityError reports a trade request with a non-positive (or
// non-finite) quantity. The message is surfaced verbatim to API and chat
// clients.
type InvalidQuantityError struct {
	Quantity float64
}

func (e *InvalidQuantityError) Error() string {
	return "Quantity must be positive"
}

// InsufficientFundsError reports a buy whose cost exceeds the user's
// balance. Nothing has been mutated when this error is returned. The
// message is surfaced verbatim to API and chat clients.
type InsufficientFundsError struct {
	Required  float64
	Available float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("Insufficient funds: required %.2f, available %.2f", e.Required, e.Available)
}
