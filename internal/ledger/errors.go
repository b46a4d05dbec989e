package ledger

import "fmt"

// PositionNotFoundError reports a sell against a symbol the user does not
// hold. The message is surfaced verbatim to API and chat clients.
type PositionNotFoundError struct {
	UserID string
	Symbol string
}

func (e *PositionNotFoundError) Error() string {
	return fmt.Sprintf("User has no position in %s", e.Symbol)
}

// QuantityExceedsPositionError reports a sell for more than the held
// quantity. The message is surfaced verbatim to API and chat clients.
type QuantityExceedsPositionError struct {
	Symbol    string
	Requested float64
	Held      float64
}

func (e *QuantityExceedsPositionError) Error() string {
	return fmt.Sprintf("Cannot sell %v shares, current position holds %v", e.Requested, e.Held)
}

// StoreIOError reports a failed write of the backing document. The
// in-memory state has been rolled back to the pre-mutation record when
// this error is returned.
type StoreIOError struct {
	Path string
	Err  error
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("position store write failed: %s: %v", e.Path, e.Err)
}

func (e *StoreIOError) Unwrap() error { return e.Err }
