package trading

import "errors"

// Business failures are ordinary return values, not panics. Callers match
// with errors.Is; the handler layer maps each to an HTTP status.
var (
	// ErrValidation: malformed input, rejected before any mutation.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds: buy/withdraw exceeds available cash; no state change.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares: sell exceeds held quantity; no state change.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrInvalidState: operation not allowed from the entity's current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound: unknown portfolio/order/instrument id.
	ErrNotFound = errors.New("not found")

	// ErrDataUnavailable: no price for the requested date. Sweeps skip and
	// retry; valuations report the instrument as unpriced.
	ErrDataUnavailable = errors.New("no price data available")
)
