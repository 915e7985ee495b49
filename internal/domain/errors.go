package domain

import "github.com/pkg/errors"

// Error kinds surfaced by the core. Callers classify failures with
// errors.Is against these sentinels; wrapped messages carry context.
var (
	// ErrNotFound means the referenced user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the account already exists, or an optimistic
	// commit lost its race and ran out of retries.
	ErrConflict = errors.New("conflict")
	// ErrInvalidQuantity means a non-positive share count was requested.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidState guards against writes that would corrupt the ledger,
	// such as a negative cash balance.
	ErrInvalidState = errors.New("invalid state")
	// ErrInsufficientFunds means the buy cost exceeds the cash balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientShares means the sell exceeds the net held amount.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrUnknownSymbol means the quote provider does not know the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrQuoteUnavailable means the quote provider failed or timed out.
	ErrQuoteUnavailable = errors.New("quote unavailable")
)
