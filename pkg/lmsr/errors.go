package lmsr

import "errors"

// The three recoverable failure modes of a market. All are returned as plain
// values from the operation that detects them; the market is left exactly as
// it was before the call.
var (
	// ErrInsufficientShares is returned when selling more shares than are
	// outstanding for an outcome, or when querying the payout of an outcome
	// with zero shares issued.
	ErrInsufficientShares = errors.New("lmsr: insufficient shares")

	// ErrResolved is returned when a trade or a second resolution is
	// attempted after the market's winning outcome has been fixed.
	ErrResolved = errors.New("lmsr: market already resolved")

	// ErrNegativeMarketCapitalization is returned when a sale's proceeds
	// would drive the market's net collected funds below zero.
	ErrNegativeMarketCapitalization = errors.New("lmsr: market capitalization would go negative")
)
