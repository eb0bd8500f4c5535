package lmsr

// A MarketMaker prices and trades a fixed set of mutually exclusive outcomes.
// Implementations other than the LMSR Market can be substituted at call sites
// that only need this contract.
type MarketMaker[T comparable] interface {
	// Price returns the instantaneous price of an outcome.
	Price(outcome T) (float64, error)

	// Buy purchases shares of an outcome and returns the cost charged.
	Buy(outcome T, amount uint64) (float64, error)

	// Sell sells shares of an outcome back and returns the proceeds.
	Sell(outcome T, amount uint64) (float64, error)

	// Resolve permanently fixes the winning outcome.
	Resolve(winner T) error

	// PayoutPerShare returns the payout per share for a given outcome after
	// resolution.
	PayoutPerShare(outcome T) (float64, error)
}

var _ MarketMaker[BinaryOutcome] = (*Market[BinaryOutcome])(nil)
