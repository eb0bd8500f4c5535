// package lmsr implements a Logarithmic Market Scoring Rule market maker.

package lmsr

import (
	"fmt"
	"math"
)

const DefaultLiquidity = float64(100.0)

// A Market continuously prices a fixed set of mutually exclusive outcomes
// using the LMSR cost function. It tracks the cumulative shares purchased of
// each outcome, the net funds collected from traders, and, once resolved, the
// winning outcome. A Market is a plain mutable value with no internal
// locking; callers that share an instance across goroutines must serialize
// access themselves.
type Market[T comparable] struct {
	set          *Set[T]
	shares       []uint64
	liquidity    float64
	resolved     *T
	marketVolume float64
}

// NewMarket creates an unresolved market over the given outcome set with zero
// shares outstanding. The liquidity constant b controls price sensitivity and
// the market operator's maximum loss; it must be positive and is fixed for
// the market's lifetime.
func NewMarket[T comparable](set *Set[T], liquidity float64) (*Market[T], error) {
	if liquidity <= 0 {
		return nil, fmt.Errorf("liquidity must be positive, got %v", liquidity)
	}
	return &Market[T]{
		set:       set,
		shares:    make([]uint64, set.Len()),
		liquidity: liquidity,
	}, nil
}

// cost is the LMSR potential b * ln(Σ exp(q_i / b)). Differences of this
// function between two share vectors define trade cost; its gradient defines
// the instantaneous prices.
func (m *Market[T]) cost(shares []uint64) float64 {
	sum := float64(0)
	for _, q := range shares {
		sum += math.Exp(float64(q) / m.liquidity)
	}
	return m.liquidity * math.Log(sum)
}

// Price returns the instantaneous price of an outcome: the softmax of the
// share vector at that outcome's index. Prices lie strictly in (0, 1) and sum
// to 1 across the outcome set. Price never mutates the market and remains
// defined after resolution, against the frozen shares.
func (m *Market[T]) Price(outcome T) (float64, error) {
	i := m.set.IndexOf(outcome)

	num := math.Exp(float64(m.shares[i]) / m.liquidity)
	sum := float64(0)
	for _, q := range m.shares {
		sum += math.Exp(float64(q) / m.liquidity)
	}
	return num / sum, nil
}

// Buy purchases amount shares of an outcome. The cost charged to the trader
// is the increase in the cost function; it is returned and added to the
// market volume. Fails with ErrResolved once the market has a winner.
func (m *Market[T]) Buy(outcome T, amount uint64) (float64, error) {
	if m.resolved != nil {
		return 0, ErrResolved
	}
	i := m.set.IndexOf(outcome)

	costBefore := m.cost(m.shares)
	newShares := make([]uint64, len(m.shares))
	copy(newShares, m.shares)
	newShares[i] += amount
	costAfter := m.cost(newShares)

	m.shares = newShares
	m.marketVolume += costAfter - costBefore
	return costAfter - costBefore, nil
}

// Sell sells amount previously issued shares of an outcome back to the
// market. The proceeds owed to the trader are the decrease in the cost
// function; they are returned and subtracted from the market volume. Fails
// with ErrResolved after resolution, with ErrInsufficientShares when amount
// exceeds the shares outstanding for the outcome, and with
// ErrNegativeMarketCapitalization if paying the proceeds would drive the
// market volume below zero. On any failure the market is left unchanged.
func (m *Market[T]) Sell(outcome T, amount uint64) (float64, error) {
	if m.resolved != nil {
		return 0, ErrResolved
	}
	i := m.set.IndexOf(outcome)
	if amount > m.shares[i] {
		return 0, ErrInsufficientShares
	}

	costBefore := m.cost(m.shares)
	newShares := make([]uint64, len(m.shares))
	copy(newShares, m.shares)
	newShares[i] -= amount
	costAfter := m.cost(newShares)

	proceeds := costBefore - costAfter
	if m.marketVolume-proceeds < 0 {
		return 0, ErrNegativeMarketCapitalization
	}
	m.shares = newShares
	m.marketVolume -= proceeds
	return proceeds, nil
}

// Resolve permanently fixes the winning outcome. It may be called at most
// once; a second call fails with ErrResolved and leaves the original winner
// in place. Buy and Sell are rejected from this point on.
func (m *Market[T]) Resolve(winner T) error {
	if m.resolved != nil {
		return ErrResolved
	}
	m.set.IndexOf(winner)
	w := winner
	m.resolved = &w
	return nil
}

// PayoutPerShare returns the funds owed per share of the given outcome: the
// market volume divided by the shares outstanding for it. Fails with
// ErrInsufficientShares when no shares of the outcome were ever issued. The
// ratio is only meaningful for the resolved winner; callers are responsible
// for querying the right outcome.
func (m *Market[T]) PayoutPerShare(outcome T) (float64, error) {
	i := m.set.IndexOf(outcome)
	amount := m.shares[i]
	if amount == 0 {
		return 0, ErrInsufficientShares
	}
	return m.marketVolume / float64(amount), nil
}

// Liquidity returns the market's liquidity constant b.
func (m *Market[T]) Liquidity() float64 {
	return m.liquidity
}

// Volume returns the net funds the market has collected from traders.
func (m *Market[T]) Volume() float64 {
	return m.marketVolume
}

// Shares returns a copy of the outstanding share counts, index-aligned with
// the outcome set.
func (m *Market[T]) Shares() []uint64 {
	shares := make([]uint64, len(m.shares))
	copy(shares, m.shares)
	return shares
}

// Resolved returns the winning outcome and true once the market has been
// resolved.
func (m *Market[T]) Resolved() (T, bool) {
	if m.resolved == nil {
		var zero T
		return zero, false
	}
	return *m.resolved, true
}

// Outcomes returns the market's outcome tags in index order.
func (m *Market[T]) Outcomes() []T {
	return m.set.Outcomes()
}
