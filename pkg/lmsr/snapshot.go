package lmsr

import "fmt"

// A Snapshot is the flat, storable form of a market: the four fields of live
// state, untransformed. It exists only at the persistence boundary; the
// conversion in each direction is the identity on these fields.
type Snapshot[T comparable] struct {
	Shares       []uint64 `json:"shares"`
	Liquidity    float64  `json:"liquidity"`
	Resolved     *T       `json:"resolved,omitempty"`
	MarketVolume float64  `json:"market_volume"`
}

// Snapshot externalizes the market's state for storage.
func (m *Market[T]) Snapshot() Snapshot[T] {
	shares := make([]uint64, len(m.shares))
	copy(shares, m.shares)
	var resolved *T
	if m.resolved != nil {
		r := *m.resolved
		resolved = &r
	}
	return Snapshot[T]{
		Shares:       shares,
		Liquidity:    m.liquidity,
		Resolved:     resolved,
		MarketVolume: m.marketVolume,
	}
}

// FromSnapshot revives a market over the given outcome set from a stored
// record. Malformed records are rejected rather than silently constructing an
// inconsistent market: the share vector must match the set's cardinality, the
// liquidity must be positive, the market volume non-negative, and a resolved
// tag, when present, must belong to the set.
func FromSnapshot[T comparable](set *Set[T], snap Snapshot[T]) (*Market[T], error) {
	if len(snap.Shares) != set.Len() {
		return nil, fmt.Errorf("snapshot has %d share counts for %d outcomes",
			len(snap.Shares), set.Len())
	}
	if snap.Liquidity <= 0 {
		return nil, fmt.Errorf("snapshot liquidity must be positive, got %v", snap.Liquidity)
	}
	if snap.MarketVolume < 0 {
		return nil, fmt.Errorf("snapshot market volume must be non-negative, got %v", snap.MarketVolume)
	}
	var resolved *T
	if snap.Resolved != nil {
		if !set.Contains(*snap.Resolved) {
			return nil, fmt.Errorf("snapshot resolved outcome %v is not in the outcome set", *snap.Resolved)
		}
		r := *snap.Resolved
		resolved = &r
	}
	shares := make([]uint64, len(snap.Shares))
	copy(shares, snap.Shares)
	return &Market[T]{
		set:          set,
		shares:       shares,
		liquidity:    snap.Liquidity,
		resolved:     resolved,
		marketVolume: snap.MarketVolume,
	}, nil
}
