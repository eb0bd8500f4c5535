package marketapi

import "github.com/domino14/marketmaker/pkg/lmsr"

// Market is the stored record of a market.
type Market struct {
	ID              string  `json:"id"`
	Description     string  `json:"description"`
	Liquidity       float64 `json:"liquidity"`
	MarketVolume    float64 `json:"market_volume"`
	ResolvedOutcome string  `json:"resolved_outcome,omitempty"`
	IsOpen          bool    `json:"is_open"`
	DateCreated     string  `json:"date_created"`
	DateClosed      string  `json:"date_closed,omitempty"`
}

// Outcome is one member of a market's outcome set, index-aligned with the
// engine's share vector. LastPrice is quoted in cents (0-100).
type Outcome struct {
	Tag       string  `json:"tag"`
	Index     int     `json:"index"`
	Shares    uint64  `json:"shares"`
	LastPrice float64 `json:"last_price"`
}

// Order is one executed trade in a market's order book.
type Order struct {
	ID          string  `json:"id"`
	MarketID    string  `json:"market_id"`
	OutcomeTag  string  `json:"outcome_tag"`
	Side        string  `json:"side"`
	Amount      uint64  `json:"amount"`
	Cost        float64 `json:"cost"`
	DateCreated string  `json:"date_created"`
}

// MarketSnapshot pairs a market's engine snapshot with its outcome tags so it
// can be stored or shipped as a single record.
type MarketSnapshot struct {
	MarketID string                `json:"market_id"`
	Outcomes []string              `json:"outcomes"`
	Record   lmsr.Snapshot[string] `json:"record"`
}
