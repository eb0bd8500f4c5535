package lmsr

import (
	"math"
	"testing"

	"github.com/matryer/is"
)

const Epsilon = 1e-5

func withinEpsilon(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

func newBinaryMarket(t *testing.T) *Market[BinaryOutcome] {
	t.Helper()
	m, err := NewMarket(NewBinarySet(), 10.0)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func price[T comparable](t *testing.T, m *Market[T], outcome T) float64 {
	t.Helper()
	p, err := m.Price(outcome)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewMarketRejectsBadLiquidity(t *testing.T) {
	is := is.New(t)
	_, err := NewMarket(NewBinarySet(), 0)
	is.True(err != nil)
	_, err = NewMarket(NewBinarySet(), -5)
	is.True(err != nil)
}

func TestNewMarketEqualPrices(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)
	is.Equal(price(t, m, Yes), 0.5)
	is.Equal(price(t, m, No), 0.5)
}

func TestPriceKnownValue(t *testing.T) {
	is := is.New(t)
	set, err := NewSet("a", "b", "c")
	is.NoErr(err)
	m, err := FromSnapshot(set, Snapshot[string]{
		Shares: []uint64{10, 20, 23}, Liquidity: 10,
	})
	is.NoErr(err)
	is.True(withinEpsilon(price(t, m, "a"), 0.13536235))
}

func TestPriceLiquidityScaleInvariance(t *testing.T) {
	is := is.New(t)
	set, err := NewSet("a", "b", "c")
	is.NoErr(err)
	m, err := FromSnapshot(set, Snapshot[string]{
		Shares: []uint64{100, 200, 230}, Liquidity: 100,
	})
	is.NoErr(err)
	is.True(withinEpsilon(price(t, m, "a"), 0.13536235))
}

func TestPricesSumToOne(t *testing.T) {
	is := is.New(t)
	set, err := NewSet("a", "b", "c", "d")
	is.NoErr(err)
	m, err := NewMarket(set, 10.0)
	is.NoErr(err)

	_, err = m.Buy("a", 3)
	is.NoErr(err)
	_, err = m.Buy("c", 11)
	is.NoErr(err)

	sum := float64(0)
	for _, o := range m.Outcomes() {
		p := price(t, m, o)
		is.True(p > 0 && p < 1)
		sum += p
	}
	is.True(withinEpsilon(sum, 1.0))
}

func TestBuyKnownCost(t *testing.T) {
	is := is.New(t)
	set, err := NewSet("a", "b", "c")
	is.NoErr(err)
	m, err := FromSnapshot(set, Snapshot[string]{
		Shares: []uint64{10, 20, 23}, Liquidity: 10,
	})
	is.NoErr(err)

	cost, err := m.Buy("a", 7)
	is.NoErr(err)
	is.True(withinEpsilon(cost, 1.28590162))
	is.True(withinEpsilon(m.Volume(), 1.28590162))
}

func TestBuyRaisesPrice(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	_, err := m.Buy(Yes, 1)
	is.NoErr(err)
	is.True(price(t, m, Yes) > price(t, m, No))
}

func TestBuySellNoImpactOnMarket(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	_, err := m.Buy(Yes, 1)
	is.NoErr(err)
	_, err = m.Sell(Yes, 1)
	is.NoErr(err)

	is.Equal(price(t, m, Yes), price(t, m, No))
	is.Equal(m.Shares(), []uint64{0, 0})
}

func TestBuySellNoImpactOnTrader(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	cost, err := m.Buy(Yes, 1)
	is.NoErr(err)
	proceeds, err := m.Sell(Yes, 1)
	is.NoErr(err)
	is.Equal(cost, proceeds)
}

func TestSellMoreThanHeld(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	_, err := m.Sell(Yes, 1)
	is.Equal(err, ErrInsufficientShares)
	is.Equal(m.Shares(), []uint64{0, 0})
	is.Equal(m.Volume(), 0.0)

	_, err = m.Buy(Yes, 3)
	is.NoErr(err)
	before := m.Volume()
	_, err = m.Sell(Yes, 4)
	is.Equal(err, ErrInsufficientShares)
	is.Equal(m.Shares(), []uint64{3, 0})
	is.Equal(m.Volume(), before)
}

func TestSellNegativeCapitalization(t *testing.T) {
	is := is.New(t)
	// A stored record whose volume understates what the sale would pay out;
	// the guard must reject the sale rather than let the ledger go negative.
	m, err := FromSnapshot(NewBinarySet(), Snapshot[BinaryOutcome]{
		Shares: []uint64{10, 0}, Liquidity: 10, MarketVolume: 0.1,
	})
	is.NoErr(err)

	_, err = m.Sell(Yes, 10)
	is.Equal(err, ErrNegativeMarketCapitalization)
	is.Equal(m.Shares(), []uint64{10, 0})
	is.Equal(m.Volume(), 0.1)
}

func TestTradeAfterResolve(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	_, err := m.Buy(Yes, 2)
	is.NoErr(err)
	is.NoErr(m.Resolve(Yes))

	volume := m.Volume()
	_, err = m.Buy(Yes, 1)
	is.Equal(err, ErrResolved)
	_, err = m.Sell(Yes, 1)
	is.Equal(err, ErrResolved)
	is.Equal(m.Shares(), []uint64{2, 0})
	is.Equal(m.Volume(), volume)
}

func TestResolveTwice(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	is.NoErr(m.Resolve(Yes))
	err := m.Resolve(No)
	is.Equal(err, ErrResolved)

	winner, ok := m.Resolved()
	is.True(ok)
	is.Equal(winner, Yes)
}

func TestMarketPayoutSameOne(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	cost, err := m.Buy(Yes, 1)
	is.NoErr(err)
	is.NoErr(m.Resolve(Yes))

	payout, err := m.PayoutPerShare(Yes)
	is.NoErr(err)
	is.Equal(cost, payout)
}

func TestMarketPayoutSameMultiple(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	cost, err := m.Buy(Yes, 8)
	is.NoErr(err)
	is.NoErr(m.Resolve(Yes))

	payout, err := m.PayoutPerShare(Yes)
	is.NoErr(err)
	is.True(withinEpsilon(cost, payout*8))
}

func TestMarketPayoutDifferentMultiple(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	cost, err := m.Buy(Yes, 4)
	is.NoErr(err)
	noCost, err := m.Buy(No, 5)
	is.NoErr(err)
	cost += noCost
	is.NoErr(m.Resolve(Yes))

	payout, err := m.PayoutPerShare(Yes)
	is.NoErr(err)
	is.True(withinEpsilon(cost, payout*4))
}

func TestMarketPayoutDifferentMultipleWithSell(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	cost, err := m.Buy(Yes, 4)
	is.NoErr(err)
	noCost, err := m.Buy(No, 5)
	is.NoErr(err)
	cost += noCost
	proceeds, err := m.Sell(No, 1)
	is.NoErr(err)
	cost -= proceeds
	is.NoErr(m.Resolve(Yes))

	payout, err := m.PayoutPerShare(Yes)
	is.NoErr(err)
	is.True(withinEpsilon(cost, payout*4))
}

func TestPayoutZeroShares(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	_, err := m.Buy(No, 2)
	is.NoErr(err)
	is.NoErr(m.Resolve(Yes))

	_, err = m.PayoutPerShare(Yes)
	is.Equal(err, ErrInsufficientShares)
}

func TestUnknownOutcomePanics(t *testing.T) {
	set, err := NewSet("a", "b")
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewMarket(set, 10.0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for an outcome outside the set")
		}
	}()
	_, _ = m.Price("nope")
}
