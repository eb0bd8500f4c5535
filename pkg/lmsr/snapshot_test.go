package lmsr

import (
	"testing"

	"github.com/matryer/is"
)

func TestSnapshotRoundTrip(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	_, err := m.Buy(Yes, 4)
	is.NoErr(err)
	_, err = m.Buy(No, 2)
	is.NoErr(err)

	snap := m.Snapshot()
	is.Equal(snap.Shares, []uint64{4, 2})
	is.Equal(snap.Liquidity, 10.0)
	is.Equal(snap.Resolved, (*BinaryOutcome)(nil))
	is.Equal(snap.MarketVolume, m.Volume())

	revived, err := FromSnapshot(NewBinarySet(), snap)
	is.NoErr(err)
	is.Equal(revived.Shares(), m.Shares())
	is.Equal(revived.Volume(), m.Volume())
	is.Equal(price(t, revived, Yes), price(t, m, Yes))
}

func TestSnapshotRoundTripResolved(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	_, err := m.Buy(Yes, 1)
	is.NoErr(err)
	is.NoErr(m.Resolve(Yes))

	revived, err := FromSnapshot(NewBinarySet(), m.Snapshot())
	is.NoErr(err)

	winner, ok := revived.Resolved()
	is.True(ok)
	is.Equal(winner, Yes)

	_, err = revived.Buy(Yes, 1)
	is.Equal(err, ErrResolved)
}

func TestSnapshotDoesNotAliasLiveState(t *testing.T) {
	is := is.New(t)
	m := newBinaryMarket(t)

	snap := m.Snapshot()
	snap.Shares[0] = 99
	is.Equal(m.Shares(), []uint64{0, 0})
}

func TestFromSnapshotWrongLength(t *testing.T) {
	is := is.New(t)
	_, err := FromSnapshot(NewBinarySet(), Snapshot[BinaryOutcome]{
		Shares: []uint64{1, 2, 3}, Liquidity: 10,
	})
	is.True(err != nil)
}

func TestFromSnapshotBadLiquidity(t *testing.T) {
	is := is.New(t)
	_, err := FromSnapshot(NewBinarySet(), Snapshot[BinaryOutcome]{
		Shares: []uint64{0, 0}, Liquidity: 0,
	})
	is.True(err != nil)
	_, err = FromSnapshot(NewBinarySet(), Snapshot[BinaryOutcome]{
		Shares: []uint64{0, 0}, Liquidity: -1,
	})
	is.True(err != nil)
}

func TestFromSnapshotNegativeVolume(t *testing.T) {
	is := is.New(t)
	_, err := FromSnapshot(NewBinarySet(), Snapshot[BinaryOutcome]{
		Shares: []uint64{0, 0}, Liquidity: 10, MarketVolume: -0.5,
	})
	is.True(err != nil)
}

func TestFromSnapshotUnknownWinner(t *testing.T) {
	is := is.New(t)
	set, err := NewSet("a", "b")
	is.NoErr(err)
	bogus := "c"
	_, err = FromSnapshot(set, Snapshot[string]{
		Shares: []uint64{0, 0}, Liquidity: 10, Resolved: &bogus,
	})
	is.True(err != nil)
}
