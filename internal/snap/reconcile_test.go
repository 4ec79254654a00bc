package snap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbook.com/internal/book"
)

func TestValidate(t *testing.T) {
	ok := Snap{ExchEpoch: 1, Levels: []Level{
		{Side: book.Bid, Price: 99, Qty: 10},
		{Side: book.Ask, Price: 99, Qty: 10}, // same price, other side is fine
	}}
	assert.NoError(t, ok.Validate())

	dup := Snap{ExchEpoch: 1, Levels: []Level{
		{Side: book.Bid, Price: 99, Qty: 10},
		{Side: book.Bid, Price: 99, Qty: 5},
	}}
	assert.ErrorIs(t, dup.Validate(), ErrDuplicateRow)

	zero := Snap{ExchEpoch: 1, Levels: []Level{{Side: book.Ask, Price: 101, Qty: 0}}}
	assert.ErrorIs(t, zero.Validate(), ErrZeroQtyRow)
}

func TestNext_PlainReplacementWithoutOwnOrders(t *testing.T) {
	s := Snap{ExchEpoch: 10, Levels: []Level{
		{Side: book.Bid, Price: 99, Qty: 30},
		{Side: book.Bid, Price: 98, Qty: 40},
		{Side: book.Ask, Price: 101, Qty: 25},
	}}

	nb, bidRep, askRep, err := Next(s, nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, bidRep)
	assert.Nil(t, askRep)
	require.NoError(t, nb.CheckInvariants())

	bid, ask, spread, err := nb.BBO()
	require.NoError(t, err)
	assert.Equal(t, uint32(99), bid)
	assert.Equal(t, uint32(101), ask)
	assert.Equal(t, uint32(2), spread)
	assert.Equal(t, uint32(40), nb.TotalQtyAt(book.Bid, 98))

	// Materialized rows are synthetic and identifiable as such.
	for _, o := range nb.Orders(book.Bid, 99) {
		assert.True(t, book.IsSynthetic(o.ID))
	}
}

func TestNext_MalformedSnapshotRejected(t *testing.T) {
	s := Snap{ExchEpoch: 10, Levels: []Level{
		{Side: book.Bid, Price: 99, Qty: 30},
		{Side: book.Bid, Price: 99, Qty: 30},
	}}
	_, _, _, err := Next(s, nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateRow)
}

func TestNext_OffsetSideMismatch(t *testing.T) {
	off := book.QueueOffset{Side: book.Ask, Price: 100, OwnQty: 10, OrderID: 1}
	_, _, _, err := Next(Snap{ExchEpoch: 1}, &off, nil, nil, nil)
	assert.ErrorIs(t, err, ErrOffsetSide)
}

func TestNext_PreservesQueuePositionShrinkFromTail(t *testing.T) {
	off := book.QueueOffset{
		Side: book.Bid, Price: 100,
		QtyAhead: 20, OwnQty: 10, QtyBehind: 15,
		OrderID: 7, CreatedAt: 3,
	}
	s := Snap{ExchEpoch: 11, Levels: []Level{
		{Side: book.Bid, Price: 100, Qty: 40},
		{Side: book.Ask, Price: 102, Qty: 25},
	}}

	nb, bidRep, askRep, err := Next(s, &off, nil, PassiveOnly, TailFirst)
	require.NoError(t, err)
	assert.Nil(t, askRep)
	require.NotNil(t, bidRep)
	assert.Equal(t, book.StatusCreated, bidRep.Status)
	require.NoError(t, nb.CheckInvariants())

	// The own order is live with its identity and quantity intact.
	own, ok := nb.GetOrder(7)
	require.True(t, ok)
	assert.Equal(t, uint32(10), own.Qty)
	assert.Equal(t, uint64(3), own.CreatedAt)

	got, err := nb.Offset(7)
	require.NoError(t, err)
	assert.Equal(t, uint32(20), got.QtyAhead)
	assert.Equal(t, uint32(10), got.QtyBehind, "deficit of 5 comes off the tail")
	assert.Equal(t, uint32(40), nb.TotalQtyAt(book.Bid, 100), "level matches the snapshot aggregate")
}

func TestNext_VanishedOwnLevelReadsAsZero(t *testing.T) {
	off := book.QueueOffset{
		Side: book.Bid, Price: 100,
		QtyAhead: 20, OwnQty: 10, QtyBehind: 15,
		OrderID: 7,
	}
	// Depth window no longer covers price 100 on the bid side.
	s := Snap{ExchEpoch: 12, Levels: []Level{
		{Side: book.Bid, Price: 95, Qty: 30},
		{Side: book.Ask, Price: 102, Qty: 25},
	}}

	nb, bidRep, _, err := Next(s, &off, nil, PassiveOnly, TailFirst)
	require.NoError(t, err)
	require.NotNil(t, bidRep)

	got, err := nb.Offset(7)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.QtyAhead, "no filler survives a vanished level")
	assert.Equal(t, uint32(0), got.QtyBehind)
	assert.Equal(t, uint32(10), got.OwnQty, "own quantity is never cut by reconciliation")
}

func TestNext_BothSidesCarried(t *testing.T) {
	bidOff := book.QueueOffset{Side: book.Bid, Price: 100, QtyAhead: 5, OwnQty: 10, QtyBehind: 0, OrderID: 7}
	askOff := book.QueueOffset{Side: book.Ask, Price: 103, QtyAhead: 8, OwnQty: 10, QtyBehind: 2, OrderID: 9}
	s := Snap{ExchEpoch: 13, Levels: []Level{
		{Side: book.Bid, Price: 100, Qty: 15},
		{Side: book.Ask, Price: 103, Qty: 20},
	}}

	nb, bidRep, askRep, err := Next(s, &bidOff, &askOff, PassiveOnly, TailFirst)
	require.NoError(t, err)
	require.NotNil(t, bidRep)
	require.NotNil(t, askRep)
	require.NoError(t, nb.CheckInvariants())

	gotBid, err := nb.Offset(7)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), gotBid.QtyAhead)
	assert.Equal(t, uint32(0), gotBid.QtyBehind)

	gotAsk, err := nb.Offset(9)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), gotAsk.QtyAhead)
	assert.Equal(t, uint32(2), gotAsk.QtyBehind)
}

func TestNext_PassiveOnlyDropsCrossingOwnOrder(t *testing.T) {
	// Market moved through the own bid: new best ask is at or below it.
	off := book.QueueOffset{Side: book.Bid, Price: 100, QtyAhead: 0, OwnQty: 10, QtyBehind: 0, OrderID: 7}
	s := Snap{ExchEpoch: 14, Levels: []Level{
		{Side: book.Bid, Price: 97, Qty: 30},
		{Side: book.Ask, Price: 99, Qty: 25},
	}}

	nb, bidRep, _, err := Next(s, &off, nil, PassiveOnly, TailFirst)
	require.NoError(t, err)
	require.NotNil(t, bidRep)
	assert.Equal(t, book.StatusFilled, bidRep.Status, "disappearance is the fill signal")
	assert.Equal(t, uint32(0), bidRep.RemainingQty)
	assert.Empty(t, bidRep.Fills, "passive mode observes no explicit fills")
	assert.Equal(t, uint64(7), bidRep.OwnID)
	assert.Equal(t, book.Bid, bidRep.OwnSide)

	_, live := nb.GetOrder(7)
	assert.False(t, live)
	assert.Equal(t, uint32(25), nb.TotalQtyAt(book.Ask, 99), "opposite side untouched in passive mode")
}

func TestNext_AllowCrossExecutesOwnOrder(t *testing.T) {
	off := book.QueueOffset{Side: book.Bid, Price: 100, QtyAhead: 0, OwnQty: 10, QtyBehind: 0, OrderID: 7}
	s := Snap{ExchEpoch: 15, Levels: []Level{
		{Side: book.Bid, Price: 97, Qty: 30},
		{Side: book.Ask, Price: 99, Qty: 4},
		{Side: book.Ask, Price: 101, Qty: 25},
	}}

	nb, bidRep, _, err := Next(s, &off, nil, AllowCross, TailFirst)
	require.NoError(t, err)
	require.NotNil(t, bidRep)
	assert.Equal(t, book.StatusPartiallyFilled, bidRep.Status)
	require.Len(t, bidRep.Fills, 1)
	assert.Equal(t, uint32(4), bidRep.Fills[0].Qty)
	assert.Equal(t, uint32(99), bidRep.Fills[0].Price)

	own, live := nb.GetOrder(7)
	require.True(t, live)
	assert.Equal(t, uint32(6), own.Qty, "remainder rests at the own price")
	assert.Equal(t, uint32(0), nb.TotalQtyAt(book.Ask, 99), "crossed level was consumed")
}

// Round trip through a real book: build, read the offset, reconcile, and the
// relative position survives.
func TestNext_RoundTripFromLiveBook(t *testing.T) {
	b := book.New()
	_, err := b.AddLimitOrder(book.Order{ID: book.SnapRowID(1000), Side: book.Bid, Price: 100, Qty: 20})
	require.NoError(t, err)
	_, err = b.AddLimitOrder(book.Order{ID: 7, Side: book.Bid, Price: 100, Qty: 10, CreatedAt: 5})
	require.NoError(t, err)
	_, err = b.AddLimitOrder(book.Order{ID: book.SnapRowID(1001), Side: book.Bid, Price: 100, Qty: 15})
	require.NoError(t, err)

	off, err := b.Offset(7)
	require.NoError(t, err)

	s := Snap{ExchEpoch: 16, Levels: []Level{
		{Side: book.Bid, Price: 100, Qty: 25},
		{Side: book.Ask, Price: 102, Qty: 40},
	}}
	nb, _, _, err := Next(s, &off, nil, PassiveOnly, TailFirst)
	require.NoError(t, err)

	got, err := nb.Offset(7)
	require.NoError(t, err)
	assert.Equal(t, uint32(15), got.QtyAhead, "tail exhausted, remaining deficit cuts the head")
	assert.Equal(t, uint32(0), got.QtyBehind)
	assert.Equal(t, uint64(5), got.CreatedAt)
}
