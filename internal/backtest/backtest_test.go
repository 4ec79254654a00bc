package backtest

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbook.com/internal/account"
	"tickbook.com/internal/book"
	"tickbook.com/internal/oms"
	"tickbook.com/internal/snap"
	"tickbook.com/internal/strategy"
)

type memSnaps struct{ snaps []snap.Snap }

func (m *memSnaps) Next() (snap.Snap, error) {
	if len(m.snaps) == 0 {
		return snap.Snap{}, io.EOF
	}
	s := m.snaps[0]
	m.snaps = m.snaps[1:]
	return s, nil
}

type memOrders struct{ orders []book.Order }

func (m *memOrders) Next() (book.Order, error) {
	if len(m.orders) == 0 {
		return book.Order{}, io.EOF
	}
	o := m.orders[0]
	m.orders = m.orders[1:]
	return o, nil
}

func newTestRunner() *Runner {
	strat := strategy.NewFixSpread(strategy.DefaultTicker())
	strat.BuyCriterion = -0.01
	strat.SellCriterion = 0.01
	strat.Qty = 10
	strat.BuyPositionLimit = 100
	strat.SellPositionLimit = -100
	m := oms.New(strat, account.New(decimal.Zero), nil)
	return NewRunner(m, snap.TailFirst, "test", nil)
}

func TestRun_EmptySnapStream(t *testing.T) {
	r := newTestRunner()
	_, err := r.Run(context.Background(), &memSnaps{}, &memOrders{})
	assert.Error(t, err)
}

func TestRun_QuoteFillAndMarkToMarket(t *testing.T) {
	r := newTestRunner()

	snaps := &memSnaps{snaps: []snap.Snap{
		{ExchEpoch: 1000, Levels: []snap.Level{
			{Side: book.Bid, Price: 99, Qty: 50},
			{Side: book.Ask, Price: 101, Qty: 50},
		}},
		{ExchEpoch: 2000, Levels: []snap.Level{
			{Side: book.Bid, Price: 99, Qty: 8},
			{Side: book.Ask, Price: 101, Qty: 60},
		}},
	}}
	orders := &memOrders{orders: []book.Order{
		// Stale order predating the first snapshot is skipped.
		{ID: 500, Side: book.Ask, Price: 99, Qty: 99, CreatedAt: 500},
		// Sweeps the 99 bid level: 50 synthetic, then 5 of our 10.
		{ID: 1500, Side: book.Ask, Price: 99, Qty: 55, CreatedAt: 1500},
	}}

	res, err := r.Run(context.Background(), snaps, orders)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), res.Snaps)
	assert.Equal(t, uint64(1), res.Orders, "stale order must not count as replayed")
	assert.Equal(t, uint64(1), res.Trades)
	assert.Equal(t, uint64(5), res.Volume)
	assert.Equal(t, int64(5), res.Position)

	// Cash -5*99, marked back at the final mid of 100.
	assert.Equal(t, 100.0, res.FinalMid)
	assert.Equal(t, "5", res.PnL.String())
	assert.Equal(t, "100.0000", res.PnLBps.StringFixed(4))

	require.NoError(t, r.Book().CheckInvariants())
}

func TestRun_OwnQuotesSurviveReconciliation(t *testing.T) {
	r := newTestRunner()

	snaps := &memSnaps{snaps: []snap.Snap{
		{ExchEpoch: 1000, Levels: []snap.Level{
			{Side: book.Bid, Price: 99, Qty: 50},
			{Side: book.Ask, Price: 101, Qty: 50},
		}},
		{ExchEpoch: 2000, Levels: []snap.Level{
			{Side: book.Bid, Price: 99, Qty: 55},
			{Side: book.Ask, Price: 101, Qty: 70},
		}},
	}}

	res, err := r.Run(context.Background(), snaps, &memOrders{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Position)

	// The bid quote from epoch 1000 was carried across the snapshot. It had 50
	// synthetic units ahead and none behind, so the level's shrink from 60 to
	// 55 must come off the head.
	b := r.Book()
	bidID, ok := findOwnOrder(b, book.Bid, 99)
	require.True(t, ok)
	off, err := b.Offset(bidID)
	require.NoError(t, err)
	assert.Equal(t, uint32(45), off.QtyAhead)
	assert.Equal(t, uint32(10), off.OwnQty)
	assert.Equal(t, uint32(55), b.TotalQtyAt(book.Bid, 99), "level matches the snapshot aggregate")
}

func TestRun_ContextCancelled(t *testing.T) {
	r := newTestRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snaps := &memSnaps{snaps: []snap.Snap{
		{ExchEpoch: 1000, Levels: []snap.Level{
			{Side: book.Bid, Price: 99, Qty: 50},
			{Side: book.Ask, Price: 101, Qty: 50},
		}},
		{ExchEpoch: 2000, Levels: []snap.Level{
			{Side: book.Bid, Price: 99, Qty: 50},
			{Side: book.Ask, Price: 101, Qty: 50},
		}},
	}}
	_, err := r.Run(ctx, snaps, &memOrders{})
	assert.ErrorIs(t, err, context.Canceled)
}

func findOwnOrder(b *book.OrderBook, side book.Side, price uint32) (uint64, bool) {
	for _, o := range b.Orders(side, price) {
		if !book.IsSynthetic(o.ID) {
			return o.ID, true
		}
	}
	return 0, false
}
