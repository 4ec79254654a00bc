// Package oms is the order management layer between a strategy and the
// matching engine. It owns at most one live buy and one live sell order,
// re-quotes them via amend-or-add, and keeps position and account state in
// sync with execution reports. It is a client of the book core: everything it
// reads goes through BBO/GetOrder/Offset and execution reports.
package oms

import (
	"go.uber.org/zap"

	"tickbook.com/internal/account"
	"tickbook.com/internal/book"
	"tickbook.com/internal/snap"
	"tickbook.com/internal/strategy"
)

// IDFunc allocates own-order ids per quoting cycle. Ids must stay below
// book.SynthIDBase and must not collide with exchange event ids.
type IDFunc func(side book.Side, epoch uint64) uint64

// DefaultIDs packs the epoch and side into a dedicated id range: distinct
// from raw exchange epochs, below the synthetic filler namespace for any
// epoch before 2^61.
func DefaultIDs(side book.Side, epoch uint64) uint64 {
	id := epoch * 2
	if side == book.Ask {
		id++
	}
	return id
}

type OrderManagement struct {
	Strategy *strategy.FixSpread
	Account  *account.TradingAccount

	activeBuy  *book.Order
	activeSell *book.Order

	// AllowCrossOnReplay selects the injection mode used when the own orders
	// are carried into a rebuilt book.
	AllowCrossOnReplay bool

	ids IDFunc
	log *zap.Logger
}

func New(s *strategy.FixSpread, a *account.TradingAccount, log *zap.Logger) *OrderManagement {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderManagement{Strategy: s, Account: a, ids: DefaultIDs, log: log}
}

// WithIDFunc overrides own-order id allocation (tests use small fixed ids).
func (m *OrderManagement) WithIDFunc(f IDFunc) *OrderManagement {
	m.ids = f
	return m
}

// ActiveOrderID returns the live own order id on one side.
func (m *OrderManagement) ActiveOrderID(side book.Side) (uint64, bool) {
	o := m.active(side)
	if o == nil {
		return 0, false
	}
	return o.ID, true
}

func (m *OrderManagement) active(side book.Side) *book.Order {
	if side == book.Bid {
		return m.activeBuy
	}
	return m.activeSell
}

func (m *OrderManagement) setActive(side book.Side, o *book.Order) {
	if side == book.Bid {
		m.activeBuy = o
	} else {
		m.activeSell = o
	}
}

// Inject returns the injection policy the reconciliation engine should apply
// to this trader's orders.
func (m *OrderManagement) Inject() snap.InjectFunc {
	if m.AllowCrossOnReplay {
		return snap.AllowCross
	}
	return snap.PassiveOnly
}

// Offsets reads the queue positions of the live own orders. Must be called on
// the current book before it is replaced by the next snapshot.
func (m *OrderManagement) Offsets(b *book.OrderBook) (bid, ask *book.QueueOffset) {
	if m.activeBuy != nil {
		if off, err := b.Offset(m.activeBuy.ID); err == nil {
			bid = &off
		}
	}
	if m.activeSell != nil {
		if off, err := b.Offset(m.activeSell.ID); err == nil {
			ask = &off
		}
	}
	return bid, ask
}

// Quote recomputes both desired quotes off the reference price and sends them
// as amend-or-add. A quote that crosses is not suppressed here; its fills are
// booked as taker executions and only the remainder stays active.
func (m *OrderManagement) Quote(b *book.OrderBook, ref float64, epoch uint64) error {
	if q, ok := m.Strategy.BuyQuote(ref); ok {
		q.ID = m.ids(book.Bid, epoch)
		q.CreatedAt = epoch
		if err := m.send(b, q); err != nil {
			return err
		}
	}
	if q, ok := m.Strategy.SellQuote(ref); ok {
		q.ID = m.ids(book.Ask, epoch)
		q.CreatedAt = epoch
		if err := m.send(b, q); err != nil {
			return err
		}
	}
	return nil
}

func (m *OrderManagement) send(b *book.OrderBook, q book.Order) error {
	var rep book.ExecutionReport
	var err error
	if cur := m.active(q.Side); cur != nil {
		// Unchanged quotes are left alone: an amend is cancel+add and would
		// forfeit the queue position we are trying to model.
		if cur.Price == q.Price && cur.Qty == q.Qty {
			return nil
		}
		rep, err = b.AmendLimitOrder(cur.ID, q)
	} else {
		rep, err = b.AddLimitOrder(q)
	}
	if err != nil {
		return err
	}
	m.log.Debug("quote sent",
		zap.Uint64("id", q.ID), zap.String("side", q.Side.String()),
		zap.Uint32("price", q.Price), zap.String("status", rep.Status.String()))

	// Own fills from a crossing quote: we were the taker.
	m.applyOwnFills(q.Side, rep.Fills)
	if rep.RemainingQty > 0 {
		rested := q
		rested.Qty = rep.RemainingQty
		m.setActive(q.Side, &rested)
	} else {
		m.setActive(q.Side, nil)
	}
	return nil
}

// CancelAll pulls both live quotes.
func (m *OrderManagement) CancelAll(b *book.OrderBook) {
	for _, side := range []book.Side{book.Bid, book.Ask} {
		if o := m.active(side); o != nil {
			if _, err := b.CancelOrder(o.ID); err != nil {
				m.log.Warn("cancel failed", zap.Uint64("id", o.ID), zap.Error(err))
			}
			m.setActive(side, nil)
		}
	}
}

// ApplyTaker folds an incoming taker order's execution report into own state:
// any of our resting orders appearing among the makers was (partially)
// consumed.
func (m *OrderManagement) ApplyTaker(rep *book.ExecutionReport) {
	for _, side := range []book.Side{book.Bid, book.Ask} {
		o := m.active(side)
		if o == nil {
			continue
		}
		for _, f := range rep.Fills {
			if f.MakerID != o.ID {
				continue
			}
			m.bookFill(side, f.Qty, f.Price)
			if f.Qty >= o.Qty {
				m.setActive(side, nil)
				o = nil
				break
			}
			o.Qty -= f.Qty
		}
	}
}

// AfterReconcile syncs own state with a freshly rebuilt book. An own order
// absent from the new book was exposed to a fill during the transition; when
// the injection mode surfaced no explicit fills, the fill is assumed at the
// order's own price for its full remaining quantity.
func (m *OrderManagement) AfterReconcile(nb *book.OrderBook, bidRep, askRep *book.ExecutionReport) {
	m.afterReconcileSide(nb, book.Bid, bidRep)
	m.afterReconcileSide(nb, book.Ask, askRep)
}

func (m *OrderManagement) afterReconcileSide(nb *book.OrderBook, side book.Side, rep *book.ExecutionReport) {
	o := m.active(side)
	if o == nil {
		return
	}
	if live, ok := nb.GetOrder(o.ID); ok {
		if rep != nil && len(rep.Fills) > 0 {
			// Crossed partially on replay, remainder rests.
			m.applyOwnFills(side, rep.Fills)
		}
		o.Qty = live.Qty
		return
	}
	if rep != nil && len(rep.Fills) > 0 {
		m.applyOwnFills(side, rep.Fills)
	} else {
		m.bookFill(side, o.Qty, o.Price)
	}
	m.log.Debug("own order filled on reconcile",
		zap.Uint64("id", o.ID), zap.String("side", side.String()))
	m.setActive(side, nil)
}

// applyOwnFills books fills where this trader was the taker side of the match.
func (m *OrderManagement) applyOwnFills(side book.Side, fills []book.Fill) {
	for _, f := range fills {
		m.bookFill(side, f.Qty, f.Price)
	}
}

func (m *OrderManagement) bookFill(side book.Side, qty, price uint32) {
	if side == book.Bid {
		m.Strategy.Position += int64(qty)
	} else {
		m.Strategy.Position -= int64(qty)
	}
	m.Account.ApplyFill(side, qty, price)
}
