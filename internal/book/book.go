package book

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// halfBook is one side of the book: price -> level plus a cached best price.
// The best is O(1) to maintain while orders rest (a new resting order can only
// improve or tie its own side) and is recomputed by a full rescan only when
// the level at the best price empties. The rescan is deliberate: never assume
// the previous best remains valid after a level is emptied.
type halfBook struct {
	side    Side
	levels  map[uint32]*priceLevel
	best    uint32
	hasBest bool
}

func newHalfBook(side Side) *halfBook {
	return &halfBook{side: side, levels: make(map[uint32]*priceLevel, 16)}
}

// better reports whether price a is a price improvement over b for this side.
func (h *halfBook) better(a, b uint32) bool {
	if h.side == Bid {
		return a > b
	}
	return a < b
}

func (h *halfBook) recomputeBest() {
	h.hasBest = false
	for p, lv := range h.levels {
		if lv == nil || lv.empty() {
			continue
		}
		if !h.hasBest || h.better(p, h.best) {
			h.best = p
			h.hasBest = true
		}
	}
}

// sortedPrices returns the side's price set best-first.
func (h *halfBook) sortedPrices() []uint32 {
	prices := make([]uint32, 0, len(h.levels))
	for p := range h.levels {
		prices = append(prices, p)
	}
	sort.Slice(prices, func(i, j int) bool { return h.better(prices[i], prices[j]) })
	return prices
}

// OrderBook is a price-time priority limit order book for a single instrument.
// It is single-threaded by design: one book, one sequential event stream.
// Callers needing parallelism run independent books.
type OrderBook struct {
	bids *halfBook
	asks *halfBook
	// byID maps every resting order id to its node; it is exactly the union
	// of ids present in both half-books' queues.
	byID map[uint64]*levelNode
	log  *zap.Logger
}

// New returns an empty book with a no-op logger.
func New() *OrderBook {
	return NewWithLogger(zap.NewNop())
}

// NewWithLogger returns an empty book emitting debug-level match traces.
func NewWithLogger(log *zap.Logger) *OrderBook {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderBook{
		bids: newHalfBook(Bid),
		asks: newHalfBook(Ask),
		byID: make(map[uint64]*levelNode, 32),
		log:  log,
	}
}

func (b *OrderBook) half(s Side) *halfBook {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// crosses reports whether an incoming order at limit price crosses the
// opposite side's resting price.
func crosses(side Side, limit, resting uint32) bool {
	if side == Bid {
		return limit >= resting
	}
	return limit <= resting
}

// AddLimitOrder matches the incoming order against the opposite side from the
// best crossing price outward, FIFO within each level, and rests any remainder
// at the order's own price. Zero-quantity and duplicate-id inputs are rejected
// before any mutation.
func (b *OrderBook) AddLimitOrder(o Order) (ExecutionReport, error) {
	if o.Qty == 0 {
		return ExecutionReport{}, fmt.Errorf("add order %d: %w", o.ID, ErrZeroQty)
	}
	if _, dup := b.byID[o.ID]; dup {
		return ExecutionReport{}, fmt.Errorf("add order %d: %w", o.ID, ErrDuplicateID)
	}

	rep := ExecutionReport{OwnID: o.ID, OwnSide: o.Side}
	remaining := o.Qty
	opp := b.half(o.Side.Opposite())

	for remaining > 0 && opp.hasBest && crosses(o.Side, o.Price, opp.best) {
		lv := opp.levels[opp.best]
		b.matchLevel(lv, &remaining, &rep)
		if lv.empty() {
			delete(opp.levels, lv.price)
			opp.recomputeBest()
			continue
		}
		break // level not exhausted, so the incoming qty is
	}

	switch {
	case remaining == o.Qty:
		rep.Status = StatusCreated
	case remaining > 0:
		rep.Status = StatusPartiallyFilled
	default:
		rep.Status = StatusFilled
	}
	rep.RemainingQty = remaining

	if remaining > 0 {
		o.Qty = remaining
		b.rest(o)
	}
	b.log.Debug("booked order",
		zap.Uint64("id", o.ID), zap.String("side", o.Side.String()),
		zap.Uint32("price", o.Price), zap.Uint32("remaining", remaining),
		zap.String("status", rep.Status.String()))
	return rep, nil
}

// matchLevel consumes the level FIFO from the front. A maker with quantity
// strictly below the remaining incoming quantity is fully consumed and removed;
// an equal maker is consumed and ends the match; a larger maker is decremented
// in place.
func (b *OrderBook) matchLevel(lv *priceLevel, remaining *uint32, rep *ExecutionReport) {
	for *remaining > 0 && lv.head != nil {
		maker := lv.head
		if maker.order.Qty <= *remaining {
			fill := maker.order.Qty
			rep.Fills = append(rep.Fills, Fill{MakerID: maker.order.ID, Qty: fill, Price: lv.price})
			*remaining -= fill
			lv.remove(maker)
			delete(b.byID, maker.order.ID)
		} else {
			rep.Fills = append(rep.Fills, Fill{MakerID: maker.order.ID, Qty: *remaining, Price: lv.price})
			maker.order.Qty -= *remaining
			*remaining = 0
		}
	}
}

// rest appends the order to the back of its (possibly new) price level and
// registers it in the location index. A resting order can only improve or tie
// its own side's best, so the best update is a single comparison.
func (b *OrderBook) rest(o Order) {
	h := b.half(o.Side)
	lv := h.levels[o.Price]
	if lv == nil {
		lv = &priceLevel{price: o.Price}
		h.levels[o.Price] = lv
	}
	n := &levelNode{order: o}
	lv.pushBack(n)
	b.byID[o.ID] = n
	if !h.hasBest || h.better(o.Price, h.best) {
		h.best = o.Price
		h.hasBest = true
	}
}

// CancelOrder removes the order by id, wherever it sits in its level's queue.
// Returns ErrOrderNotFound without mutating the book when the id is not live.
func (b *OrderBook) CancelOrder(id uint64) (ExecutionReport, error) {
	n, ok := b.byID[id]
	if !ok {
		return ExecutionReport{}, fmt.Errorf("cancel order %d: %w", id, ErrOrderNotFound)
	}
	o := n.order
	lv := n.level
	lv.remove(n)
	delete(b.byID, id)

	h := b.half(o.Side)
	if lv.empty() {
		delete(h.levels, lv.price)
		if h.hasBest && lv.price == h.best {
			h.recomputeBest()
		}
	}
	b.log.Debug("cancelled order", zap.Uint64("id", id), zap.Uint32("remaining", o.Qty))
	return ExecutionReport{
		OwnID:        id,
		OwnSide:      o.Side,
		RemainingQty: o.Qty,
		Status:       StatusCancelled,
	}, nil
}

// AmendLimitOrder is cancel followed by add. An amend always loses queue
// priority, even when only the quantity changes; this simplification is part
// of the contract and must not be special-cased away.
func (b *OrderBook) AmendLimitOrder(id uint64, newOrder Order) (ExecutionReport, error) {
	if newOrder.Qty == 0 {
		return ExecutionReport{}, fmt.Errorf("amend order %d: %w", id, ErrZeroQty)
	}
	if _, ok := b.byID[id]; !ok {
		return ExecutionReport{}, fmt.Errorf("amend order %d: %w", id, ErrOrderNotFound)
	}
	if newOrder.ID != id {
		if _, dup := b.byID[newOrder.ID]; dup {
			return ExecutionReport{}, fmt.Errorf("amend order %d: %w", newOrder.ID, ErrDuplicateID)
		}
	}
	if _, err := b.CancelOrder(id); err != nil {
		return ExecutionReport{}, err
	}
	return b.AddLimitOrder(newOrder)
}

// BBO returns the best bid, best ask and spread. The error names which side is
// empty; callers treat it as "no reference price this cycle".
func (b *OrderBook) BBO() (bid, ask, spread uint32, err error) {
	if !b.bids.hasBest || !b.asks.hasBest {
		return 0, 0, 0, &EmptySideError{BidEmpty: !b.bids.hasBest, AskEmpty: !b.asks.hasBest}
	}
	return b.bids.best, b.asks.best, b.asks.best - b.bids.best, nil
}

// BestBid returns the highest resting bid price.
func (b *OrderBook) BestBid() (uint32, bool) { return b.bids.best, b.bids.hasBest }

// BestAsk returns the lowest resting ask price.
func (b *OrderBook) BestAsk() (uint32, bool) { return b.asks.best, b.asks.hasBest }

// GetOrder returns the current resting state of an order, including its
// remaining quantity.
func (b *OrderBook) GetOrder(id uint64) (Order, bool) {
	n, ok := b.byID[id]
	if !ok {
		return Order{}, false
	}
	return n.order, true
}

// TotalQtyAt returns the aggregate resting quantity at one price.
func (b *OrderBook) TotalQtyAt(side Side, price uint32) uint32 {
	lv := b.half(side).levels[price]
	if lv == nil {
		return 0
	}
	return lv.totalQty()
}

// Offset locates the own order inside its price level: quantity queued ahead
// of it, its own remaining quantity and the quantity queued behind it. Must be
// read before the book is replaced by the next snapshot.
func (b *OrderBook) Offset(ownID uint64) (QueueOffset, error) {
	n, ok := b.byID[ownID]
	if !ok {
		return QueueOffset{}, fmt.Errorf("offset for order %d: %w", ownID, ErrOrderNotFound)
	}
	off := QueueOffset{
		Side:      n.order.Side,
		Price:     n.order.Price,
		OrderID:   ownID,
		OwnQty:    n.order.Qty,
		CreatedAt: n.order.CreatedAt,
	}
	met := false
	for cur := n.level.head; cur != nil; cur = cur.next {
		switch {
		case cur == n:
			met = true
		case !met:
			off.QtyAhead += cur.order.Qty
		default:
			off.QtyBehind += cur.order.Qty
		}
	}
	return off, nil
}

// DepthLevel is one aggregated price level of a depth view.
type DepthLevel struct {
	Side  Side   `json:"side"`
	Price uint32 `json:"price"`
	Qty   uint32 `json:"qty"`
}

// Depth returns up to maxPerSide aggregated levels per side, bids then asks,
// each best-first. maxPerSide <= 0 means no limit.
func (b *OrderBook) Depth(maxPerSide int) []DepthLevel {
	var out []DepthLevel
	for _, h := range []*halfBook{b.bids, b.asks} {
		prices := h.sortedPrices()
		if maxPerSide > 0 && len(prices) > maxPerSide {
			prices = prices[:maxPerSide]
		}
		for _, p := range prices {
			out = append(out, DepthLevel{Side: h.side, Price: p, Qty: h.levels[p].totalQty()})
		}
	}
	return out
}

// Orders returns the resting orders at one price in queue order.
func (b *OrderBook) Orders(side Side, price uint32) []Order {
	lv := b.half(side).levels[price]
	if lv == nil {
		return nil
	}
	out := make([]Order, 0, lv.size)
	for n := lv.head; n != nil; n = n.next {
		out = append(out, n.order)
	}
	return out
}

// Len returns the number of live resting orders.
func (b *OrderBook) Len() int { return len(b.byID) }
