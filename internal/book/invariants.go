package book

import "fmt"

// CheckInvariants walks the whole book and verifies the structural invariants
// that every operation must preserve:
//
//   - the location index is exactly the union of ids queued in both halves
//   - every registered price level is non-empty and keyed by its own price
//   - no resting order has zero quantity
//   - each cached best equals the true extreme of its half's price set
//   - best bid < best ask whenever both are present
//
// A violation is an internal bug, not a recoverable condition. The test suite
// asserts this after every operation.
func (b *OrderBook) CheckInvariants() error {
	seen := make(map[uint64]struct{}, len(b.byID))
	for _, h := range []*halfBook{b.bids, b.asks} {
		var best uint32
		found := false
		for p, lv := range h.levels {
			if lv == nil || lv.empty() {
				return &InvariantError{Detail: fmt.Sprintf("%s level %d registered but empty", h.side, p)}
			}
			if lv.price != p {
				return &InvariantError{Detail: fmt.Sprintf("%s level keyed %d holds price %d", h.side, p, lv.price)}
			}
			count := 0
			for n := lv.head; n != nil; n = n.next {
				count++
				if n.order.Qty == 0 {
					return &InvariantError{Detail: fmt.Sprintf("order %d resting with zero qty", n.order.ID)}
				}
				if n.order.Side != h.side {
					return &InvariantError{Detail: fmt.Sprintf("order %d on wrong side %s", n.order.ID, h.side)}
				}
				if n.order.Price != p {
					return &InvariantError{Detail: fmt.Sprintf("order %d priced %d queued at level %d", n.order.ID, n.order.Price, p)}
				}
				idx, ok := b.byID[n.order.ID]
				if !ok {
					return &InvariantError{Detail: fmt.Sprintf("order %d queued but missing from index", n.order.ID)}
				}
				if idx != n {
					return &InvariantError{Detail: fmt.Sprintf("order %d index points at a different node", n.order.ID)}
				}
				if _, dup := seen[n.order.ID]; dup {
					return &InvariantError{Detail: fmt.Sprintf("order %d queued twice", n.order.ID)}
				}
				seen[n.order.ID] = struct{}{}
			}
			if count != lv.size {
				return &InvariantError{Detail: fmt.Sprintf("%s level %d size %d but %d nodes linked", h.side, p, lv.size, count)}
			}
			if !found || h.better(p, best) {
				best = p
				found = true
			}
		}
		if found != h.hasBest || (found && best != h.best) {
			return &InvariantError{Detail: fmt.Sprintf("%s cached best stale", h.side)}
		}
	}
	if len(seen) != len(b.byID) {
		return &InvariantError{Detail: fmt.Sprintf("index holds %d ids, queues hold %d", len(b.byID), len(seen))}
	}
	if b.bids.hasBest && b.asks.hasBest && b.bids.best >= b.asks.best {
		return &InvariantError{Detail: fmt.Sprintf("resting cross: bid %d >= ask %d", b.bids.best, b.asks.best)}
	}
	return nil
}
