package book

// View is a read-time filter over a book that pretends a set of order ids is
// not resting. Strategies use it to evaluate reference prices as if the trader
// were not quoting, without cloning the whole book.
type View struct {
	book     *OrderBook
	excluded map[uint64]struct{}
}

// Excluding returns a view of the book with the given ids filtered out.
func (b *OrderBook) Excluding(ids ...uint64) *View {
	ex := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		ex[id] = struct{}{}
	}
	return &View{book: b, excluded: ex}
}

// visible reports whether the level holds any order outside the excluded set.
func (v *View) visible(lv *priceLevel) bool {
	for n := lv.head; n != nil; n = n.next {
		if _, skip := v.excluded[n.order.ID]; !skip {
			return true
		}
	}
	return false
}

func (v *View) bestVisible(h *halfBook) (uint32, bool) {
	var best uint32
	found := false
	for p, lv := range h.levels {
		if lv == nil || lv.empty() || !v.visible(lv) {
			continue
		}
		if !found || h.better(p, best) {
			best = p
			found = true
		}
	}
	return best, found
}

// BBO is the best bid and offer net of the excluded orders. It satisfies the
// same contract as OrderBook.BBO.
func (v *View) BBO() (bid, ask, spread uint32, err error) {
	bb, hasBid := v.bestVisible(v.book.bids)
	ba, hasAsk := v.bestVisible(v.book.asks)
	if !hasBid || !hasAsk {
		return 0, 0, 0, &EmptySideError{BidEmpty: !hasBid, AskEmpty: !hasAsk}
	}
	return bb, ba, ba - bb, nil
}

// TotalQtyAt is the aggregate quantity at one price net of excluded orders.
func (v *View) TotalQtyAt(side Side, price uint32) uint32 {
	lv := v.book.half(side).levels[price]
	if lv == nil {
		return 0
	}
	var total uint32
	for n := lv.head; n != nil; n = n.next {
		if _, skip := v.excluded[n.order.ID]; !skip {
			total += n.order.Qty
		}
	}
	return total
}
