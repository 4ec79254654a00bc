package snap

import "tickbook.com/internal/book"

// SplitFunc decides how the difference between the level's previous total and
// the snapshot's new aggregate quantity is distributed between the quantity
// ahead of and behind the own order. The snapshot cannot distinguish "my
// neighbor's order filled" from "my neighbor's order was cancelled", so this
// is a modeling choice, not a derived fact; it directly drives the
// fill-probability estimates every strategy builds on. The own quantity is
// never altered here.
type SplitFunc func(off book.QueueOffset, newQty uint32) (ahead, behind uint32)

// TailFirst assumes quantity behind the own order (later arrivals) is the
// first to be cancelled or replaced; only once the tail is exhausted does the
// model concede that quantity ahead was consumed. This is the default.
func TailFirst(off book.QueueOffset, newQty uint32) (uint32, uint32) {
	if newQty >= off.LevelTotal() {
		return grow(off, newQty)
	}
	deficit := off.LevelTotal() - newQty
	cutBehind := minU32(off.QtyBehind, deficit)
	cutAhead := minU32(off.QtyAhead, deficit-cutBehind)
	return off.QtyAhead - cutAhead, off.QtyBehind - cutBehind
}

// HeadFirst is the pessimistic variant: consumed quantity is attributed to the
// head of the queue first, so the own order's estimated position improves as
// fast as the data allows.
func HeadFirst(off book.QueueOffset, newQty uint32) (uint32, uint32) {
	if newQty >= off.LevelTotal() {
		return grow(off, newQty)
	}
	deficit := off.LevelTotal() - newQty
	cutAhead := minU32(off.QtyAhead, deficit)
	cutBehind := minU32(off.QtyBehind, deficit-cutAhead)
	return off.QtyAhead - cutAhead, off.QtyBehind - cutBehind
}

// Proportional spreads the deficit across head and tail in proportion to
// their previous sizes, rounding the head cut down.
func Proportional(off book.QueueOffset, newQty uint32) (uint32, uint32) {
	if newQty >= off.LevelTotal() {
		return grow(off, newQty)
	}
	pool := off.QtyAhead + off.QtyBehind
	deficit := minU32(pool, off.LevelTotal()-newQty)
	if pool == 0 {
		return 0, 0
	}
	cutAhead := uint32(uint64(deficit) * uint64(off.QtyAhead) / uint64(pool))
	cutBehind := deficit - cutAhead
	if cutBehind > off.QtyBehind {
		cutAhead += cutBehind - off.QtyBehind
		cutBehind = off.QtyBehind
	}
	return off.QtyAhead - cutAhead, off.QtyBehind - cutBehind
}

// grow handles net growth or no change: the head is left untouched and the
// excess is attributed entirely to the tail.
func grow(off book.QueueOffset, newQty uint32) (uint32, uint32) {
	return off.QtyAhead, newQty - off.QtyAhead - off.OwnQty
}

// SplitByName maps a config value to a policy. Unknown names fall back to the
// default TailFirst.
func SplitByName(name string) SplitFunc {
	switch name {
	case "head_first":
		return HeadFirst
	case "proportional":
		return Proportional
	default:
		return TailFirst
	}
}

// InjectFunc places the own order back into the freshly rebuilt book. The
// policy is supplied by the caller's risk layer: some modes allow the order to
// cross and fill against the rebuilt opposite side, others only allow passive
// placement.
type InjectFunc func(b *book.OrderBook, o book.Order) (book.ExecutionReport, error)

// AllowCross replays the own order through the matching engine unrestricted
// (taker-exposed replay).
func AllowCross(b *book.OrderBook, o book.Order) (book.ExecutionReport, error) {
	return b.AddLimitOrder(o)
}

// PassiveOnly places the own order only when it would rest. A crossing order
// is dropped without touching the book; its disappearance is the caller's
// fill signal.
func PassiveOnly(b *book.OrderBook, o book.Order) (book.ExecutionReport, error) {
	switch o.Side {
	case book.Bid:
		if ask, ok := b.BestAsk(); ok && o.Price >= ask {
			return book.ExecutionReport{}, nil
		}
	case book.Ask:
		if bid, ok := b.BestBid(); ok && o.Price <= bid {
			return book.ExecutionReport{}, nil
		}
	}
	return b.AddLimitOrder(o)
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
