// Package indicator derives reference prices from a book's top of book.
// Every indicator degrades to "no value" while either side is empty; callers
// skip the dependent action for that cycle.
package indicator

// BBOSource is satisfied by both the order book and its own-order-excluding
// view, so indicators can be evaluated raw (as if the trader were not
// quoting) or on the full book.
type BBOSource interface {
	BBO() (bid, ask, spread uint32, err error)
}

// Midprice is the arithmetic mid of the best bid and offer.
func Midprice(src BBOSource) (float64, bool) {
	bid, ask, _, err := src.BBO()
	if err != nil {
		return 0, false
	}
	return (float64(bid) + float64(ask)) / 2, true
}

// BestBidOffer returns the raw BBO pair.
func BestBidOffer(src BBOSource) (bid, ask uint32, ok bool) {
	bid, ask, _, err := src.BBO()
	if err != nil {
		return 0, 0, false
	}
	return bid, ask, true
}

// EMAMidprice smooths the midprice with an exponential moving average.
type EMAMidprice struct {
	Alpha float64

	value  float64
	primed bool
}

func NewEMAMidprice(alpha float64) *EMAMidprice {
	return &EMAMidprice{Alpha: alpha}
}

// Evaluate folds the current midprice into the average. While a side is empty
// the previous value is kept and reported if present.
func (e *EMAMidprice) Evaluate(src BBOSource) (float64, bool) {
	m, ok := Midprice(src)
	if !ok {
		return e.value, e.primed
	}
	if !e.primed {
		e.value = m
		e.primed = true
	} else {
		e.value = e.Alpha*m + (1-e.Alpha)*e.value
	}
	return e.value, true
}
