// Package strategy turns an indicator value into desired maker quotes.
// A strategy never talks to the matching engine directly; the order
// management layer owns risk checks and order routing.
package strategy

import (
	"math"

	"tickbook.com/internal/book"
)

// FixSpread quotes a fixed fractional distance around a reference price.
// BuyCriterion is typically negative (quote below reference), SellCriterion
// positive. Position limits cap the quoted quantity; a side whose limit is
// exhausted produces no quote.
type FixSpread struct {
	Tick              Ticker
	BuyCriterion      float64
	SellCriterion     float64
	Qty               uint32
	BuyPositionLimit  int64
	SellPositionLimit int64

	// Position is the strategy's current signed inventory, updated by the
	// order management layer from own fills.
	Position int64
}

func NewFixSpread(t Ticker) *FixSpread {
	return &FixSpread{Tick: t}
}

// BuyQuote derives the desired passive buy for the given reference price.
// The price is rounded down to the tick grid so the quote never leans
// through the criterion.
func (s *FixSpread) BuyQuote(ref float64) (book.Order, bool) {
	free := s.BuyPositionLimit - s.Position
	if free <= 0 {
		return book.Order{}, false
	}
	px := math.Floor(ref*(1+s.BuyCriterion)/s.Tick.TickSize) * s.Tick.TickSize
	if px <= 0 {
		return book.Order{}, false
	}
	return book.Order{
		Side:  book.Bid,
		Price: uint32(px),
		Qty:   minQty(s.Qty, free),
	}, true
}

// SellQuote derives the desired passive sell, rounding the price up.
func (s *FixSpread) SellQuote(ref float64) (book.Order, bool) {
	free := s.Position - s.SellPositionLimit
	if free <= 0 {
		return book.Order{}, false
	}
	px := math.Ceil(ref*(1+s.SellCriterion)/s.Tick.TickSize) * s.Tick.TickSize
	if px <= 0 {
		return book.Order{}, false
	}
	return book.Order{
		Side:  book.Ask,
		Price: uint32(px),
		Qty:   minQty(s.Qty, free),
	}, true
}

func minQty(q uint32, free int64) uint32 {
	if int64(q) <= free {
		return q
	}
	return uint32(free)
}
