package snap

import (
	"fmt"

	"tickbook.com/internal/book"
)

// Next builds a fresh book from the snapshot. Rows at prices the trader is not
// quoting become single synthetic resting orders (participant identities below
// the snapshot are unknown and not worth preserving). For each side with an
// offset, the own order's level is rebuilt ahead -> own -> behind, with the new
// aggregate quantity redistributed by the split policy and the own order placed
// through the injection policy.
//
// The returned per-side reports describe what happened to the own orders. An
// own order absent from the rebuilt book is reported Filled; in passive
// injection mode no fills are observed, and the disappearance itself is the
// fill signal.
func Next(s Snap, bidOff, askOff *book.QueueOffset, inject InjectFunc, split SplitFunc) (*book.OrderBook, *book.ExecutionReport, *book.ExecutionReport, error) {
	if err := s.Validate(); err != nil {
		return nil, nil, nil, err
	}
	if bidOff != nil && bidOff.Side != book.Bid {
		return nil, nil, nil, fmt.Errorf("bid offset carries side %s: %w", bidOff.Side, ErrOffsetSide)
	}
	if askOff != nil && askOff.Side != book.Ask {
		return nil, nil, nil, fmt.Errorf("ask offset carries side %s: %w", askOff.Side, ErrOffsetSide)
	}
	if inject == nil {
		inject = PassiveOnly
	}
	if split == nil {
		split = TailFirst
	}

	nb := book.New()

	// Rows at the own orders' exact prices are excluded from plain replacement;
	// a level that vanished from the depth window reads as aggregate zero.
	var newQtyBid, newQtyAsk uint32
	row := 0
	for _, lv := range s.Levels {
		switch {
		case bidOff != nil && lv.Side == book.Bid && lv.Price == bidOff.Price:
			newQtyBid = lv.Qty
		case askOff != nil && lv.Side == book.Ask && lv.Price == askOff.Price:
			newQtyAsk = lv.Qty
		default:
			if _, err := nb.AddLimitOrder(book.Order{
				ID:        book.SnapRowID(row),
				Side:      lv.Side,
				Price:     lv.Price,
				Qty:       lv.Qty,
				CreatedAt: s.ExchEpoch,
			}); err != nil {
				return nil, nil, nil, fmt.Errorf("materialize snapshot row: %w", err)
			}
			row++
		}
	}

	var bidRep, askRep *book.ExecutionReport
	var err error
	if bidOff != nil {
		if bidRep, err = placeOwnLevel(nb, *bidOff, newQtyBid, inject, split); err != nil {
			return nil, nil, nil, err
		}
	}
	if askOff != nil {
		if askRep, err = placeOwnLevel(nb, *askOff, newQtyAsk, inject, split); err != nil {
			return nil, nil, nil, err
		}
	}
	return nb, bidRep, askRep, nil
}

// placeOwnLevel reconstructs the own order's relative queue position: a
// synthetic filler carrying the new ahead quantity, then the own order
// unchanged, then a filler carrying the new behind quantity. Queue order
// within one price level is insertion order, so this is exact.
func placeOwnLevel(nb *book.OrderBook, off book.QueueOffset, newQty uint32, inject InjectFunc, split SplitFunc) (*book.ExecutionReport, error) {
	ahead, behind := split(off, newQty)
	if ahead > 0 {
		if _, err := nb.AddLimitOrder(book.Order{
			ID:    book.AheadFillerID(off.OrderID),
			Side:  off.Side,
			Price: off.Price,
			Qty:   ahead,
		}); err != nil {
			return nil, fmt.Errorf("place ahead filler: %w", err)
		}
	}
	rep, err := inject(nb, book.Order{
		ID:        off.OrderID,
		Side:      off.Side,
		Price:     off.Price,
		Qty:       off.OwnQty,
		CreatedAt: off.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("inject own order %d: %w", off.OrderID, err)
	}
	if behind > 0 {
		if _, err := nb.AddLimitOrder(book.Order{
			ID:    book.BehindFillerID(off.OrderID),
			Side:  off.Side,
			Price: off.Price,
			Qty:   behind,
		}); err != nil {
			return nil, fmt.Errorf("place behind filler: %w", err)
		}
	}
	if _, live := nb.GetOrder(off.OrderID); !live {
		rep.OwnID = off.OrderID
		rep.OwnSide = off.Side
		rep.RemainingQty = 0
		rep.Status = book.StatusFilled
	}
	return &rep, nil
}
