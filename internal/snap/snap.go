// Package snap rebuilds an order book from a periodic, depth-limited market
// data snapshot while preserving the queue position of the trader's own
// resting orders. The feed is an aggregate view: it has no notion of the own
// orders and cannot report how much quantity sits ahead of them, so the
// engine infers an approximate answer from the previous book state and the
// new aggregate quantity at the same price.
package snap

import (
	"errors"
	"fmt"

	"tickbook.com/internal/book"
)

// Level is one aggregated snapshot row. One (side, price) pair appears at
// most once per snapshot.
type Level struct {
	Side  book.Side
	Price uint32
	Qty   uint32
}

// Snap is a depth-bounded description of the market at one exchange epoch.
type Snap struct {
	ExchEpoch uint64
	Levels    []Level
}

var (
	ErrDuplicateRow = errors.New("duplicate snapshot row")
	ErrZeroQtyRow   = errors.New("zero quantity snapshot row")
	ErrOffsetSide   = errors.New("offset side mismatch")
)

// Validate rejects malformed snapshots loudly rather than merging ambiguous
// rows: two rows at one (side, price) or a zero-quantity row indicate an
// upstream data bug that would corrupt the rebuilt book.
func (s Snap) Validate() error {
	type key struct {
		side  book.Side
		price uint32
	}
	seen := make(map[key]struct{}, len(s.Levels))
	for _, lv := range s.Levels {
		if lv.Qty == 0 {
			return fmt.Errorf("epoch %d %s@%d: %w", s.ExchEpoch, lv.Side, lv.Price, ErrZeroQtyRow)
		}
		k := key{lv.Side, lv.Price}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("epoch %d %s@%d: %w", s.ExchEpoch, lv.Side, lv.Price, ErrDuplicateRow)
		}
		seen[k] = struct{}{}
	}
	return nil
}
