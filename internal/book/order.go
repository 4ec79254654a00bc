package book

import "github.com/shopspring/decimal"

// Side of the book an order rests on.
type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// OrderStatus tracks a single order's life:
// Created -> PartiallyFilled* -> Filled, or Cancelled from any pre-terminal state.
type OrderStatus uint8

const (
	StatusUnspecified OrderStatus = iota
	StatusCreated
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
)

func (st OrderStatus) String() string {
	switch st {
	case StatusCreated:
		return "created"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unspecified"
	}
}

// Order is a limit order. ID and Side are immutable for its lifetime;
// Qty is reduced in place on partial fills while the order rests.
// CreatedAt is an opaque logical epoch supplied by the caller.
type Order struct {
	ID        uint64
	Side      Side
	Price     uint32
	Qty       uint32
	CreatedAt uint64
}

// Synthetic id namespaces. Real order ids supplied by callers must stay below
// SynthIDBase; ids at or above it are reserved for engine-internal placeholder
// orders so a filler can never collide with a live order.
const (
	SynthIDBase    uint64 = 1 << 62
	synthSnapBase  uint64 = 1 << 62
	synthAheadTag  uint64 = 2 << 62
	synthBehindTag uint64 = 3 << 62
)

// SnapRowID returns the synthetic id for the i-th materialized snapshot row.
func SnapRowID(i int) uint64 { return synthSnapBase | uint64(i) }

// AheadFillerID tags the placeholder order carrying the quantity queued ahead
// of the own order ownID within its price level.
func AheadFillerID(ownID uint64) uint64 { return synthAheadTag | ownID }

// BehindFillerID tags the placeholder order carrying the quantity queued behind
// the own order ownID within its price level.
func BehindFillerID(ownID uint64) uint64 { return synthBehindTag | ownID }

// IsSynthetic reports whether id belongs to the reserved filler namespaces.
func IsSynthetic(id uint64) bool { return id >= SynthIDBase }

// Fill records one match against a resting (maker) order.
type Fill struct {
	MakerID uint64
	Qty     uint32
	Price   uint32
}

// ExecutionReport is produced by every book operation. Fills are ordered by
// match sequence (best price first, queue order within a price) and are never
// mutated after the report is returned.
type ExecutionReport struct {
	OwnID        uint64
	OwnSide      Side
	Fills        []Fill
	RemainingQty uint32
	Status       OrderStatus
}

// AvgFillPrice returns the volume-weighted average price across the report's
// fills. ok is false when nothing was filled.
func (r *ExecutionReport) AvgFillPrice() (avg decimal.Decimal, ok bool) {
	if len(r.Fills) == 0 {
		return decimal.Zero, false
	}
	var paid, qty int64
	for _, f := range r.Fills {
		paid += int64(f.Qty) * int64(f.Price)
		qty += int64(f.Qty)
	}
	return decimal.NewFromInt(paid).Div(decimal.NewFromInt(qty)), true
}

// FilledQty is the total quantity matched in this report.
func (r *ExecutionReport) FilledQty() uint32 {
	var total uint32
	for _, f := range r.Fills {
		total += f.Qty
	}
	return total
}
