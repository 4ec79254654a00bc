package book

import (
	"errors"
	"fmt"
)

// Recoverable errors: callers check and branch, the book is never mutated on
// an error return. Malformed input errors indicate an upstream bug and should
// abort the run rather than be retried.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrZeroQty       = errors.New("zero quantity order")
	ErrDuplicateID   = errors.New("duplicate order id")
	ErrSyntheticID   = errors.New("order id collides with synthetic namespace")
)

// EmptySideError is returned by BBO when at least one half-book has no resting
// orders. It names the empty side(s) so callers can log a precise reason for
// skipping a quote cycle.
type EmptySideError struct {
	BidEmpty bool
	AskEmpty bool
}

func (e *EmptySideError) Error() string {
	switch {
	case e.BidEmpty && e.AskEmpty:
		return "both bid and ask half-books are empty"
	case e.AskEmpty:
		return "ask half-book is empty"
	default:
		return "bid half-book is empty"
	}
}

// InvariantError reports internal book corruption. It is never expected in
// normal operation and is not recoverable.
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("order book invariant violated: %s", e.Detail)
}
