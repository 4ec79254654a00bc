package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbook.com/internal/book"
)

func twoSidedBook(t *testing.T, bid, ask uint32) *book.OrderBook {
	t.Helper()
	b := book.New()
	_, err := b.AddLimitOrder(book.Order{ID: 1, Side: book.Bid, Price: bid, Qty: 10})
	require.NoError(t, err)
	_, err = b.AddLimitOrder(book.Order{ID: 2, Side: book.Ask, Price: ask, Qty: 10})
	require.NoError(t, err)
	return b
}

func TestMidprice(t *testing.T) {
	b := twoSidedBook(t, 99, 102)
	mid, ok := Midprice(b)
	require.True(t, ok)
	assert.Equal(t, 100.5, mid)

	empty := book.New()
	_, ok = Midprice(empty)
	assert.False(t, ok)
}

func TestMidprice_OnExcludingView(t *testing.T) {
	b := twoSidedBook(t, 99, 102)
	_, err := b.AddLimitOrder(book.Order{ID: 100, Side: book.Bid, Price: 101, Qty: 5})
	require.NoError(t, err)

	mid, ok := Midprice(b)
	require.True(t, ok)
	assert.Equal(t, 101.5, mid)

	raw, ok := Midprice(b.Excluding(100))
	require.True(t, ok)
	assert.Equal(t, 100.5, raw, "view must hide the own quote from the reference price")
}

func TestEMAMidprice(t *testing.T) {
	e := NewEMAMidprice(0.5)

	_, ok := e.Evaluate(book.New())
	assert.False(t, ok, "unprimed EMA has no value on an empty book")

	v, ok := e.Evaluate(twoSidedBook(t, 99, 101))
	require.True(t, ok)
	assert.Equal(t, 100.0, v, "first observation primes the average")

	v, ok = e.Evaluate(twoSidedBook(t, 103, 105))
	require.True(t, ok)
	assert.Equal(t, 102.0, v)

	// Empty book keeps the last value once primed.
	v, ok = e.Evaluate(book.New())
	require.True(t, ok)
	assert.Equal(t, 102.0, v)
}
