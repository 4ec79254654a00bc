package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbook.com/internal/book"
)

func newStrat() *FixSpread {
	s := NewFixSpread(DefaultTicker())
	s.BuyCriterion = -0.01
	s.SellCriterion = 0.01
	s.Qty = 10
	s.BuyPositionLimit = 100
	s.SellPositionLimit = -100
	return s
}

func TestQuotes_RoundToTickGrid(t *testing.T) {
	s := newStrat()

	buy, ok := s.BuyQuote(100.7)
	require.True(t, ok)
	assert.Equal(t, book.Bid, buy.Side)
	assert.Equal(t, uint32(99), buy.Price, "buy rounds down: floor(100.7*0.99)")
	assert.Equal(t, uint32(10), buy.Qty)

	sell, ok := s.SellQuote(100.7)
	require.True(t, ok)
	assert.Equal(t, book.Ask, sell.Side)
	assert.Equal(t, uint32(102), sell.Price, "sell rounds up: ceil(100.7*1.01)")
}

func TestQuotes_CoarserTick(t *testing.T) {
	s := newStrat()
	s.Tick.TickSize = 5

	buy, ok := s.BuyQuote(100)
	require.True(t, ok)
	assert.Equal(t, uint32(95), buy.Price)

	sell, ok := s.SellQuote(100)
	require.True(t, ok)
	assert.Equal(t, uint32(105), sell.Price)
}

func TestQuotes_PositionLimits(t *testing.T) {
	s := newStrat()

	s.Position = 95
	buy, ok := s.BuyQuote(100)
	require.True(t, ok)
	assert.Equal(t, uint32(5), buy.Qty, "quote is capped at the remaining limit headroom")

	s.Position = 100
	_, ok = s.BuyQuote(100)
	assert.False(t, ok, "exhausted limit produces no quote")

	s.Position = -100
	_, ok = s.SellQuote(100)
	assert.False(t, ok)

	s.Position = -95
	sell, ok := s.SellQuote(100)
	require.True(t, ok)
	assert.Equal(t, uint32(5), sell.Qty)
}

func TestBuyQuote_NonPositivePrice(t *testing.T) {
	s := newStrat()
	s.BuyCriterion = -1.0

	_, ok := s.BuyQuote(100)
	assert.False(t, ok, "a quote at or below zero is suppressed")
}
