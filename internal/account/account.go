// Package account tracks the cash balance and traded volume of a single
// backtested strategy. Balances are exact decimals; float drift over a few
// hundred thousand fills is large enough to distort PnL-per-volume metrics.
package account

import (
	"github.com/shopspring/decimal"

	"tickbook.com/internal/book"
)

type TradingAccount struct {
	Balance          decimal.Decimal
	CumulativeVolume uint64
	TradeCount       uint64
}

func New(initialBalance decimal.Decimal) *TradingAccount {
	return &TradingAccount{Balance: initialBalance}
}

// ApplyFill books one own fill: a buy pays qty*price, a sell receives it.
func (a *TradingAccount) ApplyFill(side book.Side, qty, price uint32) {
	notional := decimal.NewFromInt(int64(qty) * int64(price))
	if side == book.Bid {
		a.Balance = a.Balance.Sub(notional)
	} else {
		a.Balance = a.Balance.Add(notional)
	}
	a.CumulativeVolume += uint64(qty)
	a.TradeCount++
}
