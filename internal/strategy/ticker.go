package strategy

// Ticker describes one instrument's price grid and fee schedule.
type Ticker struct {
	TickerID uint64
	// TickSize is the minimal price increment.
	TickSize float64
	// StepPrice is the cash value of one tick.
	StepPrice float64
	TakerFee  float64
	MakerFee  float64
}

func DefaultTicker() Ticker {
	return Ticker{TickSize: 1.0, StepPrice: 0.1}
}
