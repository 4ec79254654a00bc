// Package backtest replays recorded snapshots and taker orders through the
// matching engine, carrying one simulated trader's quotes across snapshot
// boundaries via queue-offset reconciliation.
package backtest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tickbook.com/internal/book"
	"tickbook.com/internal/indicator"
	"tickbook.com/internal/oms"
	"tickbook.com/internal/snap"
	"tickbook.com/pkg/metrics"
)

// SnapSource streams depth snapshots in epoch order. io.EOF ends the stream.
type SnapSource interface {
	Next() (snap.Snap, error)
}

// OrderSource streams taker orders in epoch order. io.EOF ends the stream.
type OrderSource interface {
	Next() (book.Order, error)
}

// Result summarizes one finished run.
type Result struct {
	PnL       decimal.Decimal
	PnLBps    decimal.Decimal
	Position  int64
	Volume    uint64
	Trades    uint64
	Snaps     uint64
	Orders    uint64
	FinalMid  float64
	LastEpoch uint64
}

// Runner drives one backtest. The zero value is not usable; construct with
// NewRunner.
type Runner struct {
	oms   *oms.OrderManagement
	split snap.SplitFunc
	runID string
	log   *zap.Logger

	book *book.OrderBook
}

func NewRunner(m *oms.OrderManagement, split snap.SplitFunc, runID string, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{oms: m, split: split, runID: runID, log: log}
}

// Book exposes the current rebuilt book, mainly for tests and inspection
// between events.
func (r *Runner) Book() *book.OrderBook { return r.book }

// Run merges the two streams by exchange epoch and replays them. Taker orders
// dated before the book's snapshot epoch are stale and skipped; the first
// snapshot seeds the book before any order is accepted.
func (r *Runner) Run(ctx context.Context, snaps SnapSource, orders OrderSource) (Result, error) {
	var res Result

	s, haveSnap, err := nextSnap(snaps)
	if err != nil {
		return res, err
	}
	if !haveSnap {
		return res, fmt.Errorf("empty snapshot stream")
	}
	if err := r.applySnap(s, &res); err != nil {
		return res, err
	}
	s, haveSnap, err = nextSnap(snaps)
	if err != nil {
		return res, err
	}

	o, haveOrder, err := nextOrder(orders)
	if err != nil {
		return res, err
	}

	for haveSnap || haveOrder {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if haveOrder && (!haveSnap || o.CreatedAt < s.ExchEpoch) {
			if o.CreatedAt >= res.LastEpoch {
				r.applyOrder(o, &res)
			}
			o, haveOrder, err = nextOrder(orders)
		} else {
			if err := r.applySnap(s, &res); err != nil {
				return res, err
			}
			s, haveSnap, err = nextSnap(snaps)
		}
		if err != nil {
			return res, err
		}
	}

	r.finish(&res)
	return res, nil
}

// applySnap rebuilds the book around the trader's current queue offsets, folds
// the outcome into own state and re-quotes off the raw midprice.
func (r *Runner) applySnap(s snap.Snap, res *Result) error {
	started := time.Now()

	var bidOff, askOff *book.QueueOffset
	if r.book != nil {
		bidOff, askOff = r.oms.Offsets(r.book)
	}
	nb, bidRep, askRep, err := snap.Next(s, bidOff, askOff, r.oms.Inject(), r.split)
	if err != nil {
		return fmt.Errorf("reconcile snapshot at epoch %d: %w", s.ExchEpoch, err)
	}
	r.countReconcileFills(bidRep, askRep)
	r.oms.AfterReconcile(nb, bidRep, askRep)
	r.book = nb
	res.Snaps++
	res.LastEpoch = s.ExchEpoch

	metrics.EventsReplayedTotal.WithLabelValues(r.runID, "snap").Inc()
	metrics.ReconcileTotal.WithLabelValues(r.runID).Inc()
	metrics.ReconcileDuration.WithLabelValues(r.runID).Observe(time.Since(started).Seconds())

	// Reference price is taken net of our own resting quotes, so we never
	// chase a mid we moved ourselves.
	view := r.book.Excluding(r.activeIDs()...)
	if mid, ok := indicator.Midprice(view); ok {
		if err := r.oms.Quote(r.book, mid, s.ExchEpoch); err != nil {
			return fmt.Errorf("quote at epoch %d: %w", s.ExchEpoch, err)
		}
	}
	return nil
}

// applyOrder replays one exchange taker order. Malformed historical rows are
// logged and dropped rather than aborting a long replay.
func (r *Runner) applyOrder(o book.Order, res *Result) {
	rep, err := r.book.AddLimitOrder(o)
	if err != nil {
		r.log.Warn("replay order rejected",
			zap.Uint64("id", o.ID), zap.Error(err))
		return
	}
	r.countTakerFills(&rep)
	r.oms.ApplyTaker(&rep)
	res.Orders++
	metrics.EventsReplayedTotal.WithLabelValues(r.runID, "order").Inc()
}

func (r *Runner) activeIDs() []uint64 {
	ids := make([]uint64, 0, 2)
	if id, ok := r.oms.ActiveOrderID(book.Bid); ok {
		ids = append(ids, id)
	}
	if id, ok := r.oms.ActiveOrderID(book.Ask); ok {
		ids = append(ids, id)
	}
	return ids
}

func (r *Runner) countTakerFills(rep *book.ExecutionReport) {
	for _, side := range []book.Side{book.Bid, book.Ask} {
		id, ok := r.oms.ActiveOrderID(side)
		if !ok {
			continue
		}
		for _, f := range rep.Fills {
			if f.MakerID == id {
				metrics.OwnFillsTotal.WithLabelValues(r.runID, side.String()).Inc()
			}
		}
	}
}

func (r *Runner) countReconcileFills(reps ...*book.ExecutionReport) {
	for _, rep := range reps {
		if rep != nil && rep.Status == book.StatusFilled {
			metrics.OwnFillsTotal.WithLabelValues(r.runID, rep.OwnSide.String()).Inc()
		}
	}
}

// finish marks the open position to the final midprice and derives the run
// metrics. With an empty final side the position is left unmarked and PnL is
// cash only.
func (r *Runner) finish(res *Result) {
	res.Position = r.oms.Strategy.Position
	res.Volume = r.oms.Account.CumulativeVolume
	res.Trades = r.oms.Account.TradeCount

	res.PnL = r.oms.Account.Balance
	if mid, ok := indicator.Midprice(r.book); ok {
		res.FinalMid = mid
		mark := decimal.NewFromFloat(mid).Mul(decimal.NewFromInt(res.Position))
		res.PnL = res.PnL.Add(mark)
	}

	if res.Volume > 0 && res.FinalMid > 0 {
		notional := decimal.NewFromFloat(res.FinalMid).Mul(decimal.NewFromInt(int64(res.Volume)))
		res.PnLBps = res.PnL.Div(notional).Mul(decimal.NewFromInt(10000))
	}

	r.log.Info("backtest finished",
		zap.String("run_id", r.runID),
		zap.Uint64("snaps", res.Snaps),
		zap.Uint64("orders", res.Orders),
		zap.Uint64("trades", res.Trades),
		zap.Int64("position", res.Position),
		zap.String("pnl", res.PnL.String()),
		zap.String("pnl_bps", res.PnLBps.StringFixed(4)))
}

func nextSnap(src SnapSource) (snap.Snap, bool, error) {
	s, err := src.Next()
	if err == io.EOF {
		return snap.Snap{}, false, nil
	}
	if err != nil {
		return snap.Snap{}, false, err
	}
	return s, true, nil
}

func nextOrder(src OrderSource) (book.Order, bool, error) {
	o, err := src.Next()
	if err == io.EOF {
		return book.Order{}, false, nil
	}
	if err != nil {
		return book.Order{}, false, err
	}
	return o, true, nil
}
