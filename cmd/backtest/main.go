package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tickbook.com/internal/account"
	"tickbook.com/internal/backtest"
	"tickbook.com/internal/marketdata"
	"tickbook.com/internal/oms"
	"tickbook.com/internal/snap"
	"tickbook.com/internal/strategy"
	"tickbook.com/pkg/common"
	"tickbook.com/pkg/config"
	"tickbook.com/pkg/logger"
	"tickbook.com/pkg/metrics"
)

const serviceName = "backtest"

type Config struct {
	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`
	Data struct {
		Snaps  string `mapstructure:"snaps"`
		Orders string `mapstructure:"orders"`
		// Format of the snapshot file: csv or jsonl.
		Format string `mapstructure:"format"`
	} `mapstructure:"data"`
	Strategy struct {
		TickSize      float64 `mapstructure:"tick_size"`
		BuyCriterion  float64 `mapstructure:"buy_criterion"`
		SellCriterion float64 `mapstructure:"sell_criterion"`
		Qty           uint32  `mapstructure:"qty"`
		BuyLimit      int64   `mapstructure:"buy_limit"`
		SellLimit     int64   `mapstructure:"sell_limit"`
	} `mapstructure:"strategy"`
	Replay struct {
		Split      string `mapstructure:"split"`
		AllowCross bool   `mapstructure:"allow_cross"`
	} `mapstructure:"replay"`
	Account struct {
		InitialBalance string `mapstructure:"initial_balance"`
	} `mapstructure:"account"`
	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
}

func main() {
	var cfg Config
	if _, err := config.LoadAndWatch(serviceName, &cfg); err != nil {
		panic(err)
	}

	logger.InitWithFile(serviceName, cfg.Log.Level, cfg.Log.File)
	defer logger.Sync()

	runID := common.NewRunID()
	ctx := context.WithValue(context.Background(), logger.RunIdKey, runID)

	metrics.MustRegister()
	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				logger.Warn(ctx, "metrics listener stopped", zap.Error(err))
			}
		}()
	}

	snapFile, err := os.Open(cfg.Data.Snaps)
	if err != nil {
		logger.Fatal(ctx, "open snapshot file", zap.Error(err))
	}
	defer snapFile.Close()

	orderFile, err := os.Open(cfg.Data.Orders)
	if err != nil {
		logger.Fatal(ctx, "open order file", zap.Error(err))
	}
	defer orderFile.Close()

	var snaps backtest.SnapSource
	if cfg.Data.Format == "jsonl" {
		snaps = marketdata.NewJSONSnapReader(snapFile)
	} else {
		snaps = marketdata.NewSnapReader(snapFile)
	}
	orders := marketdata.NewOrderReader(orderFile)

	tick := strategy.DefaultTicker()
	if cfg.Strategy.TickSize > 0 {
		tick.TickSize = cfg.Strategy.TickSize
	}
	strat := strategy.NewFixSpread(tick)
	strat.BuyCriterion = cfg.Strategy.BuyCriterion
	strat.SellCriterion = cfg.Strategy.SellCriterion
	strat.Qty = cfg.Strategy.Qty
	strat.BuyPositionLimit = cfg.Strategy.BuyLimit
	strat.SellPositionLimit = cfg.Strategy.SellLimit

	balance, err := decimal.NewFromString(cfg.Account.InitialBalance)
	if err != nil {
		balance = decimal.Zero
	}
	acct := account.New(balance)

	manager := oms.New(strat, acct, logger.Log)
	manager.AllowCrossOnReplay = cfg.Replay.AllowCross

	runner := backtest.NewRunner(manager, snap.SplitByName(cfg.Replay.Split), runID, logger.Log)

	logger.Info(ctx, "backtest starting",
		zap.String("snaps", cfg.Data.Snaps),
		zap.String("orders", cfg.Data.Orders),
		zap.String("split", cfg.Replay.Split),
		zap.Bool("allow_cross", cfg.Replay.AllowCross))

	res, err := runner.Run(ctx, snaps, orders)
	if err != nil {
		logger.Fatal(ctx, "backtest failed", zap.Error(err))
	}

	logger.Info(ctx, "result",
		zap.String("pnl", res.PnL.String()),
		zap.String("pnl_bps", res.PnLBps.StringFixed(4)),
		zap.Int64("position", res.Position),
		zap.Uint64("volume", res.Volume),
		zap.Uint64("trades", res.Trades),
		zap.Uint64("snaps", res.Snaps),
		zap.Uint64("orders", res.Orders),
		zap.Float64("final_mid", res.FinalMid))
}
