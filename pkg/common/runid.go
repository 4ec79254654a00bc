package common

import "github.com/google/uuid"

// CtxKeyRunID labels one backtest execution across logs and metrics.
const CtxKeyRunID = "run_id"

func NewRunID() string { return uuid.NewString() }
