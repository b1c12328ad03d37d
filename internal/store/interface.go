package store

import (
	"context"

	"tradepilot/internal/types"
)

// StrategyRecord is the externally visible registration row for a
// strategy. Status drives the controller's running predicate.
type StrategyRecord struct {
	StrategyID string
	Name       string
	Mode       types.TradingMode
	Status     types.StrategyStatus
	StopReason string
	Symbols    []string
	CreatedTs  int64
}

// ComposeCycle is the persisted header of one decision cycle.
type ComposeCycle struct {
	StrategyID string
	ComposeID  string
	Ts         int64
	CycleIndex int
	Rationale  string
}

// Persistence is the storage collaborator. Every call may fail; the
// lifecycle controller treats all persistence failures as non-fatal and
// logs them. Implementations must be safe for concurrent use by
// independent strategies.
type Persistence interface {
	RegisterStrategy(ctx context.Context, rec StrategyRecord) error
	StrategyRunning(ctx context.Context, strategyID string) (bool, error)
	MarkStrategyStopped(ctx context.Context, strategyID, reason string) error

	PersistPortfolioView(ctx context.Context, view types.PortfolioView) error
	PersistStrategySummary(ctx context.Context, summary types.StrategySummary) error
	PersistComposeCycle(ctx context.Context, cycle ComposeCycle) error
	PersistInstructions(ctx context.Context, strategyID string, instructions []types.TradeInstruction) error
	PersistTradeHistory(ctx context.Context, strategyID string, trade types.Trade) error

	ListStrategies(ctx context.Context) ([]StrategyRecord, error)
	ListStrategySummaries(ctx context.Context) ([]types.StrategySummary, error)
	ListTrades(ctx context.Context, strategyID string, limit int) ([]types.Trade, error)
}

// HistoryRecorder keeps the trailing pipeline checkpoints the digest
// builder consumes.
type HistoryRecorder interface {
	Record(record types.HistoryRecord)
	Tail(n int) []types.HistoryRecord
}
