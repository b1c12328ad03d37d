package coordinator

import (
	"context"
	"time"

	"tradepilot/internal/composer"
	"tradepilot/internal/digest"
	"tradepilot/internal/execution"
	"tradepilot/internal/features"
	"tradepilot/internal/logger"
	"tradepilot/internal/market"
	"tradepilot/internal/portfolio"
	"tradepilot/internal/store"
	"tradepilot/internal/types"

	"github.com/google/uuid"
)

// DecisionCycleResult captures everything one decision cycle produced.
type DecisionCycleResult struct {
	ComposeID    string
	CycleIndex   int
	Ts           int64
	Instructions []types.TradeInstruction
	Trades       []types.Trade
	Portfolio    types.PortfolioView
	Summary      types.StrategySummary
	Rationale    string
}

// priceSink is implemented by gateways that consume per-cycle reference
// prices, such as the paper gateway.
type priceSink interface {
	UpdatePrices(prices map[string]float64)
}

// Coordinator runs one strategy's decision pipeline: fetch market data,
// compute features, compose instructions, execute, and fold the results
// back into history, digest, and persisted read models.
//
// A market or feature failure aborts the cycle. A composer or execution
// failure degrades the cycle but never kills the strategy loop; whatever
// fills the gateway reported before failing are kept, recorded, and
// persisted.
type Coordinator struct {
	StrategyID  string
	Name        string
	ModelID     string
	ExchangeID  string
	Mode        types.TradingMode
	Instruments []types.InstrumentRef
	Constraints types.Constraints

	// PromptFn resolves the current strategy prompt. Called once per
	// cycle so template hot reloads take effect on the next cycle.
	PromptFn func() string

	Market    market.Source
	Features  features.Computer
	Composer  *composer.Composer
	Gateway   execution.Gateway
	Portfolio *portfolio.Service
	Recorder  store.HistoryRecorder
	Digest    *digest.Builder
	Store     store.Persistence

	cycleIndex int
	nowFn      func() time.Time
}

func (c *Coordinator) now() time.Time {
	if c.nowFn != nil {
		return c.nowFn()
	}
	return time.Now()
}

// RunOnce executes one decision cycle. The returned result is valid
// whenever err is nil, including degraded no-op cycles.
func (c *Coordinator) RunOnce(ctx context.Context) (DecisionCycleResult, error) {
	c.cycleIndex++
	composeID := uuid.NewString()
	ts := c.now().UTC().UnixMilli()
	result := DecisionCycleResult{ComposeID: composeID, CycleIndex: c.cycleIndex, Ts: ts}

	snapshot, err := c.Market.Fetch(ctx, c.Instruments)
	if err != nil {
		return result, err
	}
	feats, err := c.Features.Compute(snapshot)
	if err != nil {
		return result, err
	}

	c.Portfolio.UpdateMarks(snapshot.Prices)
	if sink, ok := c.Gateway.(priceSink); ok {
		sink.UpdatePrices(snapshot.Prices)
	}
	preView := c.Portfolio.View()

	input := types.ComposeContext{
		Ts:           ts,
		ComposeID:    composeID,
		StrategyID:   c.StrategyID,
		ExchangeID:   c.ExchangeID,
		Features:     feats,
		Portfolio:    preView,
		Digest:       c.Digest.Build(c.Recorder.Tail(0)),
		PromptText:   c.prompt(),
		MarketPrices: snapshot.Prices,
		Constraints:  c.Constraints,
	}

	instructions, rationale, err := c.Composer.Compose(ctx, input)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		logger.Warnf("[%s] compose %s failed, degrading to no-op: %v", c.StrategyID, composeID, err)
		instructions = nil
		rationale = "composer unavailable: " + err.Error()
	}
	result.Instructions = instructions
	result.Rationale = rationale

	trades, err := c.Gateway.Execute(ctx, instructions)
	result.Trades = trades
	if err != nil {
		if ctx.Err() != nil {
			// Fills the venue produced before cancellation still reach
			// history and the store. The run context is dead, so the
			// flush gets a fresh one.
			c.Recorder.Record(types.ExecutionRecord(ts, composeID, trades))
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			c.persistTrades(flushCtx, trades)
			return result, ctx.Err()
		}
		logger.Warnf("[%s] execution for %s failed, keeping %d fills: %v", c.StrategyID, composeID, len(trades), err)
	}

	postView := c.Portfolio.View()
	result.Portfolio = postView

	// Every stage leaves a record, empty cycles included, so the audit
	// trail shows the cycle happened.
	c.Recorder.Record(types.HistoryRecord{
		Ts: ts, Kind: types.RecordKindFeatures, ReferenceID: composeID,
		Payload: map[string]any{"features": feats},
	})
	c.Recorder.Record(types.HistoryRecord{
		Ts: ts, Kind: types.RecordKindCompose, ReferenceID: composeID,
		Payload: map[string]any{"rationale": rationale, "instruction_count": len(instructions)},
	})
	c.Recorder.Record(types.HistoryRecord{
		Ts: ts, Kind: types.RecordKindInstructions, ReferenceID: composeID,
		Payload: map[string]any{"instructions": instructions},
	})
	c.Recorder.Record(types.ExecutionRecord(ts, composeID, trades))

	freshDigest := c.Digest.Build(c.Recorder.Tail(0))
	summary := c.buildSummary(postView, freshDigest, ts)
	result.Summary = summary

	c.persistCycle(ctx, result)
	return result, nil
}

// CloseAllPositions liquidates every open position with market
// instructions. Used on shutdown; partial failures return the trades that
// did fill alongside the error.
func (c *Coordinator) CloseAllPositions(ctx context.Context) ([]types.Trade, error) {
	view := c.Portfolio.View()
	composeID := uuid.NewString()
	ts := c.now().UTC().UnixMilli()

	var instructions []types.TradeInstruction
	for symbol, pos := range view.Positions {
		if pos.Quantity == 0 {
			continue
		}
		side := types.SideSell
		qty := pos.Quantity
		if qty < 0 {
			side = types.SideBuy
			qty = -qty
		}
		instructions = append(instructions, types.TradeInstruction{
			InstructionID: types.DeriveInstructionID(composeID, symbol),
			ComposeID:     composeID,
			Instrument:    pos.Instrument,
			Side:          side,
			Quantity:      qty,
			PriceMode:     types.PriceModeMarket,
		})
	}
	if len(instructions) == 0 {
		return nil, nil
	}
	logger.Infof("[%s] closing %d open positions", c.StrategyID, len(instructions))

	trades, err := c.Gateway.Execute(ctx, instructions)
	c.Recorder.Record(types.ExecutionRecord(ts, composeID, trades))
	c.persistTrades(ctx, trades)
	return trades, err
}

// Summary rebuilds the leaderboard projection from the current portfolio
// and history without running a cycle.
func (c *Coordinator) Summary() types.StrategySummary {
	view := c.Portfolio.View()
	return c.buildSummary(view, c.Digest.Build(c.Recorder.Tail(0)), c.now().UTC().UnixMilli())
}

func (c *Coordinator) Close() error {
	return c.Gateway.Close()
}

func (c *Coordinator) prompt() string {
	if c.PromptFn != nil {
		return c.PromptFn()
	}
	return ""
}

func (c *Coordinator) buildSummary(view types.PortfolioView, dg types.TradeDigest, ts int64) types.StrategySummary {
	tradeCount := 0
	for _, entry := range dg.ByInstrument {
		tradeCount += entry.TradeCount
	}
	summary := types.StrategySummary{
		StrategyID:    c.StrategyID,
		Name:          c.Name,
		ModelID:       c.ModelID,
		ExchangeID:    c.ExchangeID,
		Mode:          c.Mode,
		Status:        types.StatusRunning,
		RealizedPnl:   c.Portfolio.RealizedPnl(),
		UnrealizedPnl: view.TotalUnrealizedPnl,
		TotalValue:    view.TotalValue,
		TradeCount:    tradeCount,
		LastUpdatedTs: ts,
	}
	if capital := c.Portfolio.InitialCapital(); capital > 0 {
		summary.PnlPct = (view.TotalValue - capital) / capital * 100
	}
	return summary
}

// persistCycle writes the cycle artifacts. Persistence failures never fail
// the cycle; they are logged and the loop moves on.
func (c *Coordinator) persistCycle(ctx context.Context, result DecisionCycleResult) {
	if err := c.Store.PersistComposeCycle(ctx, store.ComposeCycle{
		StrategyID: c.StrategyID,
		ComposeID:  result.ComposeID,
		Ts:         result.Ts,
		CycleIndex: result.CycleIndex,
		Rationale:  result.Rationale,
	}); err != nil {
		logger.Warnf("[%s] persist cycle %s: %v", c.StrategyID, result.ComposeID, err)
	}
	if err := c.Store.PersistInstructions(ctx, c.StrategyID, result.Instructions); err != nil {
		logger.Warnf("[%s] persist instructions for %s: %v", c.StrategyID, result.ComposeID, err)
	}
	c.persistTrades(ctx, result.Trades)
	if err := c.Store.PersistPortfolioView(ctx, result.Portfolio); err != nil {
		logger.Warnf("[%s] persist portfolio view: %v", c.StrategyID, err)
	}
	if err := c.Store.PersistStrategySummary(ctx, result.Summary); err != nil {
		logger.Warnf("[%s] persist summary: %v", c.StrategyID, err)
	}
}

func (c *Coordinator) persistTrades(ctx context.Context, trades []types.Trade) {
	for _, trade := range trades {
		if err := c.Store.PersistTradeHistory(ctx, c.StrategyID, trade); err != nil {
			logger.Warnf("[%s] persist trade %s: %v", c.StrategyID, trade.TradeID, err)
		}
	}
}
