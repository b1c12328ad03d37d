package coordinator

import (
	"context"
	"fmt"
	"testing"

	"tradepilot/internal/composer"
	"tradepilot/internal/digest"
	"tradepilot/internal/execution"
	"tradepilot/internal/features"
	"tradepilot/internal/market"
	"tradepilot/internal/portfolio"
	"tradepilot/internal/store"
	"tradepilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedOracle struct {
	proposals []types.DecisionProposal
	errs      []error
	calls     int
}

func (s *scriptedOracle) Propose(_ context.Context, input types.ComposeContext) (types.DecisionProposal, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return types.DecisionProposal{}, s.errs[idx]
	}
	if idx >= len(s.proposals) {
		return types.DecisionProposal{Ts: input.Ts}, nil
	}
	return s.proposals[idx], nil
}

type failingSource struct{}

func (failingSource) Fetch(context.Context, []types.InstrumentRef) (market.Snapshot, error) {
	return market.Snapshot{}, fmt.Errorf("feed down")
}

func targetProposal(symbol string, action types.ProposalAction, target float64) types.DecisionProposal {
	return types.DecisionProposal{Items: []types.ProposalItem{{
		Instrument: types.ParseInstrument(symbol, "binance"),
		Action:     action,
		TargetQty:  target,
	}}}
}

func newTestCoordinator(oracleImpl *scriptedOracle, src market.Source) (*Coordinator, *store.MemoryStore) {
	pf := portfolio.NewService("strat-1", 10_000)
	mem := store.NewMemoryStore()
	if src == nil {
		src = market.NewSimSource("1m", 60)
	}
	return &Coordinator{
		StrategyID:  "strat-1",
		Name:        "test",
		ExchangeID:  "binance",
		Mode:        types.ModeVirtual,
		Instruments: []types.InstrumentRef{types.ParseInstrument("BTC-USDT", "binance")},
		PromptFn:    func() string { return "test prompt" },
		Market:      src,
		Features:    features.NewIndicatorComputer(),
		Composer:    composer.New(oracleImpl),
		Gateway:     execution.NewPaperGateway(pf, 0),
		Portfolio:   pf,
		Recorder:    store.NewMemoryRecorder(0),
		Digest:      digest.NewBuilder(digest.DefaultWindow),
		Store:       mem,
	}, mem
}

func TestRunOnceExecutesTarget(t *testing.T) {
	oracleImpl := &scriptedOracle{proposals: []types.DecisionProposal{
		targetProposal("BTC-USDT", types.ActionBuy, 1),
	}}
	coord, mem := newTestCoordinator(oracleImpl, nil)

	result, err := coord.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.CycleIndex)
	assert.NotEmpty(t, result.ComposeID)
	require.Len(t, result.Instructions, 1)
	require.Len(t, result.Trades, 1)
	assert.InDelta(t, 1.0, result.Portfolio.PositionQty("BTC-USDT"), 1e-9)

	// Every stage left a history record.
	records := coord.Recorder.Tail(0)
	require.Len(t, records, 4)
	kinds := make([]string, 0, 4)
	for _, r := range records {
		assert.Equal(t, result.ComposeID, r.ReferenceID)
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, []string{
		types.RecordKindFeatures,
		types.RecordKindCompose,
		types.RecordKindInstructions,
		types.RecordKindExecution,
	}, kinds)

	// Cycle artifacts persisted.
	require.Len(t, mem.Cycles(), 1)
	assert.Len(t, mem.Instructions(), 1)
	trades, err := mem.ListTrades(context.Background(), "strat-1", 0)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestRunOnceFlatAndDigestCountsLegs(t *testing.T) {
	oracleImpl := &scriptedOracle{proposals: []types.DecisionProposal{
		targetProposal("BTC-USDT", types.ActionBuy, 1),
		targetProposal("BTC-USDT", types.ActionFlat, 0),
	}}
	coord, _ := newTestCoordinator(oracleImpl, nil)

	_, err := coord.RunOnce(context.Background())
	require.NoError(t, err)
	result, err := coord.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Zero(t, result.Portfolio.PositionQty("BTC-USDT"))
	dg := coord.Digest.Build(coord.Recorder.Tail(0))
	entry, ok := dg.ByInstrument["BTC-USDT"]
	require.True(t, ok)
	assert.Equal(t, 2, entry.TradeCount)
	assert.Equal(t, 2, result.Summary.TradeCount)
}

func TestRunOnceDegradesOnComposerFailure(t *testing.T) {
	oracleImpl := &scriptedOracle{errs: []error{fmt.Errorf("model timeout")}}
	coord, mem := newTestCoordinator(oracleImpl, nil)

	result, err := coord.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Instructions)
	assert.Empty(t, result.Trades)
	assert.Contains(t, result.Rationale, "composer unavailable")

	// The degraded cycle still records history and persists artifacts.
	assert.Len(t, coord.Recorder.Tail(0), 4)
	assert.Len(t, mem.Cycles(), 1)
}

// partialGateway fills at most the first instruction, then reports a
// venue error.
type partialGateway struct {
	inner *execution.PaperGateway
	err   error
}

func (g *partialGateway) Execute(ctx context.Context, instructions []types.TradeInstruction) ([]types.Trade, error) {
	if len(instructions) == 0 {
		return nil, g.err
	}
	trades, _ := g.inner.Execute(ctx, instructions[:1])
	return trades, g.err
}

func (g *partialGateway) UpdatePrices(prices map[string]float64) { g.inner.UpdatePrices(prices) }
func (g *partialGateway) Close() error                           { return g.inner.Close() }

func TestRunOnceKeepsPartialFillOnExecutionError(t *testing.T) {
	oracleImpl := &scriptedOracle{proposals: []types.DecisionProposal{
		targetProposal("BTC-USDT", types.ActionBuy, 1),
	}}
	coord, mem := newTestCoordinator(oracleImpl, nil)
	coord.Gateway = &partialGateway{
		inner: coord.Gateway.(*execution.PaperGateway),
		err:   fmt.Errorf("venue disconnected after first fill"),
	}

	result, err := coord.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)

	records := coord.Recorder.Tail(0)
	require.Len(t, records, 4)
	last := records[len(records)-1]
	assert.Equal(t, types.RecordKindExecution, last.Kind)
	assert.Len(t, types.TradesFromPayload(last.Payload), 1)

	persisted, err := mem.ListTrades(context.Background(), "strat-1", 0)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, result.Trades[0].TradeID, persisted[0].TradeID)
}

// cancellingGateway fills everything, then cancels the run context and
// reports the interruption, the way a venue call cut off mid-flight does.
type cancellingGateway struct {
	inner  *execution.PaperGateway
	cancel context.CancelFunc
}

func (g *cancellingGateway) Execute(ctx context.Context, instructions []types.TradeInstruction) ([]types.Trade, error) {
	trades, _ := g.inner.Execute(ctx, instructions)
	g.cancel()
	return trades, fmt.Errorf("interrupted")
}

func (g *cancellingGateway) UpdatePrices(prices map[string]float64) { g.inner.UpdatePrices(prices) }
func (g *cancellingGateway) Close() error                           { return g.inner.Close() }

func TestRunOnceCancelledMidExecutionPersistsFills(t *testing.T) {
	oracleImpl := &scriptedOracle{proposals: []types.DecisionProposal{
		targetProposal("BTC-USDT", types.ActionBuy, 1),
	}}
	coord, mem := newTestCoordinator(oracleImpl, nil)
	ctx, cancel := context.WithCancel(context.Background())
	coord.Gateway = &cancellingGateway{
		inner:  coord.Gateway.(*execution.PaperGateway),
		cancel: cancel,
	}

	result, err := coord.RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, result.Trades, 1)

	// The fill reached history and the store before the cycle bailed out.
	records := coord.Recorder.Tail(0)
	require.NotEmpty(t, records)
	assert.Equal(t, types.RecordKindExecution, records[len(records)-1].Kind)
	persisted, err := mem.ListTrades(context.Background(), "strat-1", 0)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
}

func TestRunOnceMarketFailureIsFatal(t *testing.T) {
	coord, mem := newTestCoordinator(&scriptedOracle{}, failingSource{})

	_, err := coord.RunOnce(context.Background())
	require.Error(t, err)
	assert.Empty(t, coord.Recorder.Tail(0))
	assert.Empty(t, mem.Cycles())
}

func TestCloseAllPositions(t *testing.T) {
	oracleImpl := &scriptedOracle{proposals: []types.DecisionProposal{
		targetProposal("BTC-USDT", types.ActionBuy, 2),
	}}
	coord, mem := newTestCoordinator(oracleImpl, nil)

	_, err := coord.RunOnce(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 2.0, coord.Portfolio.View().PositionQty("BTC-USDT"), 1e-9)

	trades, err := coord.CloseAllPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, types.SideSell, trades[0].Side)
	assert.Zero(t, coord.Portfolio.View().PositionQty("BTC-USDT"))

	persisted, err := mem.ListTrades(context.Background(), "strat-1", 0)
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestCloseAllPositionsEmptyPortfolio(t *testing.T) {
	coord, _ := newTestCoordinator(&scriptedOracle{}, nil)
	trades, err := coord.CloseAllPositions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, trades)
}
