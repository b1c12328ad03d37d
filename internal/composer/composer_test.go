package composer

import (
	"context"
	"fmt"
	"testing"

	"tradepilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(cons types.Constraints) types.ComposeContext {
	return types.ComposeContext{
		Ts:           1_700_000_000_000,
		ComposeID:    "compose-1",
		StrategyID:   "strat-1",
		Portfolio:    types.PortfolioView{Positions: map[string]types.PositionSnapshot{}},
		Digest:       types.TradeDigest{ByInstrument: map[string]types.TradeDigestEntry{}},
		MarketPrices: map[string]float64{},
		Constraints:  cons,
	}
}

func item(symbol string, action types.ProposalAction, target float64) types.ProposalItem {
	return types.ProposalItem{
		Instrument: types.ParseInstrument(symbol, "binance"),
		Action:     action,
		TargetQty:  target,
	}
}

func TestNormalizeDeltaFromTarget(t *testing.T) {
	input := testContext(types.Constraints{})
	input.Portfolio.Positions["BTC-USDT"] = types.PositionSnapshot{
		Instrument: types.ParseInstrument("BTC-USDT", "binance"),
		Quantity:   2,
	}

	proposal := types.DecisionProposal{Items: []types.ProposalItem{
		item("BTC-USDT", types.ActionBuy, 5),
	}}
	instructions, _ := Normalize(input, proposal)
	require.Len(t, instructions, 1)
	assert.Equal(t, types.SideBuy, instructions[0].Side)
	assert.InDelta(t, 3.0, instructions[0].Quantity, 1e-9)

	// Target equal to current produces nothing.
	proposal.Items[0].TargetQty = 2
	instructions, _ = Normalize(input, proposal)
	assert.Empty(t, instructions)
}

func TestNormalizeSellDelta(t *testing.T) {
	input := testContext(types.Constraints{})
	input.Portfolio.Positions["ETH-USDT"] = types.PositionSnapshot{
		Instrument: types.ParseInstrument("ETH-USDT", "binance"),
		Quantity:   4,
	}
	proposal := types.DecisionProposal{Items: []types.ProposalItem{
		item("ETH-USDT", types.ActionSell, 1),
	}}
	instructions, _ := Normalize(input, proposal)
	require.Len(t, instructions, 1)
	assert.Equal(t, types.SideSell, instructions[0].Side)
	assert.InDelta(t, 3.0, instructions[0].Quantity, 1e-9)
}

func TestNormalizeDedupeFirstWins(t *testing.T) {
	input := testContext(types.Constraints{})
	proposal := types.DecisionProposal{Items: []types.ProposalItem{
		item("BTC-USDT", types.ActionBuy, 1),
		item("BTC-USDT", types.ActionBuy, 9),
	}}
	instructions, _ := Normalize(input, proposal)
	require.Len(t, instructions, 1)
	assert.InDelta(t, 1.0, instructions[0].Quantity, 1e-9)
}

func TestNormalizeNoopSkipped(t *testing.T) {
	input := testContext(types.Constraints{})
	proposal := types.DecisionProposal{Items: []types.ProposalItem{
		item("BTC-USDT", types.ActionNoop, 3),
	}}
	instructions, _ := Normalize(input, proposal)
	assert.Empty(t, instructions)
}

func TestNormalizeFlatClosesPosition(t *testing.T) {
	input := testContext(types.Constraints{})
	input.Portfolio.Positions["BTC-USDT"] = types.PositionSnapshot{
		Instrument: types.ParseInstrument("BTC-USDT", "binance"),
		Quantity:   2,
	}
	proposal := types.DecisionProposal{Items: []types.ProposalItem{
		item("BTC-USDT", types.ActionFlat, 7), // target ignored for flat
	}}
	instructions, _ := Normalize(input, proposal)
	require.Len(t, instructions, 1)
	assert.Equal(t, types.SideSell, instructions[0].Side)
	assert.InDelta(t, 2.0, instructions[0].Quantity, 1e-9)
}

func TestNormalizeMaxPositionSizeCapsTarget(t *testing.T) {
	input := testContext(types.Constraints{MaxPositionSize: 4})
	proposal := types.DecisionProposal{Items: []types.ProposalItem{
		item("BTC-USDT", types.ActionBuy, 10),
	}}
	instructions, notes := Normalize(input, proposal)
	require.Len(t, instructions, 1)
	assert.InDelta(t, 4.0, instructions[0].Quantity, 1e-9)
	assert.NotEmpty(t, notes)
}

func TestNormalizeMaxLeverageBoundsNotional(t *testing.T) {
	input := testContext(types.Constraints{MaxLeverage: 2})
	input.Portfolio.TotalValue = 10_000
	input.MarketPrices["BTC-USDT"] = 100

	// 50k target notional against a 20k gross bound.
	proposal := types.DecisionProposal{Items: []types.ProposalItem{
		item("BTC-USDT", types.ActionBuy, 500),
	}}
	instructions, notes := Normalize(input, proposal)
	require.Len(t, instructions, 1)
	assert.InDelta(t, 200.0, instructions[0].Quantity, 1e-9)
	assert.NotEmpty(t, notes)

	// Exposure held elsewhere shrinks the headroom.
	input.Portfolio.Positions["ETH-USDT"] = types.PositionSnapshot{
		Instrument: types.ParseInstrument("ETH-USDT", "binance"),
		Quantity:   150,
		MarkPrice:  100,
	}
	instructions, _ = Normalize(input, proposal)
	require.Len(t, instructions, 1)
	assert.InDelta(t, 50.0, instructions[0].Quantity, 1e-9)

	// Inside the bound the target passes untouched.
	proposal.Items[0].TargetQty = 30
	instructions, notes = Normalize(input, proposal)
	require.Len(t, instructions, 1)
	assert.InDelta(t, 30.0, instructions[0].Quantity, 1e-9)
	assert.Empty(t, notes)
}

func TestNormalizeStepSizeFloor(t *testing.T) {
	input := testContext(types.Constraints{StepSize: 0.001})

	proposal := types.DecisionProposal{Items: []types.ProposalItem{
		item("BTC-USDT", types.ActionBuy, 0.0025),
	}}
	instructions, _ := Normalize(input, proposal)
	require.Len(t, instructions, 1)
	assert.InDelta(t, 0.002, instructions[0].Quantity, 1e-9)

	// Below one step the instruction is dropped.
	proposal.Items[0].TargetQty = 0.0009
	instructions, notes := Normalize(input, proposal)
	assert.Empty(t, instructions)
	assert.NotEmpty(t, notes)
}

func TestNormalizeMinNotional(t *testing.T) {
	input := testContext(types.Constraints{MinNotional: 50})
	input.MarketPrices["BTC-USDT"] = 100
	proposal := types.DecisionProposal{Items: []types.ProposalItem{
		item("BTC-USDT", types.ActionBuy, 0.2), // 20 notional
	}}
	instructions, notes := Normalize(input, proposal)
	assert.Empty(t, instructions)
	assert.NotEmpty(t, notes)

	proposal.Items[0].TargetQty = 1 // 100 notional
	instructions, _ = Normalize(input, proposal)
	assert.Len(t, instructions, 1)
}

func TestNormalizeCooldown(t *testing.T) {
	input := testContext(types.Constraints{CooldownMs: 60_000})
	input.Digest.ByInstrument["BTC-USDT"] = types.TradeDigestEntry{
		Instrument:  types.ParseInstrument("BTC-USDT", "binance"),
		LastTradeTs: input.Ts - 10_000,
	}
	proposal := types.DecisionProposal{Items: []types.ProposalItem{
		item("BTC-USDT", types.ActionBuy, 1),
	}}
	instructions, notes := Normalize(input, proposal)
	assert.Empty(t, instructions)
	assert.NotEmpty(t, notes)

	// Outside the cooldown the instruction goes through.
	input.Digest.ByInstrument["BTC-USDT"] = types.TradeDigestEntry{
		LastTradeTs: input.Ts - 120_000,
	}
	instructions, _ = Normalize(input, proposal)
	assert.Len(t, instructions, 1)
}

func TestNormalizeMaxPositionsCountsNewOpens(t *testing.T) {
	input := testContext(types.Constraints{MaxPositions: 1})
	proposal := types.DecisionProposal{Items: []types.ProposalItem{
		item("BTC-USDT", types.ActionBuy, 1),
		item("ETH-USDT", types.ActionBuy, 1),
	}}
	instructions, notes := Normalize(input, proposal)
	require.Len(t, instructions, 1)
	assert.Equal(t, "BTC-USDT", instructions[0].Instrument.Symbol)
	assert.NotEmpty(t, notes)

	// Adjusting an existing position is never blocked by the cap.
	input.Portfolio.Positions["ETH-USDT"] = types.PositionSnapshot{
		Instrument: types.ParseInstrument("ETH-USDT", "binance"),
		Quantity:   2,
	}
	instructions, _ = Normalize(input, types.DecisionProposal{Items: []types.ProposalItem{
		item("ETH-USDT", types.ActionSell, 1),
	}})
	assert.Len(t, instructions, 1)
}

func TestNormalizeIdempotent(t *testing.T) {
	input := testContext(types.Constraints{MaxPositionSize: 3})
	input.MarketPrices["BTC-USDT"] = 50_000
	proposal := types.DecisionProposal{Items: []types.ProposalItem{
		item("BTC-USDT", types.ActionBuy, 2),
		item("ETH-USDT", types.ActionSell, -1),
	}}
	first, _ := Normalize(input, proposal)
	second, _ := Normalize(input, proposal)
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, types.DeriveInstructionID("compose-1", "BTC-USDT"), first[0].InstructionID)
}

type stubOracle struct {
	proposal types.DecisionProposal
	err      error
}

func (s stubOracle) Propose(_ context.Context, _ types.ComposeContext) (types.DecisionProposal, error) {
	return s.proposal, s.err
}

func TestComposePropagatesOracleError(t *testing.T) {
	c := New(stubOracle{err: fmt.Errorf("model unavailable")})
	_, _, err := c.Compose(context.Background(), testContext(types.Constraints{}))
	require.Error(t, err)
}

func TestComposeRationaleAggregation(t *testing.T) {
	proposal := types.DecisionProposal{
		Items: []types.ProposalItem{{
			Instrument: types.ParseInstrument("BTC-USDT", "binance"),
			Action:     types.ActionBuy,
			TargetQty:  1,
			Rationale:  "momentum intact",
		}},
		Notes: []string{"risk on"},
	}
	c := New(stubOracle{proposal: proposal})
	instructions, rationale, err := c.Compose(context.Background(), testContext(types.Constraints{}))
	require.NoError(t, err)
	assert.Len(t, instructions, 1)
	assert.Contains(t, rationale, "risk on")
	assert.Contains(t, rationale, "momentum intact")
}
