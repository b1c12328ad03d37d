package portfolio

import (
	"testing"

	"tradepilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buyInstr(symbol string, qty float64) types.TradeInstruction {
	return types.TradeInstruction{
		InstructionID: "i-" + symbol,
		ComposeID:     "c-1",
		Instrument:    types.ParseInstrument(symbol, "binance"),
		Side:          types.SideBuy,
		Quantity:      qty,
		PriceMode:     types.PriceModeMarket,
	}
}

func sellInstr(symbol string, qty float64) types.TradeInstruction {
	instr := buyInstr(symbol, qty)
	instr.Side = types.SideSell
	return instr
}

func TestApplyOpensLong(t *testing.T) {
	s := NewService("strat-1", 10_000)
	trade := s.Apply(buyInstr("BTC-USDT", 2), 100, 1000)

	assert.Equal(t, types.TradeTypeLong, trade.Type)
	assert.InDelta(t, 100.0, trade.EntryPrice, 1e-9)
	assert.Zero(t, trade.RealizedPnl)

	view := s.View()
	assert.InDelta(t, 9_800.0, view.Cash, 1e-9)
	assert.InDelta(t, 2.0, view.PositionQty("BTC-USDT"), 1e-9)
}

func TestApplyExtendsWithVWAP(t *testing.T) {
	s := NewService("strat-1", 10_000)
	s.Apply(buyInstr("BTC-USDT", 1), 100, 1000)
	s.Apply(buyInstr("BTC-USDT", 1), 200, 2000)

	view := s.View()
	pos := view.Positions["BTC-USDT"]
	assert.InDelta(t, 150.0, pos.AvgPrice, 1e-9)
	assert.InDelta(t, 2.0, pos.Quantity, 1e-9)
}

func TestApplyClosesWithRealizedPnl(t *testing.T) {
	s := NewService("strat-1", 10_000)
	s.Apply(buyInstr("BTC-USDT", 2), 100, 1000)
	trade := s.Apply(sellInstr("BTC-USDT", 2), 120, 5000)

	assert.Equal(t, types.TradeTypeLong, trade.Type)
	assert.InDelta(t, 40.0, trade.RealizedPnl, 1e-9)
	assert.InDelta(t, 20.0, trade.RealizedPnlPct, 1e-9)
	assert.Equal(t, int64(4000), trade.HoldingMs)

	view := s.View()
	assert.Zero(t, view.PositionQty("BTC-USDT"))
	assert.InDelta(t, 10_040.0, view.Cash, 1e-9)
	assert.InDelta(t, 40.0, s.RealizedPnl(), 1e-9)
}

func TestApplyShortRoundTrip(t *testing.T) {
	s := NewService("strat-1", 10_000)
	s.Apply(sellInstr("ETH-USDT", 3), 50, 1000)
	trade := s.Apply(buyInstr("ETH-USDT", 3), 40, 2000)

	assert.Equal(t, types.TradeTypeShort, trade.Type)
	assert.InDelta(t, 30.0, trade.RealizedPnl, 1e-9)

	view := s.View()
	assert.Zero(t, view.PositionQty("ETH-USDT"))
	assert.InDelta(t, 10_030.0, view.Cash, 1e-9)
}

func TestApplyFlipRealizesAndReopens(t *testing.T) {
	s := NewService("strat-1", 10_000)
	s.Apply(buyInstr("BTC-USDT", 2), 100, 1000)
	trade := s.Apply(sellInstr("BTC-USDT", 5), 110, 2000)

	// Closes the 2-long with pnl, opens a 3-short at the fill price.
	assert.InDelta(t, 20.0, trade.RealizedPnl, 1e-9)
	view := s.View()
	pos := view.Positions["BTC-USDT"]
	assert.InDelta(t, -3.0, pos.Quantity, 1e-9)
	assert.InDelta(t, 110.0, pos.AvgPrice, 1e-9)
}

func TestViewUnrealizedUsesMarks(t *testing.T) {
	s := NewService("strat-1", 10_000)
	s.Apply(buyInstr("BTC-USDT", 2), 100, 1000)
	s.UpdateMarks(map[string]float64{"BTC-USDT": 130})

	view := s.View()
	pos := view.Positions["BTC-USDT"]
	assert.InDelta(t, 60.0, pos.UnrealizedPnl, 1e-9)
	assert.InDelta(t, 60.0, view.TotalUnrealizedPnl, 1e-9)
	require.InDelta(t, 9_800.0+260.0, view.TotalValue, 1e-9)
}
