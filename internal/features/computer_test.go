package features

import (
	"context"
	"testing"

	"tradepilot/internal/market"
	"tradepilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simSnapshot(t *testing.T, window int) market.Snapshot {
	t.Helper()
	src := market.NewSimSource("1m", window)
	snap, err := src.Fetch(context.Background(), []types.InstrumentRef{
		types.ParseInstrument("BTC-USDT", "binance"),
	})
	require.NoError(t, err)
	return snap
}

func TestComputeFullIndicatorSet(t *testing.T) {
	snap := simSnapshot(t, 120)
	feats, err := NewIndicatorComputer().Compute(snap)
	require.NoError(t, err)
	require.Len(t, feats, 1)

	fv := feats[0]
	assert.Equal(t, "BTC-USDT", fv.Instrument.Symbol)
	for _, key := range []string{
		"close", "return_1", "return_12",
		"rsi_14", "ema_fast", "ema_slow", "ema_trend",
		"macd", "macd_signal", "macd_hist", "volatility_20",
	} {
		assert.Contains(t, fv.Values, key)
	}
	assert.Equal(t, 120, fv.Meta["window"])
}

func TestComputeShortHistoryOmitsSlowIndicators(t *testing.T) {
	snap := simSnapshot(t, 10)
	feats, err := NewIndicatorComputer().Compute(snap)
	require.NoError(t, err)
	require.Len(t, feats, 1)

	fv := feats[0]
	assert.Contains(t, fv.Values, "close")
	assert.NotContains(t, fv.Values, "rsi_14")
	assert.NotContains(t, fv.Values, "macd")
}

func TestComputeEmptyCandlesFails(t *testing.T) {
	snap := market.Snapshot{Candles: map[string][]types.Candle{"BTC-USDT": nil}}
	_, err := NewIndicatorComputer().Compute(snap)
	assert.Error(t, err)
}
