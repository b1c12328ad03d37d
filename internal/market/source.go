package market

import (
	"context"

	"tradepilot/internal/types"
)

// Snapshot is the raw market state fetched once per cycle.
type Snapshot struct {
	Ts      int64
	Candles map[string][]types.Candle
	Prices  map[string]float64
}

// Source fetches raw market data for a set of instruments. A fetch failure
// is fatal to the cycle that requested it.
type Source interface {
	Fetch(ctx context.Context, instruments []types.InstrumentRef) (Snapshot, error)
}
