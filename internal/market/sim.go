package market

import (
	"context"
	"math"
	"sync"
	"time"

	"tradepilot/internal/types"
)

// SimSource produces deterministic synthetic candles for paper strategies.
// Prices follow a seeded sinusoidal walk around a per-symbol base price so
// repeated runs are reproducible.
type SimSource struct {
	Interval string
	Window   int

	mu         sync.Mutex
	basePrices map[string]float64
	ticks      map[string]int64
	nowFn      func() time.Time
}

func NewSimSource(interval string, window int) *SimSource {
	if window <= 0 {
		window = 120
	}
	return &SimSource{
		Interval:   interval,
		Window:     window,
		basePrices: make(map[string]float64),
		ticks:      make(map[string]int64),
		nowFn:      time.Now,
	}
}

func (s *SimSource) Fetch(_ context.Context, instruments []types.InstrumentRef) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn().UTC()
	snap := Snapshot{
		Ts:      now.UnixMilli(),
		Candles: make(map[string][]types.Candle, len(instruments)),
		Prices:  make(map[string]float64, len(instruments)),
	}
	step := intervalDuration(s.Interval)
	for idx, inst := range instruments {
		base := s.basePrices[inst.Symbol]
		if base == 0 {
			base = 120.0 + float64(idx)*15.0
			s.basePrices[inst.Symbol] = base
		}
		tick := s.ticks[inst.Symbol]
		candles := make([]types.Candle, 0, s.Window)
		for i := 0; i < s.Window; i++ {
			t := tick - int64(s.Window) + int64(i) + 1
			open := simPrice(base, t-1)
			close := simPrice(base, t)
			high := math.Max(open, close) * 1.001
			low := math.Min(open, close) * 0.999
			end := now.Add(-time.Duration(int64(s.Window)-int64(i)-1) * step)
			candles = append(candles, types.Candle{
				Ts:         end.UnixMilli(),
				Instrument: inst,
				Open:       open,
				High:       high,
				Low:        low,
				Close:      close,
				Volume:     1000 + 37*float64((t%29+29)%29),
				Interval:   s.Interval,
			})
		}
		s.ticks[inst.Symbol] = tick + 1
		snap.Candles[inst.Symbol] = candles
		snap.Prices[inst.Symbol] = candles[len(candles)-1].Close
	}
	return snap, nil
}

func simPrice(base float64, tick int64) float64 {
	t := float64(tick)
	return base * (1 + 0.01*math.Sin(t/7) + 0.004*math.Sin(t/3))
}

func intervalDuration(interval string) time.Duration {
	if d, ok := ParseInterval(interval); ok {
		return d
	}
	return time.Minute
}
