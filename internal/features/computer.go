package features

import (
	"fmt"
	"math"

	"tradepilot/internal/market"
	"tradepilot/internal/types"

	talib "github.com/markcheno/go-talib"
)

// Computer derives feature vectors from a raw market snapshot.
type Computer interface {
	Compute(snapshot market.Snapshot) ([]types.FeatureVector, error)
}

const (
	rsiPeriod     = 14
	emaFastPeriod = 12
	emaSlowPeriod = 26
	macdSignal    = 9
	volWindow     = 20
)

// IndicatorComputer computes a fixed indicator set (RSI, EMA trend, MACD,
// returns, rolling volatility) per instrument.
type IndicatorComputer struct{}

func NewIndicatorComputer() *IndicatorComputer {
	return &IndicatorComputer{}
}

func (c *IndicatorComputer) Compute(snapshot market.Snapshot) ([]types.FeatureVector, error) {
	out := make([]types.FeatureVector, 0, len(snapshot.Candles))
	for symbol, candles := range snapshot.Candles {
		if len(candles) == 0 {
			return nil, fmt.Errorf("features: no candles for %s", symbol)
		}
		closes := make([]float64, len(candles))
		for i, cd := range candles {
			closes[i] = cd.Close
		}
		last := candles[len(candles)-1]
		values := map[string]float64{
			"close":     last.Close,
			"return_1":  pctChange(closes, 1),
			"return_12": pctChange(closes, 12),
		}
		if len(closes) > rsiPeriod {
			rsi := talib.Rsi(closes, rsiPeriod)
			values["rsi_14"] = rsi[len(rsi)-1]
		}
		if len(closes) > emaSlowPeriod {
			fast := talib.Ema(closes, emaFastPeriod)
			slow := talib.Ema(closes, emaSlowPeriod)
			values["ema_fast"] = fast[len(fast)-1]
			values["ema_slow"] = slow[len(slow)-1]
			if slow[len(slow)-1] != 0 {
				values["ema_trend"] = (fast[len(fast)-1] - slow[len(slow)-1]) / slow[len(slow)-1]
			}
		}
		if len(closes) > emaSlowPeriod+macdSignal {
			macd, signal, hist := talib.Macd(closes, emaFastPeriod, emaSlowPeriod, macdSignal)
			values["macd"] = macd[len(macd)-1]
			values["macd_signal"] = signal[len(signal)-1]
			values["macd_hist"] = hist[len(hist)-1]
		}
		if vol, ok := rollingVol(closes, volWindow); ok {
			values["volatility_20"] = vol
		}
		out = append(out, types.FeatureVector{
			Ts:         snapshot.Ts,
			Instrument: last.Instrument,
			Values:     values,
			Meta: map[string]any{
				"window":   len(candles),
				"interval": last.Interval,
			},
		})
	}
	return out, nil
}

func pctChange(closes []float64, lag int) float64 {
	if len(closes) <= lag {
		return 0
	}
	prev := closes[len(closes)-1-lag]
	if prev == 0 {
		return 0
	}
	return (closes[len(closes)-1] - prev) / prev
}

// rollingVol is the stddev of single-period returns over the window.
func rollingVol(closes []float64, window int) (float64, bool) {
	if len(closes) < window+1 {
		return 0, false
	}
	rets := make([]float64, 0, window)
	for i := len(closes) - window; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		rets = append(rets, closes[i]/closes[i-1]-1)
	}
	if len(rets) == 0 {
		return 0, false
	}
	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	var sq float64
	for _, r := range rets {
		sq += (r - mean) * (r - mean)
	}
	return math.Sqrt(sq / float64(len(rets))), true
}
