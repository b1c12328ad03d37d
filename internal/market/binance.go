package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tradepilot/internal/types"

	"github.com/adshao/go-binance/v2"
)

const maxKlineLimit = 1000

// BinanceSource implements Source against the Binance spot REST API.
// Read-only market data; no credentials required.
type BinanceSource struct {
	Interval string
	Window   int

	client *binance.Client
}

func NewBinanceSource(interval string, window int) *BinanceSource {
	if window <= 0 {
		window = 120
	}
	if window > maxKlineLimit {
		window = maxKlineLimit
	}
	return &BinanceSource{
		Interval: interval,
		Window:   window,
		client:   binance.NewClient("", ""),
	}
}

func (s *BinanceSource) Fetch(ctx context.Context, instruments []types.InstrumentRef) (Snapshot, error) {
	snap := Snapshot{
		Ts:      time.Now().UTC().UnixMilli(),
		Candles: make(map[string][]types.Candle, len(instruments)),
		Prices:  make(map[string]float64, len(instruments)),
	}
	for _, inst := range instruments {
		exchangeSymbol := toBinanceSymbol(inst.Symbol)
		kls, err := s.client.NewKlinesService().
			Symbol(exchangeSymbol).
			Interval(s.Interval).
			Limit(s.Window).
			Do(ctx)
		if err != nil {
			return Snapshot{}, fmt.Errorf("binance klines %s: %w", inst.Symbol, err)
		}
		if len(kls) == 0 {
			return Snapshot{}, fmt.Errorf("binance klines %s: empty response", inst.Symbol)
		}
		candles := make([]types.Candle, 0, len(kls))
		for _, k := range kls {
			candles = append(candles, types.Candle{
				Ts:         k.CloseTime,
				Instrument: inst,
				Open:       parsePrice(k.Open),
				High:       parsePrice(k.High),
				Low:        parsePrice(k.Low),
				Close:      parsePrice(k.Close),
				Volume:     parsePrice(k.Volume),
				Interval:   s.Interval,
			})
		}
		snap.Candles[inst.Symbol] = candles
		snap.Prices[inst.Symbol] = candles[len(candles)-1].Close
	}
	return snap, nil
}

// toBinanceSymbol converts "BTC-USDT" to the dashless exchange form.
func toBinanceSymbol(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(symbol)), "-", "")
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
