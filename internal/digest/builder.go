package digest

import (
	"tradepilot/internal/types"
)

// DefaultWindow is the trailing record count the digest is rebuilt from.
const DefaultWindow = 50

const recencyDecay = 0.9

// Builder rebuilds a TradeDigest from the trailing window of history
// records. Pure and deterministic: the same window always yields the same
// digest, so the read model can be reconstructed after a crash purely from
// persisted history.
//
// Trade counting is per executed leg: an entry and its exit each increment
// trade_count by one.
type Builder struct {
	window int
}

func NewBuilder(window int) *Builder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Builder{window: window}
}

type accumulator struct {
	entry       types.TradeDigestEntry
	closedCount int
	winCount    int
	holdingSum  int64
	cumPnl      float64
	peakPnl     float64
	maxDrawdown float64
	recentScore float64
}

// Build aggregates execution-kind records into per-instrument statistics.
// Input records are not mutated.
func (b *Builder) Build(records []types.HistoryRecord) types.TradeDigest {
	recent := records
	if len(recent) > b.window {
		recent = recent[len(recent)-b.window:]
	}

	accs := make(map[string]*accumulator)
	for _, record := range recent {
		if record.Kind != types.RecordKindExecution {
			continue
		}
		for _, trade := range types.TradesFromPayload(record.Payload) {
			symbol := trade.Instrument.Symbol
			if symbol == "" {
				continue
			}
			acc := accs[symbol]
			if acc == nil {
				acc = &accumulator{entry: types.TradeDigestEntry{Instrument: trade.Instrument}}
				accs[symbol] = acc
			}
			acc.entry.TradeCount++
			acc.entry.RealizedPnl += trade.RealizedPnl
			if trade.TradeTs > acc.entry.LastTradeTs {
				acc.entry.LastTradeTs = trade.TradeTs
			}
			if isClosingLeg(trade) {
				acc.closedCount++
				if trade.RealizedPnl > 0 {
					acc.winCount++
				}
				acc.holdingSum += trade.HoldingMs
				acc.cumPnl += trade.RealizedPnl
				if acc.cumPnl > acc.peakPnl {
					acc.peakPnl = acc.cumPnl
				}
				if dd := acc.peakPnl - acc.cumPnl; dd > acc.maxDrawdown {
					acc.maxDrawdown = dd
				}
				acc.recentScore = acc.recentScore*recencyDecay + signOf(trade.RealizedPnl)
			}
		}
	}

	byInstrument := make(map[string]types.TradeDigestEntry, len(accs))
	for symbol, acc := range accs {
		entry := acc.entry
		if acc.closedCount > 0 {
			entry.WinRate = float64(acc.winCount) / float64(acc.closedCount)
			entry.AvgHoldingMs = acc.holdingSum / int64(acc.closedCount)
			entry.MaxDrawdown = acc.maxDrawdown
			entry.RecentScore = acc.recentScore
		}
		byInstrument[symbol] = entry
	}

	ts := int64(0)
	if len(recent) > 0 {
		ts = recent[len(recent)-1].Ts
	}
	return types.TradeDigest{Ts: ts, ByInstrument: byInstrument}
}

// isClosingLeg reports whether a trade realized P&L, i.e. reduced or closed
// an existing position.
func isClosingLeg(trade types.Trade) bool {
	return trade.ExitPrice != 0 || trade.RealizedPnl != 0
}

func signOf(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
