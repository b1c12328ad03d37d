package types

// TradeDigestEntry holds rolling per-instrument trade statistics.
type TradeDigestEntry struct {
	Instrument   InstrumentRef `json:"instrument"`
	TradeCount   int           `json:"trade_count"`
	RealizedPnl  float64       `json:"realized_pnl"`
	WinRate      float64       `json:"win_rate,omitempty"`
	AvgHoldingMs int64         `json:"avg_holding_ms,omitempty"`
	LastTradeTs  int64         `json:"last_trade_ts,omitempty"`
	MaxDrawdown  float64       `json:"max_drawdown,omitempty"`
	RecentScore  float64       `json:"recent_performance_score,omitempty"`
}

// TradeDigest is the rolling read model rebuilt from recent execution
// history on every cycle.
type TradeDigest struct {
	Ts           int64                       `json:"ts"`
	ByInstrument map[string]TradeDigestEntry `json:"by_instrument"`
}

// LastTradeTs returns the last trade timestamp for a symbol, zero when the
// digest has no entry.
func (d TradeDigest) LastTradeTs(symbol string) int64 {
	if entry, ok := d.ByInstrument[symbol]; ok {
		return entry.LastTradeTs
	}
	return 0
}
