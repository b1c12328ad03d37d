package types

// TradeType is the semantic direction of a position.
type TradeType string

const (
	TradeTypeLong  TradeType = "LONG"
	TradeTypeShort TradeType = "SHORT"
)

// PositionSnapshot is the current position state for one instrument.
// The sign of Quantity alone determines long/short; MarkPrice must be
// refreshed before UnrealizedPnl is trusted.
type PositionSnapshot struct {
	Instrument    InstrumentRef `json:"instrument"`
	Quantity      float64       `json:"quantity"`
	AvgPrice      float64       `json:"avg_price,omitempty"`
	MarkPrice     float64       `json:"mark_price,omitempty"`
	UnrealizedPnl float64       `json:"unrealized_pnl,omitempty"`
	Notional      float64       `json:"notional,omitempty"`
	Leverage      float64       `json:"leverage,omitempty"`
	EntryTs       int64         `json:"entry_ts,omitempty"`
	PnlPct        float64       `json:"pnl_pct,omitempty"`
}

// Type reports LONG or SHORT based on the quantity sign.
func (p PositionSnapshot) Type() TradeType {
	if p.Quantity < 0 {
		return TradeTypeShort
	}
	return TradeTypeLong
}

// PortfolioView is a point-in-time portfolio snapshot consumed by the
// composer. Read-only to the coordinator.
type PortfolioView struct {
	StrategyID         string                      `json:"strategy_id,omitempty"`
	Ts                 int64                       `json:"ts"`
	Cash               float64                     `json:"cash"`
	Positions          map[string]PositionSnapshot `json:"positions"`
	TotalValue         float64                     `json:"total_value,omitempty"`
	TotalUnrealizedPnl float64                     `json:"total_unrealized_pnl,omitempty"`
	AvailableCash      float64                     `json:"available_cash,omitempty"`
}

// PositionQty returns the signed quantity for a symbol, zero when absent.
func (v PortfolioView) PositionQty(symbol string) float64 {
	if pos, ok := v.Positions[symbol]; ok {
		return pos.Quantity
	}
	return 0
}

// OpenPositions counts positions with non-zero quantity.
func (v PortfolioView) OpenPositions() int {
	n := 0
	for _, pos := range v.Positions {
		if pos.Quantity != 0 {
			n++
		}
	}
	return n
}
