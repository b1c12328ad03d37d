package types

// Trade is an executed fill record. Closing legs carry realized P&L;
// opening legs carry entry metadata.
type Trade struct {
	TradeID        string        `json:"trade_id"`
	ComposeID      string        `json:"compose_id,omitempty"`
	InstructionID  string        `json:"instruction_id,omitempty"`
	StrategyID     string        `json:"strategy_id,omitempty"`
	Instrument     InstrumentRef `json:"instrument"`
	Side           TradeSide     `json:"side"`
	Type           TradeType     `json:"type"`
	Quantity       float64       `json:"quantity"`
	EntryPrice     float64       `json:"entry_price,omitempty"`
	ExitPrice      float64       `json:"exit_price,omitempty"`
	TradeTs        int64         `json:"trade_ts"`
	HoldingMs      int64         `json:"holding_ms,omitempty"`
	RealizedPnl    float64       `json:"realized_pnl,omitempty"`
	RealizedPnlPct float64       `json:"realized_pnl_pct,omitempty"`
	Note           string        `json:"note,omitempty"`
}
