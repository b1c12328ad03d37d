package types

// StrategyStatus is the externally observable runtime status.
type StrategyStatus string

const (
	StatusRunning StrategyStatus = "running"
	StatusStopped StrategyStatus = "stopped"
	StatusError   StrategyStatus = "error"
)

// TradingMode tags a strategy for UI/leaderboard purposes.
type TradingMode string

const (
	ModeLive    TradingMode = "live"
	ModeVirtual TradingMode = "virtual"
)

// StrategySummary is the leaderboard projection derived from the portfolio
// view and the digest. Write-only sink; never read back by the coordinator.
type StrategySummary struct {
	StrategyID    string         `json:"strategy_id"`
	Name          string         `json:"name,omitempty"`
	ModelID       string         `json:"model_id,omitempty"`
	ExchangeID    string         `json:"exchange_id,omitempty"`
	Mode          TradingMode    `json:"mode,omitempty"`
	Status        StrategyStatus `json:"status,omitempty"`
	RealizedPnl   float64        `json:"realized_pnl"`
	UnrealizedPnl float64        `json:"unrealized_pnl"`
	TotalValue    float64        `json:"total_value"`
	PnlPct        float64        `json:"pnl_pct"`
	TradeCount    int            `json:"trade_count"`
	LastUpdatedTs int64          `json:"last_updated_ts"`
}
