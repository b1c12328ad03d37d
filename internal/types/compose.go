package types

// Constraints are the numeric guardrails applied during normalization.
// Zero values disable the corresponding rule.
type Constraints struct {
	MaxPositionSize float64 `json:"max_position_size,omitempty"`
	MaxPositions    int     `json:"max_positions,omitempty"`
	StepSize        float64 `json:"step_size,omitempty"`
	MinNotional     float64 `json:"min_notional,omitempty"`
	CooldownMs      int64   `json:"cooldown_ms,omitempty"`
	MaxSlippageBps  float64 `json:"max_slippage_bps,omitempty"`
	MaxLeverage     float64 `json:"max_leverage,omitempty"`
}

// ComposeContext is the complete input bundle handed to the decision
// oracle. ComposeID is unique per cycle and threads through every
// downstream record.
type ComposeContext struct {
	Ts           int64              `json:"ts"`
	ComposeID    string             `json:"compose_id"`
	StrategyID   string             `json:"strategy_id,omitempty"`
	ExchangeID   string             `json:"exchange_id,omitempty"`
	Features     []FeatureVector    `json:"features"`
	Portfolio    PortfolioView      `json:"portfolio"`
	Digest       TradeDigest        `json:"digest"`
	PromptText   string             `json:"prompt_text"`
	MarketPrices map[string]float64 `json:"market_prices,omitempty"`
	Constraints  Constraints        `json:"constraints"`
}
