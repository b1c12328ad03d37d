package types

import "github.com/google/uuid"

// TradeSide is the side of an executable instruction.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// PriceMode selects how an instruction is priced.
type PriceMode string

const (
	PriceModeMarket PriceMode = "market"
	PriceModeLimit  PriceMode = "limit"
)

// instructionNamespace seeds deterministic instruction ids. Changing it
// breaks the idempotency contract with persisted history.
var instructionNamespace = uuid.MustParse("7b7ce587-9a20-46f5-b84e-2cf6a92e3c11")

// DeriveInstructionID returns the deterministic instruction id for a
// compose cycle and instrument. Re-running composition for the same
// compose_id yields byte-identical ids, which execution retry logic
// depends on.
func DeriveInstructionID(composeID, symbol string) string {
	return uuid.NewSHA1(instructionNamespace, []byte(composeID+"/"+symbol)).String()
}

// TradeInstruction is a normalized, executable unit emitted by the
// composer. Quantity is always positive; direction is carried by Side.
// Never mutated after creation.
type TradeInstruction struct {
	InstructionID  string            `json:"instruction_id"`
	ComposeID      string            `json:"compose_id"`
	Instrument     InstrumentRef     `json:"instrument"`
	Side           TradeSide         `json:"side"`
	Quantity       float64           `json:"quantity"`
	PriceMode      PriceMode         `json:"price_mode"`
	LimitPrice     float64           `json:"limit_price,omitempty"`
	MaxSlippageBps float64           `json:"max_slippage_bps,omitempty"`
	Meta           map[string]string `json:"meta,omitempty"`
}
