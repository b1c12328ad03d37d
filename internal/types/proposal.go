package types

// ProposalAction is the coarse intent tag on an oracle proposal item.
// BUY/SELL carry directional intent only; the final side is decided by the
// delta between target and current quantity. FLAT means target zero.
type ProposalAction string

const (
	ActionBuy  ProposalAction = "buy"
	ActionSell ProposalAction = "sell"
	ActionFlat ProposalAction = "flat"
	ActionNoop ProposalAction = "noop"
)

// ProposalItem is one oracle plan item. TargetQty is the desired resulting
// position, never a delta.
type ProposalItem struct {
	Instrument InstrumentRef  `json:"instrument"`
	Action     ProposalAction `json:"action"`
	TargetQty  float64        `json:"target_qty"`
	LimitPrice float64        `json:"limit_price,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Rationale  string         `json:"rationale,omitempty"`
}

// DecisionProposal is the structured oracle output before normalization.
type DecisionProposal struct {
	Ts        int64             `json:"ts"`
	Items     []ProposalItem    `json:"items"`
	Notes     []string          `json:"notes,omitempty"`
	ModelMeta map[string]string `json:"model_meta,omitempty"`
}
