package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// proposalSchema constrains the oracle's JSON output before it is decoded
// into a DecisionProposal. Unknown fields are tolerated; required shape is
// an items array of {symbol, action, target_qty}.
const proposalSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["symbol", "action", "target_qty"],
        "properties": {
          "symbol": {"type": "string", "minLength": 1},
          "action": {"type": "string", "enum": ["buy", "sell", "flat", "noop"]},
          "target_qty": {"type": "number"},
          "limit_price": {"type": "number"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "rationale": {"type": "string"}
        }
      }
    },
    "notes": {"type": "array", "items": {"type": "string"}}
  }
}`

var compiledProposalSchema = jsonschema.MustCompileString("proposal.json", proposalSchema)

// ValidateProposalJSON checks raw extracted JSON against the proposal
// schema.
func ValidateProposalJSON(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("proposal json is empty")
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("proposal json invalid: %w", err)
	}
	if err := compiledProposalSchema.Validate(doc); err != nil {
		return fmt.Errorf("proposal schema: %w", err)
	}
	return nil
}
