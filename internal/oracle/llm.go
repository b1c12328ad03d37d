package oracle

import (
	"context"
	"fmt"
	"strings"

	"tradepilot/internal/logger"
	"tradepilot/internal/types"

	"github.com/tidwall/gjson"
)

// LLMOracle renders the compose context into prompts, calls the chat
// client, and parses the response into a DecisionProposal.
type LLMOracle struct {
	Client *ChatClient
	Dump   bool
}

func NewLLMOracle(client *ChatClient, dump bool) *LLMOracle {
	return &LLMOracle{Client: client, Dump: dump}
}

func (o *LLMOracle) Propose(ctx context.Context, input types.ComposeContext) (types.DecisionProposal, error) {
	system := renderSystemPrompt(input)
	user := renderUserPrompt(input)
	if o.Dump {
		logger.DumpOracleRequest(o.Client.Model, system, user)
	}
	raw, err := o.Client.CallWithMessages(ctx, system, user)
	if err != nil {
		return types.DecisionProposal{}, fmt.Errorf("oracle call: %w", err)
	}
	if o.Dump {
		logger.DumpOracleResponse(o.Client.Model, raw)
	}
	return ParseProposal(raw, input)
}

// ParseProposal extracts, validates, and decodes a proposal from raw model
// output. Items for instruments outside the context's feature set are kept;
// the composer applies its own guardrails.
func ParseProposal(raw string, input types.ComposeContext) (types.DecisionProposal, error) {
	block, ok := ExtractJSON(raw)
	if !ok {
		return types.DecisionProposal{}, fmt.Errorf("no json found in oracle output")
	}
	if err := ValidateProposalJSON(block); err != nil {
		return types.DecisionProposal{}, err
	}
	proposal := types.DecisionProposal{Ts: input.Ts}
	parsed := gjson.Parse(block)
	parsed.Get("items").ForEach(func(_, item gjson.Result) bool {
		symbol := strings.ToUpper(strings.TrimSpace(item.Get("symbol").String()))
		if symbol == "" {
			return true
		}
		proposal.Items = append(proposal.Items, types.ProposalItem{
			Instrument: types.ParseInstrument(symbol, input.ExchangeID),
			Action:     types.ProposalAction(strings.ToLower(item.Get("action").String())),
			TargetQty:  item.Get("target_qty").Float(),
			LimitPrice: item.Get("limit_price").Float(),
			Confidence: item.Get("confidence").Float(),
			Rationale:  item.Get("rationale").String(),
		})
		return true
	})
	parsed.Get("notes").ForEach(func(_, note gjson.Result) bool {
		if text := strings.TrimSpace(note.String()); text != "" {
			proposal.Notes = append(proposal.Notes, text)
		}
		return true
	})
	return proposal, nil
}
