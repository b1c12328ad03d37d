package oracle

import (
	"context"

	"tradepilot/internal/types"
)

// Oracle turns a compose context into a structured decision proposal.
// Implementations may be slow or occasionally malformed; callers must
// tolerate empty or partial output.
type Oracle interface {
	Propose(ctx context.Context, input types.ComposeContext) (types.DecisionProposal, error)
}
