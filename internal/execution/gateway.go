package execution

import (
	"context"

	"tradepilot/internal/types"
)

// Gateway executes normalized trade instructions. One gateway is owned
// exclusively by one strategy's coordinator for its lifetime and must be
// released with Close during finalize.
type Gateway interface {
	Execute(ctx context.Context, instructions []types.TradeInstruction) ([]types.Trade, error)
	Close() error
}
