package composer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"tradepilot/internal/oracle"
	"tradepilot/internal/types"
)

// Composer converts a compose context into bounded, deduplicated trade
// instructions: it asks the oracle for a proposal and normalizes it under
// the context's constraints.
type Composer struct {
	Oracle oracle.Oracle
}

func New(o oracle.Oracle) *Composer {
	return &Composer{Oracle: o}
}

// Compose invokes the oracle and normalizes its proposal. The returned
// rationale aggregates proposal notes, item rationales, and suppression
// reasons.
func (c *Composer) Compose(ctx context.Context, input types.ComposeContext) ([]types.TradeInstruction, string, error) {
	proposal, err := c.Oracle.Propose(ctx, input)
	if err != nil {
		return nil, "", err
	}
	instructions, notes := Normalize(input, proposal)
	rationale := buildRationale(proposal, notes)
	return instructions, rationale, nil
}

// Normalize applies guardrails to a proposal. Pure: identical inputs yield
// byte-identical instructions, including instruction ids, which is the
// idempotency contract retry logic depends on.
func Normalize(input types.ComposeContext, proposal types.DecisionProposal) ([]types.TradeInstruction, []string) {
	cons := input.Constraints
	var instructions []types.TradeInstruction
	var notes []string

	seen := make(map[string]bool, len(proposal.Items))
	openCount := input.Portfolio.OpenPositions()

	for _, item := range proposal.Items {
		symbol := item.Instrument.Symbol
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		if item.Action == types.ActionNoop {
			continue
		}
		target := item.TargetQty
		if item.Action == types.ActionFlat {
			target = 0
		}
		if cons.MaxPositionSize > 0 && math.Abs(target) > cons.MaxPositionSize {
			capped := math.Copysign(cons.MaxPositionSize, target)
			notes = append(notes, fmt.Sprintf("%s: target %.8g capped to %.8g", symbol, target, capped))
			target = capped
		}
		if cons.MaxLeverage > 0 && input.Portfolio.TotalValue > 0 {
			if price := referencePrice(input, symbol); price > 0 {
				headroom := cons.MaxLeverage*input.Portfolio.TotalValue - grossExposure(input.Portfolio, symbol)
				if headroom < 0 {
					headroom = 0
				}
				if math.Abs(target)*price > headroom {
					capped := math.Copysign(headroom/price, target)
					notes = append(notes, fmt.Sprintf("%s: target notional %.4f over leverage bound, capped to %.8g",
						symbol, math.Abs(target)*price, capped))
					target = capped
				}
			}
		}

		current := input.Portfolio.PositionQty(symbol)
		delta := target - current
		if delta == 0 {
			continue
		}

		qty := math.Abs(delta)
		if cons.StepSize > 0 {
			qty = stepFloor(qty, cons.StepSize)
			if qty == 0 {
				notes = append(notes, fmt.Sprintf("%s: delta %.8g below step size %.8g", symbol, delta, cons.StepSize))
				continue
			}
		}
		if cons.MinNotional > 0 {
			price := referencePrice(input, symbol)
			if price > 0 && qty*price < cons.MinNotional {
				notes = append(notes, fmt.Sprintf("%s: notional %.4f below minimum %.4f", symbol, qty*price, cons.MinNotional))
				continue
			}
		}
		if cons.CooldownMs > 0 {
			if last := input.Digest.LastTradeTs(symbol); last > 0 && input.Ts-last < cons.CooldownMs {
				notes = append(notes, fmt.Sprintf("%s: suppressed by cooldown (last trade %dms ago)", symbol, input.Ts-last))
				continue
			}
		}
		if current == 0 && target != 0 && cons.MaxPositions > 0 && openCount >= cons.MaxPositions {
			notes = append(notes, fmt.Sprintf("%s: suppressed, %d open positions at cap %d", symbol, openCount, cons.MaxPositions))
			continue
		}

		side := types.SideBuy
		if delta < 0 {
			side = types.SideSell
		}
		priceMode := types.PriceModeMarket
		var limitPrice float64
		if item.LimitPrice > 0 {
			priceMode = types.PriceModeLimit
			limitPrice = item.LimitPrice
		}
		instructions = append(instructions, types.TradeInstruction{
			InstructionID:  types.DeriveInstructionID(input.ComposeID, symbol),
			ComposeID:      input.ComposeID,
			Instrument:     item.Instrument,
			Side:           side,
			Quantity:       qty,
			PriceMode:      priceMode,
			LimitPrice:     limitPrice,
			MaxSlippageBps: cons.MaxSlippageBps,
		})
		if current == 0 && target != 0 {
			openCount++
		}
	}
	return instructions, notes
}

// stepFloor rounds qty down to a multiple of step, tolerating float dust
// one part in a million below a step boundary.
func stepFloor(qty, step float64) float64 {
	steps := math.Floor(qty/step + 1e-6)
	return steps * step
}

// grossExposure sums the absolute mark notional of every open position
// except the one being retargeted.
func grossExposure(view types.PortfolioView, excludeSymbol string) float64 {
	total := 0.0
	for symbol, pos := range view.Positions {
		if symbol == excludeSymbol {
			continue
		}
		total += math.Abs(pos.Quantity) * pos.MarkPrice
	}
	return total
}

func referencePrice(input types.ComposeContext, symbol string) float64 {
	if price, ok := input.MarketPrices[symbol]; ok && price > 0 {
		return price
	}
	if pos, ok := input.Portfolio.Positions[symbol]; ok {
		return pos.MarkPrice
	}
	return 0
}

func buildRationale(proposal types.DecisionProposal, notes []string) string {
	var parts []string
	for _, note := range proposal.Notes {
		if text := strings.TrimSpace(note); text != "" {
			parts = append(parts, text)
		}
	}
	for _, item := range proposal.Items {
		if text := strings.TrimSpace(item.Rationale); text != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", item.Instrument.Symbol, text))
		}
	}
	parts = append(parts, notes...)
	return strings.Join(parts, "; ")
}
