package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradepilot/internal/logger"
	"tradepilot/internal/portfolio"
	"tradepilot/internal/types"

	"github.com/shopspring/decimal"
)

// PaperGateway fills instructions against the in-memory portfolio at the
// last known reference price, with optional simulated slippage. Fills are
// immediate; there is no order lifecycle.
type PaperGateway struct {
	Portfolio   *portfolio.Service
	SlippageBps float64

	mu     sync.Mutex
	prices map[string]float64
	closed bool
	nowFn  func() time.Time
}

func NewPaperGateway(svc *portfolio.Service, slippageBps float64) *PaperGateway {
	return &PaperGateway{
		Portfolio:   svc,
		SlippageBps: slippageBps,
		prices:      make(map[string]float64),
		nowFn:       time.Now,
	}
}

// UpdatePrices feeds the latest reference prices. The coordinator calls
// this once per cycle from the market snapshot before executing.
func (g *PaperGateway) UpdatePrices(prices map[string]float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for symbol, price := range prices {
		if price > 0 {
			g.prices[symbol] = price
		}
	}
}

func (g *PaperGateway) Execute(ctx context.Context, instructions []types.TradeInstruction) ([]types.Trade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, fmt.Errorf("paper gateway is closed")
	}

	trades := make([]types.Trade, 0, len(instructions))
	ts := g.nowFn().UTC().UnixMilli()
	for _, instr := range instructions {
		price, ok := g.fillPrice(instr)
		if !ok {
			logger.Warnf("paper: no reference price for %s, skipping instruction %s",
				instr.Instrument.Symbol, instr.InstructionID)
			continue
		}
		trade := g.Portfolio.Apply(instr, price, ts)
		trades = append(trades, trade)
	}
	return trades, nil
}

// fillPrice resolves the execution price: limit instructions fill at the
// limit price, market instructions at the reference price shifted against
// the taker by the configured slippage.
func (g *PaperGateway) fillPrice(instr types.TradeInstruction) (float64, bool) {
	if instr.PriceMode == types.PriceModeLimit && instr.LimitPrice > 0 {
		return instr.LimitPrice, true
	}
	ref, ok := g.prices[instr.Instrument.Symbol]
	if !ok || ref <= 0 {
		return 0, false
	}
	if g.SlippageBps <= 0 {
		return ref, true
	}
	slip := decimal.NewFromFloat(ref).
		Mul(decimal.NewFromFloat(g.SlippageBps)).
		Div(decimal.NewFromInt(10000))
	price := decimal.NewFromFloat(ref)
	if instr.Side == types.SideBuy {
		price = price.Add(slip)
	} else {
		price = price.Sub(slip)
	}
	return price.InexactFloat64(), true
}

func (g *PaperGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}
