package portfolio

import (
	"sync"
	"time"

	"tradepilot/internal/types"

	"github.com/shopspring/decimal"
)

type position struct {
	instrument types.InstrumentRef
	qty        decimal.Decimal
	avgPrice   decimal.Decimal
	markPrice  decimal.Decimal
	entryTs    int64
}

// Service is the in-memory portfolio collaborator for paper strategies.
// It applies fills, tracks cash with decimal arithmetic, and serves
// read-only views that reflect the latest known fills.
type Service struct {
	mu             sync.Mutex
	strategyID     string
	cash           decimal.Decimal
	initialCapital decimal.Decimal
	positions      map[string]*position
	nowFn          func() time.Time
}

func NewService(strategyID string, initialCapital float64) *Service {
	capital := decimal.NewFromFloat(initialCapital)
	return &Service{
		strategyID:     strategyID,
		cash:           capital,
		initialCapital: capital,
		positions:      make(map[string]*position),
		nowFn:          time.Now,
	}
}

// View returns the current portfolio snapshot. Mark-dependent fields are
// computed from the most recently applied marks.
func (s *Service) View() types.PortfolioView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := types.PortfolioView{
		StrategyID: s.strategyID,
		Ts:         s.nowFn().UTC().UnixMilli(),
		Cash:       s.cash.InexactFloat64(),
		Positions:  make(map[string]types.PositionSnapshot, len(s.positions)),
	}
	totalValue := s.cash
	var totalUnrealized decimal.Decimal
	for symbol, pos := range s.positions {
		if pos.qty.IsZero() {
			continue
		}
		notional := pos.qty.Abs().Mul(pos.markPrice)
		unrealized := pos.markPrice.Sub(pos.avgPrice).Mul(pos.qty)
		snap := types.PositionSnapshot{
			Instrument:    pos.instrument,
			Quantity:      pos.qty.InexactFloat64(),
			AvgPrice:      pos.avgPrice.InexactFloat64(),
			MarkPrice:     pos.markPrice.InexactFloat64(),
			UnrealizedPnl: unrealized.InexactFloat64(),
			Notional:      notional.InexactFloat64(),
			EntryTs:       pos.entryTs,
		}
		if !notional.IsZero() {
			snap.PnlPct = unrealized.Div(notional).InexactFloat64() * 100
		}
		view.Positions[symbol] = snap
		totalValue = totalValue.Add(pos.qty.Mul(pos.markPrice))
		totalUnrealized = totalUnrealized.Add(unrealized)
	}
	view.TotalValue = totalValue.InexactFloat64()
	view.TotalUnrealizedPnl = totalUnrealized.InexactFloat64()
	view.AvailableCash = view.Cash
	return view
}

// UpdateMarks refreshes mark prices from the latest market snapshot so
// P&L fields can be trusted by the current cycle.
func (s *Service) UpdateMarks(prices map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for symbol, price := range prices {
		if pos, ok := s.positions[symbol]; ok && price > 0 {
			pos.markPrice = decimal.NewFromFloat(price)
		}
	}
}

// Apply executes a fill against the portfolio and returns the resulting
// trade record. Closing legs carry realized P&L and holding time; opening
// legs carry entry metadata. A fill that flips direction realizes P&L on
// the closed portion and opens the remainder at the fill price.
func (s *Service) Apply(instr types.TradeInstruction, fillPrice float64, ts int64) types.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	price := decimal.NewFromFloat(fillPrice)
	qty := decimal.NewFromFloat(instr.Quantity)
	signed := qty
	if instr.Side == types.SideSell {
		signed = qty.Neg()
	}

	symbol := instr.Instrument.Symbol
	pos := s.positions[symbol]
	if pos == nil {
		pos = &position{instrument: instr.Instrument, markPrice: price}
		s.positions[symbol] = pos
	}

	trade := types.Trade{
		TradeID:       instr.InstructionID,
		ComposeID:     instr.ComposeID,
		InstructionID: instr.InstructionID,
		StrategyID:    s.strategyID,
		Instrument:    instr.Instrument,
		Side:          instr.Side,
		Quantity:      instr.Quantity,
		TradeTs:       ts,
	}

	var realized decimal.Decimal
	closing := decimal.Zero
	if !pos.qty.IsZero() && pos.qty.Sign() != signed.Sign() {
		closing = decimal.Min(pos.qty.Abs(), qty)
		// Long close: (price - avg) * qty; short close mirrors.
		perUnit := price.Sub(pos.avgPrice)
		if pos.qty.Sign() < 0 {
			perUnit = pos.avgPrice.Sub(price)
		}
		realized = perUnit.Mul(closing)
		trade.ExitPrice = fillPrice
		trade.RealizedPnl = realized.InexactFloat64()
		entryNotional := pos.avgPrice.Mul(closing)
		if !entryNotional.IsZero() {
			trade.RealizedPnlPct = realized.Div(entryNotional).InexactFloat64() * 100
		}
		if pos.entryTs > 0 && ts > pos.entryTs {
			trade.HoldingMs = ts - pos.entryTs
		}
	}

	newQty := pos.qty.Add(signed)
	opened := qty.Sub(closing)
	if !opened.IsZero() {
		if pos.qty.IsZero() || pos.qty.Sign() == signed.Sign() {
			// Extending or opening: volume-weighted average entry.
			oldNotional := pos.avgPrice.Mul(pos.qty.Abs())
			addNotional := price.Mul(opened)
			pos.avgPrice = oldNotional.Add(addNotional).Div(pos.qty.Abs().Add(opened))
		} else {
			// Flip: remainder opens fresh at fill price.
			pos.avgPrice = price
		}
		if pos.qty.IsZero() || pos.qty.Sign() != newQty.Sign() {
			pos.entryTs = ts
		}
		trade.EntryPrice = fillPrice
	}
	pos.qty = newQty
	pos.markPrice = price
	if pos.qty.IsZero() {
		pos.avgPrice = decimal.Zero
		pos.entryTs = 0
	}

	// Cash accounting: buys consume cash, sells release it.
	notional := price.Mul(qty)
	if instr.Side == types.SideBuy {
		s.cash = s.cash.Sub(notional)
	} else {
		s.cash = s.cash.Add(notional)
	}

	if !closing.IsZero() {
		// Closing leg: direction of the position being closed, not the fill.
		if instr.Side == types.SideSell {
			trade.Type = types.TradeTypeLong
		} else {
			trade.Type = types.TradeTypeShort
		}
	} else if instr.Side == types.SideSell {
		trade.Type = types.TradeTypeShort
	} else {
		trade.Type = types.TradeTypeLong
	}
	return trade
}

func (s *Service) InitialCapital() float64 {
	return s.initialCapital.InexactFloat64()
}

// RealizedPnl reports total realized P&L as total equity change minus
// unrealized, derived from cash and initial capital.
func (s *Service) RealizedPnl() float64 {
	view := s.View()
	total := decimal.NewFromFloat(view.TotalValue)
	unrealized := decimal.NewFromFloat(view.TotalUnrealizedPnl)
	return total.Sub(unrealized).Sub(s.initialCapital).InexactFloat64()
}
