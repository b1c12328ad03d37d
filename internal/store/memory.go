package store

import (
	"context"
	"fmt"
	"sync"

	"tradepilot/internal/types"
)

// MemoryStore is an in-process Persistence used by tests and ephemeral
// runs. Semantics match the sqlite store.
type MemoryStore struct {
	mu           sync.Mutex
	strategies   map[string]*StrategyRecord
	views        map[string]types.PortfolioView
	summaries    map[string]types.StrategySummary
	cycles       []ComposeCycle
	instructions []types.TradeInstruction
	trades       map[string][]types.Trade
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strategies: make(map[string]*StrategyRecord),
		views:      make(map[string]types.PortfolioView),
		summaries:  make(map[string]types.StrategySummary),
		trades:     make(map[string][]types.Trade),
	}
}

func (m *MemoryStore) RegisterStrategy(_ context.Context, rec StrategyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := rec
	m.strategies[rec.StrategyID] = &clone
	return nil
}

func (m *MemoryStore) StrategyRunning(_ context.Context, strategyID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.strategies[strategyID]
	if !ok {
		return false, nil
	}
	return rec.Status == types.StatusRunning, nil
}

func (m *MemoryStore) MarkStrategyStopped(_ context.Context, strategyID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.strategies[strategyID]
	if !ok {
		return fmt.Errorf("strategy %s not registered", strategyID)
	}
	rec.Status = types.StatusStopped
	rec.StopReason = reason
	return nil
}

func (m *MemoryStore) PersistPortfolioView(_ context.Context, view types.PortfolioView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[view.StrategyID] = view
	return nil
}

func (m *MemoryStore) PersistStrategySummary(_ context.Context, summary types.StrategySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[summary.StrategyID] = summary
	return nil
}

func (m *MemoryStore) PersistComposeCycle(_ context.Context, cycle ComposeCycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, cycle)
	return nil
}

func (m *MemoryStore) PersistInstructions(_ context.Context, _ string, instructions []types.TradeInstruction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instructions = append(m.instructions, instructions...)
	return nil
}

func (m *MemoryStore) PersistTradeHistory(_ context.Context, strategyID string, trade types.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[strategyID] = append(m.trades[strategyID], trade)
	return nil
}

func (m *MemoryStore) ListStrategies(_ context.Context) ([]StrategyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StrategyRecord, 0, len(m.strategies))
	for _, rec := range m.strategies {
		out = append(out, *rec)
	}
	return out, nil
}

func (m *MemoryStore) ListStrategySummaries(_ context.Context) ([]types.StrategySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.StrategySummary, 0, len(m.summaries))
	for _, s := range m.summaries {
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryStore) ListTrades(_ context.Context, strategyID string, limit int) ([]types.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trades := m.trades[strategyID]
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	out := make([]types.Trade, len(trades))
	copy(out, trades)
	return out, nil
}

// Cycles returns persisted compose cycles, for tests.
func (m *MemoryStore) Cycles() []ComposeCycle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ComposeCycle, len(m.cycles))
	copy(out, m.cycles)
	return out
}

// Instructions returns persisted instructions, for tests.
func (m *MemoryStore) Instructions() []types.TradeInstruction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.TradeInstruction, len(m.instructions))
	copy(out, m.instructions)
	return out
}
