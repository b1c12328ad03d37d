package manager

import (
	"context"
	"fmt"
	"sync"

	"tradepilot/internal/config"
	"tradepilot/internal/logger"
	"tradepilot/internal/runtime"

	"golang.org/x/sync/errgroup"
)

// Manager supervises a set of strategy runtimes. Each strategy runs its
// own lifecycle goroutine; one strategy failing never takes down its
// siblings, so launch errors surface through the strategy's stop reason
// rather than the group.
type Manager struct {
	builder *runtime.Builder

	mu       sync.Mutex
	runtimes map[string]*runtime.Runtime
	group    *errgroup.Group
	groupCtx context.Context
	started  bool
}

func New(builder *runtime.Builder) *Manager {
	return &Manager{
		builder:  builder,
		runtimes: make(map[string]*runtime.Runtime),
	}
}

// Start binds the manager to a context. Strategies launched afterwards
// stop when the context is cancelled.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.group, m.groupCtx = errgroup.WithContext(ctx)
	m.started = true
}

// Launch builds and runs a strategy from its spec, returning the assigned
// strategy id.
func (m *Manager) Launch(spec config.StrategySpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return "", fmt.Errorf("manager not started")
	}

	rt, err := m.builder.Build(spec)
	if err != nil {
		return "", fmt.Errorf("build strategy %q: %w", spec.Name, err)
	}
	m.runtimes[rt.StrategyID] = rt

	ctx := m.groupCtx
	m.group.Go(func() error {
		if err := rt.Controller.Run(ctx); err != nil {
			logger.Errorf("[%s] strategy terminated with error: %v", rt.StrategyID, err)
		}
		return nil
	})
	logger.Infof("[%s] strategy launched: %s %v", rt.StrategyID, spec.Name, spec.Symbols)
	return rt.StrategyID, nil
}

// Stop requests termination of one strategy. The controller tears down
// asynchronously; callers observe completion via the store status.
func (m *Manager) Stop(strategyID string) error {
	m.mu.Lock()
	rt, ok := m.runtimes[strategyID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("strategy %s not managed", strategyID)
	}
	rt.Controller.Stop()
	return nil
}

// Runtime returns the managed runtime for a strategy id.
func (m *Manager) Runtime(strategyID string) (*runtime.Runtime, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.runtimes[strategyID]
	return rt, ok
}

// StrategyIDs lists managed strategy ids.
func (m *Manager) StrategyIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.runtimes))
	for id := range m.runtimes {
		ids = append(ids, id)
	}
	return ids
}

// Wait blocks until every launched strategy has torn down.
func (m *Manager) Wait() error {
	m.mu.Lock()
	group := m.group
	m.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Wait()
}
