package controller

import (
	"context"
	"sync"
	"time"

	"tradepilot/internal/coordinator"
	"tradepilot/internal/logger"
	"tradepilot/internal/store"
)

// State is the controller lifecycle state. Transitions are one-way:
// initializing, waiting_running, running, stopped.
type State string

const (
	StateInitializing   State = "initializing"
	StateWaitingRunning State = "waiting_running"
	StateRunning        State = "running"
	StateStopped        State = "stopped"
)

// Stop reasons recorded when the strategy terminates.
const (
	StopNormalExit      = "normal_exit"
	StopCancelled       = "cancelled"
	StopError           = "error"
	StopErrorClosingPos = "error_closing_positions"
)

const (
	defaultWaitPoll          = time.Second
	defaultWaitTimeout       = 300 * time.Second
	defaultCloseTimeout      = 30 * time.Second
	defaultConsecutiveErrors = 5
)

// Controller drives one strategy through its lifecycle: register, wait for
// the running signal, loop decision cycles, and tear down. Teardown always
// attempts to flatten open positions and always finalizes exactly once, no
// matter which path stopped the loop.
type Controller struct {
	Coordinator *coordinator.Coordinator
	Store       store.Persistence
	Record      store.StrategyRecord

	// Interval between decision cycles. MaxCycles, when positive, stops
	// the loop normally after that many cycles. MaxConsecutiveErrors
	// bounds how many cycles may fail back to back before the strategy
	// stops with reason error; zero applies the default.
	Interval             time.Duration
	MaxCycles            int
	MaxConsecutiveErrors int

	WaitPoll     time.Duration
	WaitTimeout  time.Duration
	CloseTimeout time.Duration

	mu            sync.Mutex
	state         State
	stopReason    string
	stopRequested bool
	cancel        context.CancelFunc
	finalize      sync.Once
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == "" {
		return StateInitializing
	}
	return c.state
}

func (c *Controller) StopReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopReason
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Stop requests termination. Safe to call at any time: a stop requested
// before Run starts cancels the run as soon as it does.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopRequested = true
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run executes the strategy until it stops. The returned error is the
// terminal cycle error when the loop died on one; cancellation and normal
// exit return nil. Teardown runs on every path.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.cancel = cancel
	requested := c.stopRequested
	c.mu.Unlock()
	if requested {
		cancel()
	}

	strategyID := c.Record.StrategyID
	c.setState(StateInitializing)
	if err := c.Store.RegisterStrategy(ctx, c.Record); err != nil {
		logger.Warnf("[%s] register strategy: %v", strategyID, err)
	}

	c.setState(StateWaitingRunning)
	if err := c.waitRunning(ctx); err != nil {
		c.teardown(StopCancelled)
		return nil
	}

	c.setState(StateRunning)
	logger.Infof("[%s] entering decision loop, interval=%s", strategyID, c.Interval)
	c.persistInitialModels(ctx)

	maxErrors := c.MaxConsecutiveErrors
	if maxErrors <= 0 {
		maxErrors = defaultConsecutiveErrors
	}

	var runErr error
	reason := StopNormalExit
	cycles := 0
	failures := 0
loop:
	for {
		if ctx.Err() != nil {
			reason = StopCancelled
			break
		}
		if running := c.stillRunning(ctx); !running {
			reason = StopNormalExit
			break
		}

		result, err := c.Coordinator.RunOnce(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			reason = StopCancelled
			break loop
		case err != nil:
			// Fatal to the cycle only; the loop retries on the next
			// interval unless failures pile up.
			failures++
			logger.Errorf("[%s] decision cycle failed (%d consecutive): %v", strategyID, failures, err)
			if failures >= maxErrors {
				reason = StopError
				runErr = err
				break loop
			}
		default:
			failures = 0
			logger.Infof("[%s] cycle %d (%s): %d instructions, %d fills, equity=%.2f",
				strategyID, result.CycleIndex, result.ComposeID,
				len(result.Instructions), len(result.Trades), result.Portfolio.TotalValue)
			cycles++
			if c.MaxCycles > 0 && cycles >= c.MaxCycles {
				reason = StopNormalExit
				break loop
			}
		}

		select {
		case <-ctx.Done():
			reason = StopCancelled
			break loop
		case <-time.After(c.Interval):
		}
	}

	c.teardown(reason)
	return runErr
}

// stillRunning re-reads the store predicate between cycles so an external
// stop (status flipped in the store) exits the loop normally. Poll errors
// never stop a running strategy.
func (c *Controller) stillRunning(ctx context.Context) bool {
	running, err := c.Store.StrategyRunning(ctx, c.Record.StrategyID)
	if err != nil {
		logger.Warnf("[%s] running poll: %v", c.Record.StrategyID, err)
		return true
	}
	return running
}

// waitRunning polls the store until the strategy is marked running. Poll
// errors are logged and retried. On timeout the controller proceeds
// anyway so a store hiccup cannot strand the strategy forever.
func (c *Controller) waitRunning(ctx context.Context) error {
	poll := c.WaitPoll
	if poll <= 0 {
		poll = defaultWaitPoll
	}
	timeout := c.WaitTimeout
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		running, err := c.Store.StrategyRunning(ctx, c.Record.StrategyID)
		if err != nil {
			logger.Warnf("[%s] running poll: %v", c.Record.StrategyID, err)
		} else if running {
			return nil
		}
		if time.Now().After(deadline) {
			logger.Warnf("[%s] not marked running after %s, proceeding", c.Record.StrategyID, timeout)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

// persistInitialModels writes the starting portfolio view and summary so
// the read models exist before the first cycle completes. Non-fatal.
func (c *Controller) persistInitialModels(ctx context.Context) {
	view := c.Coordinator.Portfolio.View()
	if err := c.Store.PersistPortfolioView(ctx, view); err != nil {
		logger.Warnf("[%s] persist initial view: %v", c.Record.StrategyID, err)
	}
	if err := c.Store.PersistStrategySummary(ctx, c.Coordinator.Summary()); err != nil {
		logger.Warnf("[%s] persist initial summary: %v", c.Record.StrategyID, err)
	}
}

// teardown flattens positions and finalizes. Uses a fresh background
// context so a cancelled run context cannot block the close-out.
func (c *Controller) teardown(reason string) {
	closeTimeout := c.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = defaultCloseTimeout
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if _, err := c.Coordinator.CloseAllPositions(closeCtx); err != nil {
		logger.Errorf("[%s] closing positions on shutdown: %v", c.Record.StrategyID, err)
		if reason == StopNormalExit || reason == StopCancelled {
			reason = StopErrorClosingPos
		}
	}
	c.finalizeOnce(closeCtx, reason)
}

// finalizeOnce releases the gateway and marks the strategy stopped.
// Guaranteed to run at most once per controller.
func (c *Controller) finalizeOnce(ctx context.Context, reason string) {
	c.finalize.Do(func() {
		if err := c.Coordinator.Close(); err != nil {
			logger.Warnf("[%s] gateway close: %v", c.Record.StrategyID, err)
		}
		if err := c.Store.MarkStrategyStopped(ctx, c.Record.StrategyID, reason); err != nil {
			logger.Warnf("[%s] mark stopped: %v", c.Record.StrategyID, err)
		}
		c.mu.Lock()
		c.state = StateStopped
		c.stopReason = reason
		c.mu.Unlock()
		logger.Infof("[%s] stopped: %s", c.Record.StrategyID, reason)
	})
}
