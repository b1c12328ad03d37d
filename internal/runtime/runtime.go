package runtime

import (
	"fmt"
	"strings"
	"time"

	"tradepilot/internal/composer"
	"tradepilot/internal/config"
	"tradepilot/internal/controller"
	"tradepilot/internal/coordinator"
	"tradepilot/internal/digest"
	"tradepilot/internal/execution"
	"tradepilot/internal/features"
	"tradepilot/internal/market"
	"tradepilot/internal/oracle"
	"tradepilot/internal/portfolio"
	"tradepilot/internal/prompt"
	"tradepilot/internal/store"
	"tradepilot/internal/types"

	"github.com/google/uuid"
)

// Runtime bundles one strategy's controller with its coordinator so
// callers can both run the lifecycle and inspect the pipeline.
type Runtime struct {
	StrategyID  string
	Controller  *controller.Controller
	Coordinator *coordinator.Coordinator
}

// Builder assembles strategy runtimes from configuration. Shared
// collaborators (store, prompt provider, oracle settings) are fixed at
// construction; each Build call wires a fresh pipeline around them.
type Builder struct {
	Oracle  config.OracleConfig
	Market  config.MarketConfig
	Store   store.Persistence
	Prompts *prompt.Provider

	// OracleOverride replaces the LLM oracle when set. Used by tests.
	OracleOverride oracle.Oracle

	Dump bool
}

func (b *Builder) Build(spec config.StrategySpec) (*Runtime, error) {
	strategyID := deriveStrategyID(spec.Name)

	instruments := make([]types.InstrumentRef, 0, len(spec.Symbols))
	for _, symbol := range spec.Symbols {
		instruments = append(instruments, types.ParseInstrument(symbol, spec.ExchangeID))
	}

	source, err := b.marketSource()
	if err != nil {
		return nil, err
	}

	oracleImpl := b.OracleOverride
	if oracleImpl == nil {
		client := &oracle.ChatClient{
			BaseURL:    b.Oracle.BaseURL,
			APIKey:     b.Oracle.APIKey,
			Model:      b.Oracle.Model,
			Timeout:    time.Duration(b.Oracle.TimeoutSeconds) * time.Second,
			MaxRetries: b.Oracle.MaxRetries,
		}
		oracleImpl = oracle.NewLLMOracle(client, b.Dump)
	}

	constraints := toConstraints(spec.Constraints)
	pf := portfolio.NewService(strategyID, spec.InitialCapital)
	gateway := execution.NewPaperGateway(pf, constraints.MaxSlippageBps)

	coord := &coordinator.Coordinator{
		StrategyID:  strategyID,
		Name:        spec.Name,
		ModelID:     b.Oracle.Model,
		ExchangeID:  spec.ExchangeID,
		Mode:        types.TradingMode(spec.Mode),
		Instruments: instruments,
		Constraints: constraints,
		PromptFn: func() string {
			return b.Prompts.Resolve(spec.TemplateID, spec.CustomPrompt, spec.Symbols)
		},
		Market:    source,
		Features:  features.NewIndicatorComputer(),
		Composer:  composer.New(oracleImpl),
		Gateway:   gateway,
		Portfolio: pf,
		Recorder:  store.NewMemoryRecorder(0),
		Digest:    digest.NewBuilder(digest.DefaultWindow),
		Store:     b.Store,
	}

	ctrl := &controller.Controller{
		Coordinator: coord,
		Store:       b.Store,
		Record: store.StrategyRecord{
			StrategyID: strategyID,
			Name:       spec.Name,
			Mode:       types.TradingMode(spec.Mode),
			Status:     types.StatusRunning,
			Symbols:    spec.Symbols,
			CreatedTs:  time.Now().UTC().UnixMilli(),
		},
		Interval: time.Duration(spec.DecideIntervalSeconds) * time.Second,
	}

	return &Runtime{StrategyID: strategyID, Controller: ctrl, Coordinator: coord}, nil
}

func (b *Builder) marketSource() (market.Source, error) {
	switch b.Market.Provider {
	case "", "sim":
		return market.NewSimSource(b.Market.Interval, b.Market.CandleWindow), nil
	case "binance":
		return market.NewBinanceSource(b.Market.Interval, b.Market.CandleWindow), nil
	default:
		return nil, fmt.Errorf("unknown market provider %q", b.Market.Provider)
	}
}

func toConstraints(spec config.ConstraintSpec) types.Constraints {
	return types.Constraints{
		MaxPositionSize: spec.MaxPositionSize,
		MaxPositions:    spec.MaxPositions,
		StepSize:        spec.StepSize,
		MinNotional:     spec.MinNotional,
		CooldownMs:      int64(spec.CooldownSeconds) * 1000,
		MaxSlippageBps:  spec.MaxSlippageBps,
		MaxLeverage:     spec.MaxLeverage,
	}
}

// deriveStrategyID slugs the configured name and appends a short random
// suffix so restarts get distinct histories.
func deriveStrategyID(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug + "-" + uuid.NewString()[:8]
}
