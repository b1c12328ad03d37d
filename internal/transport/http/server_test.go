package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tradepilot/internal/config"
	"tradepilot/internal/manager"
	"tradepilot/internal/prompt"
	"tradepilot/internal/runtime"
	"tradepilot/internal/store"
	"tradepilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type idleOracle struct{}

func (idleOracle) Propose(_ context.Context, input types.ComposeContext) (types.DecisionProposal, error) {
	return types.DecisionProposal{Ts: input.Ts}, nil
}

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	prompts, err := prompt.NewProvider(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { prompts.Close() })

	mem := store.NewMemoryStore()
	builder := &runtime.Builder{
		Oracle:         config.OracleConfig{Model: "test-model"},
		Market:         config.MarketConfig{Provider: "sim", Interval: "1m", CandleWindow: 30},
		Store:          mem,
		Prompts:        prompts,
		OracleOverride: idleOracle{},
	}
	mgr := manager.New(builder)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mgr.Start(ctx)
	return NewServer(mgr, mem), mem
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateStrategy(t *testing.T) {
	s, mem := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/strategies", `{
		"name": "demo",
		"symbols": ["BTC-USDT"],
		"exchange_id": "binance",
		"decide_interval_seconds": 60
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	strategyID := gjson.Get(rec.Body.String(), "strategy_id").String()
	assert.True(t, strings.HasPrefix(strategyID, "demo-"))

	// The controller registers the strategy shortly after launch.
	assert.Eventually(t, func() bool {
		records, err := mem.ListStrategies(context.Background())
		return err == nil && len(records) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateStrategyRejectsMissingFields(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/strategies", `{"name": "demo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaderboardSorted(t *testing.T) {
	s, mem := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, mem.PersistStrategySummary(ctx, types.StrategySummary{
		StrategyID: "low", TotalValue: 9_000,
	}))
	require.NoError(t, mem.PersistStrategySummary(ctx, types.StrategySummary{
		StrategyID: "high", TotalValue: 12_000,
	}))

	rec := doRequest(s, http.MethodGet, "/api/strategies/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "high", gjson.Get(body, "leaderboard.0.strategy_id").String())
	assert.Equal(t, "low", gjson.Get(body, "leaderboard.1.strategy_id").String())
}

func TestStopUnknownStrategy(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/strategies/nope/stop", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTrades(t *testing.T) {
	s, mem := newTestServer(t)
	require.NoError(t, mem.PersistTradeHistory(context.Background(), "s1", types.Trade{
		TradeID: "t1", StrategyID: "s1", RealizedPnl: 4,
	}))

	rec := doRequest(s, http.MethodGet, "/api/strategies/s1/trades?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "trades.#").Int())
}
