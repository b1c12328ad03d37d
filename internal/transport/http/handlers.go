package http

import (
	"net/http"
	"sort"
	"strconv"

	"tradepilot/internal/config"

	"github.com/gin-gonic/gin"
)

type createStrategyRequest struct {
	Name                  string   `json:"name" binding:"required"`
	Symbols               []string `json:"symbols" binding:"required"`
	ExchangeID            string   `json:"exchange_id"`
	Mode                  string   `json:"mode"`
	InitialCapital        float64  `json:"initial_capital"`
	DecideIntervalSeconds int      `json:"decide_interval_seconds"`
	TemplateID            string   `json:"template_id"`
	CustomPrompt          string   `json:"custom_prompt"`

	Constraints struct {
		MaxPositionSize float64 `json:"max_position_size"`
		MaxPositions    int     `json:"max_positions"`
		StepSize        float64 `json:"step_size"`
		MinNotional     float64 `json:"min_notional"`
		CooldownSeconds int     `json:"cooldown_seconds"`
		MaxSlippageBps  float64 `json:"max_slippage_bps"`
		MaxLeverage     float64 `json:"max_leverage"`
	} `json:"constraints"`
}

func (req *createStrategyRequest) toSpec() config.StrategySpec {
	spec := config.StrategySpec{
		Name:                  req.Name,
		Symbols:               req.Symbols,
		ExchangeID:            req.ExchangeID,
		Mode:                  req.Mode,
		InitialCapital:        req.InitialCapital,
		DecideIntervalSeconds: req.DecideIntervalSeconds,
		TemplateID:            req.TemplateID,
		CustomPrompt:          req.CustomPrompt,
		Constraints: config.ConstraintSpec{
			MaxPositionSize: req.Constraints.MaxPositionSize,
			MaxPositions:    req.Constraints.MaxPositions,
			StepSize:        req.Constraints.StepSize,
			MinNotional:     req.Constraints.MinNotional,
			CooldownSeconds: req.Constraints.CooldownSeconds,
			MaxSlippageBps:  req.Constraints.MaxSlippageBps,
			MaxLeverage:     req.Constraints.MaxLeverage,
		},
	}
	if spec.Mode == "" {
		spec.Mode = "virtual"
	}
	if spec.InitialCapital <= 0 {
		spec.InitialCapital = 10000
	}
	if spec.DecideIntervalSeconds <= 0 {
		spec.DecideIntervalSeconds = 60
	}
	return spec
}

func (s *Server) createStrategy(c *gin.Context) {
	var req createStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	strategyID, err := s.Manager.Launch(req.toSpec())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"strategy_id": strategyID})
}

func (s *Server) listStrategies(c *gin.Context) {
	records, err := s.Store.ListStrategies(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategies": records})
}

// leaderboard returns strategy summaries sorted by total value descending.
func (s *Server) leaderboard(c *gin.Context) {
	summaries, err := s.Store.ListStrategySummaries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].TotalValue > summaries[j].TotalValue
	})
	c.JSON(http.StatusOK, gin.H{"leaderboard": summaries})
}

func (s *Server) stopStrategy(c *gin.Context) {
	strategyID := c.Param("id")
	if err := s.Manager.Stop(strategyID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategy_id": strategyID, "stopping": true})
}

func (s *Server) listTrades(c *gin.Context) {
	strategyID := c.Param("id")
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	trades, err := s.Store.ListTrades(c.Request.Context(), strategyID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategy_id": strategyID, "trades": trades})
}
