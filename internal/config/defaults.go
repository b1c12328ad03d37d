package config

const (
	DefaultInitialCapital = 10000.0
	DefaultDecideInterval = 60
	DefaultMaxPositions   = 5
	DefaultMaxLeverage    = 10.0
	DefaultOracleTimeout  = 60
	DefaultOracleRetries  = 2
	DefaultCandleWindow   = 120
	DefaultMarketInterval = "1m"
	DefaultMaxSymbols     = 10
)

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8087"
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/tradepilot.db"
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		c.Oracle.TimeoutSeconds = DefaultOracleTimeout
	}
	if c.Oracle.MaxRetries <= 0 {
		c.Oracle.MaxRetries = DefaultOracleRetries
	}
	if c.Market.Provider == "" {
		c.Market.Provider = "sim"
	}
	if c.Market.Interval == "" {
		c.Market.Interval = DefaultMarketInterval
	}
	if c.Market.CandleWindow <= 0 {
		c.Market.CandleWindow = DefaultCandleWindow
	}
	if c.Prompt.TemplateDir == "" {
		c.Prompt.TemplateDir = "configs/templates"
	}
	for i := range c.Strategies {
		s := &c.Strategies[i]
		if s.Mode == "" {
			s.Mode = "virtual"
		}
		if s.InitialCapital <= 0 {
			s.InitialCapital = DefaultInitialCapital
		}
		if s.DecideIntervalSeconds <= 0 {
			s.DecideIntervalSeconds = DefaultDecideInterval
		}
		if s.Constraints.MaxPositions <= 0 {
			s.Constraints.MaxPositions = DefaultMaxPositions
		}
		if s.Constraints.MaxLeverage <= 0 {
			s.Constraints.MaxLeverage = DefaultMaxLeverage
		}
	}
}
