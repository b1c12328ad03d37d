package config

// Config is the root configuration tree.
type Config struct {
	App        AppConfig      `mapstructure:"app"`
	Server     ServerConfig   `mapstructure:"server"`
	Store      StoreConfig    `mapstructure:"store"`
	Oracle     OracleConfig   `mapstructure:"oracle"`
	Market     MarketConfig   `mapstructure:"market"`
	Prompt     PromptConfig   `mapstructure:"prompt"`
	Strategies []StrategySpec `mapstructure:"strategies"`
}

type AppConfig struct {
	LogLevel   string `mapstructure:"log_level"`
	LogPath    string `mapstructure:"log_path"`
	OracleDump bool   `mapstructure:"oracle_dump"`
	OracleLog  string `mapstructure:"oracle_log"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type OracleConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
}

type MarketConfig struct {
	// Provider selects the market data source: "sim" or "binance".
	Provider     string `mapstructure:"provider"`
	Interval     string `mapstructure:"interval"`
	CandleWindow int    `mapstructure:"candle_window"`
}

type PromptConfig struct {
	TemplateDir string `mapstructure:"template_dir"`
	HotReload   bool   `mapstructure:"hot_reload"`
}

// ConstraintSpec mirrors types.Constraints for config decoding.
type ConstraintSpec struct {
	MaxPositionSize float64 `mapstructure:"max_position_size"`
	MaxPositions    int     `mapstructure:"max_positions"`
	StepSize        float64 `mapstructure:"step_size"`
	MinNotional     float64 `mapstructure:"min_notional"`
	CooldownSeconds int     `mapstructure:"cooldown_seconds"`
	MaxSlippageBps  float64 `mapstructure:"max_slippage_bps"`
	MaxLeverage     float64 `mapstructure:"max_leverage"`
}

// StrategySpec configures one strategy decision loop.
type StrategySpec struct {
	Name                  string         `mapstructure:"name"`
	Symbols               []string       `mapstructure:"symbols"`
	ExchangeID            string         `mapstructure:"exchange_id"`
	Mode                  string         `mapstructure:"mode"`
	InitialCapital        float64        `mapstructure:"initial_capital"`
	DecideIntervalSeconds int            `mapstructure:"decide_interval_seconds"`
	TemplateID            string         `mapstructure:"template_id"`
	CustomPrompt          string         `mapstructure:"custom_prompt"`
	Constraints           ConstraintSpec `mapstructure:"constraints"`
}
