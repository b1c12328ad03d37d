package config

import (
	"fmt"
	"strings"
)

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.Market.Provider) {
	case "sim", "binance":
	default:
		return fmt.Errorf("market.provider must be sim or binance, got %q", cfg.Market.Provider)
	}
	for i, s := range cfg.Strategies {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("strategies[%d]: name is required", i)
		}
		if len(s.Symbols) == 0 {
			return fmt.Errorf("strategies[%d] (%s): at least one symbol is required", i, s.Name)
		}
		if len(s.Symbols) > DefaultMaxSymbols {
			return fmt.Errorf("strategies[%d] (%s): at most %d symbols allowed", i, s.Name, DefaultMaxSymbols)
		}
		switch s.Mode {
		case "virtual", "live":
		default:
			return fmt.Errorf("strategies[%d] (%s): mode must be virtual or live", i, s.Name)
		}
		if s.Mode == "live" {
			return fmt.Errorf("strategies[%d] (%s): live mode requires an exchange execution adapter, none is configured", i, s.Name)
		}
	}
	return nil
}
