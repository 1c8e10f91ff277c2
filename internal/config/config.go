// Package config defines the run configuration for a backtest: venues and
// their starting balances, instruments to trade, strategy parameters, risk
// limits, and reporting knobs. Config is loaded from a YAML file (e.g.
// configs/backtest.yaml) with sensitive-free fields overridable via
// BACKTRACE_* environment variables, using the same viper + mapstructure
// pattern the teacher repo uses for its bot config.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level backtest run configuration.
type Config struct {
	Venues      []VenueConfig      `mapstructure:"venues"`
	Instruments []InstrumentConfig `mapstructure:"instruments"`
	Strategies  []StrategyConfig   `mapstructure:"strategies"`
	Risk        RiskConfig         `mapstructure:"risk"`
	Report      ReportConfig       `mapstructure:"report"`
	Logging     LoggingConfig      `mapstructure:"logging"`
}

// VenueConfig registers one simulated exchange and its account, matching
// the add_venue exposed interface of spec.md §6.
type VenueConfig struct {
	Name             string   `mapstructure:"name"`
	OMS              string   `mapstructure:"oms"`           // NETTING | HEDGING
	AccountType      string   `mapstructure:"account_type"`  // CASH | MARGIN
	BaseCurrency     string   `mapstructure:"base_currency"` // currency code
	StartingBalances []string `mapstructure:"starting_balances"` // "10000 USD"
	DefaultLeverage  float64  `mapstructure:"default_leverage"`
}

// InstrumentConfig describes one tradable instrument bound to a venue.
type InstrumentConfig struct {
	Symbol         string  `mapstructure:"symbol"`
	Venue          string  `mapstructure:"venue"`
	AssetClass     string  `mapstructure:"asset_class"`
	QuoteCurrency  string  `mapstructure:"quote_currency"`
	PricePrecision int32   `mapstructure:"price_precision"`
	SizePrecision  int32   `mapstructure:"size_precision"`
	MinQuantity    float64 `mapstructure:"min_quantity"`
	MaxQuantity    float64 `mapstructure:"max_quantity"`
	TakerFee       float64 `mapstructure:"taker_fee"`
}

// StrategyConfig names a strategy instance, its kind, and its free-form
// parameters. Params is kept as a raw map; this package does not map Kind to
// a strategy constructor or decode Params.
type StrategyConfig struct {
	ID     string                 `mapstructure:"id"`
	Kind   string                 `mapstructure:"kind"`
	Params map[string]interface{} `mapstructure:"params"`
}

// RiskConfig holds the pre-trade trading-state gate. Load defaults it to
// ACTIVE and Validate checks it; nothing in this module applies it to the
// risk engine.
type RiskConfig struct {
	TradingState string `mapstructure:"trading_state"` // ACTIVE | REDUCING | HALTED
}

// ReportConfig tunes the results-aggregation formulas of spec.md §4.10.
type ReportConfig struct {
	// AnnualizationFactor scales the Sharpe ratio; 252 (trading days) is
	// appropriate only for daily bars and is therefore configurable rather
	// than hardcoded (spec.md §9 open question).
	AnnualizationFactor float64 `mapstructure:"annualization_factor"`
	OutputDir           string  `mapstructure:"output_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads a backtest run configuration from a YAML file. BACKTRACE_*
// environment variables override keys that the file sets or that have a
// default (e.g. BACKTRACE_REPORT_OUTPUT_DIR overrides report.output_dir when
// the file sets it); keys absent from both are not read from the
// environment, and entries inside lists such as venues cannot be overridden.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BACKTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("report.annualization_factor", 252)
	v.SetDefault("risk.trading_state", "ACTIVE")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks required fields and value ranges before a run starts.
func (c *Config) Validate() error {
	if len(c.Venues) == 0 {
		return fmt.Errorf("at least one venue is required")
	}
	for _, v := range c.Venues {
		if v.Name == "" {
			return fmt.Errorf("venue.name is required")
		}
		switch v.OMS {
		case "NETTING", "HEDGING":
		default:
			return fmt.Errorf("venue %s: oms must be NETTING or HEDGING", v.Name)
		}
		switch v.AccountType {
		case "CASH", "MARGIN":
		default:
			return fmt.Errorf("venue %s: account_type must be CASH or MARGIN", v.Name)
		}
		if v.BaseCurrency == "" {
			return fmt.Errorf("venue %s: base_currency is required", v.Name)
		}
	}
	for _, i := range c.Instruments {
		if i.Symbol == "" || i.Venue == "" {
			return fmt.Errorf("instrument entries require symbol and venue")
		}
		if i.TakerFee < 0 {
			return fmt.Errorf("instrument %s.%s: taker_fee must be >= 0", i.Symbol, i.Venue)
		}
	}
	switch c.Risk.TradingState {
	case "", "ACTIVE", "REDUCING", "HALTED":
	default:
		return fmt.Errorf("risk.trading_state must be one of ACTIVE, REDUCING, HALTED")
	}
	if c.Report.AnnualizationFactor < 0 {
		return fmt.Errorf("report.annualization_factor must be >= 0")
	}
	return nil
}
