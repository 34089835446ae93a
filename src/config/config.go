package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fundedsim/engine/src/models"
)

// Config is the top-level configuration for the evaluation engine.
type Config struct {
	Server      Server              `yaml:"server"`
	Database    Database            `yaml:"database"`
	Logging     Logging             `yaml:"logging"`
	Engine      Engine              `yaml:"engine"`
	Instruments []models.Instrument `yaml:"instruments"`
	Tiers       []models.Tier       `yaml:"tiers"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Database holds the Postgres connection settings. DSN may be overridden
// with the DATABASE_URL environment variable.
type Database struct {
	DSN string `yaml:"dsn"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Engine holds execution and monitoring tuning parameters.
type Engine struct {
	// SweepInterval is the cadence at which the host drives the
	// resting-order monitor. The monitor never self-schedules, and price
	// movement inside one interval is not visible to trigger checks.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// MaxSlippageTicks bounds the baseline adverse slippage on market fills.
	MaxSlippageTicks int `yaml:"max_slippage_ticks"`

	// SlippageSizeFactor scales slippage up with order size: the baseline
	// is multiplied by (1 + quantity*factor).
	SlippageSizeFactor float64 `yaml:"slippage_size_factor"`

	// AdverseMoveTicks is the worst-case adverse move, in ticks, assumed by
	// the pre-trade drawdown check.
	AdverseMoveTicks float64 `yaml:"adverse_move_ticks"`

	// PriceSeed seeds the synthetic feed; zero picks a random seed.
	PriceSeed int64 `yaml:"price_seed"`

	// BarPeriod is the aggregation period for cached candles.
	BarPeriod time.Duration `yaml:"bar_period"`
}

// UnmarshalYAML accepts durations in Go syntax ("5s", "1m") and leaves any
// omitted field at its current value, so defaults survive partial blocks.
func (e *Engine) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		SweepInterval      string   `yaml:"sweep_interval"`
		MaxSlippageTicks   *int     `yaml:"max_slippage_ticks"`
		SlippageSizeFactor *float64 `yaml:"slippage_size_factor"`
		AdverseMoveTicks   *float64 `yaml:"adverse_move_ticks"`
		PriceSeed          *int64   `yaml:"price_seed"`
		BarPeriod          string   `yaml:"bar_period"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.SweepInterval != "" {
		interval, err := time.ParseDuration(raw.SweepInterval)
		if err != nil {
			return fmt.Errorf("sweep_interval: %w", err)
		}
		e.SweepInterval = interval
	}

	if raw.BarPeriod != "" {
		period, err := time.ParseDuration(raw.BarPeriod)
		if err != nil {
			return fmt.Errorf("bar_period: %w", err)
		}
		e.BarPeriod = period
	}

	if raw.MaxSlippageTicks != nil {
		e.MaxSlippageTicks = *raw.MaxSlippageTicks
	}

	if raw.SlippageSizeFactor != nil {
		e.SlippageSizeFactor = *raw.SlippageSizeFactor
	}

	if raw.AdverseMoveTicks != nil {
		e.AdverseMoveTicks = *raw.AdverseMoveTicks
	}

	if raw.PriceSeed != nil {
		e.PriceSeed = *raw.PriceSeed
	}

	return nil
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Logging: Logging{
			Level: "info",
		},
		Engine: Engine{
			SweepInterval:      5 * time.Second,
			MaxSlippageTicks:   2,
			SlippageSizeFactor: 0.05,
			AdverseMoveTicks:   10,
			BarPeriod:          time.Minute,
		},
	}
}

func (c *Config) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("config: at least one instrument is required")
	}

	for _, inst := range c.Instruments {
		if err := inst.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	if len(c.Tiers) == 0 {
		return fmt.Errorf("config: at least one tier is required")
	}

	for _, tier := range c.Tiers {
		if err := tier.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	if c.Engine.SweepInterval <= 0 {
		return fmt.Errorf("config: sweep interval must be positive")
	}

	return nil
}

// InstrumentMap keys the configured instruments by symbol.
func (c *Config) InstrumentMap() map[string]models.Instrument {
	m := make(map[string]models.Instrument, len(c.Instruments))
	for _, inst := range c.Instruments {
		m[inst.Symbol] = inst
	}

	return m
}

// TierMap keys the configured tiers by name.
func (c *Config) TierMap() map[string]models.Tier {
	m := make(map[string]models.Tier, len(c.Tiers))
	for _, tier := range c.Tiers {
		m[tier.Name] = tier
	}

	return m
}
