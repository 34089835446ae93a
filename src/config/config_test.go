package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  host: 127.0.0.1
  port: 8080

logging:
  level: debug

engine:
  sweep_interval: 2s
  max_slippage_ticks: 1
  adverse_move_ticks: 8
  bar_period: 30s

instruments:
  - symbol: ES
    tick_size: 0.25
    tick_value: 12.50
    base_price: 5150.00
    volatility_ticks: 4
    margin_per_contract: 1500
    commission_per_contract: 2.25
    fee_per_contract: 1.40

tiers:
  - name: starter-50k
    starting_balance: 50000
    max_drawdown: 2500
    daily_loss_limit: 1250
    profit_target: 3000
    max_quantity_per_trade: 5
    max_open_quantity: 10
    min_trading_days: 5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("parses a full configuration", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, validYAML))
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 2*time.Second, cfg.Engine.SweepInterval)
		assert.Equal(t, 30*time.Second, cfg.Engine.BarPeriod)

		require.Len(t, cfg.Instruments, 1)
		assert.Equal(t, "ES", cfg.Instruments[0].Symbol)
		assert.Equal(t, 0.25, cfg.Instruments[0].TickSize)

		require.Len(t, cfg.Tiers, 1)
		assert.Equal(t, 50000.0, cfg.Tiers[0].StartingBalance)
		assert.Equal(t, 5, cfg.Tiers[0].MinTradingDays)
	})

	t.Run("omitted engine settings keep their defaults", func(t *testing.T) {
		minimal := `
instruments:
  - symbol: ES
    tick_size: 0.25
    tick_value: 12.50
    base_price: 5150.00

tiers:
  - name: starter-50k
    starting_balance: 50000
    max_drawdown: 2500
    daily_loss_limit: 1250
    profit_target: 3000
`
		cfg, err := Load(writeConfig(t, minimal))
		require.NoError(t, err)

		assert.Equal(t, 5*time.Second, cfg.Engine.SweepInterval)
		assert.Equal(t, 2, cfg.Engine.MaxSlippageTicks)
		assert.Equal(t, 3000, cfg.Server.Port)
	})

	t.Run("DATABASE_URL overrides the configured dsn", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://override:5432/engine")

		cfg, err := Load(writeConfig(t, validYAML))
		require.NoError(t, err)

		assert.Equal(t, "postgres://override:5432/engine", cfg.Database.DSN)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("requires at least one instrument", func(t *testing.T) {
		noInstruments := `
tiers:
  - name: starter-50k
    starting_balance: 50000
    max_drawdown: 2500
    daily_loss_limit: 1250
    profit_target: 3000
`
		_, err := Load(writeConfig(t, noInstruments))
		assert.ErrorContains(t, err, "instrument")
	})

	t.Run("requires at least one tier", func(t *testing.T) {
		noTiers := `
instruments:
  - symbol: ES
    tick_size: 0.25
    tick_value: 12.50
    base_price: 5150.00
`
		_, err := Load(writeConfig(t, noTiers))
		assert.ErrorContains(t, err, "tier")
	})

	t.Run("rejects a tier whose drawdown swallows the balance", func(t *testing.T) {
		bad := validYAML + `
  - name: broken
    starting_balance: 1000
    max_drawdown: 1000
    daily_loss_limit: 100
    profit_target: 100
`
		_, err := Load(writeConfig(t, bad))
		assert.ErrorContains(t, err, "max drawdown")
	})
}

func TestLookupMaps(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	instruments := cfg.InstrumentMap()
	require.Contains(t, instruments, "ES")
	assert.Equal(t, 12.50, instruments["ES"].TickValue)

	tiers := cfg.TierMap()
	require.Contains(t, tiers, "starter-50k")
	assert.Equal(t, 2500.0, tiers["starter-50k"].MaxDrawdown)
}
