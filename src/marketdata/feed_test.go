package marketdata

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundedsim/engine/src/models"
)

var es = models.Instrument{
	Symbol:          "ES",
	TickSize:        0.25,
	TickValue:       12.50,
	BasePrice:       5150.0,
	VolatilityTicks: 4,
}

func newTestFeed(seed int64) *PriceFeed {
	return NewPriceFeed([]models.Instrument{es}, time.Minute, seed)
}

func assertTickAligned(t *testing.T, price float64) {
	t.Helper()

	ticks := price / es.TickSize
	assert.InDelta(t, math.Round(ticks), ticks, 1e-9, "price %.4f is not tick aligned", price)
}

func TestPriceFeedInitialization(t *testing.T) {
	feed := newTestFeed(1)

	t.Run("every symbol has a price before the first tick", func(t *testing.T) {
		price, err := feed.CurrentPrice("ES")
		require.NoError(t, err)
		assert.Equal(t, 5150.0, price)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := feed.CurrentPrice("ZZ")
		assert.ErrorIs(t, err, models.ErrUnknownInstrument)
	})
}

func TestPriceFeedTick(t *testing.T) {
	feed := newTestFeed(7)

	t.Run("prices stay tick aligned and positive", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			feed.Tick()

			price, err := feed.CurrentPrice("ES")
			require.NoError(t, err)
			assertTickAligned(t, price)
			assert.Greater(t, price, 0.0)
		}
	})

	t.Run("each step is bounded by the volatility band", func(t *testing.T) {
		prev, err := feed.CurrentPrice("ES")
		require.NoError(t, err)

		// Reversion adds at most a fraction of a tick, so one extra tick of
		// tolerance covers it.
		maxStep := float64(es.VolatilityTicks+1) * es.TickSize

		for i := 0; i < 200; i++ {
			feed.Tick()

			price, err := feed.CurrentPrice("ES")
			require.NoError(t, err)
			assert.LessOrEqual(t, math.Abs(price-prev), maxStep)
			prev = price
		}
	})
}

func TestPriceFeedSnapshotIdempotence(t *testing.T) {
	feed := newTestFeed(3)
	feed.Tick()

	first, err := feed.CurrentPrice("ES")
	require.NoError(t, err)

	// The price only moves on Tick: any number of reads in between sees the
	// identical snapshot.
	for i := 0; i < 10; i++ {
		price, err := feed.CurrentPrice("ES")
		require.NoError(t, err)
		assert.Equal(t, first, price)
	}
}

func TestPriceFeedSetPrice(t *testing.T) {
	feed := newTestFeed(1)

	t.Run("pins a tick-aligned price", func(t *testing.T) {
		require.NoError(t, feed.SetPrice("ES", 5148.25))

		price, err := feed.CurrentPrice("ES")
		require.NoError(t, err)
		assert.Equal(t, 5148.25, price)
	})

	t.Run("rejects an off-tick price", func(t *testing.T) {
		assert.Error(t, feed.SetPrice("ES", 5148.30))
	})

	t.Run("rejects an unknown symbol", func(t *testing.T) {
		assert.ErrorIs(t, feed.SetPrice("ZZ", 100.0), models.ErrUnknownInstrument)
	})
}

func TestPriceFeedBars(t *testing.T) {
	feed := newTestFeed(11)

	current := time.Date(2025, time.March, 3, 14, 30, 0, 0, time.UTC)
	feed.SetClock(func() time.Time { return current })

	// Three ticks inside the first minute, then cross the boundary twice.
	for i := 0; i < 3; i++ {
		feed.Tick()
		current = current.Add(20 * time.Second)
	}
	feed.Tick() // 14:31, finalizes the 14:30 bar
	current = current.Add(time.Minute)
	feed.Tick() // 14:32, finalizes the 14:31 bar

	bars, err := feed.Bars("ES", 0)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	t.Run("bars are well formed and ordered", func(t *testing.T) {
		first := bars[0]
		assert.Equal(t, time.Date(2025, time.March, 3, 14, 30, 0, 0, time.UTC), first.Timestamp)
		assert.Equal(t, 3, first.TickCount)
		assert.GreaterOrEqual(t, first.High, first.Low)
		assert.GreaterOrEqual(t, first.High, first.Open)
		assert.GreaterOrEqual(t, first.High, first.Close)
		assert.LessOrEqual(t, first.Low, first.Open)
		assert.LessOrEqual(t, first.Low, first.Close)

		assert.True(t, bars[1].Timestamp.After(first.Timestamp))
	})

	t.Run("finalized bars are never regenerated", func(t *testing.T) {
		snapshot := *bars[0]

		feed.Tick()
		again, err := feed.Bars("ES", 0)
		require.NoError(t, err)

		assert.Equal(t, snapshot, *again[0])
	})

	t.Run("limit returns the most recent bars", func(t *testing.T) {
		limited, err := feed.Bars("ES", 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, bars[1].Timestamp, limited[0].Timestamp)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := feed.Bars("ZZ", 0)
		assert.ErrorIs(t, err, models.ErrUnknownInstrument)
	})
}

func TestPriceFeedStats(t *testing.T) {
	feed := newTestFeed(5)

	current := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	feed.SetClock(func() time.Time { return current })

	for i := 0; i < 30; i++ {
		feed.Tick()
		current = current.Add(time.Minute)
	}

	seriesStats, err := feed.Stats("ES")
	require.NoError(t, err)

	assert.Equal(t, "ES", seriesStats.Symbol)
	assert.Greater(t, seriesStats.Bars, 0)
	assert.InDelta(t, 5150.0, seriesStats.MeanClose, float64(es.VolatilityTicks)*es.TickSize*30)
	assert.GreaterOrEqual(t, seriesStats.StdDevClose, 0.0)

	t.Run("empty history yields zeroed stats", func(t *testing.T) {
		fresh := newTestFeed(5)

		seriesStats, err := fresh.Stats("ES")
		require.NoError(t, err)
		assert.Equal(t, 0, seriesStats.Bars)
		assert.Equal(t, 0.0, seriesStats.MeanClose)
	})
}
