package marketdata

import (
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// Bar is a fixed-period OHLC aggregate of the synthetic series.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	TickCount int       `json:"tick_count"`
}

func newBar(start time.Time, price float64) *Bar {
	return &Bar{
		Timestamp: start,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		TickCount: 1,
	}
}

func (b *Bar) update(price float64) {
	if price > b.High {
		b.High = price
	}
	if price < b.Low {
		b.Low = price
	}
	b.Close = price
	b.TickCount++
}

// barCache stores finalized bars. Entries never expire and are never
// rewritten: once a bar has been served it stays exactly as generated.
type barCache struct {
	store  *cache.Cache
	counts map[string]int
}

func newBarCache() *barCache {
	return &barCache{
		store:  cache.New(cache.NoExpiration, 0),
		counts: make(map[string]int),
	}
}

func barKey(symbol string, index int) string {
	return fmt.Sprintf("%s/%d", symbol, index)
}

func (c *barCache) append(symbol string, bar *Bar) {
	index := c.counts[symbol]
	c.store.Set(barKey(symbol, index), bar, cache.NoExpiration)
	c.counts[symbol] = index + 1
}

func (c *barCache) list(symbol string, limit int) []*Bar {
	count := c.counts[symbol]

	start := 0
	if limit > 0 && count > limit {
		start = count - limit
	}

	bars := make([]*Bar, 0, count-start)
	for i := start; i < count; i++ {
		if v, ok := c.store.Get(barKey(symbol, i)); ok {
			bars = append(bars, v.(*Bar))
		}
	}

	return bars
}
