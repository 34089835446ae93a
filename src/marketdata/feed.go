package marketdata

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fundedsim/engine/src/models"
)

// meanReversionFactor pulls each step back toward the instrument's
// reference level so the walk stays in a plausible band.
const meanReversionFactor = 0.01

// PriceFeed is the sole source of current-price truth for every consumer:
// the execution path and the chart path read the same snapshot. Prices only
// move when the host calls Tick, so repeated reads inside one sweep are
// idempotent by construction.
type PriceFeed struct {
	mu          sync.Mutex
	instruments map[string]models.Instrument
	states      map[string]*symbolState
	rng         *rand.Rand
	bars        *barCache
	barPeriod   time.Duration
	now         func() time.Time
}

type symbolState struct {
	last      float64
	reference float64
	bar       *Bar // in-progress aggregate, finalized on period boundary
}

// NewPriceFeed constructs and fully initializes one generator per
// instrument. There is no lazy first-use generation: every symbol has a
// price as soon as the feed is returned.
func NewPriceFeed(instruments []models.Instrument, barPeriod time.Duration, seed int64) *PriceFeed {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	feed := &PriceFeed{
		instruments: make(map[string]models.Instrument, len(instruments)),
		states:      make(map[string]*symbolState, len(instruments)),
		rng:         rand.New(rand.NewSource(seed)),
		bars:        newBarCache(),
		barPeriod:   barPeriod,
		now:         time.Now,
	}

	for _, inst := range instruments {
		feed.instruments[inst.Symbol] = inst
		feed.states[inst.Symbol] = &symbolState{
			last:      inst.RoundToTick(inst.BasePrice),
			reference: inst.RoundToTick(inst.BasePrice),
		}
	}

	return feed
}

// SetClock overrides the feed's time source.
func (f *PriceFeed) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = now
}

// CurrentPrice returns the latest snapshot for the symbol. The value does
// not change between two Tick calls, so a trigger check and the fill that
// follows it always price identically.
func (f *PriceFeed) CurrentPrice(symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.states[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrUnknownInstrument, symbol)
	}

	return state.last, nil
}

// Tick advances every symbol by one step: bounded random movement plus mean
// reversion toward the reference level, rounded to the tick size.
func (f *PriceFeed) Tick() {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()

	for symbol, state := range f.states {
		inst := f.instruments[symbol]

		maxStep := inst.VolatilityTicks
		if maxStep <= 0 {
			maxStep = 1
		}

		moveTicks := f.rng.Intn(2*maxStep+1) - maxStep
		reversion := meanReversionFactor * (state.reference - state.last)

		next := state.last + float64(moveTicks)*inst.TickSize + reversion
		next = inst.RoundToTick(next)
		if next < inst.TickSize {
			next = inst.TickSize
		}

		state.last = next
		f.aggregate(symbol, state, next, now)
	}
}

// aggregate folds the new price into the in-progress bar and finalizes the
// bar into the cache when its period has elapsed. Finalized bars are never
// regenerated, so execution prices stay consistent with any history already
// served.
func (f *PriceFeed) aggregate(symbol string, state *symbolState, price float64, now time.Time) {
	start := now.Truncate(f.barPeriod)

	if state.bar == nil {
		state.bar = newBar(start, price)
		return
	}

	if start.After(state.bar.Timestamp) {
		f.bars.append(symbol, state.bar)
		state.bar = newBar(start, price)
		return
	}

	state.bar.update(price)
}

// Bars returns up to limit finalized bars for the symbol, oldest first.
// limit <= 0 returns the full cached history.
func (f *PriceFeed) Bars(symbol string, limit int) ([]*Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.states[symbol]; !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownInstrument, symbol)
	}

	return f.bars.list(symbol, limit), nil
}

// Instrument looks up the contract specification for a symbol.
func (f *PriceFeed) Instrument(symbol string) (models.Instrument, bool) {
	inst, ok := f.instruments[symbol]
	if !ok {
		log.Warnf("marketdata: unknown instrument %s", symbol)
	}

	return inst, ok
}

// Symbols lists the configured instrument symbols.
func (f *PriceFeed) Symbols() []string {
	symbols := make([]string, 0, len(f.instruments))
	for symbol := range f.instruments {
		symbols = append(symbols, symbol)
	}

	return symbols
}

// jumpTo is used by tests to force a deterministic price.
func (f *PriceFeed) jumpTo(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if state, ok := f.states[symbol]; ok {
		inst := f.instruments[symbol]
		state.last = inst.RoundToTick(price)
	}
}

// SetPrice pins a symbol to an exact tick-aligned price. It exists for
// deterministic scenarios (tests, demos); the price still only changes
// between reads, preserving the idempotence contract.
func (f *PriceFeed) SetPrice(symbol string, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.states[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnknownInstrument, symbol)
	}

	inst := f.instruments[symbol]
	rounded := inst.RoundToTick(price)
	if math.Abs(rounded-price) > 1e-9 {
		return fmt.Errorf("price %.4f is not a multiple of tick size %.4f", price, inst.TickSize)
	}

	state.last = rounded
	f.aggregate(symbol, state, rounded, f.now())

	return nil
}
