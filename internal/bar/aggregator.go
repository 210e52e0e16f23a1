package bar

import (
	"fmt"
	"time"
)

// Tick is a single trade print from the market data sink (spec.md §6).
type Tick struct {
	Timestamp time.Time
	Price     float64
	Size      float64
}

// Quote is a top-of-book bid/ask update.
type Quote struct {
	Timestamp time.Time
	Bid       float64
	Ask       float64
}

// Aggregator folds a stream of ticks and quotes into fixed-interval OHLCV
// bars, emitting each bar exactly when the next interval boundary is
// crossed (spec.md §4.1). It holds no I/O and is safe to drive synchronously
// from Thread M in the orchestrator's concurrency model (spec.md §5).
type Aggregator struct {
	interval   time.Duration
	lastTick   time.Time // last accepted tick timestamp, for ordering enforcement
	open       bool
	boundary   time.Time // start of the bar currently accumulating
	current    partialBar
	lastBid    *float64
	lastAsk    *float64
}

type partialBar struct {
	open, high, low, close float64
	volume                 float64
	tickCount              int64
}

// NewAggregator creates an aggregator for the given bar interval (e.g. one
// minute).
func NewAggregator(interval time.Duration) *Aggregator {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Aggregator{interval: interval}
}

// boundaryFor truncates t down to the start of its interval.
func (a *Aggregator) boundaryFor(t time.Time) time.Time {
	return t.Truncate(a.interval)
}

// OnTick feeds one tick. It returns a completed Bar and true if the tick
// crossed an interval boundary and thereby finalized the previous bar.
// Out-of-order ticks (timestamp strictly before the last accepted tick) are
// dropped; the caller is responsible for logging them (spec.md §4.1
// "Ordering").
func (a *Aggregator) OnTick(t Tick) (Bar, bool, error) {
	if !a.lastTick.IsZero() && t.Timestamp.Before(a.lastTick) {
		return Bar{}, false, fmt.Errorf("bar: out-of-order tick dropped: %s before %s", t.Timestamp, a.lastTick)
	}
	a.lastTick = t.Timestamp

	boundary := a.boundaryFor(t.Timestamp)

	if !a.open {
		a.openBar(boundary, t)
		return Bar{}, false, nil
	}

	if boundary.After(a.boundary) {
		finished := a.finalize()
		a.openBar(boundary, t)
		return finished, true, nil
	}

	a.current.high = max(a.current.high, t.Price)
	a.current.low = min(a.current.low, t.Price)
	a.current.close = t.Price
	a.current.volume += t.Size
	a.current.tickCount++
	return Bar{}, false, nil
}

// OnQuote records the latest known bid/ask, attached to the bar currently
// accumulating (and to the next one opened, until overwritten).
func (a *Aggregator) OnQuote(q Quote) {
	bid, ask := q.Bid, q.Ask
	a.lastBid = &bid
	a.lastAsk = &ask
}

func (a *Aggregator) openBar(boundary time.Time, t Tick) {
	a.open = true
	a.boundary = boundary
	a.current = partialBar{
		open:      t.Price,
		high:      t.Price,
		low:       t.Price,
		close:     t.Price,
		volume:    t.Size,
		tickCount: 1,
	}
}

func (a *Aggregator) finalize() Bar {
	b := Bar{
		Timestamp: a.boundary,
		Open:      a.current.open,
		High:      a.current.high,
		Low:       a.current.low,
		Close:     a.current.close,
		Volume:    a.current.volume,
		TickCount: a.current.tickCount,
		Bid:       a.lastBid,
		Ask:       a.lastAsk,
	}
	return b
}

// Flush finalizes and returns any bar currently accumulating (used at
// shutdown, spec.md §5 "Cancellation & timeout"). It returns false if there
// is nothing to flush.
func (a *Aggregator) Flush() (Bar, bool) {
	if !a.open {
		return Bar{}, false
	}
	b := a.finalize()
	a.open = false
	return b, true
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
