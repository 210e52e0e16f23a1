// Package numeric provides fixed-point price arithmetic and the small
// streaming math primitives (ring buffers, Wilder smoothing, z-score,
// sigmoid) shared by the signal, belief and decision engines.
package numeric

import (
	"fmt"
	"math"
)

// Price is a tick-aligned fixed-point value stored as an integer count of
// ticks. Representing price this way keeps all arithmetic exact (no float
// drift across a replay) while still letting callers work in dollars via
// TickSize.
type Price struct {
	ticks    int64
	tickSize float64
}

// NewPrice rounds value to the nearest tick and returns a Price exact to
// that grid. tickSize must be > 0.
func NewPrice(value, tickSize float64) (Price, error) {
	if tickSize <= 0 {
		return Price{}, fmt.Errorf("numeric: tick size must be positive, got %v", tickSize)
	}
	ticks := math.Round(value / tickSize)
	return Price{ticks: int64(ticks), tickSize: tickSize}, nil
}

// PriceFromTicks builds a Price directly from an integer tick count.
func PriceFromTicks(ticks int64, tickSize float64) Price {
	return Price{ticks: ticks, tickSize: tickSize}
}

// Float returns the price as a float64 dollar value.
func (p Price) Float() float64 { return float64(p.ticks) * p.tickSize }

// Ticks returns the integer tick count.
func (p Price) Ticks() int64 { return p.ticks }

// TickSize returns the instrument tick size this price is aligned to.
func (p Price) TickSize() float64 { return p.tickSize }

// Add returns p shifted by n ticks.
func (p Price) Add(n int64) Price { return Price{ticks: p.ticks + n, tickSize: p.tickSize} }

// Sub returns the signed tick distance between p and q. Both must share the
// same tick size; a mismatch panics since it indicates a programming error
// (mixing instruments), not a domain condition.
func (p Price) Sub(q Price) int64 {
	if p.tickSize != q.tickSize {
		panic("numeric: Sub across mismatched tick sizes")
	}
	return p.ticks - q.ticks
}

// AbsTicks returns |p - q| in ticks, at least 1 (a trade's risk unit R can
// never be zero-width per spec.md §3).
func AbsTicks(p, q Price) int64 {
	d := p.Sub(q)
	if d < 0 {
		d = -d
	}
	if d < 1 {
		return 1
	}
	return d
}

func (p Price) String() string {
	return fmt.Sprintf("%.*f", decimalsFor(p.tickSize), p.Float())
}

func decimalsFor(tickSize float64) int {
	decimals := 0
	v := tickSize
	for v != math.Trunc(v) && decimals < 8 {
		v *= 10
		decimals++
	}
	return decimals
}

// Clamp restricts x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Sigmoid computes the logistic function with a saturating guard: logits
// whose magnitude exceeds 20 are clamped before the exponential so the
// result never underflows/overflows (spec.md §4.4).
func Sigmoid(x float64) float64 {
	x = Clamp(x, -20, 20)
	return 1.0 / (1.0 + math.Exp(-x))
}

// ZScore computes (x - mean) / stddev, returning 0 when stddev is ~0 to
// avoid division blowups on flat windows.
func ZScore(x, mean, stddev float64) float64 {
	if stddev < 1e-9 {
		return 0
	}
	return (x - mean) / stddev
}
