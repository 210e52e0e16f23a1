package bar

import "time"

// Bar is a completed OHLCV bar (spec.md §3). bid/ask are the latest known
// quote at the time the bar was finalized, and may be absent.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	TickCount int64
	Bid       *float64
	Ask       *float64
}

// Valid checks the bar-level structural invariants from spec.md §3. A bar
// failing these is rejected by the caller and its DVS forced to 0 for the
// interval (the aggregator itself does not score DVS; the quality package
// does, driven by this check).
func (b Bar) Valid() bool {
	if b.Low > b.Open || b.Open > b.High {
		return false
	}
	if b.Low > b.Close || b.Close > b.High {
		return false
	}
	if b.Low > b.High {
		return false
	}
	if b.Volume < 0 {
		return false
	}
	return true
}

// TypicalPrice returns (H+L+C)/3, used throughout the signal engine for
// VWAP and reference-price computations.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3.0
}

// TrueRange computes the true range of b given the prior bar's close, per
// spec.md §4.2 ("True Range uses the prior bar's close"). prevClose should
// be NaN-free; pass b.Close itself for the very first bar of a series (no
// gap contribution).
func (b Bar) TrueRange(prevClose float64) float64 {
	hl := b.High - b.Low
	hc := abs(b.High - prevClose)
	lc := abs(b.Low - prevClose)
	tr := hl
	if hc > tr {
		tr = hc
	}
	if lc > tr {
		tr = lc
	}
	return tr
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
