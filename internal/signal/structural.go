package signal

import (
	"github.com/themirrorplatform/trading-bot-sub000/internal/bar"
	"github.com/themirrorplatform/trading-bot-sub000/internal/numeric"
)

// computeStructural derives the range/trend/location family of features
// from the current bar plus rolling window state (spec.md §4.2
// "Structural features").
func (e *Engine) computeStructural(b bar.Bar, tp float64, out *Output) {
	atr := e.atr14.Value()
	atrPrimed := e.atr14.Primed() && atr > 0

	// Range compression: current H-L vs 10-bar mean.
	if e.ranges.Len() > 0 {
		meanRange := e.ranges.Mean()
		if meanRange > 0 {
			out.RangeCompression = ptr((b.High - b.Low) / meanRange)
		}
	}

	// HH/LL trend strength: consecutive higher-highs minus lower-lows over
	// the last 10 bars (recomputed from the stored highs/lows history).
	if e.highs.Len() >= 2 {
		out.HHLLTrendStrength = ptr(hhLLStrength(e.highs.Values(), e.lows.Values()))
	}

	// Breakout distance beyond the 20-bar range, in ATR units.
	if atrPrimed && e.highs.Len() > 0 {
		hi := maxOf(e.highs.Values())
		lo := minOf(e.lows.Values())
		dist := 0.0
		if b.Close > hi {
			dist = (b.Close - hi) / atr
		} else if b.Close < lo {
			dist = (b.Close - lo) / atr
		}
		out.BreakoutDistanceATR = ptr(dist)
	}

	// Rejection-wick size in ATR units: the larger of the upper/lower wick.
	if atrPrimed {
		upperWick := b.High - maxOf2(b.Open, b.Close)
		lowerWick := minOf2(b.Open, b.Close) - b.Low
		wick := upperWick
		if lowerWick > wick {
			wick = lowerWick
		}
		out.RejectionWickATR = ptr(wick / atr)
	}

	// Close location value in [0,1]: where close sits within the bar range.
	if b.High > b.Low {
		out.CloseLocationValue = ptr(numeric.Clamp((b.Close-b.Low)/(b.High-b.Low), 0, 1))
	} else {
		out.CloseLocationValue = ptr(0.5)
	}

	// Gap from previous close, in ATR units.
	if atrPrimed && e.havePrev {
		out.GapFromPrevCloseATR = ptr((b.Open - e.prevClose) / atr)
	}

	// Distance from median typical price, in ATR units.
	if atrPrimed && e.typicals.Len() > 0 {
		med := median(e.typicals.Values())
		out.DistFromMedianTPATR = ptr((tp - med) / atr)
	}

	// 5-bar micro-trend in [-1,1]: OLS slope of the last 5 closes,
	// normalized by their mean absolute change.
	if e.closes.Len() >= microTrendWindow {
		window := lastN(e.closes.Values(), microTrendWindow)
		out.MicroTrend5 = ptr(numeric.Clamp(normalizedSlope(window), -1, 1))
	}

	// Real-body impulse relative to the 10-bar mean body size.
	if e.bodies.Len() > 0 {
		meanBody := e.bodies.Mean()
		if meanBody > 0 {
			out.RealBodyImpulse = ptr(abs(b.Close-b.Open) / meanBody)
		}
	}
}

func hhLLStrength(highs, lows []float64) float64 {
	n := len(highs)
	window := n
	if window > 10 {
		window = 10
	}
	start := n - window
	score := 0.0
	for i := start + 1; i < n; i++ {
		if highs[i] > highs[i-1] {
			score++
		}
		if lows[i] < lows[i-1] {
			score--
		}
	}
	return score
}

func normalizedSlope(ys []float64) float64 {
	slope := olsSlope(ys)
	meanAbsChange := 0.0
	for i := 1; i < len(ys); i++ {
		meanAbsChange += abs(ys[i] - ys[i-1])
	}
	n := float64(len(ys) - 1)
	if n <= 0 || meanAbsChange == 0 {
		return 0
	}
	meanAbsChange /= n
	return slope / meanAbsChange
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minOf2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func lastN(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}
