package signal

import (
	"time"

	"github.com/themirrorplatform/trading-bot-sub000/internal/bar"
	"github.com/themirrorplatform/trading-bot-sub000/internal/numeric"
	"github.com/themirrorplatform/trading-bot-sub000/internal/session"
)

// computeVWAP accumulates only during RTH using typical price, then derives
// vwap_z (clamped [-3,3]) and vwap_slope (OLS over the last 5 VWAP values,
// normalized by tick size, clamped [-1,1]) per spec.md §4.2.
func (e *Engine) computeVWAP(local time.Time, phase session.Phase, tp float64, b bar.Bar, out *Output) {
	if session.InRTH(local) {
		e.sumPV += tp * maxf(b.Volume, 0)
		e.sumV += maxf(b.Volume, 0)
	}
	if e.sumV <= 0 {
		return
	}
	vwap := e.sumPV / e.sumV
	out.VWAP = ptr(vwap)
	e.vwapHist.Push(vwap)

	if e.atr14.Primed() && e.atr14.Value() > 0 {
		z := numeric.ZScore(b.Close, vwap, e.atr14.Value())
		out.VWAPZ = ptr(numeric.Clamp(z, -3, 3))
	}

	if e.vwapHist.Len() >= 2 {
		slope := olsSlope(e.vwapHist.Values())
		// tickSize mirrors the target-contract default from spec.md §3;
		// normalizing by it keeps slope comparable across instruments.
		const tickSize = 0.25
		out.VWAPSlope = ptr(numeric.Clamp(slope/tickSize, -1, 1))
	}
}

// olsSlope returns the slope of the ordinary-least-squares line through
// evenly spaced x = 0..n-1 samples.
func olsSlope(ys []float64) float64 {
	n := float64(len(ys))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// computeATR shares one true-range-per-bar across ATR(14) and ATR(30)
// (spec.md §4.2 "Both ATR(14) and ATR(30) share the SAME TR per bar"),
// anchors reference_ATR on the first primed ATR(14) of each session,
// and derives atr_14_n clamped to [0, 2].
func (e *Engine) computeATR(tr float64, out *Output) {
	v14, ok14 := e.atr14.Update(tr)
	if ok14 {
		out.ATR14 = ptr(v14)
		if !e.haveRefATR {
			e.referenceATR = v14
			e.haveRefATR = true
		}
		if e.referenceATR > 0 {
			out.ATR14N = ptr(numeric.Clamp(v14/e.referenceATR, 0, 2))
		}
	}
	v30, ok30 := e.atr30.Update(tr)
	if ok30 {
		out.ATR30 = ptr(v30)
	}
}

// CurrentATR14 exposes the live ATR(14) value (0 if not yet primed), used by
// downstream components (in-trade manager) that need the same smoother
// state the signal engine maintains rather than recomputing it.
func (e *Engine) CurrentATR14() (float64, bool) {
	return e.atr14.Value(), e.atr14.Primed()
}

// ReferenceATR exposes the session-anchor ATR used for atr_14_n
// normalization.
func (e *Engine) ReferenceATR() (float64, bool) {
	return e.referenceATR, e.haveRefATR
}
