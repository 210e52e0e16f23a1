package signal

import (
	"github.com/themirrorplatform/trading-bot-sub000/internal/bar"
	"github.com/themirrorplatform/trading-bot-sub000/internal/numeric"
	"github.com/themirrorplatform/trading-bot-sub000/internal/session"
)

const (
	dvsMinEntry = 0.80
	eqsMinEntry = 0.75
)

// computeQualityCost derives the spread/slippage/friction proxies (spec.md
// §4.2 "Quality/cost features"). It does not touch the DVS/EQS/session
// reliability fields; those are filled by Reliability once the caller's
// quality scorers have produced DVS/EQS for the bar.
func (e *Engine) computeQualityCost(b bar.Bar, out *Output) {
	var spreadTicks float64
	haveSpread := false
	if b.Bid != nil && b.Ask != nil {
		const tickSize = 0.25
		spreadTicks = (*b.Ask - *b.Bid) / tickSize
		haveSpread = true
	}

	if haveSpread {
		// 1.0 at 1 tick, 0.0 at >=3 ticks, linear between.
		tickiness := numeric.Clamp(1.0-(spreadTicks-1.0)/2.0, 0, 1)
		out.SpreadProxyTickiness = ptr(tickiness)

		// Slippage-risk-proxy: wider spread => worse, inverted so higher is
		// better, matching SpreadProxyTickiness's sense for composition.
		out.SlippageRiskProxy = ptr(tickiness)
	}

	atr := e.atr14.Value()
	if e.atr14.Primed() && e.referenceATR > 0 && out.SpreadProxyTickiness != nil {
		volRatio := numeric.Clamp(atr/e.referenceATR, 0, 2) / 2
		friction := 0.5*(1-*out.SpreadProxyTickiness) + 0.5*volRatio
		out.FrictionRegimeIndex = ptr(numeric.Clamp(friction, 0, 1))
	}
}

// Reliability computes the {dvs_ok, eqs_ok, session_ok} triple and the
// weighted overall reliability score, populated by the caller once DVS/EQS
// for the bar are known (spec.md §4.2 "Reliability").
func Reliability(out *Output, dvs, eqs float64, phase session.Phase) {
	out.DVSOk = dvs >= dvsMinEntry
	out.EQSOk = eqs >= eqsMinEntry
	out.SessionOk = phase != session.PreMarket && phase != session.Lunch && phase != session.PostRTH

	weighted := 0.5*dvs + 0.3*eqs
	if out.SessionOk {
		weighted += 0.2
	}
	out.ReliabilityAll = ptr(numeric.Clamp(weighted, 0, 1))
}
