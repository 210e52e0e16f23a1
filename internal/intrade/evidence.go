package intrade

import (
	"math"

	"github.com/themirrorplatform/trading-bot-sub000/internal/belief"
	"github.com/themirrorplatform/trading-bot-sub000/internal/numeric"
)

// continuationEvidence blends four direction-aligned inputs into E_cont
// (spec.md §4.7 step 4). F1/F3's "favoring the position's direction" is
// resolved the same way the source uniformly derives direction from
// vwap_z sign (spec.md §9 Open Question 1): a constraint favors Long when
// vwap_z < 0.
func continuationEvidence(dir float64, mfe, mae float64, in BarInput, driftATR float64, minTick float64) float64 {
	eStructure := structureEvidence(dir, in.Beliefs, in.Signals)

	ePullback := 0.5
	if mfe > minTick {
		ePullback = math.Max(0, 1-2*mae/mfe)
	}

	eMomentum := numeric.Sigmoid(2 * driftATR)
	if l, ok := in.Beliefs[belief.F5MomentumContinuation]; ok {
		eMomentum = l.EffectiveLikelihood
	}

	eSignal := numeric.Sigmoid(directionAlignedSignalMean(dir, in.Signals))

	return 0.30*eStructure + 0.25*ePullback + 0.25*eMomentum + 0.20*eSignal
}

// reversalEvidence blends three adverse-direction inputs into E_rev
// (spec.md §4.7 step 5).
func reversalEvidence(dir float64, in BarInput, adverseSwing *swingPoint, sigmaNorm float64, driftATR float64) float64 {
	eBreak := 0.0
	if adverseSwing != nil {
		if dir > 0 && in.Close < adverseSwing.price {
			eBreak = 1
		} else if dir < 0 && in.Close > adverseSwing.price {
			eBreak = 1
		}
	}

	eMomRev := numeric.Sigmoid(-2 * driftATR)

	eVolAgainst := 0.0
	if sigmaNorm > 1.3 && in.ATR > 0 {
		adverseRange := dir * (in.Close - in.High)
		if dir < 0 {
			adverseRange = dir * (in.Close - in.Low)
		}
		mag := -adverseRange / in.ATR
		if mag > 0 {
			eVolAgainst = mag
		}
	}

	return 0.50*eBreak + 0.30*eMomRev + 0.20*eVolAgainst
}

func structureEvidence(dir float64, beliefs map[belief.ID]belief.Likelihood, signals map[string]float64) float64 {
	favorsLong := signals["vwap_z"] < 0
	f1 := alignedLikelihood(dir, favorsLong, beliefs[belief.F1VWAPMeanReversion])
	f3 := alignedLikelihood(dir, favorsLong, beliefs[belief.F3FailedBreakFade])
	return 0.5*f1 + 0.5*f3
}

// alignedLikelihood flips a constraint's effective likelihood to express
// "favors this trade's direction" rather than "favors Long", using the
// same vwap_z-sign convention the source uses for direction uniformly
// (spec.md §9 Open Question 1): stretched below VWAP favors Long.
func alignedLikelihood(dir float64, favorsLong bool, l belief.Likelihood) float64 {
	if l.EffectiveLikelihood == 0 && l.LikelihoodDecayed == 0 && l.Applicability == 0 {
		return 0.5 // unknown/inapplicable constraint: neutral, doesn't bias E_structure
	}
	tradeIsLong := dir > 0
	if favorsLong == tradeIsLong {
		return l.EffectiveLikelihood
	}
	return 1 - l.EffectiveLikelihood
}

// directionAlignedSignalMean averages a small basket of trend-following
// signals, each sign-aligned to the trade's direction, for E_signal.
func directionAlignedSignalMean(dir float64, signals map[string]float64) float64 {
	keys := []string{"hhll_trend_strength", "micro_trend_5", "vwap_slope"}
	sum, n := 0.0, 0
	for _, k := range keys {
		if v, ok := signals[k]; ok {
			sum += dir * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
