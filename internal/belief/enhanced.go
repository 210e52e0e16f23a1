package belief

import (
	"github.com/themirrorplatform/trading-bot-sub000/internal/numeric"
	"github.com/themirrorplatform/trading-bot-sub000/internal/session"
)

// BiasWeights gives each constraint a small set of bias/context signals
// (spec.md §4.2 bias/context features) that nudge its likelihood without
// joining the primary constraint-signal matrix. Values are centered at 0.5
// before weighting so a neutral bias signal contributes nothing.
var BiasWeights = map[ID]map[string]float64{
	F1VWAPMeanReversion: {
		"fomo_index_bias":       -0.15,
		"structural_bias_score":  0.10,
		"temporal_bias_score":    0.10,
		"meta_cognition_score":  -0.10,
	},
	F3FailedBreakFade: {
		"fomo_index_bias":       0.05,
		"structural_bias_score": 0.12,
		"temporal_bias_score":   0.08,
		"meta_cognition_score": -0.08,
	},
	F4SweepReversal: {
		"fomo_index_bias":       0.10,
		"structural_bias_score": 0.10,
		"temporal_bias_score":   0.05,
		"meta_cognition_score": -0.10,
	},
	F5MomentumContinuation: {
		"fomo_index_bias":       -0.10,
		"structural_bias_score": -0.05,
		"temporal_bias_score":    0.12,
		"meta_cognition_score":  -0.12,
	},
	F6NoiseFilter: {
		"fomo_index_bias":       -0.20,
		"structural_bias_score":  0.05,
		"temporal_bias_score":    0.15,
		"meta_cognition_score":  -0.15,
	},
}

const biasAdjustmentCap = 0.20

// BiasAdjustment computes the bounded likelihood nudge from bias/context
// signals for one constraint (spec.md §4.4 "Enhanced path").
func BiasAdjustment(id ID, biasSignals map[string]float64) float64 {
	weights, ok := BiasWeights[id]
	if !ok {
		return 0
	}
	var adj float64
	for name, w := range weights {
		v, present := biasSignals[name]
		if !present {
			v = 0.5
		}
		adj += w * (v - 0.5)
	}
	return numeric.Clamp(adj, -biasAdjustmentCap, biasAdjustmentCap)
}

// StrategyInfluence describes how a constraint relates to the strategy
// layer's dominant category, used for the alignment bonus and the conflict
// penalty ceiling (spec.md §4.4 "Enhanced path").
type StrategyInfluence struct {
	PreferredCategories []string
	ConflictPenaltyBase float64
}

var StrategyInfluences = map[ID]StrategyInfluence{
	F1VWAPMeanReversion:    {PreferredCategories: []string{"MR", "ST"}, ConflictPenaltyBase: 0.15},
	F3FailedBreakFade:      {PreferredCategories: []string{"FA", "ST"}, ConflictPenaltyBase: 0.12},
	F4SweepReversal:        {PreferredCategories: []string{"FA", "SC"}, ConflictPenaltyBase: 0.10},
	F5MomentumContinuation: {PreferredCategories: []string{"MO", "BO"}, ConflictPenaltyBase: 0.10},
	F6NoiseFilter:          {PreferredCategories: nil, ConflictPenaltyBase: 0.05},
}

// StrategyState is the (coarse) strategy-layer context the belief engine
// consults for its alignment bonus and conflict penalty.
type StrategyState struct {
	DominantCategory string
	ConfluenceCount  int
	ConflictDetected bool
	CrowdingScore    float64
}

// StrategyAdjustment returns the positive bonus applied when the dominant
// strategy category aligns with this constraint, plus a confluence bonus
// (spec.md §4.4 "Enhanced path").
func StrategyAdjustment(id ID, state StrategyState) float64 {
	influence, ok := StrategyInfluences[id]
	if !ok {
		return 0
	}
	var bonus float64
	for _, cat := range influence.PreferredCategories {
		if cat == state.DominantCategory {
			bonus += 0.05
			break
		}
	}
	if state.ConfluenceCount >= 2 {
		bonus += 0.03
	}
	return bonus
}

const conflictPenaltyCap = 0.20

// ConflictPenalty scales the base conflict penalty by crowding, capped, and
// is zero unless the strategy layer has flagged an active conflict (spec.md
// §4.4 "Enhanced path").
func ConflictPenalty(id ID, state StrategyState) float64 {
	if !state.ConflictDetected {
		return 0
	}
	influence, ok := StrategyInfluences[id]
	if !ok {
		return 0
	}
	penalty := influence.ConflictPenaltyBase * (1 + state.CrowdingScore*0.5)
	return numeric.Clamp(penalty, 0, conflictPenaltyCap)
}

// MetaCognitionGate reduces every constraint's likelihood when the bias
// layer reports overconfidence, confirmation-bias risk or a hindsight trap,
// never by more than half (spec.md §4.4 "Enhanced path").
func MetaCognitionGate(biasSignals map[string]float64) float64 {
	const (
		overconfidenceGate    = 0.7
		confirmationBiasGate  = 0.6
		hindsightTrapGate     = 0.5
	)

	gate := 1.0
	if overconf := biasSignals["overconfidence_flag"]; overconf > overconfidenceGate {
		gate *= 1.0 - (overconf-overconfidenceGate)*0.5
	}
	if confirm := biasSignals["confirmation_bias_risk"]; confirm > confirmationBiasGate {
		gate *= 1.0 - (confirm-confirmationBiasGate)*0.4
	}
	if hindsight := biasSignals["hindsight_trap_flag"]; hindsight > hindsightTrapGate {
		gate *= 1.0 - (hindsight-hindsightTrapGate)*0.3
	}
	return numeric.Clamp(gate, 0.5, 1.0)
}

// EnhancedLikelihood extends Likelihood with the bias/strategy/meta-cognition
// adjustments applied on top of the base pipeline (spec.md §4.4 "Enhanced
// path").
type EnhancedLikelihood struct {
	Likelihood
	BiasAdjustment     float64
	StrategyAdjustment float64
	ConflictPenalty    float64
	MetaCognitionGate  float64
	RawLikelihood      float64
	FinalLikelihood    float64
}

// EvaluateEnhanced extends Evaluate with the bias/strategy/meta-cognition
// adjustments (spec.md §4.4 "Enhanced path"):
//
//  1. evidence, raw likelihood, applicability as in Evaluate
//  2. bias_adjustment from bias/context signals
//  3. strategy_adjustment from strategy alignment
//  4. conflict_penalty from strategy conflict
//  5. adjusted = raw + bias_adjustment + strategy_adjustment - conflict_penalty
//  6. decayed = blend(adjusted, prior)
//  7. gated = decayed * meta_cognition_gate
//  8. final_likelihood = gated * applicability
func EvaluateEnhanced(cfg Config, state *State, signals map[string]float64, known map[string]bool, phase session.Phase, dvs, eqs float64, biasSignals map[string]float64, strategyState StrategyState) EnhancedLikelihood {
	evidence, raw, applicability := evaluateBase(cfg, signals, known, phase, dvs, eqs)

	biasAdj := BiasAdjustment(cfg.ID, biasSignals)
	strategyAdj := StrategyAdjustment(cfg.ID, strategyState)
	conflictPen := ConflictPenalty(cfg.ID, strategyState)

	adjusted := numeric.Clamp(raw+biasAdj+strategyAdj-conflictPen, 0, 1)
	decayed := decayAndStabilize(state, cfg.DecayLambda, adjusted)

	metaGate := MetaCognitionGate(biasSignals)
	gated := decayed * metaGate
	final := gated * applicability

	return EnhancedLikelihood{
		Likelihood: Likelihood{
			Evidence:            evidence,
			LikelihoodRaw:       raw,
			Applicability:       applicability,
			LikelihoodDecayed:   decayed,
			EffectiveLikelihood: final,
			Stability:           state.Stability,
		},
		BiasAdjustment:     biasAdj,
		StrategyAdjustment: strategyAdj,
		ConflictPenalty:    conflictPen,
		MetaCognitionGate:  metaGate,
		RawLikelihood:      raw,
		FinalLikelihood:    final,
	}
}
