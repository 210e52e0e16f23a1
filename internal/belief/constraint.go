// Package belief converts signal features into per-constraint likelihoods
// with temporal smoothing (spec.md §4.4). Constraints are long-lived
// entities whose state persists across bars and resets only at explicit
// session-reset events.
package belief

import (
	"github.com/themirrorplatform/trading-bot-sub000/internal/numeric"
	"github.com/themirrorplatform/trading-bot-sub000/internal/session"
)

// ID names one of the fixed expression-template constraints.
type ID string

const (
	F1VWAPMeanReversion ID = "F1"
	F3FailedBreakFade   ID = "F3"
	F4SweepReversal     ID = "F4"
	F5MomentumContinuation ID = "F5"
	F6NoiseFilter       ID = "F6"
)

// SigmoidParams gives the (a, b) coefficients of likelihood = sigmoid(a*evidence + b).
type SigmoidParams struct {
	A, B float64
}

// ApplicabilityRules are the hard (session phase) and soft (DVS/EQS floor)
// gates on a constraint's applicability (spec.md §4.4).
type ApplicabilityRules struct {
	AllowedPhases []session.Phase
	MinDVS        float64
	MinEQS        float64
}

func (r ApplicabilityRules) phaseOK(p session.Phase) bool {
	if len(r.AllowedPhases) == 0 {
		return true
	}
	for _, allowed := range r.AllowedPhases {
		if allowed == p {
			return true
		}
	}
	return false
}

// Applicability computes applicability = phase_ok ? min(1,dvs/min_dvs) *
// min(1,eqs/min_eqs) : 0 (spec.md §4.4 step 3).
func (r ApplicabilityRules) Applicability(phase session.Phase, dvs, eqs float64) float64 {
	if !r.phaseOK(phase) {
		return 0
	}
	dvsGate := 1.0
	if r.MinDVS > 0 && dvs < r.MinDVS {
		dvsGate = numeric.Clamp(dvs/r.MinDVS, 0, 1)
	}
	eqsGate := 1.0
	if r.MinEQS > 0 && eqs < r.MinEQS {
		eqsGate = numeric.Clamp(eqs/r.MinEQS, 0, 1)
	}
	return dvsGate * eqsGate
}

// Config is the static, learnable-by-the-learning-loop configuration of one
// constraint (spec.md §4.4).
type Config struct {
	ID            ID
	SignalWeights map[string]float64 // should sum to ~1.0 in absolute value for interpretability
	Sigmoid       SigmoidParams
	DecayLambda   float64 // in (0,1); closer to 1 = slower adaptation
	Applicability ApplicabilityRules
}

// DefaultConfigs returns the five expression-template constraints with their
// constraint-signal weight matrix, sigmoid params and decay lambdas.
func DefaultConfigs() map[ID]Config {
	rth := []session.Phase{session.Opening, session.MidMorning, session.Afternoon, session.Close}
	allPhases := []session.Phase{session.PreMarket, session.Opening, session.MidMorning, session.Lunch, session.Afternoon, session.Close, session.PostRTH}

	return map[ID]Config{
		F1VWAPMeanReversion: {
			ID: F1VWAPMeanReversion,
			SignalWeights: map[string]float64{
				"vwap_z":                0.40,
				"range_compression":     0.20,
				"vol_z":                 -0.15,
				"close_location_value":  0.15,
				"friction_regime_index": 0.10,
			},
			Sigmoid:     SigmoidParams{A: 1.8, B: 0.4},
			DecayLambda: 0.96,
			Applicability: ApplicabilityRules{
				AllowedPhases: []session.Phase{session.Opening, session.MidMorning, session.Afternoon, session.Close},
				MinDVS:        0.80,
				MinEQS:        0.75,
			},
		},
		F3FailedBreakFade: {
			ID: F3FailedBreakFade,
			SignalWeights: map[string]float64{
				"breakout_distance_n":  0.30,
				"rejection_wick_n":     0.30,
				"vol_z":                0.20,
				"hhll_trend_strength":  -0.10,
				"opening_range_break":  0.10,
			},
			Sigmoid:     SigmoidParams{A: 2.5, B: -0.5},
			DecayLambda: 0.98,
			Applicability: ApplicabilityRules{
				AllowedPhases: []session.Phase{session.Opening, session.MidMorning},
				MinDVS:        0.85,
				MinEQS:        0.80,
			},
		},
		F4SweepReversal: {
			ID: F4SweepReversal,
			SignalWeights: map[string]float64{
				"rejection_wick_n":       0.35,
				"climax_bar_flag":        0.25,
				"micro_trend_5":          -0.15,
				"close_location_value":   0.15,
				"distance_from_poc_proxy": 0.10,
			},
			Sigmoid:     SigmoidParams{A: 3.0, B: 0.0},
			DecayLambda: 0.95,
			Applicability: ApplicabilityRules{
				AllowedPhases: []session.Phase{session.Opening, session.MidMorning, session.Afternoon},
				MinDVS:        0.85,
				MinEQS:        0.80,
			},
		},
		F5MomentumContinuation: {
			ID: F5MomentumContinuation,
			SignalWeights: map[string]float64{
				"hhll_trend_strength":           0.30,
				"micro_trend_5":                 0.25,
				"real_body_impulse_n":           0.20,
				"range_expansion_on_volume":      0.15,
				"participation_expansion_index": 0.10,
			},
			Sigmoid:     SigmoidParams{A: 2.0, B: 0.5},
			DecayLambda: 0.94,
			Applicability: ApplicabilityRules{
				AllowedPhases: rth,
				MinDVS:        0.80,
				MinEQS:        0.75,
			},
		},
		F6NoiseFilter: {
			ID: F6NoiseFilter,
			SignalWeights: map[string]float64{
				"dvs":                    0.40,
				"friction_regime_index":  0.30,
				"lunch_void_gate":        0.15,
				"spread_proxy_tickiness": 0.10,
				"slippage_risk_proxy":    0.05,
			},
			Sigmoid:     SigmoidParams{A: 1.5, B: 0.0},
			DecayLambda: 0.97,
			Applicability: ApplicabilityRules{
				AllowedPhases: allPhases,
				MinDVS:        0.60,
				MinEQS:        0.60,
			},
		},
	}
}

// Likelihood is the full per-constraint record produced each bar (spec.md
// §3 "Constraint likelihood").
type Likelihood struct {
	Evidence            float64
	LikelihoodRaw       float64
	Applicability       float64
	LikelihoodDecayed   float64
	EffectiveLikelihood float64
	Stability           float64
}

// State is the persisted, long-lived state of one constraint: the decayed
// prior likelihood and the stability EWMA (spec.md §3).
type State struct {
	PriorLikelihood float64
	Stability       float64
}

// NewState returns a constraint state with the prior initialized to 0.5
// (spec.md §4.4 step 4, neutral prior).
func NewState() *State {
	return &State{PriorLikelihood: 0.5, Stability: 0}
}

// Reset restores the state to its session-start values: "Priors and
// stability counters are reset at session boundary" (spec.md §4.4).
func (s *State) Reset() {
	s.PriorLikelihood = 0.5
	s.Stability = 0
}

const stabilityAlpha = 0.2

// evaluateBase runs the base per-bar pipeline (spec.md §4.4 steps 1-3) for
// one constraint: evidence, raw sigmoid likelihood and applicability. It
// does not mutate state; callers combine this with decay/stability
// bookkeeping (Engine.Step) or with the enhanced adjustments (Engine.StepEnhanced).
func evaluateBase(cfg Config, signals map[string]float64, known map[string]bool, phase session.Phase, dvs, eqs float64) (evidence, raw, applicability float64) {
	evidence = evidenceSum(cfg.SignalWeights, signals, known)
	raw = numeric.Sigmoid(cfg.Sigmoid.A*evidence + cfg.Sigmoid.B)
	applicability = cfg.Applicability.Applicability(phase, dvs, eqs)
	return
}

// decayAndStabilize blends the raw likelihood with the persisted prior and
// updates the stability EWMA in place, returning the decayed likelihood
// (spec.md §4.4 steps 4-5).
func decayAndStabilize(state *State, lambda, raw float64) float64 {
	decayed := (1-lambda)*raw + lambda*state.PriorLikelihood
	delta := abs(decayed - state.PriorLikelihood)
	state.Stability = stabilityAlpha*delta + (1-stabilityAlpha)*state.Stability
	state.PriorLikelihood = decayed
	return decayed
}

// Evaluate runs the full base pipeline for one constraint (spec.md §4.4
// steps 1-7), mutating the constraint's persisted state in place.
func Evaluate(cfg Config, state *State, signals map[string]float64, known map[string]bool, phase session.Phase, dvs, eqs float64) Likelihood {
	evidence, raw, applicability := evaluateBase(cfg, signals, known, phase, dvs, eqs)
	decayed := decayAndStabilize(state, cfg.DecayLambda, raw)
	effective := decayed * applicability

	return Likelihood{
		Evidence:            evidence,
		LikelihoodRaw:       raw,
		Applicability:       applicability,
		LikelihoodDecayed:   decayed,
		EffectiveLikelihood: effective,
		Stability:           state.Stability,
	}
}

// evidenceSum computes Σw_i*s_i / Σ|w_i| over known signals, skipping
// missing ones (spec.md §4.4 step 1).
func evidenceSum(weights map[string]float64, signals map[string]float64, known map[string]bool) float64 {
	var num, denom float64
	for name, w := range weights {
		if !known[name] {
			continue
		}
		num += w * signals[name]
		denom += abs(w)
	}
	if denom == 0 {
		return 0
	}
	return num / denom
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
