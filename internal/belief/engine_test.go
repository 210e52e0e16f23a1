package belief

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themirrorplatform/trading-bot-sub000/internal/session"
)

func baseSignals() (map[string]float64, map[string]bool) {
	signals := map[string]float64{
		"vwap_z":                 2.0,
		"range_compression":      0.5,
		"vol_z":                  -0.5,
		"close_location_value":   0.8,
		"friction_regime_index":  0.7,
		"dvs":                    0.95,
		"lunch_void_gate":        1.0,
		"spread_proxy_tickiness": 0.9,
		"slippage_risk_proxy":    0.9,
	}
	known := make(map[string]bool, len(signals))
	for k := range signals {
		known[k] = true
	}
	return signals, known
}

func TestEvaluateNeutralEvidenceGivesSigmoidOfBias(t *testing.T) {
	cfg := DefaultConfigs()[F6NoiseFilter]
	state := NewState()
	l := Evaluate(cfg, state, map[string]float64{}, map[string]bool{}, session.MidMorning, 1.0, 1.0)
	assert.Equal(t, 0.0, l.Evidence)
	assert.InDelta(t, 0.5, l.LikelihoodRaw, 1e-9)
}

func TestEvaluateAppliesDecayTowardPrior(t *testing.T) {
	cfg := DefaultConfigs()[F1VWAPMeanReversion]
	state := NewState()
	signals, known := baseSignals()

	first := Evaluate(cfg, state, signals, known, session.MidMorning, 0.95, 0.9)
	second := Evaluate(cfg, state, signals, known, session.MidMorning, 0.95, 0.9)

	// Same evidence each bar: decayed likelihood should converge monotonically
	// toward the raw likelihood rather than jump straight to it.
	assert.InDelta(t, first.LikelihoodRaw, second.LikelihoodRaw, 1e-9)
	if first.LikelihoodRaw > 0.5 {
		assert.Greater(t, second.LikelihoodDecayed, first.LikelihoodDecayed)
	}
}

func TestApplicabilityZeroOutsidePhase(t *testing.T) {
	cfg := DefaultConfigs()[F3FailedBreakFade]
	app := cfg.Applicability.Applicability(session.Lunch, 1.0, 1.0)
	assert.Equal(t, 0.0, app)
}

func TestApplicabilityDegradesBelowDVSFloor(t *testing.T) {
	cfg := DefaultConfigs()[F1VWAPMeanReversion]
	app := cfg.Applicability.Applicability(session.MidMorning, 0.40, 1.0)
	assert.InDelta(t, 0.5, app, 1e-9)
}

func TestStateResetRestoresNeutralPrior(t *testing.T) {
	cfg := DefaultConfigs()[F1VWAPMeanReversion]
	state := NewState()
	signals, known := baseSignals()
	Evaluate(cfg, state, signals, known, session.MidMorning, 0.95, 0.9)
	require.NotEqual(t, 0.5, state.PriorLikelihood)

	state.Reset()
	assert.Equal(t, 0.5, state.PriorLikelihood)
	assert.Equal(t, 0.0, state.Stability)
}

func TestEngineStepCoversAllConstraints(t *testing.T) {
	e := NewDefaultEngine()
	signals, known := baseSignals()
	out := e.Step(signals, known, session.MidMorning, 0.95, 0.9)
	assert.Len(t, out, 5)
	for _, id := range []ID{F1VWAPMeanReversion, F3FailedBreakFade, F4SweepReversal, F5MomentumContinuation, F6NoiseFilter} {
		_, ok := out[id]
		assert.True(t, ok, "missing constraint %s", id)
	}
}

func TestEngineResetAffectsAllStates(t *testing.T) {
	e := NewDefaultEngine()
	signals, known := baseSignals()
	e.Step(signals, known, session.MidMorning, 0.95, 0.9)
	e.Reset()
	for _, id := range []ID{F1VWAPMeanReversion, F3FailedBreakFade, F4SweepReversal, F5MomentumContinuation, F6NoiseFilter} {
		assert.Equal(t, 0.5, e.State(id).PriorLikelihood)
	}
}

func TestMetaCognitionGateNeverBelowHalf(t *testing.T) {
	bias := map[string]float64{
		"overconfidence_flag":    1.0,
		"confirmation_bias_risk": 1.0,
		"hindsight_trap_flag":    1.0,
	}
	gate := MetaCognitionGate(bias)
	assert.GreaterOrEqual(t, gate, 0.5)
}

func TestMetaCognitionGateNeutralWhenBelowThresholds(t *testing.T) {
	gate := MetaCognitionGate(map[string]float64{})
	assert.Equal(t, 1.0, gate)
}

func TestBiasAdjustmentClampedToCap(t *testing.T) {
	bias := map[string]float64{
		"fomo_index_bias":      1.0,
		"structural_bias_score": 1.0,
		"temporal_bias_score":   1.0,
		"meta_cognition_score": 0.0,
	}
	adj := BiasAdjustment(F1VWAPMeanReversion, bias)
	assert.LessOrEqual(t, adj, biasAdjustmentCap)
	assert.GreaterOrEqual(t, adj, -biasAdjustmentCap)
}

func TestConflictPenaltyZeroWithoutConflict(t *testing.T) {
	pen := ConflictPenalty(F1VWAPMeanReversion, StrategyState{ConflictDetected: false, CrowdingScore: 1.0})
	assert.Equal(t, 0.0, pen)
}

func TestConflictPenaltyScalesWithCrowding(t *testing.T) {
	low := ConflictPenalty(F1VWAPMeanReversion, StrategyState{ConflictDetected: true, CrowdingScore: 0})
	high := ConflictPenalty(F1VWAPMeanReversion, StrategyState{ConflictDetected: true, CrowdingScore: 1})
	assert.Less(t, low, high)
	assert.LessOrEqual(t, high, conflictPenaltyCap)
}

func TestStrategyAdjustmentAlignmentBonus(t *testing.T) {
	aligned := StrategyAdjustment(F1VWAPMeanReversion, StrategyState{DominantCategory: "MR"})
	unaligned := StrategyAdjustment(F1VWAPMeanReversion, StrategyState{DominantCategory: "BO"})
	assert.Greater(t, aligned, unaligned)
}

func TestEvaluateEnhancedMatchesBaseWithNeutralAdjustments(t *testing.T) {
	cfg := DefaultConfigs()[F6NoiseFilter]
	signals, known := baseSignals()

	baseState := NewState()
	base := Evaluate(cfg, baseState, signals, known, session.MidMorning, 0.95, 0.9)

	enhState := NewState()
	enh := EvaluateEnhanced(cfg, enhState, signals, known, session.MidMorning, 0.95, 0.9, map[string]float64{}, StrategyState{})

	assert.InDelta(t, base.LikelihoodDecayed, enh.LikelihoodDecayed, 1e-9)
	assert.InDelta(t, base.EffectiveLikelihood, enh.FinalLikelihood, 1e-9)
}

func TestTopConstraintsFiltersAndSorts(t *testing.T) {
	beliefs := map[ID]Likelihood{
		F1VWAPMeanReversion: {LikelihoodDecayed: 0.9, Applicability: 1.0, EffectiveLikelihood: 0.9},
		F3FailedBreakFade:   {LikelihoodDecayed: 0.6, Applicability: 1.0, EffectiveLikelihood: 0.6},
		F4SweepReversal:     {LikelihoodDecayed: 0.4, Applicability: 1.0, EffectiveLikelihood: 0.4},
	}
	top := TopConstraints(beliefs, 0.5, 0.5)
	require.Len(t, top, 2)
	assert.Equal(t, F1VWAPMeanReversion, top[0])
	assert.Equal(t, F3FailedBreakFade, top[1])
}
