package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestEvaluateAppliesPenaltyAndRecovery(t *testing.T) {
	cfg := RuleSetConfig{
		InitialValue: 1.0,
		Rules: []Rule{
			{ID: "gap", Condition: ConditionFromMap(map[string]float64{"gap_detected_eq": 1}), ImmediatePenalty: 0.5},
		},
		RecoveryPerBar: 0.05,
	}
	metrics := map[string]float64{"gap_detected": 1}
	present := map[string]bool{"gap_detected": true}
	got := Evaluate(cfg, nil, metrics, present)
	assert.InDelta(t, 0.55, got, 1e-9)
}

func TestEvaluateMissingMetricFailsClosed(t *testing.T) {
	cfg := RuleSetConfig{
		InitialValue: 1.0,
		Rules: []Rule{
			{ID: "jump", Condition: ConditionFromMap(map[string]float64{"price_jump_pct_gt": 5}), ImmediatePenalty: 0.9},
		},
	}
	got := Evaluate(cfg, nil, map[string]float64{}, map[string]bool{})
	assert.Equal(t, 1.0, got)
}

func TestEvaluateClampsToUnitInterval(t *testing.T) {
	cfg := RuleSetConfig{
		InitialValue: 0.1,
		Rules: []Rule{
			{ID: "halt", Condition: ConditionFromMap(map[string]float64{"trading_halt_eq": 1}), ImmediatePenalty: 0.9},
		},
	}
	metrics := map[string]float64{"trading_halt": 1}
	present := map[string]bool{"trading_halt": true}
	got := Evaluate(cfg, nil, metrics, present)
	assert.Equal(t, 0.0, got)
}

func TestComputeDVSForcedZeroOnStructuralInvalid(t *testing.T) {
	got := ComputeDVS(DataState{StructuralInvalid: true}, RuleSetConfig{InitialValue: 1}, nil)
	assert.Equal(t, 0.0, got)
}

func TestComputeDVSInBounds(t *testing.T) {
	cfg := RuleSetConfig{InitialValue: 0.95}
	got := ComputeDVS(DataState{BarLagSeconds: f(1)}, cfg, nil)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestUnknownSuffixFailsClosed(t *testing.T) {
	cond := ConditionFromMap(map[string]float64{"weird_metric": 1})
	assert.False(t, cond.Matches(map[string]float64{"weird_metric": 1}, map[string]bool{"weird_metric": true}))
}

func TestRuleSetValidateDuplicateID(t *testing.T) {
	cfg := RuleSetConfig{Rules: []Rule{{ID: "a"}, {ID: "a"}}}
	assert.Error(t, cfg.Validate())
}

func TestSlippageVsExpected(t *testing.T) {
	got := SlippageVsExpected(100.5, 100.0, 0.1, 1e-9)
	assert.InDelta(t, 5.0, got, 1e-9)
}
