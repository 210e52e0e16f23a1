package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGateCountsPassAndFail(t *testing.T) {
	r := NewRegistry()

	r.RecordGate("dvs_gate", true)
	r.RecordGate("dvs_gate", false)
	r.RecordGate("dvs_gate", false)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.GateEvaluations.WithLabelValues("dvs_gate", "true")))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.GateEvaluations.WithLabelValues("dvs_gate", "false")))
}

func TestRecordDecisionTracksReason(t *testing.T) {
	r := NewRegistry()

	r.RecordDecision("DVS_TOO_LOW")
	r.RecordDecision("")

	assert.Equal(t, float64(1), testutil.ToFloat64(r.DecisionsTotal.WithLabelValues("DVS_TOO_LOW")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.DecisionsTotal.WithLabelValues("")))
}

func TestSetLearningFrozenTogglesGauge(t *testing.T) {
	r := NewRegistry()

	r.SetLearningFrozen(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(r.LearningFrozen))

	r.SetLearningFrozen(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(r.LearningFrozen))
}

func TestSetStrategyQuarantinedPerKey(t *testing.T) {
	r := NewRegistry()

	r.SetStrategyQuarantined("K1·NORMAL_TREND·LUNCH", true)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.StrategyQuarantined.WithLabelValues("K1·NORMAL_TREND·LUNCH")))
}

func TestSetBeliefStateRecordsBothGauges(t *testing.T) {
	r := NewRegistry()

	r.SetBeliefState("F1_VWAP_MEAN_REVERSION", 0.62, 0.81)

	assert.Equal(t, 0.62, testutil.ToFloat64(r.BeliefLikelihood.WithLabelValues("F1_VWAP_MEAN_REVERSION")))
	assert.Equal(t, 0.81, testutil.ToFloat64(r.BeliefConfidence.WithLabelValues("F1_VWAP_MEAN_REVERSION")))
}

func TestHandlerServesOnlyThisRegistrysMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordDecision("KILL_SWITCH_ACTIVE")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "trading_decisions_total"))
}

func TestTwoRegistriesDoNotCollide(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	a.RecordGate("g", true)
	b.RecordGate("g", true)

	assert.Equal(t, float64(1), testutil.ToFloat64(a.GateEvaluations.WithLabelValues("g", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(b.GateEvaluations.WithLabelValues("g", "true")))
}
