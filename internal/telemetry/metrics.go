// Package telemetry exposes Prometheus collectors for gate outcomes, order
// lifecycle transitions, learning freeze state, and belief stability.
// Grounded on internal/interfaces/http/metrics.go's MetricsRegistry
// (construct-then-MustRegister, *Vec collectors keyed by label).
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector the core pipeline reports through.
type Registry struct {
	reg *prometheus.Registry

	GateEvaluations *prometheus.CounterVec
	DecisionsTotal  *prometheus.CounterVec

	OrderTransitions *prometheus.CounterVec
	OrderRejects     *prometheus.CounterVec
	BracketFillLag   prometheus.Histogram

	LearningFrozen      prometheus.Gauge
	StrategyQuarantined *prometheus.GaugeVec
	BeliefLikelihood    *prometheus.GaugeVec
	BeliefConfidence    *prometheus.GaugeVec

	DVSScore prometheus.Gauge
	EQSScore prometheus.Gauge
}

// NewRegistry builds all collectors and registers them against a private
// *prometheus.Registry (never the global DefaultRegisterer), so Handler
// always serves exactly what this Registry tracks and multiple Registry
// instances never collide in tests.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		GateEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trading_gate_evaluations_total",
				Help: "Count of decision gate evaluations by gate name and outcome.",
			},
			[]string{"gate", "passed"},
		),
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trading_decisions_total",
				Help: "Count of decision cycles by no-trade reason (empty reason means tradeable).",
			},
			[]string{"reason"},
		),
		OrderTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trading_order_transitions_total",
				Help: "Count of order lifecycle state transitions.",
			},
			[]string{"state"},
		),
		OrderRejects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trading_order_rejects_total",
				Help: "Count of order rejections by reason.",
			},
			[]string{"reason"},
		),
		BracketFillLag: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trading_bracket_fill_lag_seconds",
				Help:    "Time from parent fill to a bracket child (stop/target) fill.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 900},
			},
		),
		LearningFrozen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trading_learning_frozen",
				Help: "1 if the learning loop's parameter updates are currently frozen, else 0.",
			},
		),
		StrategyQuarantined: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trading_strategy_quarantined",
				Help: "1 if the strategy key is quarantined, else 0.",
			},
			[]string{"strategy_key"},
		),
		BeliefLikelihood: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trading_belief_likelihood",
				Help: "Current likelihood value per belief ID.",
			},
			[]string{"belief"},
		),
		BeliefConfidence: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trading_belief_confidence",
				Help: "Current confidence weight per belief ID.",
			},
			[]string{"belief"},
		),
		DVSScore: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trading_dvs_score",
				Help: "Most recent data-validity score (0-1).",
			},
		),
		EQSScore: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trading_eqs_score",
				Help: "Most recent execution-quality score (0-1).",
			},
		),
	}

	r.reg.MustRegister(
		r.GateEvaluations,
		r.DecisionsTotal,
		r.OrderTransitions,
		r.OrderRejects,
		r.BracketFillLag,
		r.LearningFrozen,
		r.StrategyQuarantined,
		r.BeliefLikelihood,
		r.BeliefConfidence,
		r.DVSScore,
		r.EQSScore,
	)

	return r
}

// RecordGate records one gate's pass/fail outcome.
func (r *Registry) RecordGate(name string, passed bool) {
	r.GateEvaluations.WithLabelValues(name, boolLabel(passed)).Inc()
}

// RecordDecision records a completed decision cycle. An empty reason marks
// a tradeable outcome.
func (r *Registry) RecordDecision(reason string) {
	r.DecisionsTotal.WithLabelValues(reason).Inc()
}

// RecordOrderTransition records a parent or child order moving into state.
func (r *Registry) RecordOrderTransition(state string) {
	r.OrderTransitions.WithLabelValues(state).Inc()
}

// RecordOrderReject records an order rejection by reason.
func (r *Registry) RecordOrderReject(reason string) {
	r.OrderRejects.WithLabelValues(reason).Inc()
}

// SetLearningFrozen reports the learning loop's current freeze state.
func (r *Registry) SetLearningFrozen(frozen bool) {
	r.LearningFrozen.Set(boolValue(frozen))
}

// SetStrategyQuarantined reports one strategy key's quarantine state.
func (r *Registry) SetStrategyQuarantined(key string, quarantined bool) {
	r.StrategyQuarantined.WithLabelValues(key).Set(boolValue(quarantined))
}

// SetBeliefState reports one belief's current likelihood and confidence.
func (r *Registry) SetBeliefState(beliefID string, likelihood, confidence float64) {
	r.BeliefLikelihood.WithLabelValues(beliefID).Set(likelihood)
	r.BeliefConfidence.WithLabelValues(beliefID).Set(confidence)
}

// SetQualityScores reports the bar's DVS/EQS scores.
func (r *Registry) SetQualityScores(dvs, eqs float64) {
	r.DVSScore.Set(dvs)
	r.EQSScore.Set(eqs)
}

// Handler returns the HTTP handler to mount at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
