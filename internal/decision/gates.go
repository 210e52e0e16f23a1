package decision

import (
	"time"

	"github.com/themirrorplatform/trading-bot-sub000/internal/belief"
	"github.com/themirrorplatform/trading-bot-sub000/internal/numeric"
	"github.com/themirrorplatform/trading-bot-sub000/internal/session"
)

// NoTradeReason is the closed enumeration of reasons a cycle produces no
// order intent (spec.md §3 "Decision result", §7).
type NoTradeReason string

const (
	ReasonKillSwitchActive       NoTradeReason = "KILL_SWITCH_ACTIVE"
	ReasonDVSTooLow              NoTradeReason = "DVS_TOO_LOW"
	ReasonEQSTooLow              NoTradeReason = "EQS_TOO_LOW"
	ReasonSessionNotTradable     NoTradeReason = "SESSION_NOT_TRADABLE"
	ReasonSessionWindowBlock     NoTradeReason = "SESSION_WINDOW_BLOCK"
	ReasonInPosition             NoTradeReason = "IN_POSITION"
	ReasonMaxTradesReached       NoTradeReason = "MAX_TRADES_REACHED"
	ReasonConsecutiveLossLockout NoTradeReason = "CONSECUTIVE_LOSS_LOCKOUT"
	ReasonDailyLossLimit         NoTradeReason = "DAILY_LOSS_LIMIT"
	ReasonCooldownActive         NoTradeReason = "COOLDOWN_ACTIVE"
	ReasonNoTierTemplate         NoTradeReason = "TEMPLATE_NOT_ALLOWED_BY_TIER"
	ReasonBeliefTooLow           NoTradeReason = "BELIEF_TOO_LOW"
	ReasonStabilityTooLow        NoTradeReason = "STABILITY_TOO_LOW"
	ReasonEdgeScoreBelowTheta    NoTradeReason = "EDGE_SCORE_BELOW_THETA"
	ReasonFrictionTooHigh        NoTradeReason = "FRICTION_TOO_HIGH"
)

// GateCheck is one evaluated layer of the hierarchical gate, following the
// teacher's pass/fail-with-reason result shape.
type GateCheck struct {
	Name        string
	Passed      bool
	Description string
}

// Context carries everything the gate pipeline needs to evaluate a single
// decision cycle, gathered by the orchestrator from upstream components
// (spec.md §4.5).
type Context struct {
	Now              time.Time
	KillSwitchActive bool
	DVS              float64
	EQS              float64
	Phase            session.Phase
	LunchVoidGate    float64 // 1 = open, 0 = closed
	PositionFlat     bool
	DailyTradeCount  int
	MaxDailyTrades   int
	ConsecutiveLosses int
	MaxConsecutiveLosses int
	DailyPnLUSD      float64
	MaxDailyLossUSD  float64 // 0 means no daily-loss cap configured
	LastEntryAt      time.Time
	CooldownBars     int
	BarsSinceLastEntry int
	EquityUSD        float64
	MaxRiskUSD       float64
	TickValueUSD     float64
	ConstitutionalStopCapTicks int
	FrictionBaseUSD  float64
	FrictionPenaltyUSD float64 // added on top of base when spread/slippage degrade

	Signals   map[string]float64
	Beliefs   map[belief.ID]belief.Likelihood
}

const (
	dvsMinEntry = 0.80
	eqsMinEntry = 0.75
)

// EvaluateHardGates runs layers 1-7 of the hierarchical gate (spec.md §4.5),
// short-circuiting at the first failure. These gates do not depend on any
// particular template and apply to the whole decision cycle.
func EvaluateHardGates(ctx Context) (NoTradeReason, bool) {
	if ctx.KillSwitchActive {
		return ReasonKillSwitchActive, false
	}
	if ctx.DVS < dvsMinEntry {
		return ReasonDVSTooLow, false
	}
	if ctx.EQS < eqsMinEntry {
		return ReasonEQSTooLow, false
	}
	if !ctx.Phase.Tradable() {
		return ReasonSessionNotTradable, false
	}
	if ctx.LunchVoidGate != 1 {
		return ReasonSessionWindowBlock, false
	}
	if !ctx.PositionFlat {
		return ReasonInPosition, false
	}
	if ctx.DailyTradeCount >= ctx.MaxDailyTrades {
		return ReasonMaxTradesReached, false
	}
	if ctx.ConsecutiveLosses >= ctx.MaxConsecutiveLosses {
		return ReasonConsecutiveLossLockout, false
	}
	if ctx.MaxDailyLossUSD > 0 && ctx.DailyPnLUSD <= -ctx.MaxDailyLossUSD {
		return ReasonDailyLossLimit, false
	}
	if ctx.BarsSinceLastEntry < ctx.CooldownBars {
		return ReasonCooldownActive, false
	}
	return "", true
}

// EligibleTemplatesForTier filters templates by capital tier (spec.md
// §4.5 gate 8).
func EligibleTemplatesForTier(templates map[string]*Template, tier Tier) []*Template {
	var out []*Template
	for _, t := range templates {
		if t.AllowedTiers[tier] {
			out = append(out, t)
		}
	}
	return out
}

// EligibleTemplatesByBelief retains templates whose bound constraint's
// effective_likelihood clears the template's minimum belief and whose
// stability is within bound (spec.md §4.5 gate 9). When none survive, the
// returned reason distinguishes an outright-too-low belief from a belief
// that cleared the bar but is still too unstable to trust, matching the
// spec's separate BELIEF_TOO_LOW/STABILITY_TOO_LOW reasons.
func EligibleTemplatesByBelief(templates []*Template, beliefs map[belief.ID]belief.Likelihood) ([]*Template, NoTradeReason) {
	var out []*Template
	sawStabilityOnlyFailure := false
	for _, t := range templates {
		b, ok := beliefs[t.Constraint]
		if !ok {
			continue
		}
		switch {
		case b.EffectiveLikelihood >= t.MinBelief && b.Stability <= t.MaxStability:
			out = append(out, t)
		case b.EffectiveLikelihood >= t.MinBelief:
			sawStabilityOnlyFailure = true
		}
	}
	if len(out) > 0 {
		return out, ""
	}
	if sawStabilityOnlyFailure {
		return out, ReasonStabilityTooLow
	}
	return out, ReasonBeliefTooLow
}

// EUCResult is the scored outcome of EUC evaluation for one template
// (spec.md §4.5 "Edge-Uncertainty-Cost").
type EUCResult struct {
	Template    *Template
	Edge        float64
	Uncertainty float64
	Cost        float64
	Score       float64
	Passed      bool
}

const (
	eucMinEdge        = 0.10
	eucMaxUncertainty = 0.40
	eucMaxCost        = 0.30
)

// ComputeEUC scores one template's Edge-Uncertainty-Cost given its bound
// belief, current DVS/EQS, prevailing friction estimate and the
// instrument's tick value (spec.md §4.5 "Edge-Uncertainty-Cost").
func ComputeEUC(t *Template, b belief.Likelihood, dvs, eqs, frictionUSD, tickValueUSD float64) EUCResult {
	clampedBelief := numeric.Clamp(b.EffectiveLikelihood, 0, 1)
	edge := numeric.Clamp(t.ExpectedReturnTicks*clampedBelief*0.8/10, 0, 1)

	uncertainty := numeric.Clamp(
		0.30*(1-dvs)+0.25*(1-eqs)+0.25*b.Stability+0.20*(1-clampedBelief),
		0, 1,
	)

	cost := 1.0
	if t.TargetTicks > 0 && tickValueUSD > 0 {
		cost = numeric.Clamp(frictionUSD/(float64(t.TargetTicks)*tickValueUSD), 0, 1)
	}

	score := edge - uncertainty - cost
	passed := edge >= eucMinEdge && uncertainty <= eucMaxUncertainty && cost <= eucMaxCost && score >= 0

	return EUCResult{Template: t, Edge: edge, Uncertainty: uncertainty, Cost: cost, Score: score, Passed: passed}
}

// EffectiveStopTicks computes the hard stop cap across every source of
// limitation (spec.md §4.5 "Effective stop"): the constitutional cap, the
// tier cap, the template's own stop, and the dollar-risk-derived floor.
func EffectiveStopTicks(t *Template, tier Tier, constitutionalCap int, maxRiskUSD, tickValueUSD float64) int {
	riskCap := int(maxRiskUSD / tickValueUSD)
	return minInt(constitutionalCap, minInt(TierCapStopTicks(tier), minInt(t.StopTicks, riskCap)))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
