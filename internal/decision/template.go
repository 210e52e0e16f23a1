// Package decision implements the hierarchical-gate and Edge-Uncertainty-Cost
// template-selection pipeline (spec.md §4.5).
package decision

import "github.com/themirrorplatform/trading-bot-sub000/internal/belief"

// Direction is the signed trade direction.
type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

// Tier is a capital band restricting which templates are eligible.
type Tier string

const (
	TierS Tier = "S" // equity < $2,500
	TierA Tier = "A" // $2,500 <= equity < $7,500
	TierB Tier = "B" // equity >= $7,500
)

// DirectionRule selects a trade's direction from the current signal set,
// kept per-template rather than uniformly derived from vwap_z sign: a
// momentum template must follow the trend it is riding, not fade it
// (spec.md §9 Open Question, resolved in DESIGN.md).
type DirectionRule func(signals map[string]float64) Direction

// Template is a trade archetype: fixed expected return, target, stop, time
// stop, minimum belief and allowed capital tiers, bound to one belief
// constraint (spec.md §4.5, GLOSSARY "Template (K1-K4)").
type Template struct {
	ID                 string
	Constraint         belief.ID
	Direction          DirectionRule
	ExpectedReturnTicks float64
	TargetTicks        int
	StopTicks          int
	TimeStopBars       int
	MinBelief          float64
	MaxStability       float64
	AllowedTiers       map[Tier]bool
	Size               int
}

// vwapFadeDirection is the v1 default: short when price is stretched above
// VWAP, long when stretched below (mean-reversion fade), used by templates
// whose thesis IS the fade (K1, K2).
func vwapFadeDirection(signals map[string]float64) Direction {
	if signals["vwap_z"] > 0 {
		return Short
	}
	return Long
}

// trendFollowDirection follows the sign of the HH-LL trend strength signal
// rather than fading it, for templates whose thesis is continuation (K4).
func trendFollowDirection(signals map[string]float64) Direction {
	if signals["hhll_trend_strength"] < 0 {
		return Short
	}
	return Long
}

// sweepReversalDirection follows the rejection wick: a rejection at the
// bar's high implies a short reversal, at the low a long reversal (K3).
func sweepReversalDirection(signals map[string]float64) Direction {
	if signals["close_location_value"] < 0.5 {
		return Short
	}
	return Long
}

// DefaultTemplates returns the K1-K4 archetypes grounded directly on
// original_source's k1_k5_templates.py constants (stop/target ticks, risk
// dollars, minimum belief, capital tier). K1/K2 bind the fade constraints
// (F1 VWAP MR, F3 failed-break fade); K3/K4 bind the reversal/continuation
// constraints (F4 sweep reversal, F5 momentum continuation) — see
// DESIGN.md for the constraint-ID remap from the four-template Python
// source's F1-F4 naming onto the five-constraint belief engine's F1/F3/F4/F5/F6.
func DefaultTemplates() map[string]*Template {
	return map[string]*Template{
		"K1": {
			ID:                  "K1",
			Constraint:          belief.F1VWAPMeanReversion,
			Direction:           vwapFadeDirection,
			ExpectedReturnTicks: 8,
			TargetTicks:         8,
			StopTicks:           12,
			TimeStopBars:        30,
			MinBelief:           0.60,
			MaxStability:        0.30,
			AllowedTiers:        map[Tier]bool{TierS: true, TierA: true, TierB: true},
			Size:                1,
		},
		"K2": {
			ID:                  "K2",
			Constraint:          belief.F3FailedBreakFade,
			Direction:           vwapFadeDirection,
			ExpectedReturnTicks: 5,
			TargetTicks:         5,
			StopTicks:           10,
			TimeStopBars:        20,
			MinBelief:           0.65,
			MaxStability:        0.30,
			AllowedTiers:        map[Tier]bool{TierS: true, TierA: true, TierB: true},
			Size:                1,
		},
		"K3": {
			ID:                  "K3",
			Constraint:          belief.F4SweepReversal,
			Direction:           sweepReversalDirection,
			ExpectedReturnTicks: 12,
			TargetTicks:         12,
			StopTicks:           12,
			TimeStopBars:        15,
			MinBelief:           0.60,
			MaxStability:        0.30,
			AllowedTiers:        map[Tier]bool{TierA: true, TierB: true},
			Size:                1,
		},
		"K4": {
			ID:                  "K4",
			Constraint:          belief.F5MomentumContinuation,
			Direction:           trendFollowDirection,
			ExpectedReturnTicks: 20,
			TargetTicks:         20,
			StopTicks:           10,
			TimeStopBars:        10,
			MinBelief:           0.60,
			MaxStability:        0.30,
			AllowedTiers:        map[Tier]bool{TierB: true},
			Size:                2,
		},
	}
}

// TierForEquity classifies account equity into a capital tier (spec.md
// §4.5 gate 8).
func TierForEquity(equityUSD float64) Tier {
	switch {
	case equityUSD < 2500:
		return TierS
	case equityUSD < 7500:
		return TierA
	default:
		return TierB
	}
}

// TierCapStopTicks is the per-tier hard cap on stop size (spec.md §4.5
// "Effective stop"), conservative values consistent with the tier's risk
// budget and with example §7.2's `tier_S_cap=10`.
func TierCapStopTicks(tier Tier) int {
	switch tier {
	case TierS:
		return 10
	case TierA:
		return 14
	default:
		return 20
	}
}
