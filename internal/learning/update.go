// Package learning implements the never-right symmetric parameter update
// loop, volatility/trend regime classification, and per-strategy
// throttle/quarantine (spec.md §4.9).
package learning

import (
	"math"

	"github.com/themirrorplatform/trading-bot-sub000/internal/belief"
)

const (
	// CMax is the confidence ceiling; a parameter is never fully trusted
	// (spec.md §4.9 "Never-Right Constitution").
	CMax = 0.75
	// NeutralDecay pulls confidence back toward 0.5 absent confirming
	// evidence each update cycle.
	NeutralDecay = 0.02

	SignalWeightMin = 0.0
	SignalWeightMax = 1.5

	BeliefThresholdMin = 0.50
	BeliefThresholdMax = 0.95

	DecayRateMin = 0.90
	DecayRateMax = 0.995

	minLearningWeight = 0.10
)

// TradeAttribution is a completed trade handed to the learning loop at
// FLAT (spec.md §4.9 "Inputs").
type TradeAttribution struct {
	PnLUSD          float64
	BeliefsAtEntry  map[belief.ID]float64 // effective_likelihood per constraint
	SignalsAtEntry  map[string]float64
	TemplateID      string
	DataQualityWeight float64
}

// ParameterState is the small, swap-on-write struct the belief and
// decision engines read via snapshot semantics (spec.md §5 "Shared
// resources").
type ParameterState struct {
	SignalWeights   map[belief.ID]map[string]float64
	BeliefThresholds map[belief.ID]float64
	DecayRates      map[belief.ID]float64
	Confidence      map[belief.ID]float64
}

// CloneForWrite returns a deep copy suitable for read-copy/swap-on-write
// updates without mutating the version readers may currently hold.
func (p *ParameterState) CloneForWrite() *ParameterState {
	out := &ParameterState{
		SignalWeights:    make(map[belief.ID]map[string]float64, len(p.SignalWeights)),
		BeliefThresholds: make(map[belief.ID]float64, len(p.BeliefThresholds)),
		DecayRates:       make(map[belief.ID]float64, len(p.DecayRates)),
		Confidence:       make(map[belief.ID]float64, len(p.Confidence)),
	}
	for c, row := range p.SignalWeights {
		cp := make(map[string]float64, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.SignalWeights[c] = cp
	}
	for c, v := range p.BeliefThresholds {
		out.BeliefThresholds[c] = v
	}
	for c, v := range p.DecayRates {
		out.DecayRates[c] = v
	}
	for c, v := range p.Confidence {
		out.Confidence[c] = v
	}
	return out
}

// LearningWeight computes the process-vs-outcome down-weight; trades
// attributed mostly to luck get skipped entirely (spec.md §4.9 "Trade
// weighting"). processScore ∈ [0,1] is supplied by the caller from
// whatever process-quality proxy it tracks (DVS/EQS at entry, belief
// stability, etc.) — this package only applies the floor rule.
func LearningWeight(processScore, dataQualityWeight float64) float64 {
	w := processScore * dataQualityWeight
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// WeeklyBudgets caps the real-time and batch update magnitudes per
// constraint (spec.md §4.9 "small increments ≈ 1/20 of weekly budgets").
type WeeklyBudgets struct {
	MaxWeeklyWeightChange    float64
	MaxWeeklyThresholdChange float64
}

// DefaultWeeklyBudgets mirrors the spec's stated proportions.
func DefaultWeeklyBudgets() WeeklyBudgets {
	return WeeklyBudgets{MaxWeeklyWeightChange: 0.20, MaxWeeklyThresholdChange: 0.05}
}

// sharpeRateMultiplier halves the update rate when rolling Sharpe is
// negative and never boosts it above 1.0 when Sharpe is positive
// (spec.md §4.9 "symmetric").
func sharpeRateMultiplier(rollingSharpe float64) float64 {
	if rollingSharpe < 0 {
		return 0.5
	}
	return 1.0
}

// ApplyRealTimeUpdate applies one trade's small per-trade update to the
// parameter state, in place, returning the clipped-event log entries for
// any bound violation (spec.md §4.9 "Per-trade real-time update").
func ApplyRealTimeUpdate(state *ParameterState, trade TradeAttribution, processScore, rollingSharpe float64, budgets WeeklyBudgets) []ClipEvent {
	learningWeight := LearningWeight(processScore, trade.DataQualityWeight)
	if learningWeight < minLearningWeight {
		return nil
	}

	dir := sign(trade.PnLUSD)
	magnitude := math.Min(1, math.Abs(trade.PnLUSD)/50.0)
	rateMul := sharpeRateMultiplier(rollingSharpe)

	var events []ClipEvent

	for c, likelihood := range trade.BeliefsAtEntry {
		row := state.SignalWeights[c]
		if row == nil {
			continue
		}
		for sName, signalValue := range trade.SignalsAtEntry {
			w, ok := row[sName]
			if !ok {
				continue
			}
			delta := dir * magnitude * signalValue * learningWeight * 0.1
			delta = clampMagnitude(delta, 0.05*budgets.MaxWeeklyWeightChange) * rateMul
			next, clipped := clip(w+delta, SignalWeightMin, SignalWeightMax)
			row[sName] = next
			if clipped {
				events = append(events, ClipEvent{Constraint: c, Field: "signal_weight:" + sName, Value: next})
			}
		}

		thr := state.BeliefThresholds[c]
		tdelta := dir * (1 - likelihood) * magnitude * learningWeight * 0.01
		tdelta = clampMagnitude(tdelta, 0.05*budgets.MaxWeeklyThresholdChange) * rateMul
		nextThr, clipped := clip(thr+tdelta, BeliefThresholdMin, BeliefThresholdMax)
		state.BeliefThresholds[c] = nextThr
		if clipped {
			events = append(events, ClipEvent{Constraint: c, Field: "belief_threshold", Value: nextThr})
		}

		conf := state.Confidence[c]
		conf += dir * magnitude * learningWeight * 0.05 * rateMul
		conf -= NeutralDecay * (conf - 0.5)
		if conf > CMax {
			conf = CMax
			events = append(events, ClipEvent{Constraint: c, Field: "confidence", Value: conf})
		}
		if conf < 1-CMax {
			conf = 1 - CMax
			events = append(events, ClipEvent{Constraint: c, Field: "confidence", Value: conf})
		}
		state.Confidence[c] = conf
	}

	return events
}

// ClipEvent records a bound-violation clip for the logger (spec.md §4.9
// "Out-of-bound values are clipped and a log entry emitted").
type ClipEvent struct {
	Constraint belief.ID
	Field      string
	Value      float64
}

func sign(x float64) float64 {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

func clampMagnitude(delta, bound float64) float64 {
	if delta > bound {
		return bound
	}
	if delta < -bound {
		return -bound
	}
	return delta
}

func clip(v, lo, hi float64) (float64, bool) {
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}
