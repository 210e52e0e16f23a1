package belief

import (
	"sort"

	"github.com/themirrorplatform/trading-bot-sub000/internal/session"
)

// Engine owns the persisted state for every constraint and runs the
// per-bar belief pipeline across all of them (spec.md §4.4).
type Engine struct {
	configs map[ID]Config
	states  map[ID]*State
	order   []ID
}

// NewEngine builds a belief engine from the given constraint configs,
// seeding a fresh State for each.
func NewEngine(configs map[ID]Config) *Engine {
	e := &Engine{
		configs: configs,
		states:  make(map[ID]*State, len(configs)),
	}
	for id := range configs {
		e.states[id] = NewState()
		e.order = append(e.order, id)
	}
	sort.Slice(e.order, func(i, j int) bool { return e.order[i] < e.order[j] })
	return e
}

// NewDefaultEngine builds a belief engine from DefaultConfigs.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultConfigs())
}

// Reset restores every constraint's state to its session-start values
// (spec.md §4.4 "Session reset").
func (e *Engine) Reset() {
	for _, s := range e.states {
		s.Reset()
	}
}

// Step runs the base pipeline for every constraint and returns the results
// keyed by constraint ID (spec.md §4.4 steps 1-7).
func (e *Engine) Step(signals map[string]float64, known map[string]bool, phase session.Phase, dvs, eqs float64) map[ID]Likelihood {
	out := make(map[ID]Likelihood, len(e.order))
	for _, id := range e.order {
		out[id] = Evaluate(e.configs[id], e.states[id], signals, known, phase, dvs, eqs)
	}
	return out
}

// StepEnhanced runs the enhanced pipeline (base + bias/strategy/meta-
// cognition adjustments) for every constraint (spec.md §4.4 "Enhanced
// path").
func (e *Engine) StepEnhanced(signals map[string]float64, known map[string]bool, phase session.Phase, dvs, eqs float64, biasSignals map[string]float64, strategyState StrategyState) map[ID]EnhancedLikelihood {
	out := make(map[ID]EnhancedLikelihood, len(e.order))
	for _, id := range e.order {
		out[id] = EvaluateEnhanced(e.configs[id], e.states[id], signals, known, phase, dvs, eqs, biasSignals, strategyState)
	}
	return out
}

// State returns the persisted state for a constraint, or nil if unknown.
func (e *Engine) State(id ID) *State {
	return e.states[id]
}

// TopConstraints ranks constraints whose base likelihood and applicability
// both clear the given floors, sorted by descending effective likelihood.
func TopConstraints(beliefs map[ID]Likelihood, minLikelihood, minApplicability float64) []ID {
	type ranked struct {
		id ID
		l  Likelihood
	}
	viable := make([]ranked, 0, len(beliefs))
	for id, l := range beliefs {
		if l.LikelihoodDecayed >= minLikelihood && l.Applicability >= minApplicability {
			viable = append(viable, ranked{id, l})
		}
	}
	sort.Slice(viable, func(i, j int) bool {
		return viable[i].l.EffectiveLikelihood > viable[j].l.EffectiveLikelihood
	})
	ids := make([]ID, len(viable))
	for i, v := range viable {
		ids[i] = v.id
	}
	return ids
}

// TopConstraintsEnhanced ranks constraints by final_likelihood, filtering by
// a minimum final likelihood and a maximum tolerated conflict penalty
// (spec.md §4.4 "Enhanced path").
func TopConstraintsEnhanced(beliefs map[ID]EnhancedLikelihood, minFinalLikelihood, maxConflictPenalty float64) []ID {
	type ranked struct {
		id ID
		l  EnhancedLikelihood
	}
	viable := make([]ranked, 0, len(beliefs))
	for id, l := range beliefs {
		if l.FinalLikelihood >= minFinalLikelihood && l.ConflictPenalty <= maxConflictPenalty {
			viable = append(viable, ranked{id, l})
		}
	}
	sort.Slice(viable, func(i, j int) bool {
		return viable[i].l.FinalLikelihood > viable[j].l.FinalLikelihood
	})
	ids := make([]ID, len(viable))
	for i, v := range viable {
		ids[i] = v.id
	}
	return ids
}
