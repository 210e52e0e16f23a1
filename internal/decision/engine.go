package decision

import (
	"sort"
)

// Result is the decision cycle's output: either an OrderIntent or a
// NoTrade with a structured reason (spec.md §3 "Decision result").
type Result struct {
	NoTrade     bool
	Reason      NoTradeReason
	Metadata    map[string]any

	Direction    Direction
	Contracts    int
	EntryType    string
	StopTicks    int
	TargetTicks  int
	TemplateID   string
	EUCScore     float64
}

// Engine runs the full hierarchical-gate + EUC-scoring pipeline over the
// template set (spec.md §4.5).
type Engine struct {
	templates map[string]*Template

	constitutionalStopCapTicks int
}

// NewEngine builds a decision engine from the given templates and
// constitutional stop cap (the hardest of the caps in "Effective stop").
func NewEngine(templates map[string]*Template, constitutionalStopCapTicks int) *Engine {
	return &Engine{templates: templates, constitutionalStopCapTicks: constitutionalStopCapTicks}
}

// NewDefaultEngine builds a decision engine from DefaultTemplates with a
// 12-tick constitutional stop cap (the widest stop among the K1-K4 set).
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultTemplates(), 12)
}

// Decide runs the full pipeline for one bar (spec.md §4.5 layers 1-11). A
// nil modifiers argument applies no threshold adjustment.
func (e *Engine) Decide(ctx Context, modifiers *ThresholdModifiers) Result {
	if reason, ok := EvaluateHardGates(ctx); !ok {
		return Result{NoTrade: true, Reason: reason}
	}

	tier := TierForEquity(ctx.EquityUSD)
	byTier := EligibleTemplatesForTier(e.templates, tier)
	if len(byTier) == 0 {
		return Result{NoTrade: true, Reason: ReasonNoTierTemplate}
	}

	byBelief, beliefReason := EligibleTemplatesByBelief(byTier, ctx.Beliefs)
	if len(byBelief) == 0 {
		return Result{NoTrade: true, Reason: beliefReason}
	}

	frictionUSD := ctx.FrictionBaseUSD + ctx.FrictionPenaltyUSD

	// The base EUC acceptance floor is 0 (spec.md §4.5 "score >= 0");
	// threshold modifiers shift that floor additively.
	scoreFloor := 0.0
	if modifiers != nil {
		scoreFloor = -modifiers.NetAdjustment()
	}

	var survivors []EUCResult
	sawOnlyCostFailure := true
	for _, t := range byBelief {
		b := ctx.Beliefs[t.Constraint]
		euc := ComputeEUC(t, b, ctx.DVS, ctx.EQS, frictionUSD, ctx.TickValueUSD)
		if euc.Passed && euc.Score >= scoreFloor {
			survivors = append(survivors, euc)
			continue
		}
		if euc.Cost <= eucMaxCost {
			sawOnlyCostFailure = false
		}
	}
	if len(survivors) == 0 {
		if sawOnlyCostFailure {
			return Result{NoTrade: true, Reason: ReasonFrictionTooHigh}
		}
		return Result{NoTrade: true, Reason: ReasonEdgeScoreBelowTheta}
	}

	sort.Slice(survivors, func(i, j int) bool { return survivors[i].Score > survivors[j].Score })
	winner := survivors[0]
	t := winner.Template

	stopTicks := EffectiveStopTicks(t, tier, e.constitutionalStopCapTicks, ctx.MaxRiskUSD, ctx.TickValueUSD)
	direction := t.Direction(ctx.Signals)

	return Result{
		NoTrade:     false,
		Direction:   direction,
		Contracts:   t.Size,
		EntryType:   "LIMIT",
		StopTicks:   stopTicks,
		TargetTicks: t.TargetTicks,
		TemplateID:  t.ID,
		EUCScore:    winner.Score,
		Metadata: map[string]any{
			"tier":        string(tier),
			"edge":        winner.Edge,
			"uncertainty": winner.Uncertainty,
			"cost":        winner.Cost,
		},
	}
}
