package decision

import "github.com/themirrorplatform/trading-bot-sub000/internal/numeric"

// ModifierCategory groups threshold modifiers that share one stacking cap
// (spec.md §4.5 "Threshold modifiers"). Categories never relax the
// constitutional caps enforced in EvaluateHardGates / EffectiveStopTicks —
// they only adjust EUC acceptance after those gates pass.
type ModifierCategory string

const (
	CategoryTimeOfDay      ModifierCategory = "time_of_day"
	CategoryEvent          ModifierCategory = "event"
	CategoryRegime         ModifierCategory = "regime"
	CategoryBias           ModifierCategory = "psychological_bias"
	CategoryStrategy       ModifierCategory = "strategy_confluence"
	CategoryDataQuality    ModifierCategory = "data_quality"
)

// categoryCaps bounds the total adjustment contributed by each category
// (spec.md §4.5: "each category has a total-adjustment cap (e.g.,
// 0.15-0.30)").
var categoryCaps = map[ModifierCategory]float64{
	CategoryTimeOfDay:   0.15,
	CategoryEvent:       0.20,
	CategoryRegime:      0.20,
	CategoryBias:        0.15,
	CategoryStrategy:    0.15,
	CategoryDataQuality: 0.30,
}

// Modifier is one additive adjustment to the EUC acceptance threshold.
type Modifier struct {
	Category ModifierCategory
	Amount   float64
	Reason   string
}

// ThresholdModifiers accumulates modifiers per category and produces the
// net adjustment to apply to the EUC score threshold (spec.md §4.5
// "Threshold modifiers").
type ThresholdModifiers struct {
	byCategory map[ModifierCategory][]Modifier
}

// NewThresholdModifiers returns an empty modifier set.
func NewThresholdModifiers() *ThresholdModifiers {
	return &ThresholdModifiers{byCategory: make(map[ModifierCategory][]Modifier)}
}

// Add records one modifier under its category.
func (m *ThresholdModifiers) Add(mod Modifier) {
	m.byCategory[mod.Category] = append(m.byCategory[mod.Category], mod)
}

// NetAdjustment sums each category's modifiers, clamps the category total
// to its cap, and sums across categories. Stacking within a category is
// capped; stacking across categories is not further bounded beyond each
// category's own cap.
func (m *ThresholdModifiers) NetAdjustment() float64 {
	var total float64
	for cat, mods := range m.byCategory {
		var catTotal float64
		for _, mod := range mods {
			catTotal += mod.Amount
		}
		bound := categoryCaps[cat]
		if bound == 0 {
			bound = 0.20
		}
		total += numeric.Clamp(catTotal, -bound, bound)
	}
	return total
}

// ApplyToEUCThreshold returns the net-adjusted minimum EUC score a
// template must clear, floored at zero: a more permissive context lowers
// the bar, a more hostile one raises it.
func (m *ThresholdModifiers) ApplyToEUCThreshold(baseThreshold float64) float64 {
	adjusted := baseThreshold - m.NetAdjustment()
	if adjusted < 0 {
		return 0
	}
	return adjusted
}
