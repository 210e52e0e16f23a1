package learning

import "time"

const (
	drawdownFreezeThreshold = 0.15
	drawdownFreezeDuration  = 24 * time.Hour
)

// FreezeState tracks the learning loop's own freeze, orthogonal to the
// execution supervisor's kill-switch (spec.md §4.9 "Freeze").
type FreezeState struct {
	Frozen bool
	Reason string
	Until  time.Time
}

// EvaluateDrawdownFreeze freezes learning for 24h when rolling drawdown
// exceeds 15% of the equity peak. A zero-value return means no change is
// needed; callers should only overwrite an existing freeze if this
// returns Frozen=true, so a still-active freeze isn't shortened.
func EvaluateDrawdownFreeze(equity, equityPeak float64, now time.Time) FreezeState {
	if equityPeak <= 0 {
		return FreezeState{}
	}
	drawdown := (equityPeak - equity) / equityPeak
	if drawdown <= drawdownFreezeThreshold {
		return FreezeState{}
	}
	return FreezeState{Frozen: true, Reason: "DRAWDOWN_EXCEEDED", Until: now.Add(drawdownFreezeDuration)}
}

// Active reports whether the freeze is still in effect at the given time.
func (f FreezeState) Active(now time.Time) bool {
	return f.Frozen && now.Before(f.Until)
}
