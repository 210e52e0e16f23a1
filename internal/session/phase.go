// Package session classifies wall-clock time into the engine's fixed
// session-phase enumeration and tracks the RTH/session-date boundary used
// to reset VWAP and opening-range state (spec.md §3, §4.2).
package session

import "time"

// Phase is one of the seven disjoint session phases. Boundaries are
// inclusive-start, exclusive-end (spec.md §3).
type Phase int

const (
	PreMarket Phase = iota
	Opening
	MidMorning
	Lunch
	Afternoon
	Close
	PostRTH
)

func (p Phase) String() string {
	switch p {
	case PreMarket:
		return "pre_market"
	case Opening:
		return "opening"
	case MidMorning:
		return "mid_morning"
	case Lunch:
		return "lunch"
	case Afternoon:
		return "afternoon"
	case Close:
		return "close"
	case PostRTH:
		return "post_rth"
	default:
		return "unknown"
	}
}

// Tradable reports whether the decision engine may evaluate entries during
// this phase (spec.md §4.5 gate 4: "must not be lunch or pre/post-RTH").
func (p Phase) Tradable() bool {
	switch p {
	case Lunch, PreMarket, PostRTH:
		return false
	default:
		return true
	}
}

var phaseBounds = []struct {
	phase      Phase
	start, end int // minutes since midnight; end is exclusive
}{
	{Opening, 9*60 + 30, 10*60 + 30},
	{MidMorning, 10*60 + 30, 11*60 + 30},
	{Lunch, 11*60 + 30, 13*60 + 30},
	{Afternoon, 13*60 + 30, 15 * 60},
	{Close, 15 * 60, 16 * 60},
}

// ClassifyPhase is a total function of wall-clock time (already converted to
// the session timezone) returning the phase it falls in.
func ClassifyPhase(t time.Time) Phase {
	minutes := t.Hour()*60 + t.Minute()
	for _, b := range phaseBounds {
		if minutes >= b.start && minutes < b.end {
			return b.phase
		}
	}
	if minutes < phaseBounds[0].start {
		return PreMarket
	}
	return PostRTH
}

// InRTH reports whether t falls within 09:30 (inclusive) and 16:00
// (exclusive) of the session day.
func InRTH(t time.Time) bool {
	p := ClassifyPhase(t)
	return p != PreMarket && p != PostRTH
}

// SessionDate returns the calendar date (in the session's own location) used
// to key per-day resets (VWAP accumulators, opening-range extrema).
func SessionDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
