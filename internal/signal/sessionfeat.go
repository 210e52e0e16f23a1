package signal

import (
	"time"

	"github.com/themirrorplatform/trading-bot-sub000/internal/bar"
	"github.com/themirrorplatform/trading-bot-sub000/internal/numeric"
	"github.com/themirrorplatform/trading-bot-sub000/internal/session"
)

// computeSession derives session_phase plus the opening-range-break,
// lunch-void and close-magnet features (spec.md §4.2 "Session features").
func (e *Engine) computeSession(local time.Time, phase session.Phase, b bar.Bar, out *Output) {
	if phase == session.Opening {
		if !e.haveOpeningRange {
			e.openingHigh, e.openingLow = b.High, b.Low
			e.haveOpeningRange = true
		} else {
			e.openingHigh = maxOf2(e.openingHigh, b.High)
			e.openingLow = minOf2(e.openingLow, b.Low)
		}
	} else if phase > session.Opening {
		e.openingRangeFrozen = true
	}

	if e.openingRangeFrozen && e.haveOpeningRange {
		switch {
		case b.Close > e.openingHigh:
			out.OpeningRangeBreak = ptr(1)
		case b.Close < e.openingLow:
			out.OpeningRangeBreak = ptr(-1)
		default:
			out.OpeningRangeBreak = ptr(0)
		}
	}

	if phase == session.Lunch {
		out.LunchVoidGate = ptr(0)
	} else {
		out.LunchVoidGate = ptr(1)
	}

	out.CloseMagnetIndex = ptr(closeMagnetIndex(local))
}

// closeMagnetIndex rises linearly to 1 over the final 30 minutes of RTH
// (15:30-16:00), 0 before that window (spec.md §4.2).
func closeMagnetIndex(t time.Time) float64 {
	minutes := t.Hour()*60 + t.Minute()
	windowStart := 15*60 + 30
	windowEnd := 16 * 60
	if minutes < windowStart {
		return 0
	}
	if minutes >= windowEnd {
		return 1
	}
	return numeric.Clamp(float64(minutes-windowStart)/float64(windowEnd-windowStart), 0, 1)
}
