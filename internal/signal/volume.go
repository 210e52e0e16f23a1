package signal

import (
	"github.com/themirrorplatform/trading-bot-sub000/internal/bar"
	"github.com/themirrorplatform/trading-bot-sub000/internal/numeric"
)

// computeVolume derives the volume-participation family of features
// (spec.md §4.2 "Volume features").
func (e *Engine) computeVolume(b bar.Bar, out *Output) {
	if e.volumes.Len() == 0 {
		e.updateHighVolStreak(false)
		return
	}
	mean := e.volumes.Mean()
	std := e.volumes.StdDev()
	z := numeric.ZScore(b.Volume, mean, std)
	out.VolumeZ = ptr(z)

	if e.volumes.Len() >= 2 {
		out.VolumeSlope = ptr(olsSlope(e.volumes.Values()))
	}

	// Effort vs result: volume expended per unit of range achieved. High
	// effort with little result (range) signals absorption.
	rng := b.High - b.Low
	if rng > 0 && mean > 0 {
		out.EffortVsResult = ptr((b.Volume / mean) / (rng / maxf(e.ranges.Mean(), 1e-9)))
	}

	// Range expansion on volume: current range vs mean range, weighted by
	// whether volume is also expanding.
	if e.ranges.Len() > 0 && e.ranges.Mean() > 0 && mean > 0 {
		rangeExp := rng / e.ranges.Mean()
		volExp := b.Volume / mean
		out.RangeExpansionOnVolume = ptr(rangeExp * numeric.Clamp(volExp, 0, 3) / 3)
	}

	climax := z > 2.5
	quiet := z < -1.5
	out.ClimaxFlag = flag(climax)
	out.QuietFlag = flag(quiet)

	e.updateHighVolStreak(z > 1.0)
	out.ConsecutiveHighVolumeBars = ptr(float64(e.highVolStreak))

	// Participation expansion index: blends volume z-score and range
	// expansion into one bounded index.
	if out.RangeExpansionOnVolume != nil {
		idx := numeric.Clamp((numeric.Clamp(z, -3, 3)/3+*out.RangeExpansionOnVolume)/2, 0, 1)
		out.ParticipationExpansion = ptr(idx)
	}
}

func (e *Engine) updateHighVolStreak(isHigh bool) {
	if isHigh {
		if e.highVolStreak < maxHighVolStreak {
			e.highVolStreak++
		}
	} else {
		e.highVolStreak = 0
	}
}

func flag(b bool) *float64 {
	if b {
		return ptr(1)
	}
	return ptr(0)
}
