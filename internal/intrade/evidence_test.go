package intrade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContinuationEvidencePullbackFloorsAtZeroWhenMAEDwarfsMFE(t *testing.T) {
	in := BarInput{Signals: map[string]float64{}}
	minTick := 0.25

	// mfe sits below the 1-tick threshold, so E_pullback takes the neutral
	// 0.5 branch rather than the unclamped 1-2*mae/mfe ratio.
	belowThreshold := continuationEvidence(1, 0.1, 2.0, in, 0, minTick)

	// mfe above threshold but mae swamps it: the raw ratio goes deeply
	// negative and must floor at 0, not propagate into E_cont.
	aboveThreshold := continuationEvidence(1, 0.3, 2.0, in, 0, minTick)

	assert.InDelta(t, 0.30*0.5+0.25*0.5+0.25*0.5+0.20*0.5, belowThreshold, 1e-9)
	assert.GreaterOrEqual(t, aboveThreshold, 0.0)
	assert.Less(t, aboveThreshold, belowThreshold)
}

func TestContinuationEvidencePullbackRewardsLowMAERelativeToMFE(t *testing.T) {
	in := BarInput{Signals: map[string]float64{}}
	tightPullback := continuationEvidence(1, 2.0, 0.1, in, 0, 0.25)
	widePullback := continuationEvidence(1, 2.0, 1.0, in, 0, 0.25)
	assert.Greater(t, tightPullback, widePullback)
}
