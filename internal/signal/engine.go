package signal

import (
	"time"

	"github.com/themirrorplatform/trading-bot-sub000/internal/bar"
	"github.com/themirrorplatform/trading-bot-sub000/internal/numeric"
	"github.com/themirrorplatform/trading-bot-sub000/internal/session"
)

const (
	closesWindow  = 20
	volumeWindow  = 20
	rangeWindow   = 10
	breakoutWindow = 20
	microTrendWindow = 5
	vwapSlopeWindow = 5
	maxHighVolStreak = 5
)

// Engine holds the bounded, streaming state needed to compute Output per
// bar: ring buffers for recent closes/highs/lows/typicals/volumes,
// session-scoped VWAP accumulators, Wilder ATR(14)/ATR(30), opening-range
// extrema, and a reference ATR anchored at session start (spec.md §4.2).
type Engine struct {
	loc *time.Location

	closes    *numeric.RingBuffer
	highs     *numeric.RingBuffer
	lows      *numeric.RingBuffer
	typicals  *numeric.RingBuffer
	volumes   *numeric.RingBuffer
	ranges    *numeric.RingBuffer // high-low per bar, for range compression
	bodies    *numeric.RingBuffer // |close-open| per bar
	vwapHist  *numeric.RingBuffer // last N VWAP values, for slope

	atr14 *numeric.WilderMA
	atr30 *numeric.WilderMA

	referenceATR float64
	haveRefATR   bool

	sumPV, sumV float64 // VWAP accumulators, reset each RTH session

	openingHigh, openingLow float64
	haveOpeningRange        bool
	openingRangeFrozen      bool

	sessionDate time.Time
	barsInRTH   int

	prevClose   float64
	havePrev    bool
	highVolStreak int

	lastOut Output // for features needing the previous bar's output (e.g. VWAP reclaim)
}

// NewEngine creates a signal engine. loc is the session timezone; all
// session-phase and reset logic operates on bar timestamps converted to loc.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		loc:      loc,
		closes:   numeric.NewRingBuffer(closesWindow),
		highs:    numeric.NewRingBuffer(closesWindow),
		lows:     numeric.NewRingBuffer(closesWindow),
		typicals: numeric.NewRingBuffer(closesWindow),
		volumes:  numeric.NewRingBuffer(volumeWindow),
		ranges:   numeric.NewRingBuffer(rangeWindow),
		bodies:   numeric.NewRingBuffer(rangeWindow),
		vwapHist: numeric.NewRingBuffer(vwapSlopeWindow),
		atr14:    numeric.NewWilderMA(14),
		atr30:    numeric.NewWilderMA(30),
	}
}

// resetSessionIfNeeded clears VWAP accumulators, opening-range extrema and
// the reference-ATR anchor at the first bar of a new session date, whatever
// its phase (spec.md §4.2 "Session reset"). The Wilder ATR smoothers
// themselves persist across sessions.
func (e *Engine) resetSessionIfNeeded(t time.Time) {
	date := session.SessionDate(t)
	if e.sessionDate.IsZero() || !date.Equal(e.sessionDate) {
		e.sessionDate = date
		e.haveRefATR = false
		e.sumPV, e.sumV = 0, 0
		e.haveOpeningRange = false
		e.openingRangeFrozen = false
		e.barsInRTH = 0
	}
}

// Update consumes one completed bar and returns the Output record. Given an
// identical sequence of bars and identical initial state, Update is
// deterministic: the same floating-point operations occur in the same
// order across runs (spec.md §4.2 "Determinism").
func (e *Engine) Update(b bar.Bar) Output {
	local := b.Timestamp.In(e.loc)
	e.resetSessionIfNeeded(local)

	phase := session.ClassifyPhase(local)
	out := Output{Timestamp: b.Timestamp.Unix(), SessionPhase: phase}

	tp := b.TypicalPrice()

	var tr float64
	if e.havePrev {
		tr = b.TrueRange(e.prevClose)
	} else {
		tr = b.High - b.Low
	}

	e.computeVWAP(local, phase, tp, b, &out)
	e.computeATR(tr, &out)
	e.computeStructural(b, tp, &out)
	e.computeVolume(b, &out)
	e.computeSession(local, phase, b, &out)
	e.computeQualityCost(b, &out)
	e.computeBiasContext(local, phase, b, &out)

	// Advance rolling state after all features for this bar are computed, so
	// every feature above sees "current bar vs prior history" consistently.
	e.closes.Push(b.Close)
	e.highs.Push(b.High)
	e.lows.Push(b.Low)
	e.typicals.Push(tp)
	e.volumes.Push(b.Volume)
	e.ranges.Push(b.High - b.Low)
	e.bodies.Push(abs(b.Close - b.Open))
	e.prevClose = b.Close
	e.havePrev = true
	if session.InRTH(local) {
		e.barsInRTH++
	}

	e.lastOut = out
	return out
}

func ptr(v float64) *float64 { return &v }

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
