// Package signal computes the ~50 bounded numerical features the belief
// and decision engines consume from each completed bar (spec.md §4.2).
package signal

import "github.com/themirrorplatform/trading-bot-sub000/internal/session"

// Output is the fixed-schema signal record for one bar. Every feature is
// semantically Option<f64>: a nil pointer means "none" during warm-up
// windows (spec.md §3 "Signal output").
type Output struct {
	Timestamp int64 // unix seconds, set by caller

	// --- core: VWAP family ---
	VWAP      *float64
	VWAPZ     *float64 // clamped [-3, 3]
	VWAPSlope *float64 // clamped [-1, 1]

	// --- core: ATR family ---
	ATR14   *float64
	ATR14N  *float64 // normalized against reference ATR, clamped [0, 2]
	ATR30   *float64

	// --- core: structural ---
	RangeCompression     *float64
	HHLLTrendStrength    *float64
	BreakoutDistanceATR  *float64
	RejectionWickATR     *float64
	CloseLocationValue   *float64 // [0, 1]
	GapFromPrevCloseATR  *float64
	DistFromMedianTPATR  *float64
	MicroTrend5          *float64 // clamped [-1, 1]
	RealBodyImpulse      *float64

	// --- core: volume ---
	VolumeZ                  *float64
	VolumeSlope               *float64
	EffortVsResult            *float64
	RangeExpansionOnVolume    *float64
	ClimaxFlag                *float64 // {0,1}
	QuietFlag                 *float64 // {0,1}
	ConsecutiveHighVolumeBars *float64 // saturates at 5
	ParticipationExpansion    *float64

	// --- core: session ---
	SessionPhase      session.Phase
	OpeningRangeBreak *float64 // {-1,0,1}
	LunchVoidGate     *float64 // {0,1}
	CloseMagnetIndex  *float64 // [0,1]

	// --- core: quality/cost proxies ---
	SpreadProxyTickiness *float64 // [0,1]
	SlippageRiskProxy    *float64 // [0,1], higher = better
	FrictionRegimeIndex  *float64

	// --- core: reliability ---
	DVSOk          bool
	EQSOk          bool
	SessionOk      bool
	ReliabilityAll *float64 // weighted overall score [0,1]

	// --- bias/context (~22 more) ---
	RoundNumberProximity25  *float64
	RoundNumberProximity50  *float64
	RoundNumberProximity100 *float64
	IsFriday                *float64
	IsQuarterEnd            *float64
	OpeningDriveExhaustion  *float64
	FOMOIndex               *float64
	ExtendedTrendFlag       *float64
	VolumeSurgeFlag         *float64
	FirstHourFlag           *float64
	FinalHourFlag           *float64
	TrendPersistence10      *float64
	PullbackDepthATR        *float64
	RangeDayProxy           *float64
	TrendDayProxy           *float64
	GapFillProgress         *float64
	VWAPReclaimFlag         *float64
	VWAPLossFlag            *float64
	BarsSinceSessionOpen    *float64
	VolatilityRegimeProxy   *float64
	LiquidityWindowIndex    *float64
	NewsWindowProxy         *float64
}
