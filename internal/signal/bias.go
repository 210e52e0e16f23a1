package signal

import (
	"time"

	"github.com/themirrorplatform/trading-bot-sub000/internal/bar"
	"github.com/themirrorplatform/trading-bot-sub000/internal/numeric"
	"github.com/themirrorplatform/trading-bot-sub000/internal/session"
)

// computeBiasContext derives the ~22 bias/context features consumed by the
// belief engine's enhanced path and the decision engine's threshold
// modifiers (spec.md §4.2 "Bias/context features"). These augment, rather
// than duplicate, the core feature set: no parallel belief system is
// introduced here.
func (e *Engine) computeBiasContext(local time.Time, phase session.Phase, b bar.Bar, out *Output) {
	const tickSize = 0.25
	out.RoundNumberProximity25 = ptr(roundNumberProximity(b.Close, 25, tickSize))
	out.RoundNumberProximity50 = ptr(roundNumberProximity(b.Close, 50, tickSize))
	out.RoundNumberProximity100 = ptr(roundNumberProximity(b.Close, 100, tickSize))

	out.IsFriday = flag(local.Weekday() == time.Friday)
	out.IsQuarterEnd = flag(isQuarterEndMonth(local) && local.Day() >= daysInMonth(local)-2)

	out.FirstHourFlag = flag(phase == session.Opening)
	out.FinalHourFlag = flag(phase == session.Close)

	// Opening-drive exhaustion: in the first hour, how far price has
	// extended beyond the opening range relative to ATR, decaying as the
	// range consolidates (high breakout distance + shrinking range).
	if phase == session.Opening && out.BreakoutDistanceATR != nil && out.RangeCompression != nil {
		exhaustion := numeric.Clamp(abs(*out.BreakoutDistanceATR)*(2-*out.RangeCompression), 0, 3) / 3
		out.OpeningDriveExhaustion = ptr(exhaustion)
	} else {
		out.OpeningDriveExhaustion = ptr(0)
	}

	// Extended trend flag: micro-trend strongly persistent in one direction.
	if out.MicroTrend5 != nil {
		out.ExtendedTrendFlag = flag(abs(*out.MicroTrend5) > 0.6)
	}

	// Volume surge flag mirrors the climax flag but at a lower bar, useful
	// as an independent bias gate from the core quiet/climax pair.
	if out.VolumeZ != nil {
		out.VolumeSurgeFlag = flag(*out.VolumeZ > 1.5)
	}

	// FOMO index: combination of extended trend + volume surge + not flat.
	trendComp := 0.0
	if out.ExtendedTrendFlag != nil {
		trendComp = *out.ExtendedTrendFlag
	}
	volComp := 0.0
	if out.VolumeSurgeFlag != nil {
		volComp = *out.VolumeSurgeFlag
	}
	out.FOMOIndex = ptr(numeric.Clamp(0.6*trendComp+0.4*volComp, 0, 1))

	// Trend persistence over the last 10 bars: share of same-direction
	// closes, reusing the HH/LL trend strength feature.
	if out.HHLLTrendStrength != nil {
		out.TrendPersistence10 = ptr(numeric.Clamp(*out.HHLLTrendStrength/10, -1, 1))
	}

	// Pullback depth in ATR units: distance from the recent high/low extreme
	// back to close, sized by trend direction.
	if e.atr14.Primed() && e.atr14.Value() > 0 && e.highs.Len() > 0 {
		atr := e.atr14.Value()
		hi := maxOf(e.highs.Values())
		lo := minOf(e.lows.Values())
		var depth float64
		if out.MicroTrend5 != nil && *out.MicroTrend5 >= 0 {
			depth = (hi - b.Close) / atr
		} else {
			depth = (b.Close - lo) / atr
		}
		out.PullbackDepthATR = ptr(depth)
	}

	// Range-day / trend-day proxies derive from range compression: a
	// compressed range with weak trend strength implies a range day.
	if out.RangeCompression != nil && out.HHLLTrendStrength != nil {
		rangeDay := numeric.Clamp(1-abs(*out.HHLLTrendStrength)/10, 0, 1) * numeric.Clamp(*out.RangeCompression, 0, 2) / 2
		out.RangeDayProxy = ptr(rangeDay)
		out.TrendDayProxy = ptr(1 - rangeDay)
	}

	// Gap-fill progress: how much of the opening gap has been retraced.
	if out.GapFromPrevCloseATR != nil && *out.GapFromPrevCloseATR != 0 && e.atr14.Primed() {
		gapATR := *out.GapFromPrevCloseATR
		atr := e.atr14.Value()
		filled := (b.Close - (e.prevClose + gapATR*atr)) / (gapATR * atr)
		out.GapFillProgress = ptr(numeric.Clamp(filled, -1, 1))
	}

	// VWAP reclaim/loss flags: close crossing back over VWAP this bar.
	if out.VWAP != nil {
		out.VWAPReclaimFlag = flag(e.prevClose < *out.VWAP && b.Close >= *out.VWAP)
		out.VWAPLossFlag = flag(e.prevClose > *out.VWAP && b.Close <= *out.VWAP)
	}

	out.BarsSinceSessionOpen = ptr(float64(e.barsInRTH))

	if out.ATR14N != nil {
		switch {
		case *out.ATR14N < 0.7:
			out.VolatilityRegimeProxy = ptr(0)
		case *out.ATR14N > 1.5:
			out.VolatilityRegimeProxy = ptr(2)
		default:
			out.VolatilityRegimeProxy = ptr(1)
		}
	}

	// Liquidity window index: higher mid-morning/afternoon, lower at the
	// lunch void and session edges.
	switch phase {
	case session.MidMorning, session.Afternoon:
		out.LiquidityWindowIndex = ptr(1.0)
	case session.Opening, session.Close:
		out.LiquidityWindowIndex = ptr(0.7)
	case session.Lunch:
		out.LiquidityWindowIndex = ptr(0.2)
	default:
		out.LiquidityWindowIndex = ptr(0.0)
	}

	// News-window proxy: a coarse placeholder flag for the top-of-hour
	// scheduled-release window, since the core has no external calendar
	// feed; callers with a real economic calendar should override this via
	// the decision engine's threshold modifiers rather than here.
	out.NewsWindowProxy = flag(local.Minute() < 5)
}

func roundNumberProximity(price, grid, tickSize float64) float64 {
	if grid <= 0 {
		return 0
	}
	nearest := round(price/grid) * grid
	distTicks := abs(price-nearest) / tickSize
	return numeric.Clamp(1-distTicks/20, 0, 1)
}

func round(x float64) float64 {
	if x >= 0 {
		return float64(int64(x + 0.5))
	}
	return float64(int64(x - 0.5))
}

func isQuarterEndMonth(t time.Time) bool {
	switch t.Month() {
	case time.March, time.June, time.September, time.December:
		return true
	default:
		return false
	}
}

func daysInMonth(t time.Time) int {
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	lastOfThis := firstOfNext.AddDate(0, 0, -1)
	return lastOfThis.Day()
}
