package learning

// VolRegime is the 20-bar EMA-of-sigma_norm volatility classification
// (spec.md §4.9 "Regime detection").
type VolRegime string

const (
	VolLow    VolRegime = "LOW"
	VolNormal VolRegime = "NORMAL"
	VolHigh   VolRegime = "HIGH"
)

// TrendRegime is the trend-strength heuristic classification.
type TrendRegime string

const (
	Trending TrendRegime = "TRENDING"
	Neutral  TrendRegime = "NEUTRAL"
	Ranging  TrendRegime = "RANGING"
)

const (
	volLowThreshold  = 0.7
	volHighThreshold = 1.5

	regimeEMAPeriod = 20
)

// RegimeDetector tracks the 20-bar EMA of sigma_norm and a trend-strength
// heuristic, resetting short-horizon metrics on regime change.
type RegimeDetector struct {
	emaSigmaNorm float64
	primed       bool

	currentVol   VolRegime
	currentTrend TrendRegime

	OnRegimeChange func(vol VolRegime, trend TrendRegime)
}

func NewRegimeDetector() *RegimeDetector {
	return &RegimeDetector{currentVol: VolNormal, currentTrend: Neutral}
}

func (r *RegimeDetector) ema(next float64) float64 {
	alpha := 2.0 / float64(regimeEMAPeriod+1)
	if !r.primed {
		r.primed = true
		return next
	}
	return alpha*next + (1-alpha)*r.emaSigmaNorm
}

// trendStrengthFromADXProxy classifies trend regime from a bounded
// ADX-like proxy ∈ [0,1]: high values indicate a sustained directional
// move, low values indicate chop.
func trendStrengthFromADXProxy(adxProxy float64) TrendRegime {
	switch {
	case adxProxy >= 0.60:
		return Trending
	case adxProxy <= 0.25:
		return Ranging
	default:
		return Neutral
	}
}

// Update feeds one bar's sigma_norm and ADX-style trend proxy, returning
// the classified regimes and whether either changed.
func (r *RegimeDetector) Update(sigmaNorm, adxProxy float64) (VolRegime, TrendRegime, bool) {
	r.emaSigmaNorm = r.ema(sigmaNorm)

	var vol VolRegime
	switch {
	case r.emaSigmaNorm < volLowThreshold:
		vol = VolLow
	case r.emaSigmaNorm > volHighThreshold:
		vol = VolHigh
	default:
		vol = VolNormal
	}
	trend := trendStrengthFromADXProxy(adxProxy)

	changed := vol != r.currentVol || trend != r.currentTrend
	r.currentVol, r.currentTrend = vol, trend

	if changed && r.OnRegimeChange != nil {
		r.OnRegimeChange(vol, trend)
	}

	return vol, trend, changed
}
