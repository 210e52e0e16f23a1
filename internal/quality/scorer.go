package quality

// DataState is the DVS input snapshot (spec.md §4.3): bar lag, missing
// fields, gap flag, outlier score, and other data-plausibility metrics.
type DataState struct {
	BarLagSeconds     *float64
	MissingFields     *float64
	GapDetected       *float64 // 0/1
	OutlierScore      *float64
	SymbolChanged     *float64 // 0/1
	SessionAnomaly    *float64 // 0/1
	TradingHalt       *float64 // 0/1
	PriceJumpPct      *float64
	VolumeSpikeRatio  *float64
	StructuralInvalid bool // true when the bar failed OHLC invariants
}

func (s DataState) metrics() (map[string]float64, map[string]bool) {
	m := map[string]float64{}
	p := map[string]bool{}
	add := func(name string, v *float64) {
		if v != nil {
			m[name] = *v
			p[name] = true
		}
	}
	add("bar_lag_seconds", s.BarLagSeconds)
	add("missing_fields", s.MissingFields)
	add("gap_detected", s.GapDetected)
	add("outlier_score", s.OutlierScore)
	add("symbol_changed", s.SymbolChanged)
	add("session_anomaly", s.SessionAnomaly)
	add("trading_halt", s.TradingHalt)
	add("price_jump_pct", s.PriceJumpPct)
	add("volume_spike_ratio", s.VolumeSpikeRatio)
	return m, p
}

// ComputeDVS implements the Data-Validity-Score contract of spec.md §4.3. A
// bar that failed its structural invariants forces DVS to 0 for the
// interval, overriding rule evaluation entirely.
func ComputeDVS(state DataState, cfg RuleSetConfig, prior *float64) float64 {
	if state.StructuralInvalid {
		return 0
	}
	metrics, present := state.metrics()
	return Evaluate(cfg, prior, metrics, present)
}

// ExecutionState is the EQS input snapshot (spec.md §4.3): fill-time delta,
// partial-fill flag, order/connection state, slippage proxies.
type ExecutionState struct {
	OrderRejected           *float64 // 0/1
	FillTimeMinusOrderTime  *float64 // seconds
	PartialFill             *float64 // 0/1
	SlippageTicks           *float64
	SlippageVsExpectedRatio *float64 // |fill-limit| / max(expected, eps), precomputed by caller
}

func (s ExecutionState) metrics() (map[string]float64, map[string]bool) {
	m := map[string]float64{}
	p := map[string]bool{}
	add := func(name string, v *float64) {
		if v != nil {
			m[name] = *v
			p[name] = true
		}
	}
	add("order_rejected", s.OrderRejected)
	add("fill_time_minus_order_time_seconds", s.FillTimeMinusOrderTime)
	add("partial_fill", s.PartialFill)
	add("slippage_ticks", s.SlippageTicks)
	add("slippage_vs_expected", s.SlippageVsExpectedRatio)
	return m, p
}

// ComputeEQS implements the Execution-Quality-Score contract of spec.md §4.3.
func ComputeEQS(state ExecutionState, cfg RuleSetConfig, prior *float64) float64 {
	metrics, present := state.metrics()
	return Evaluate(cfg, prior, metrics, present)
}

// SlippageVsExpected computes |fillPrice-limitPrice| / max(expectedSlippage,
// eps), the normalized metric the original scorer derives before rule
// evaluation (spec.md §4.3 EQS inputs).
func SlippageVsExpected(fillPrice, limitPrice, expectedSlippage, eps float64) float64 {
	denom := expectedSlippage
	if denom < eps {
		denom = eps
	}
	diff := fillPrice - limitPrice
	if diff < 0 {
		diff = -diff
	}
	return diff / denom
}
