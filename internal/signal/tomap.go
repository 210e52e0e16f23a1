package signal

// ToMap flattens the populated (non-nil) features into a plain map for
// the belief, decision and in-trade engines, which address signals by
// name rather than by struct field (spec.md §4.4, §4.5, §4.7).
func (o Output) ToMap() map[string]float64 {
	m := make(map[string]float64, 48)
	add := func(name string, v *float64) {
		if v != nil {
			m[name] = *v
		}
	}

	add("vwap", o.VWAP)
	add("vwap_z", o.VWAPZ)
	add("vwap_slope", o.VWAPSlope)
	add("atr_14", o.ATR14)
	add("atr_14_n", o.ATR14N)
	add("atr_30", o.ATR30)
	add("range_compression", o.RangeCompression)
	add("hhll_trend_strength", o.HHLLTrendStrength)
	add("breakout_distance_atr", o.BreakoutDistanceATR)
	add("rejection_wick_atr", o.RejectionWickATR)
	add("close_location_value", o.CloseLocationValue)
	add("gap_from_prev_close_atr", o.GapFromPrevCloseATR)
	add("dist_from_median_tp_atr", o.DistFromMedianTPATR)
	add("micro_trend_5", o.MicroTrend5)
	add("real_body_impulse", o.RealBodyImpulse)
	add("volume_z", o.VolumeZ)
	add("volume_slope", o.VolumeSlope)
	add("effort_vs_result", o.EffortVsResult)
	add("range_expansion_on_volume", o.RangeExpansionOnVolume)
	add("climax_flag", o.ClimaxFlag)
	add("quiet_flag", o.QuietFlag)
	add("consecutive_high_volume_bars", o.ConsecutiveHighVolumeBars)
	add("participation_expansion", o.ParticipationExpansion)
	add("opening_range_break", o.OpeningRangeBreak)
	add("lunch_void_gate", o.LunchVoidGate)
	add("close_magnet_index", o.CloseMagnetIndex)
	add("spread_proxy_tickiness", o.SpreadProxyTickiness)
	add("slippage_risk_proxy", o.SlippageRiskProxy)
	add("friction_regime_index", o.FrictionRegimeIndex)
	add("reliability_all", o.ReliabilityAll)
	add("round_number_proximity_25", o.RoundNumberProximity25)
	add("round_number_proximity_50", o.RoundNumberProximity50)
	add("round_number_proximity_100", o.RoundNumberProximity100)
	add("is_friday", o.IsFriday)
	add("is_quarter_end", o.IsQuarterEnd)
	add("opening_drive_exhaustion", o.OpeningDriveExhaustion)
	add("fomo_index", o.FOMOIndex)
	add("extended_trend_flag", o.ExtendedTrendFlag)
	add("volume_surge_flag", o.VolumeSurgeFlag)
	add("first_hour_flag", o.FirstHourFlag)
	add("final_hour_flag", o.FinalHourFlag)
	add("trend_persistence_10", o.TrendPersistence10)
	add("pullback_depth_atr", o.PullbackDepthATR)
	add("range_day_proxy", o.RangeDayProxy)
	add("trend_day_proxy", o.TrendDayProxy)
	add("gap_fill_progress", o.GapFillProgress)
	add("vwap_reclaim_flag", o.VWAPReclaimFlag)
	add("vwap_loss_flag", o.VWAPLossFlag)
	add("bars_since_session_open", o.BarsSinceSessionOpen)
	add("volatility_regime_proxy", o.VolatilityRegimeProxy)
	add("liquidity_window_index", o.LiquidityWindowIndex)
	add("news_window_proxy", o.NewsWindowProxy)

	return m
}

// Known reports which features are populated, for consumers (like the
// belief engine's applicability gate) that distinguish "zero" from
// "absent during warm-up" (spec.md §3 "Option<f64>").
func (o Output) Known() map[string]bool {
	full := o.ToMap()
	known := make(map[string]bool, len(full))
	for k := range full {
		known[k] = true
	}
	return known
}
