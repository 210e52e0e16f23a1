package numeric

// WilderMA implements Welles Wilder's smoothed moving average, used for
// ATR(14)/ATR(30) and similar indicators. It accumulates a simple mean
// during warm-up, then switches to the recursive Wilder update.
//
//	ATR_t = (ATR_{t-1}*(N-1) + TR_t) / N
type WilderMA struct {
	period  int
	sum     float64 // running sum during warm-up
	count   int     // samples seen during warm-up
	value   float64
	primed  bool
}

// NewWilderMA creates a Wilder smoother over the given period (e.g. 14, 30).
func NewWilderMA(period int) *WilderMA {
	if period < 1 {
		period = 1
	}
	return &WilderMA{period: period}
}

// Update feeds one new sample (e.g. true range) and returns the updated
// value and whether the smoother is out of warm-up (i.e. the value is
// defined per spec.md §8 "ATR warm-up").
func (w *WilderMA) Update(x float64) (float64, bool) {
	if !w.primed {
		w.sum += x
		w.count++
		if w.count < w.period {
			return 0, false
		}
		w.value = w.sum / float64(w.period)
		w.primed = true
		return w.value, true
	}
	n := float64(w.period)
	w.value = (w.value*(n-1) + x) / n
	return w.value, true
}

// Value returns the current smoothed value (0 if not yet primed).
func (w *WilderMA) Value() float64 { return w.value }

// Primed reports whether warm-up has completed.
func (w *WilderMA) Primed() bool { return w.primed }
