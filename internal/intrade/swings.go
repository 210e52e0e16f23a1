package intrade

// updateSwings confirms a local extreme two bars after the fact: the bar
// at len(history)-3 is a confirmed swing high/low when it is strictly
// beyond its two neighbors on each side (spec.md §4.7 "Detect confirmed
// swings").
func (m *Manager) updateSwings() {
	n := len(m.history)
	idx := n - 3
	if idx < 2 {
		return
	}
	cand := m.history[idx]

	isHigh, isLow := true, true
	for d := -2; d <= 2; d++ {
		if d == 0 {
			continue
		}
		j := idx + d
		if j < 0 || j >= n {
			isHigh, isLow = false, false
			break
		}
		if m.history[j].high >= cand.high {
			isHigh = false
		}
		if m.history[j].low <= cand.low {
			isLow = false
		}
	}

	if isHigh {
		m.swingHigh = &swingPoint{price: cand.high, barIndex: idx}
	}
	if isLow {
		m.swingLow = &swingPoint{price: cand.low, barIndex: idx}
	}
}
