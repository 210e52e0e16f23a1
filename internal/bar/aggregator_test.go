package bar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAggregatorEmitsOnBoundaryCross(t *testing.T) {
	a := NewAggregator(time.Minute)

	_, emitted, err := a.OnTick(Tick{Timestamp: ts("09:30:01"), Price: 100, Size: 1})
	require.NoError(t, err)
	assert.False(t, emitted)

	_, emitted, err = a.OnTick(Tick{Timestamp: ts("09:30:30"), Price: 101, Size: 2})
	require.NoError(t, err)
	assert.False(t, emitted)

	finished, emitted, err := a.OnTick(Tick{Timestamp: ts("09:31:00"), Price: 99, Size: 3})
	require.NoError(t, err)
	require.True(t, emitted)
	assert.Equal(t, 100.0, finished.Open)
	assert.Equal(t, 101.0, finished.High)
	assert.Equal(t, 100.0, finished.Low)
	assert.Equal(t, 101.0, finished.Close)
	assert.Equal(t, 3.0, finished.Volume)
	assert.Equal(t, int64(2), finished.TickCount)
	assert.True(t, finished.Valid())
}

func TestAggregatorDropsOutOfOrderTicks(t *testing.T) {
	a := NewAggregator(time.Minute)
	_, _, err := a.OnTick(Tick{Timestamp: ts("09:30:30"), Price: 100, Size: 1})
	require.NoError(t, err)

	_, _, err = a.OnTick(Tick{Timestamp: ts("09:30:10"), Price: 50, Size: 1})
	assert.Error(t, err)
}

func TestAggregatorNoTicksNoBar(t *testing.T) {
	a := NewAggregator(time.Minute)
	_, emitted := a.Flush()
	assert.False(t, emitted)
}

func TestAggregatorFlushAtShutdown(t *testing.T) {
	a := NewAggregator(time.Minute)
	_, _, err := a.OnTick(Tick{Timestamp: ts("09:30:01"), Price: 100, Size: 1})
	require.NoError(t, err)

	b, emitted := a.Flush()
	require.True(t, emitted)
	assert.Equal(t, 100.0, b.Open)
}

func TestBarInvariantRejection(t *testing.T) {
	b := Bar{Open: 10, High: 9, Low: 8, Close: 9, Volume: 1}
	assert.False(t, b.Valid())
}

func TestTrueRangeUsesPriorClose(t *testing.T) {
	b := Bar{High: 105, Low: 100, Close: 102}
	assert.Equal(t, 10.0, b.TrueRange(95)) // |100-95|=5, |105-95|=10, hl=5 -> max=10
}
