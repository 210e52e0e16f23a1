package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themirrorplatform/trading-bot-sub000/internal/execution"
)

func newTestAdapter() (*Adapter, *StubClient) {
	stub := NewStubClient()
	// High rate/burst so tests aren't throttled; the limiter's existence
	// is exercised directly in TestAdapterThrottlesSubmissions.
	return NewAdapter(stub, "test-venue", 1000, 1000), stub
}

func TestSubmitEntryTranslatesDirectionToSide(t *testing.T) {
	adapter, stub := newTestAdapter()

	id, err := adapter.SubmitEntry(execution.SubmitRequest{
		Direction: 1,
		Contracts: 2,
		EntryType: execution.EntryLimit,
		EntryPrice: 5000,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	placed := stub.Placed()
	require.Len(t, placed, 1)
	assert.Equal(t, "BUY", placed[0].Side)
	assert.Equal(t, 2, placed[0].Qty)
}

func TestSubmitEntryShortSideTranslation(t *testing.T) {
	adapter, stub := newTestAdapter()

	_, err := adapter.SubmitEntry(execution.SubmitRequest{
		Direction: -1,
		Contracts: 1,
		EntryType: execution.EntryLimit,
		EntryPrice: 5000,
	})
	require.NoError(t, err)

	placed := stub.Placed()
	require.Len(t, placed, 1)
	assert.Equal(t, "SELL", placed[0].Side)
}

func TestSubmitChildCarriesParentID(t *testing.T) {
	adapter, stub := newTestAdapter()

	_, err := adapter.SubmitChild("parent-1", execution.ChildStop, "SELL", 1, 4997)
	require.NoError(t, err)

	placed := stub.Placed()
	require.Len(t, placed, 1)
	assert.Equal(t, "parent-1", placed[0].ParentID)
}

func TestNetPositionReflectsFills(t *testing.T) {
	adapter, _ := newTestAdapter()

	_, err := adapter.SubmitEntry(execution.SubmitRequest{Direction: 1, Contracts: 3, EntryType: execution.EntryLimit, EntryPrice: 5000})
	require.NoError(t, err)

	net, err := adapter.NetPosition()
	require.NoError(t, err)
	assert.Equal(t, 3, net)
}

func TestFlattenZeroesPosition(t *testing.T) {
	adapter, _ := newTestAdapter()

	_, err := adapter.SubmitEntry(execution.SubmitRequest{Direction: 1, Contracts: 3, EntryType: execution.EntryLimit, EntryPrice: 5000})
	require.NoError(t, err)

	require.NoError(t, adapter.Flatten())

	net, err := adapter.NetPosition()
	require.NoError(t, err)
	assert.Equal(t, 0, net)
}

func TestAdapterPropagatesTransportFailure(t *testing.T) {
	adapter, stub := newTestAdapter()
	stub.FailNextPlace()

	_, err := adapter.SubmitEntry(execution.SubmitRequest{Direction: 1, Contracts: 1, EntryType: execution.EntryLimit, EntryPrice: 5000})
	assert.Error(t, err)
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	adapter, stub := newTestAdapter()

	for i := 0; i < 3; i++ {
		stub.FailNextPlace()
		_, err := adapter.SubmitEntry(execution.SubmitRequest{Direction: 1, Contracts: 1, EntryType: execution.EntryLimit, EntryPrice: 5000})
		assert.Error(t, err)
	}

	// The breaker is now open; even a would-succeed call is short-circuited
	// without reaching the stub transport.
	before := len(stub.Placed())
	_, err := adapter.SubmitEntry(execution.SubmitRequest{Direction: 1, Contracts: 1, EntryType: execution.EntryLimit, EntryPrice: 5000})
	assert.Error(t, err)
	assert.Equal(t, before, len(stub.Placed()), "an open breaker must not let the call reach the transport")
}

func TestAdapterThrottlesSubmissions(t *testing.T) {
	stub := NewStubClient()
	adapter := NewAdapter(stub, "slow-venue", 2, 1) // 2/sec sustained, burst of 1

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := adapter.SubmitEntry(execution.SubmitRequest{Direction: 1, Contracts: 1, EntryType: execution.EntryLimit, EntryPrice: 5000})
		require.NoError(t, err)
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond, "a burst of 1 at 2/sec must throttle the 3rd call")
}
