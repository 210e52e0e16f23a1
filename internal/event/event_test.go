package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducesStableIDForSamePayload(t *testing.T) {
	ts := time.Date(2026, 3, 5, 11, 0, 0, 0, time.UTC)
	payload := map[string]any{"b": 2, "a": 1}

	e1, err := New("MES-FUT", ts, TypeDecision, payload, "cfg-hash-1")
	require.NoError(t, err)
	e2, err := New("MES-FUT", ts, TypeDecision, payload, "cfg-hash-1")
	require.NoError(t, err)

	assert.Equal(t, e1.ID, e2.ID)
	assert.NotEmpty(t, e1.ID)
}

func TestNewProducesDifferentIDForDifferentPayload(t *testing.T) {
	ts := time.Date(2026, 3, 5, 11, 0, 0, 0, time.UTC)

	e1, err := New("MES-FUT", ts, TypeDecision, map[string]any{"a": 1}, "cfg-hash-1")
	require.NoError(t, err)
	e2, err := New("MES-FUT", ts, TypeDecision, map[string]any{"a": 2}, "cfg-hash-1")
	require.NoError(t, err)

	assert.NotEqual(t, e1.ID, e2.ID)
}

func TestKeyOrderInPayloadDoesNotAffectID(t *testing.T) {
	ts := time.Date(2026, 3, 5, 11, 0, 0, 0, time.UTC)

	e1, err := New("MES-FUT", ts, TypeDecision, map[string]any{"a": 1, "b": 2}, "cfg-hash-1")
	require.NoError(t, err)
	e2, err := New("MES-FUT", ts, TypeDecision, map[string]any{"b": 2, "a": 1}, "cfg-hash-1")
	require.NoError(t, err)

	assert.Equal(t, e1.ID, e2.ID)
}

func TestStubSinkEmitIsIdempotentByID(t *testing.T) {
	ts := time.Date(2026, 3, 5, 11, 0, 0, 0, time.UTC)
	e, err := New("MES-FUT", ts, TypeFill, map[string]any{"qty": 1}, "cfg-hash-1")
	require.NoError(t, err)

	sink := NewStubSink()
	require.NoError(t, sink.Emit(context.Background(), e))
	require.NoError(t, sink.Emit(context.Background(), e))

	assert.Len(t, sink.All(), 1)
}

func TestStubSinkRejectsEventWithoutID(t *testing.T) {
	sink := NewStubSink()
	err := sink.Emit(context.Background(), Event{})
	assert.Error(t, err)
}
