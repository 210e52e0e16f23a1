package paramstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themirrorplatform/trading-bot-sub000/internal/belief"
	"github.com/themirrorplatform/trading-bot-sub000/internal/learning"
)

type fakeKV struct {
	values map[string]string
	getErr error
}

func newFakeKV() *fakeKV { return &fakeKV{values: make(map[string]string)} }

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", fmt.Errorf("paramstore: fake redis nil")
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value []byte) error {
	f.values[key] = string(value)
	return nil
}

func sampleState() *learning.ParameterState {
	return &learning.ParameterState{
		SignalWeights:    map[belief.ID]map[string]float64{belief.F1VWAPMeanReversion: {"vwap_z": 1.0}},
		BeliefThresholds: map[belief.ID]float64{belief.F1VWAPMeanReversion: 0.60},
		DecayRates:       map[belief.ID]float64{belief.F1VWAPMeanReversion: 0.95},
		Confidence:       map[belief.ID]float64{belief.F1VWAPMeanReversion: 0.5},
	}
}

func TestLocalStorePublishThenCurrentRoundTrips(t *testing.T) {
	store := NewLocalStore(sampleState())
	updated := sampleState()
	updated.Confidence[belief.F1VWAPMeanReversion] = 0.6

	store.Publish(updated)

	got := store.Current()
	assert.Equal(t, 0.6, got.Confidence[belief.F1VWAPMeanReversion])
}

func TestRedisStorePublishThenCurrentRoundTrips(t *testing.T) {
	kv := newFakeKV()
	store := NewRedisStore(kv, "", time.Second)

	store.Publish(sampleState())

	got := store.Current()
	require.NotNil(t, got)
	assert.Equal(t, 0.60, got.BeliefThresholds[belief.F1VWAPMeanReversion])
}

func TestRedisStoreCurrentReturnsNilOnMiss(t *testing.T) {
	kv := newFakeKV()
	store := NewRedisStore(kv, "", time.Second)

	assert.Nil(t, store.Current())
}

func TestRedisStoreCurrentReturnsNilOnError(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = fmt.Errorf("connection refused")
	store := NewRedisStore(kv, "", time.Second)

	assert.Nil(t, store.Current())
}

func TestRedisStoreUsesDefaultKeyWhenEmpty(t *testing.T) {
	kv := newFakeKV()
	store := NewRedisStore(kv, "", time.Second)
	store.Publish(sampleState())

	_, ok := kv.values[defaultKey]
	assert.True(t, ok)
}
