package orchestrator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themirrorplatform/trading-bot-sub000/internal/bar"
	"github.com/themirrorplatform/trading-bot-sub000/internal/belief"
	"github.com/themirrorplatform/trading-bot-sub000/internal/decision"
	"github.com/themirrorplatform/trading-bot-sub000/internal/event"
	"github.com/themirrorplatform/trading-bot-sub000/internal/execution"
	"github.com/themirrorplatform/trading-bot-sub000/internal/intrade"
	"github.com/themirrorplatform/trading-bot-sub000/internal/learning"
	"github.com/themirrorplatform/trading-bot-sub000/internal/quality"
	"github.com/themirrorplatform/trading-bot-sub000/internal/signal"
)

type fakeBroker struct {
	entryCalls int
	childCalls int
	lastEntry  execution.SubmitRequest
}

func (f *fakeBroker) SubmitEntry(req execution.SubmitRequest) (string, error) {
	f.entryCalls++
	f.lastEntry = req
	return "broker-parent-1", nil
}

func (f *fakeBroker) SubmitChild(parentBrokerOrderID string, role execution.ChildRole, side string, qty int, price float64) (string, error) {
	f.childCalls++
	return "broker-child", nil
}

func (f *fakeBroker) CancelOrder(brokerOrderID string) error { return nil }
func (f *fakeBroker) CancelAll() error                       { return nil }
func (f *fakeBroker) Flatten() error                         { return nil }
func (f *fakeBroker) NetPosition() (int, error)              { return 0, nil }

func newTestOrchestrator() (*Orchestrator, *fakeBroker, *event.StubSink) {
	broker := &fakeBroker{}
	sink := event.NewStubSink()
	o := New(Config{
		StreamID:     "ES-test",
		TickSizeUSD:  0.25,
		TickValueUSD: 12.5,
		ConfigHash:   "test-hash",
		Signals:      signal.NewEngine(time.UTC),
		Beliefs:      belief.NewDefaultEngine(),
		Decider:      decision.NewDefaultEngine(),
		Executor:     execution.NewSupervisor(broker, time.Minute),
		Sink:         sink,
		DVSRules:     quality.RuleSetConfig{},
		EQSRules:     quality.RuleSetConfig{},
		Limits: RiskLimits{
			MaxDailyTrades:       10,
			MaxConsecutiveLosses: 3,
			CooldownBars:         0,
			MaxRiskUSD:           150,
		},
	})
	return o, broker, sink
}

func mkBar(minute int, o, h, l, c, v float64) bar.Bar {
	ts := time.Date(2026, 6, 1, 9, 30+minute, 0, 0, time.UTC)
	return bar.Bar{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestProcessBarRejectsStructurallyInvalidBar(t *testing.T) {
	o, _, sink := newTestOrchestrator()

	bad := bar.Bar{Timestamp: time.Now().UTC(), Open: 10, High: 5, Low: 1, Close: 3, Volume: 100}
	result, err := o.ProcessBar(context.Background(), bad, quality.DataState{}, 10000)
	require.NoError(t, err)
	assert.True(t, result.NoTrade)
	assert.Equal(t, decision.ReasonDVSTooLow, result.Reason)
	assert.Empty(t, sink.All(), "an invalid bar must not emit a decision event")
}

func TestProcessBarEmitsExactlyOneDecisionEventPerBar(t *testing.T) {
	o, _, sink := newTestOrchestrator()

	_, err := o.ProcessBar(context.Background(), mkBar(0, 5000, 5001, 4999, 5000.5, 500), quality.DataState{}, 10000)
	require.NoError(t, err)

	decisions := 0
	for _, e := range sink.All() {
		if e.Type == event.TypeDecision {
			decisions++
		}
	}
	assert.Equal(t, 1, decisions)
}

func TestProcessBarNoTradeDuringWarmupEmitsNoOrderIntent(t *testing.T) {
	o, broker, sink := newTestOrchestrator()

	_, err := o.ProcessBar(context.Background(), mkBar(0, 5000, 5001, 4999, 5000.5, 500), quality.DataState{}, 10000)
	require.NoError(t, err)

	assert.Equal(t, 0, broker.entryCalls, "a zero-value DVS rule set forces DVS to 0, which the hard gate rejects before any template scoring")
	for _, e := range sink.All() {
		assert.NotEqual(t, event.TypeOrderIntent, e.Type)
	}
}

func TestProcessBarSkipsDecisionWhenKillSwitchActive(t *testing.T) {
	o, broker, _ := newTestOrchestrator()
	o.ActivateKillSwitch()

	result, err := o.ProcessBar(context.Background(), mkBar(0, 5000, 5001, 4999, 5000.5, 500), quality.DataState{}, 10000)
	require.NoError(t, err)
	assert.True(t, result.NoTrade)
	assert.Equal(t, decision.ReasonKillSwitchActive, result.Reason)
	assert.Equal(t, 0, broker.entryCalls)
}

func TestOnTradeClosedTracksConsecutiveLosses(t *testing.T) {
	o, _, _ := newTestOrchestrator()

	o.OnTradeClosed("K1", -50, learning.VolNormal, learning.Neutral, "morning")
	assert.Equal(t, 1, o.consecutiveLosses)

	o.OnTradeClosed("K1", -50, learning.VolNormal, learning.Neutral, "morning")
	assert.Equal(t, 2, o.consecutiveLosses)

	o.OnTradeClosed("K1", 75, learning.VolNormal, learning.Neutral, "morning")
	assert.Equal(t, 0, o.consecutiveLosses, "a winning trade resets the consecutive-loss streak")
}

func TestReleaseKillSwitchClearsGate(t *testing.T) {
	o, _, _ := newTestOrchestrator()
	o.ActivateKillSwitch()
	o.ReleaseKillSwitch()

	result, err := o.ProcessBar(context.Background(), mkBar(0, 5000, 5001, 4999, 5000.5, 500), quality.DataState{}, 10000)
	require.NoError(t, err)
	assert.NotEqual(t, decision.ReasonKillSwitchActive, result.Reason)
}

func TestProcessBarWithActiveTradeBypassesDecisionAndEmitsInTrade(t *testing.T) {
	o, _, sink := newTestOrchestrator()
	o.positionFlat = false
	o.activeTrade = intrade.NewManager(intrade.EntryContext{
		TradeID:     "K1-1",
		Direction:   intrade.Long,
		EntryPrice:  5000,
		InitialStop: 4998,
		QtyTotal:    2,
		QtyA:        1,
		QtyB:        1,
		TemplateID:  "K1",
	}, intrade.DefaultParams(), o.tickSizeUSD)

	result, err := o.ProcessBar(context.Background(), mkBar(0, 5000, 5001, 4999.5, 5000.5, 500), quality.DataState{}, 10000)
	require.NoError(t, err)
	assert.True(t, result.NoTrade)
	assert.Equal(t, decision.ReasonInPosition, result.Reason)
	assert.Equal(t, "K1", result.TemplateID)

	found := false
	for _, e := range sink.All() {
		if e.Type == event.TypeInTrade {
			found = true
		}
		assert.NotEqual(t, event.TypeDecision, e.Type, "the decision engine must not run while a trade is open")
	}
	assert.True(t, found, "an in-trade event must be emitted for the bar")
	assert.NotNil(t, o.activeTrade, "the trade stays open; the stop was not hit")
}

func TestProcessBarClosesActiveTradeOnStopHit(t *testing.T) {
	o, _, sink := newTestOrchestrator()
	o.positionFlat = false
	o.activeTrade = intrade.NewManager(intrade.EntryContext{
		TradeID:     "K1-1",
		Direction:   intrade.Long,
		EntryPrice:  5000,
		InitialStop: 4998,
		QtyTotal:    2,
		QtyA:        1,
		QtyB:        1,
		TemplateID:  "K1",
	}, intrade.DefaultParams(), o.tickSizeUSD)

	_, err := o.ProcessBar(context.Background(), mkBar(0, 5000, 5000.5, 4997, 4997.5, 500), quality.DataState{}, 10000)
	require.NoError(t, err)

	assert.Nil(t, o.activeTrade, "a stop hit must flatten the position")
	assert.True(t, o.positionFlat)

	exitSeen := false
	for _, e := range sink.All() {
		if e.Type == event.TypeInTrade {
			var payload map[string]any
			require.NoError(t, json.Unmarshal(e.Payload, &payload))
			if exit, _ := payload["exit"].(bool); exit {
				exitSeen = true
			}
		}
	}
	assert.True(t, exitSeen, "the in-trade event must report the exit")
}

func TestSubmitOrderIntentUsesBarCloseAsEntryPriceNotTickDistances(t *testing.T) {
	o, broker, _ := newTestOrchestrator()

	result := decision.Result{
		TemplateID:  "K1",
		Direction:   decision.Long,
		Contracts:   2,
		StopTicks:   12,
		TargetTicks: 24,
	}
	b := mkBar(0, 5000, 5001, 4999, 5000, 500)

	err := o.submitOrderIntent(context.Background(), result, b, 10000)
	require.NoError(t, err)

	require.Equal(t, 1, broker.entryCalls)
	assert.InDelta(t, 5000.0, broker.lastEntry.EntryPrice, 1e-9)
	assert.InDelta(t, 5000.0-12*0.25, broker.lastEntry.StopPrice, 1e-9)
	assert.InDelta(t, 5000.0+24*0.25, broker.lastEntry.TargetPrice, 1e-9)
}

func TestSubmitOrderIntentMirrorsStopAndTargetForShort(t *testing.T) {
	o, broker, _ := newTestOrchestrator()

	result := decision.Result{
		TemplateID:  "K2",
		Direction:   decision.Short,
		Contracts:   1,
		StopTicks:   8,
		TargetTicks: 16,
	}
	b := mkBar(0, 5000, 5001, 4999, 5000, 500)

	err := o.submitOrderIntent(context.Background(), result, b, 10000)
	require.NoError(t, err)

	assert.InDelta(t, 5000.0, broker.lastEntry.EntryPrice, 1e-9)
	assert.InDelta(t, 5000.0+8*0.25, broker.lastEntry.StopPrice, 1e-9)
	assert.InDelta(t, 5000.0-16*0.25, broker.lastEntry.TargetPrice, 1e-9)
}
