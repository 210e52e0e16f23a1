package execution

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	entryCalls   int
	childCalls   int
	canceled     []string
	canceledAll  bool
	flattened    bool
	netPosition  int
	netPositionErr error
	rejectEntry  bool
	nextChildID  int
}

func (f *fakeBroker) SubmitEntry(req SubmitRequest) (string, error) {
	f.entryCalls++
	if f.rejectEntry {
		return "", errors.New("broker rejected entry")
	}
	return "broker-parent-1", nil
}

func (f *fakeBroker) SubmitChild(parentBrokerOrderID string, role ChildRole, side string, qty int, price float64) (string, error) {
	f.childCalls++
	f.nextChildID++
	return "broker-child", nil
}

func (f *fakeBroker) CancelOrder(brokerOrderID string) error {
	f.canceled = append(f.canceled, brokerOrderID)
	return nil
}

func (f *fakeBroker) CancelAll() error {
	f.canceledAll = true
	return nil
}

func (f *fakeBroker) Flatten() error {
	f.flattened = true
	return nil
}

func (f *fakeBroker) NetPosition() (int, error) {
	return f.netPosition, f.netPositionErr
}

func cleanPreSubmit() PreSubmitContext {
	return PreSubmitContext{AccountPresent: true, EquityUSD: 1000, SessionTradable: true}
}

func validRequest() SubmitRequest {
	return SubmitRequest{
		IntentID:    "intent-1",
		Direction:   1,
		Contracts:   1,
		EntryType:   EntryLimit,
		EntryPrice:  5000.0,
		StopPrice:   4997.0,
		TargetPrice: 5003.0,
	}
}

func TestSubmitIsIdempotentByIntentID(t *testing.T) {
	broker := &fakeBroker{}
	sup := NewSupervisor(broker, time.Minute)

	p1, err := sup.Submit(validRequest(), cleanPreSubmit())
	require.NoError(t, err)

	p2, err := sup.Submit(validRequest(), cleanPreSubmit())
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, broker.entryCalls)
}

func TestSubmitRejectsMarketEntries(t *testing.T) {
	broker := &fakeBroker{}
	sup := NewSupervisor(broker, time.Minute)

	req := validRequest()
	req.EntryType = "MARKET"
	_, err := sup.Submit(req, cleanPreSubmit())
	require.Error(t, err)

	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, ReasonNoMarketEntries, domainErr.Reason)
	assert.Equal(t, 0, broker.entryCalls)
}

func TestSubmitRejectsMissingBracket(t *testing.T) {
	broker := &fakeBroker{}
	sup := NewSupervisor(broker, time.Minute)

	req := validRequest()
	req.StopPrice = 0
	_, err := sup.Submit(req, cleanPreSubmit())
	require.Error(t, err)

	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, ReasonBracketRequired, domainErr.Reason)
}

func TestSubmitRejectsWhenKillSwitchActive(t *testing.T) {
	broker := &fakeBroker{}
	sup := NewSupervisor(broker, time.Minute)

	ctx := cleanPreSubmit()
	ctx.KillSwitchActive = true
	_, err := sup.Submit(validRequest(), ctx)
	require.Error(t, err)

	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, ReasonKillSwitchActive, domainErr.Reason)
}

func TestSubmitRejectsNonPositiveEquity(t *testing.T) {
	broker := &fakeBroker{}
	sup := NewSupervisor(broker, time.Minute)

	ctx := cleanPreSubmit()
	ctx.EquityUSD = 0
	_, err := sup.Submit(validRequest(), ctx)
	require.Error(t, err)

	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, ReasonAccountNotReady, domainErr.Reason)
}

func TestSubmitCarriesBrokerRejection(t *testing.T) {
	broker := &fakeBroker{rejectEntry: true}
	sup := NewSupervisor(broker, time.Minute)

	p, err := sup.Submit(validRequest(), cleanPreSubmit())
	require.NoError(t, err) // rejection is a terminal state, not a Go error
	assert.Equal(t, StateRejected, p.State)
	assert.NotEmpty(t, p.RejectReason)
}

func TestOnFillSpawnsBracketChildrenOnFirstFill(t *testing.T) {
	broker := &fakeBroker{}
	sup := NewSupervisor(broker, time.Minute)

	p, err := sup.Submit(validRequest(), cleanPreSubmit())
	require.NoError(t, err)

	err = sup.OnFill(p.IntentID, 1, 5000.0)
	require.NoError(t, err)

	got := sup.Order(p.IntentID)
	require.NotNil(t, got.StopChild())
	require.NotNil(t, got.TargetChild())
	assert.Equal(t, "SELL", got.StopChild().Side) // long entry, stop is opposite side
	assert.Equal(t, 2, broker.childCalls)
	assert.Equal(t, StateFilled, got.State)
}

func TestOnFillAccumulatesPartialFills(t *testing.T) {
	broker := &fakeBroker{}
	sup := NewSupervisor(broker, time.Minute)

	req := validRequest()
	req.Contracts = 2
	p, err := sup.Submit(req, cleanPreSubmit())
	require.NoError(t, err)

	err = sup.OnFill(p.IntentID, 1, 5000.0)
	require.NoError(t, err)
	assert.Equal(t, StatePartial, sup.Order(p.IntentID).State)

	err = sup.OnFill(p.IntentID, 1, 5002.0)
	require.NoError(t, err)
	got := sup.Order(p.IntentID)
	assert.Equal(t, StateFilled, got.State)
	assert.Equal(t, 5001.0, got.AvgFillPrice)
	assert.Equal(t, 2, broker.childCalls) // stop + target, spawned once on first fill only
}

func TestOnChildFilledCancelsSiblingLeg(t *testing.T) {
	broker := &fakeBroker{}
	sup := NewSupervisor(broker, time.Minute)

	p, err := sup.Submit(validRequest(), cleanPreSubmit())
	require.NoError(t, err)
	require.NoError(t, sup.OnFill(p.IntentID, 1, 5000.0))

	require.NoError(t, sup.OnChildFilled(p.IntentID, ChildTarget))

	got := sup.Order(p.IntentID)
	assert.Equal(t, StateFilled, got.State)
	assert.Equal(t, StateFilled, got.TargetChild().State)
	assert.Equal(t, StateCanceled, got.StopChild().State)
	assert.Len(t, broker.canceled, 1)
}

func TestExpireStaleCancelsOrdersPastTTL(t *testing.T) {
	broker := &fakeBroker{}
	sup := NewSupervisor(broker, time.Minute)

	p, err := sup.Submit(validRequest(), cleanPreSubmit())
	require.NoError(t, err)
	sup.OnAck(p.IntentID)

	past := p.CreatedAt.Add(2 * time.Minute)
	expired := sup.ExpireStale(past)

	assert.Equal(t, []string{p.IntentID}, expired)
	assert.Equal(t, StateCanceled, sup.Order(p.IntentID).State)
}

func TestExpireStaleLeavesFreshOrdersAlone(t *testing.T) {
	broker := &fakeBroker{}
	sup := NewSupervisor(broker, time.Minute)

	p, err := sup.Submit(validRequest(), cleanPreSubmit())
	require.NoError(t, err)

	soon := p.CreatedAt.Add(10 * time.Second)
	expired := sup.ExpireStale(soon)

	assert.Empty(t, expired)
	assert.Equal(t, StateSubmitted, sup.Order(p.IntentID).State)
}

func TestReconcileActivatesKillSwitchOnMismatch(t *testing.T) {
	broker := &fakeBroker{netPosition: 3}
	sup := NewSupervisor(broker, time.Minute)
	sup.SetExpectedNetQty(1)

	err := sup.Reconcile()
	require.NoError(t, err)

	assert.True(t, sup.KillSwitchActive(time.Now()))
	assert.True(t, broker.canceledAll)
	assert.True(t, broker.flattened)
}

func TestReconcileNoopWhenPositionsMatch(t *testing.T) {
	broker := &fakeBroker{netPosition: 2}
	sup := NewSupervisor(broker, time.Minute)
	sup.SetExpectedNetQty(2)

	err := sup.Reconcile()
	require.NoError(t, err)

	assert.False(t, sup.KillSwitchActive(time.Now()))
	assert.False(t, broker.canceledAll)
}

func TestKillSwitchStickyByDefault(t *testing.T) {
	broker := &fakeBroker{}
	sup := NewSupervisor(broker, time.Minute)

	sup.ActivateKillSwitch(ReasonPositionMismatch, time.Time{})
	assert.True(t, sup.KillSwitchActive(time.Now().Add(999*time.Hour)))

	sup.ReleaseKillSwitch()
	assert.False(t, sup.KillSwitchActive(time.Now()))
}

func TestKillSwitchTimeBoundedAutoExpires(t *testing.T) {
	broker := &fakeBroker{}
	sup := NewSupervisor(broker, time.Minute)

	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	sup.ActivateKillSwitch("AUTO_FREEZE", now.Add(time.Hour))

	assert.True(t, sup.KillSwitchActive(now.Add(30*time.Minute)))
	assert.False(t, sup.KillSwitchActive(now.Add(2*time.Hour)))
}

func TestSubmitAfterRejectionIsNotResubmittedToBroker(t *testing.T) {
	broker := &fakeBroker{rejectEntry: true}
	sup := NewSupervisor(broker, time.Minute)

	_, err := sup.Submit(validRequest(), cleanPreSubmit())
	require.NoError(t, err)

	_, err = sup.Submit(validRequest(), cleanPreSubmit())
	require.NoError(t, err)

	assert.Equal(t, 1, broker.entryCalls)
}
