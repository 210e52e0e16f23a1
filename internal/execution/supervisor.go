package execution

import (
	"fmt"
	"sync"
	"time"
)

// DomainError is a structured rejection reason surfaced by the supervisor's
// invariant checks (spec.md §4.6).
type DomainError struct {
	Reason string
}

func (e *DomainError) Error() string { return e.Reason }

const (
	ReasonNoMarketEntries    = "NO_MARKET_ENTRIES"
	ReasonBracketRequired    = "BRACKET_REQUIRED"
	ReasonKillSwitchActive   = "KILL_SWITCH_ACTIVE"
	ReasonAccountDataMissing = "ACCOUNT_DATA_MISSING"
	ReasonAccountNotReady    = "ACCOUNT_NOT_READY"
	ReasonSessionNotTradable = "SESSION_NOT_TRADABLE"
	ReasonPositionMismatch   = "POSITION_MISMATCH"
)

// SubmitRequest is the supervisor's entry-order request (spec.md §3
// "Decision result" OrderIntent, translated to the execution boundary).
type SubmitRequest struct {
	IntentID    string
	Direction   int // +1 long, -1 short
	Contracts   int
	EntryType   EntryType
	EntryPrice  float64
	StopPrice   float64
	TargetPrice float64 // zero means no target leg
}

// PreSubmitContext is the state the supervisor re-checks immediately
// before sending any order (spec.md §4.6 "Pre-submit gate").
type PreSubmitContext struct {
	KillSwitchActive bool
	AccountPresent   bool
	EquityUSD        float64
	SessionTradable  bool
}

// Broker is the minimal adapter surface the supervisor drives. Its wire
// protocol, auth and transport retries are out of scope (spec.md §1); this
// interface is the contract the supervisor is written against.
type Broker interface {
	SubmitEntry(req SubmitRequest) (brokerOrderID string, err error)
	SubmitChild(parentBrokerOrderID string, role ChildRole, side string, qty int, price float64) (brokerOrderID string, err error)
	CancelOrder(brokerOrderID string) error
	CancelAll() error
	Flatten() error
	NetPosition() (int, error)
}

// Supervisor owns every parent/child order record and the position view
// (spec.md §3 "Ownership").
type Supervisor struct {
	mu sync.Mutex

	broker Broker

	orders map[string]*ParentOrder // intent_id -> parent
	byBrokerID map[string]*ParentOrder

	orderTTL time.Duration

	killSwitchActive bool
	killSwitchReason string
	killSwitchUntil  time.Time // zero means sticky (no auto-expiry)

	expectedNetQty int
}

// NewSupervisor constructs a supervisor with the given order TTL (spec.md
// §4.6 "TTL"; default 90s per spec).
func NewSupervisor(broker Broker, orderTTL time.Duration) *Supervisor {
	if orderTTL <= 0 {
		orderTTL = 90 * time.Second
	}
	return &Supervisor{
		broker:     broker,
		orders:     make(map[string]*ParentOrder),
		byBrokerID: make(map[string]*ParentOrder),
		orderTTL:   orderTTL,
	}
}

// Submit enforces idempotent submission keyed by intent_id: a repeated
// intent_id returns the existing parent order without re-contacting the
// broker (spec.md §4.6 "Idempotent submission").
func (s *Supervisor) Submit(req SubmitRequest, ctx PreSubmitContext) (*ParentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.orders[req.IntentID]; ok {
		return existing, nil
	}

	if req.EntryType != EntryLimit && req.EntryType != EntryStopLimit {
		return nil, &DomainError{Reason: ReasonNoMarketEntries}
	}
	if req.StopPrice == 0 {
		return nil, &DomainError{Reason: ReasonBracketRequired}
	}

	if err := s.preSubmitGate(ctx); err != nil {
		return nil, err
	}

	parent := &ParentOrder{
		IntentID:      req.IntentID,
		ClientOrderID: NewClientOrderID(),
		State:         StateNew,
		Direction:   req.Direction,
		Contracts:   req.Contracts,
		EntryType:   req.EntryType,
		EntryPrice:  req.EntryPrice,
		StopPrice:   req.StopPrice,
		TargetPrice: req.TargetPrice,
		CreatedAt:   submitTime(),
	}
	s.orders[req.IntentID] = parent

	brokerID, err := s.broker.SubmitEntry(req)
	if err != nil {
		parent.State = StateRejected
		parent.RejectReason = err.Error()
		return parent, nil
	}

	parent.BrokerOrderID = brokerID
	parent.State = StateSubmitted
	s.byBrokerID[brokerID] = parent

	return parent, nil
}

// submitTime is the supervisor's wall-clock source, time.Now by default and
// overridable in tests. Kept here as a single seam rather than scattered
// time.Now() calls, matching the teacher's preference for one time source per
// subsystem (infra/breakers/breakers.go's clock field).
var submitTime = time.Now

func (s *Supervisor) preSubmitGate(ctx PreSubmitContext) error {
	if s.killSwitchActive || ctx.KillSwitchActive {
		return &DomainError{Reason: ReasonKillSwitchActive}
	}
	if !ctx.AccountPresent {
		return &DomainError{Reason: ReasonAccountDataMissing}
	}
	if ctx.EquityUSD <= 0 {
		return &DomainError{Reason: ReasonAccountNotReady}
	}
	if !ctx.SessionTradable {
		return &DomainError{Reason: ReasonSessionNotTradable}
	}
	return nil
}

// OnAck transitions a parent to ACCEPTED once the broker confirms the
// order is working.
func (s *Supervisor) OnAck(intentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.orders[intentID]; ok && p.State == StateSubmitted {
		p.State = StateAccepted
	}
}

// OnFill records a fill against the parent's entry order, spawning bracket
// children on the first fill and accumulating quantity on partials
// (spec.md §4.6 "Parent/child lifecycle").
func (s *Supervisor) OnFill(intentID string, fillQty int, fillPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.orders[intentID]
	if !ok {
		return fmt.Errorf("execution: unknown intent_id %q", intentID)
	}

	firstFill := p.FilledQty == 0

	totalNotional := p.AvgFillPrice*float64(p.FilledQty) + fillPrice*float64(fillQty)
	p.FilledQty += fillQty
	if p.FilledQty > 0 {
		p.AvgFillPrice = totalNotional / float64(p.FilledQty)
	}

	if p.Remaining() == 0 {
		p.State = StateFilled
	} else {
		p.State = StatePartial
	}

	if firstFill {
		side := "BUY"
		if p.Direction < 0 {
			side = "SELL"
		}
		stopSide := oppositeSide(side)

		stopID, err := s.broker.SubmitChild(p.BrokerOrderID, ChildStop, stopSide, p.Contracts, p.StopPrice)
		if err != nil {
			return fmt.Errorf("execution: submit stop child: %w", err)
		}
		p.Children = append(p.Children, &ChildOrder{OrderID: stopID, Role: ChildStop, Side: stopSide, Qty: p.Contracts, Price: p.StopPrice, State: StateWorking})

		if p.TargetPrice != 0 {
			targetID, err := s.broker.SubmitChild(p.BrokerOrderID, ChildTarget, stopSide, p.Contracts, p.TargetPrice)
			if err != nil {
				return fmt.Errorf("execution: submit target child: %w", err)
			}
			p.Children = append(p.Children, &ChildOrder{OrderID: targetID, Role: ChildTarget, Side: stopSide, Qty: p.Contracts, Price: p.TargetPrice, State: StateWorking})
		}
	}

	return nil
}

// OnChildFilled cancels the sibling bracket leg and reconciles the parent
// to FILLED or CANCELED (spec.md §4.6 "On target or stop child fill").
func (s *Supervisor) OnChildFilled(intentID string, filledRole ChildRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.orders[intentID]
	if !ok {
		return fmt.Errorf("execution: unknown intent_id %q", intentID)
	}

	var sibling *ChildOrder
	for _, c := range p.Children {
		if c.Role != filledRole {
			sibling = c
		} else {
			c.State = StateFilled
			c.FilledQty = c.Qty
		}
	}

	if sibling != nil && sibling.State != StateFilled && sibling.State != StateCanceled {
		if err := s.broker.CancelOrder(sibling.OrderID); err != nil {
			return fmt.Errorf("execution: cancel sibling leg: %w", err)
		}
		sibling.State = StateCanceled
	}

	p.State = StateFilled
	return nil
}

// OnReject marks a parent REJECTED with no children (spec.md §4.6 "On
// rejection").
func (s *Supervisor) OnReject(intentID string, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.orders[intentID]; ok {
		p.State = StateRejected
		p.RejectReason = reason
	}
}

// ExpireStale cancels every parent in NEW, WORKING or ACCEPTED state older
// than the configured TTL (spec.md §4.6 "TTL"). A SUBMITTED parent that has
// not yet been acknowledged via OnAck is not swept.
func (s *Supervisor) ExpireStale(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, p := range s.orders {
		if p.State != StateNew && p.State != StateWorking && p.State != StateAccepted {
			continue
		}
		if now.Sub(p.CreatedAt) <= s.orderTTL {
			continue
		}
		if err := s.broker.CancelOrder(p.BrokerOrderID); err == nil {
			p.State = StateCanceled
			expired = append(expired, id)
		}
	}
	return expired
}

// Reconcile compares the supervisor's own expected net position to the
// broker's reported position and, on divergence, activates the kill-switch,
// cancels all orders and issues a flatten — the single case in which a
// market order is permitted (spec.md §4.6 "Position reconciliation").
func (s *Supervisor) Reconcile() error {
	s.mu.Lock()
	brokerQty, err := s.broker.NetPosition()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("execution: read broker position: %w", err)
	}

	if brokerQty == s.expectedNetQty {
		s.mu.Unlock()
		return nil
	}

	s.killSwitchActive = true
	s.killSwitchReason = ReasonPositionMismatch
	s.killSwitchUntil = time.Time{}
	s.mu.Unlock()

	if err := s.broker.CancelAll(); err != nil {
		return fmt.Errorf("execution: cancel all during mismatch recovery: %w", err)
	}
	if err := s.broker.Flatten(); err != nil {
		return fmt.Errorf("execution: flatten during mismatch recovery: %w", err)
	}
	return nil
}

// SetExpectedNetQty lets the caller (the in-trade manager or orchestrator)
// update the supervisor's own record of expected position after fills.
func (s *Supervisor) SetExpectedNetQty(qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedNetQty = qty
}

// ActivateKillSwitch sets a sticky freeze, or a time-bounded one if until
// is non-zero (spec.md §4.6 "Kill-switch semantics": drawdown/mismatch
// freezes are sticky; only an automatic time-bounded freeze may auto-expire).
func (s *Supervisor) ActivateKillSwitch(reason string, until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killSwitchActive = true
	s.killSwitchReason = reason
	s.killSwitchUntil = until
}

// KillSwitchActive reports whether the kill-switch is currently in effect,
// auto-expiring a time-bounded freeze whose window has passed.
func (s *Supervisor) KillSwitchActive(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.killSwitchActive {
		return false
	}
	if !s.killSwitchUntil.IsZero() && now.After(s.killSwitchUntil) {
		s.killSwitchActive = false
		s.killSwitchReason = ""
		return false
	}
	return true
}

// ReleaseKillSwitch manually clears the kill-switch (spec.md §4.6: "Sticky
// (requires manual release)").
func (s *Supervisor) ReleaseKillSwitch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killSwitchActive = false
	s.killSwitchReason = ""
	s.killSwitchUntil = time.Time{}
}

// Order returns the parent order for an intent_id, or nil if unknown.
func (s *Supervisor) Order(intentID string) *ParentOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[intentID]
}
