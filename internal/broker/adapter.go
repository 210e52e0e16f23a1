package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/themirrorplatform/trading-bot-sub000/internal/execution"
)

// Adapter implements execution.Broker over a RawClient, tripping a circuit
// breaker on sustained transport failure (grounded on
// infra/breakers/breakers.go's ReadyToTrip policy: 3 consecutive failures,
// or a >5% failure rate once 20+ requests have been seen) and throttling
// outbound submissions with a token bucket (grounded on the per-key
// limiter idea in infra/limits/binance_weight.go's sibling file).
type Adapter struct {
	raw     RawClient
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	ctx     context.Context
}

// NewAdapter wraps raw with a breaker named for the venue and a rate
// limiter allowing ratePerSec sustained submissions with a burst of burst.
func NewAdapter(raw RawClient, venueName string, ratePerSec float64, burst int) *Adapter {
	settings := gobreaker.Settings{
		Name:     venueName,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
	}
	return &Adapter{
		raw:     raw,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		ctx:     context.Background(),
	}
}

func (a *Adapter) throttledExecute(fn func() (any, error)) (any, error) {
	if err := a.limiter.Wait(a.ctx); err != nil {
		return nil, fmt.Errorf("broker: rate limiter wait: %w", err)
	}
	return a.breaker.Execute(fn)
}

func (a *Adapter) SubmitEntry(req execution.SubmitRequest) (string, error) {
	side := "BUY"
	if req.Direction < 0 {
		side = "SELL"
	}
	result, err := a.throttledExecute(func() (any, error) {
		return a.raw.PlaceOrder(a.ctx, OrderSpec{
			Side:      side,
			OrderType: string(req.EntryType),
			Qty:       req.Contracts,
			Price:     req.EntryPrice,
		})
	})
	if err != nil {
		return "", fmt.Errorf("broker: submit entry: %w", err)
	}
	return result.(string), nil
}

func (a *Adapter) SubmitChild(parentBrokerOrderID string, role execution.ChildRole, side string, qty int, price float64) (string, error) {
	result, err := a.throttledExecute(func() (any, error) {
		return a.raw.PlaceOrder(a.ctx, OrderSpec{
			Side:      side,
			OrderType: "STOP_LIMIT",
			Qty:       qty,
			Price:     price,
			ParentID:  parentBrokerOrderID,
		})
	})
	if err != nil {
		return "", fmt.Errorf("broker: submit child (%s): %w", role, err)
	}
	return result.(string), nil
}

func (a *Adapter) CancelOrder(brokerOrderID string) error {
	_, err := a.throttledExecute(func() (any, error) {
		return nil, a.raw.CancelOrder(a.ctx, brokerOrderID)
	})
	if err != nil {
		return fmt.Errorf("broker: cancel order %s: %w", brokerOrderID, err)
	}
	return nil
}

func (a *Adapter) CancelAll() error {
	_, err := a.throttledExecute(func() (any, error) {
		return nil, a.raw.CancelAll(a.ctx)
	})
	if err != nil {
		return fmt.Errorf("broker: cancel all: %w", err)
	}
	return nil
}

func (a *Adapter) Flatten() error {
	_, err := a.throttledExecute(func() (any, error) {
		return nil, a.raw.Flatten(a.ctx)
	})
	if err != nil {
		return fmt.Errorf("broker: flatten: %w", err)
	}
	return nil
}

func (a *Adapter) NetPosition() (int, error) {
	result, err := a.throttledExecute(func() (any, error) {
		return a.raw.NetPosition(a.ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("broker: net position: %w", err)
	}
	return result.(int), nil
}
