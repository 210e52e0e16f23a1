// Package broker adapts the execution supervisor's venue-agnostic Broker
// contract onto a concrete transport, wrapping every outbound call in a
// circuit breaker and a rate limiter (spec.md §6 "Broker adapter": wire
// protocol, auth and venue specifics are explicitly out of scope, but the
// boundary itself is not).
package broker

import "context"

// RawClient is the wire-level surface a venue SDK exposes. Its concrete
// implementation (REST/FIX/WS specifics) is out of scope; only the shape
// of the boundary matters here.
type RawClient interface {
	PlaceOrder(ctx context.Context, spec OrderSpec) (brokerOrderID string, err error)
	CancelOrder(ctx context.Context, brokerOrderID string) error
	CancelAll(ctx context.Context) error
	Flatten(ctx context.Context) error
	NetPosition(ctx context.Context) (int, error)
}

// OrderSpec is the venue-facing order description, translated from the
// supervisor's domain-level SubmitRequest/child-order fields.
type OrderSpec struct {
	Side      string // "BUY" or "SELL"
	OrderType string // "LIMIT" or "STOP_LIMIT"
	Qty       int
	Price     float64
	ParentID  string // non-empty for a bracket child
}
