package execution

import "github.com/google/uuid"

// NewIntentID generates a fresh idempotency key for an order intent
// (spec.md §3 "Order (parent)": "intent_id (unique)").
func NewIntentID() string {
	return "intent-" + uuid.NewString()
}

// NewClientOrderID generates the broker-facing client order id for a
// parent order, distinct from its internal intent_id.
func NewClientOrderID() string {
	return "cl-" + uuid.NewString()
}
