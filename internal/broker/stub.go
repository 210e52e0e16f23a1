package broker

import (
	"context"
	"fmt"
	"sync"
)

// StubClient is an in-memory RawClient for tests and historical replay,
// grounded on exchanges/kraken/mock.go's fake-transport idea but kept
// in-process rather than over httptest, since nothing here crosses the
// network boundary the real venue adapters would.
type StubClient struct {
	mu sync.Mutex

	nextOrderID int
	netPosition int

	placed    []OrderSpec
	canceled  []string
	canceledAll bool
	flattened bool

	failNextPlace bool
}

func NewStubClient() *StubClient {
	return &StubClient{}
}

func (s *StubClient) PlaceOrder(ctx context.Context, spec OrderSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNextPlace {
		s.failNextPlace = false
		return "", fmt.Errorf("broker: stub transport failure")
	}
	s.nextOrderID++
	id := fmt.Sprintf("stub-order-%d", s.nextOrderID)
	s.placed = append(s.placed, spec)

	delta := spec.Qty
	if spec.Side == "SELL" {
		delta = -delta
	}
	s.netPosition += delta

	return id, nil
}

func (s *StubClient) CancelOrder(ctx context.Context, brokerOrderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled = append(s.canceled, brokerOrderID)
	return nil
}

func (s *StubClient) CancelAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceledAll = true
	return nil
}

func (s *StubClient) Flatten(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flattened = true
	s.netPosition = 0
	return nil
}

func (s *StubClient) NetPosition(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.netPosition, nil
}

// FailNextPlace makes the next PlaceOrder call return an error, for
// exercising the circuit breaker's failure-counting path.
func (s *StubClient) FailNextPlace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextPlace = true
}

// Placed returns every order spec submitted so far, in submission order.
func (s *StubClient) Placed() []OrderSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OrderSpec, len(s.placed))
	copy(out, s.placed)
	return out
}
