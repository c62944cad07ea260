package order

import (
	"context"
	"sync"
	"time"
)

// MemStore lives for the process lifetime only.
type MemStore struct {
	mu   sync.RWMutex
	m    map[string]Order
	keys []string
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]Order{}}
}

func (s *MemStore) Ping(context.Context) error { return nil }

func (s *MemStore) Put(_ context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[o.PaymentIntentID]; !ok {
		s.keys = append(s.keys, o.PaymentIntentID)
	}
	s.m[o.PaymentIntentID] = o
	return nil
}

func (s *MemStore) Get(_ context.Context, paymentIntentID string) (Order, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.m[paymentIntentID]
	return o, ok, nil
}

func (s *MemStore) List(context.Context) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.m[k])
	}
	return out, nil
}

func (s *MemStore) UpdateStatus(_ context.Context, paymentIntentID, status string, at time.Time) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.m[paymentIntentID]
	if !ok {
		return Order{}, ErrNotFound
	}

	at = at.UTC()
	o.Status = status
	o.UpdatedAt = &at
	s.m[paymentIntentID] = o
	return o, nil
}
