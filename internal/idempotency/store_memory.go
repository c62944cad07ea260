package idempotency

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	rec       Record
	expiresAt time.Time
}

// maxSweepInterval bounds how long expired keys linger between sweeps.
const maxSweepInterval = time.Minute

// MemStore drops expired keys during Claim, at most once per sweep interval.
type MemStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	m         map[string]memEntry
	now       func() time.Time
	lastSweep time.Time
}

func NewMemStore(ttl time.Duration) *MemStore {
	return &MemStore{ttl: ttl, m: map[string]memEntry{}, now: time.Now}
}

func (s *MemStore) Claim(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	if e, ok := s.m[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}

	s.m[key] = memEntry{
		rec:       Record{Key: key, Status: StatusInProgress, CreatedAt: now.UTC()},
		expiresAt: now.Add(s.ttl),
	}
	return true, nil
}

func (s *MemStore) sweep(now time.Time) {
	interval := s.ttl
	if interval <= 0 || interval > maxSweepInterval {
		interval = maxSweepInterval
	}
	if now.Sub(s.lastSweep) < interval {
		return
	}
	s.lastSweep = now

	for k, e := range s.m {
		if !now.Before(e.expiresAt) {
			delete(s.m, k)
		}
	}
}

func (s *MemStore) Complete(_ context.Context, key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return ErrNotFound
	}

	e.rec.Status = StatusDone
	e.rec.OrderID = rec.OrderID
	e.rec.PaymentIntentID = rec.PaymentIntentID
	s.m[key] = e
	return nil
}

func (s *MemStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *MemStore) Get(_ context.Context, key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return Record{}, false, nil
	}
	return e.rec, true, nil
}
