// Package testutil provides in-memory stores for unit tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/tendant/simple-cards/pkg/domain"
)

// AttemptStore is a mutex-guarded map with the same semantics as the
// Postgres and Redis login attempt stores.
type AttemptStore struct {
	mu      sync.Mutex
	records map[string]domain.LoginAttempt

	// Err, when set, is returned from every call.
	Err error
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{records: make(map[string]domain.LoginAttempt)}
}

func (s *AttemptStore) Get(_ context.Context, key string) (*domain.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *AttemptStore) IncrementFailure(_ context.Context, key string, now time.Time, threshold int, blockedUntil time.Time) (*domain.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	rec, ok := s.records[key]
	if !ok || rec.Expired(now) {
		rec = domain.LoginAttempt{Email: key}
	}
	rec.Attempts++
	rec.LastAttemptAt = now
	if rec.Attempts >= threshold && !rec.IsBlocked(now) {
		until := blockedUntil
		rec.BlockedUntil = &until
	}
	s.records[key] = rec
	return &rec, nil
}

func (s *AttemptStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.records, key)
	return nil
}

func (s *AttemptStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for k, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}

// Put seeds a record.
func (s *AttemptStore) Put(rec domain.LoginAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Email] = rec
}

// Len returns the number of stored records.
func (s *AttemptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
