package auth

import (
	"context"
	"time"

	"github.com/tendant/simple-cards/pkg/domain"
)

const (
	DefaultMaxAttempts   = 3
	DefaultBlockDuration = 24 * time.Hour
)

// LockoutPolicy configures brute-force protection.
type LockoutPolicy struct {
	MaxAttempts   int
	BlockDuration time.Duration
}

// DefaultLockoutPolicy returns three attempts and a 24 hour block.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: DefaultMaxAttempts, BlockDuration: DefaultBlockDuration}
}

// AttemptStore persists failed-login counters. IncrementFailure must be a
// single atomic read-modify-write: concurrent failures for one key may never
// lose an increment.
type AttemptStore interface {
	// Get returns the record for key or (nil, nil) when none exists.
	Get(ctx context.Context, key string) (*domain.LoginAttempt, error)
	// IncrementFailure adds one failure. A record whose block has expired
	// restarts at one. When the new count reaches threshold and the record is
	// not already blocked, blocked-until is set to blockedUntil.
	IncrementFailure(ctx context.Context, key string, now time.Time, threshold int, blockedUntil time.Time) (*domain.LoginAttempt, error)
	Delete(ctx context.Context, key string) error
	// DeleteExpired removes records whose block ended before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LoginAttemptTracker counts failed logins per normalized email and blocks
// further attempts once the policy threshold is reached.
type LoginAttemptTracker struct {
	store  AttemptStore
	policy LockoutPolicy
	now    func() time.Time
}

// NewLoginAttemptTracker creates a tracker. Zero policy fields take defaults.
func NewLoginAttemptTracker(store AttemptStore, policy LockoutPolicy) *LoginAttemptTracker {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.BlockDuration <= 0 {
		policy.BlockDuration = DefaultBlockDuration
	}
	return &LoginAttemptTracker{store: store, policy: policy, now: time.Now}
}

// Policy returns the effective policy.
func (t *LoginAttemptTracker) Policy() LockoutPolicy {
	return t.policy
}

// CheckStatus reports whether key is currently blocked. It never writes.
func (t *LoginAttemptTracker) CheckStatus(ctx context.Context, key string) (domain.LockoutStatus, error) {
	rec, err := t.store.Get(ctx, NormalizeEmail(key))
	if err != nil {
		return domain.LockoutStatus{}, err
	}

	now := t.now()
	if rec == nil || rec.Expired(now) {
		return domain.LockoutStatus{}, nil
	}
	if rec.IsBlocked(now) {
		return domain.LockoutStatus{
			Blocked:      true,
			Remaining:    rec.BlockedUntil.Sub(now),
			BlockedUntil: *rec.BlockedUntil,
			Attempts:     rec.Attempts,
		}, nil
	}
	return domain.LockoutStatus{Attempts: rec.Attempts}, nil
}

// RecordFailure counts one failed attempt for key.
func (t *LoginAttemptTracker) RecordFailure(ctx context.Context, key string) (domain.FailureResult, error) {
	now := t.now()
	rec, err := t.store.IncrementFailure(ctx, NormalizeEmail(key), now, t.policy.MaxAttempts, now.Add(t.policy.BlockDuration))
	if err != nil {
		return domain.FailureResult{}, err
	}

	res := domain.FailureResult{
		Attempts:          rec.Attempts,
		RemainingAttempts: max(0, t.policy.MaxAttempts-rec.Attempts),
	}
	if rec.IsBlocked(now) {
		res.Blocked = true
		res.BlockedUntil = rec.BlockedUntil
	}
	return res, nil
}

// RecordSuccess clears the counter for key. Clearing an absent key is not an error.
func (t *LoginAttemptTracker) RecordSuccess(ctx context.Context, key string) error {
	return t.store.Delete(ctx, NormalizeEmail(key))
}

// AdminReset lifts a lockout for key.
func (t *LoginAttemptTracker) AdminReset(ctx context.Context, key string) error {
	key = NormalizeEmail(key)
	if key == "" {
		verr := &domain.ValidationError{}
		verr.Add("email", errEmailRequired.Error())
		return verr
	}
	return t.store.Delete(ctx, key)
}

// Sweep removes records whose block has expired and returns how many were removed.
func (t *LoginAttemptTracker) Sweep(ctx context.Context) (int64, error) {
	return t.store.DeleteExpired(ctx, t.now())
}
