package domain

import "time"

// LoginAttempt is the recent failure history for one login identity.
// It is keyed by normalized email because it must exist before a user lookup succeeds.
type LoginAttempt struct {
	Email         string
	Attempts      int
	LastAttemptAt time.Time
	BlockedUntil  *time.Time
}

// IsBlocked returns true if the block is still in effect at now.
func (a *LoginAttempt) IsBlocked(now time.Time) bool {
	return a.BlockedUntil != nil && now.Before(*a.BlockedUntil)
}

// Expired returns true once the block has elapsed. An expired record is treated as absent.
func (a *LoginAttempt) Expired(now time.Time) bool {
	return a.BlockedUntil != nil && !now.Before(*a.BlockedUntil)
}

// LockoutStatus is the read-only view returned by a status check.
type LockoutStatus struct {
	Blocked      bool
	Remaining    time.Duration
	BlockedUntil time.Time
	Attempts     int
}

// FailureResult describes the state after recording a failed login.
type FailureResult struct {
	Attempts          int
	Blocked           bool
	BlockedUntil      *time.Time
	RemainingAttempts int
}
