package auth

import (
	"context"
	"errors"

	"github.com/tendant/simple-cards/pkg/domain"
)

// LoginOutcome labels the result of a login attempt.
type LoginOutcome string

const (
	LoginSuccess            LoginOutcome = "success"
	LoginInvalidCredentials LoginOutcome = "invalid_credentials"
	LoginLocked             LoginOutcome = "locked"
	LoginBlocked            LoginOutcome = "blocked"
	LoginError              LoginOutcome = "error"
)

// LoginObserver is notified of every login outcome and every new lockout.
type LoginObserver interface {
	ObserveLogin(outcome LoginOutcome)
	ObserveLockout()
}

// UserByEmailGetter looks up an identity by normalized email and returns
// domain.ErrUserNotFound when none exists.
type UserByEmailGetter interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// CredentialVerifier exchanges email and password for a session token.
type CredentialVerifier struct {
	users    UserByEmailGetter
	attempts *LoginAttemptTracker
	tokens   *TokenProvider
	observer LoginObserver
}

// NewCredentialVerifier creates a verifier. observer may be nil.
func NewCredentialVerifier(users UserByEmailGetter, attempts *LoginAttemptTracker, tokens *TokenProvider, observer LoginObserver) *CredentialVerifier {
	return &CredentialVerifier{users: users, attempts: attempts, tokens: tokens, observer: observer}
}

// Login verifies credentials and returns a signed token.
//
// An unknown email is handled exactly like a wrong password: a hash
// comparison still runs and a failure is recorded against the email, so
// callers cannot tell registered addresses apart.
func (v *CredentialVerifier) Login(ctx context.Context, email, password string) (string, error) {
	key := NormalizeEmail(email)

	status, err := v.attempts.CheckStatus(ctx, key)
	if err != nil {
		return "", v.fail(LoginError, err)
	}
	if status.Blocked {
		return "", v.fail(LoginLocked, &domain.LockedError{Until: status.BlockedUntil, Remaining: status.Remaining})
	}

	user, err := v.users.GetByEmail(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", v.fail(LoginError, err)
	}
	if user == nil {
		verifyDummyPassword(password)
		return "", v.recordFailure(ctx, key)
	}

	if user.IsBlocked {
		return "", v.fail(LoginBlocked, domain.ErrAccountBlocked)
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return "", v.recordFailure(ctx, key)
	}

	if err := v.attempts.RecordSuccess(ctx, key); err != nil {
		return "", v.fail(LoginError, err)
	}
	v.observe(LoginSuccess)
	return v.tokens.Issue(user), nil
}

func (v *CredentialVerifier) recordFailure(ctx context.Context, key string) error {
	res, err := v.attempts.RecordFailure(ctx, key)
	if err != nil {
		return v.fail(LoginError, err)
	}
	if res.Blocked {
		if res.Attempts == v.attempts.Policy().MaxAttempts && v.observer != nil {
			v.observer.ObserveLockout()
		}
		return v.fail(LoginLocked, &domain.LockedError{
			Until:     *res.BlockedUntil,
			Remaining: res.BlockedUntil.Sub(v.attempts.now()),
		})
	}
	return v.fail(LoginInvalidCredentials, &domain.CredentialsError{RemainingAttempts: res.RemainingAttempts})
}

func (v *CredentialVerifier) fail(outcome LoginOutcome, err error) error {
	v.observe(outcome)
	return err
}

func (v *CredentialVerifier) observe(outcome LoginOutcome) {
	if v.observer != nil {
		v.observer.ObserveLogin(outcome)
	}
}
