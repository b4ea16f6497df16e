package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Authentication errors
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInvalidToken           = errors.New("invalid token")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrAccountLocked          = errors.New("account temporarily locked due to too many failed login attempts")
	ErrAccountBlocked         = errors.New("account blocked by administrator")
	ErrForbidden              = errors.New("access denied")
)

// Storage and allocation errors
var (
	ErrNotFound            = errors.New("not found")
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrCardNotFound        = fmt.Errorf("card %w", ErrNotFound)
	ErrUniquenessConflict  = errors.New("uniqueness conflict")
	ErrUserAlreadyExists   = &ConflictError{Field: "email", Message: "user already exists"}
	ErrBizNumberTaken      = &ConflictError{Field: "bizNumber", Message: "business number already taken"}
	ErrAllocationExhausted = errors.New("failed to allocate a unique business number")
)

// Validation errors
var (
	ErrValidation = errors.New("validation failed")
)

// CredentialsError is an invalid-credentials failure with the number of attempts left
// before the identity is locked.
type CredentialsError struct {
	RemainingAttempts int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("%s, %d attempts remaining", ErrInvalidCredentials, e.RemainingAttempts)
}

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }

// LockedError is returned while a lockout is in effect.
type LockedError struct {
	Until     time.Time
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account is blocked due to too many failed login attempts, try again in %d hours", e.RemainingHours())
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// RemainingHours rounds the remaining lock time up to whole hours, never below one.
func (e *LockedError) RemainingHours() int {
	h := int(math.Ceil(e.Remaining.Hours()))
	if h < 1 {
		return 1
	}
	return h
}

// RetryAfterSeconds rounds the remaining lock time up to whole seconds.
func (e *LockedError) RetryAfterSeconds() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

// ConflictError is a uniqueness violation reported by storage.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return ErrUniquenessConflict }

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field-level failures.
type ValidationError struct {
	Fields []FieldError
}

// Add appends a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no failures were collected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
