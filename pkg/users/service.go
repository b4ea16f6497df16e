// Package users implements account administration on top of the identity store.
package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/tendant/simple-cards/pkg/auth"
	"github.com/tendant/simple-cards/pkg/domain"
)

// Store is the identity store. Lookups return domain.ErrUserNotFound.
// Delete cascades to the user's cards and likes.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	store    Store
	attempts *auth.LoginAttemptTracker
}

func NewService(store Store, attempts *auth.LoginAttemptTracker) *Service {
	return &Service{store: store, attempts: attempts}
}

// Get returns the user when p is that user or an admin.
func (s *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*domain.User, error) {
	if err := auth.RequireOwnerOrAdmin(id)(ctx, p); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*domain.User, error) {
	return s.store.List(ctx)
}

// SetBlocked applies or lifts an administrative block. Admins cannot block
// themselves, which would lock the last admin out.
func (s *Service) SetBlocked(ctx context.Context, p auth.Principal, id uuid.UUID, blocked bool) (*domain.User, error) {
	if blocked && p.UserID == id {
		return nil, domain.ErrForbidden
	}
	if err := s.store.SetBlocked(ctx, id, blocked); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Delete removes the user when p is that user or an admin, and returns it.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) (*domain.User, error) {
	user, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	if err := s.attempts.RecordSuccess(ctx, user.Email); err != nil {
		return nil, err
	}
	return user, nil
}

// ResetLoginAttempts lifts a lockout for email. Resetting an unknown or
// unlocked email succeeds.
func (s *Service) ResetLoginAttempts(ctx context.Context, email string) error {
	return s.attempts.AdminReset(ctx, email)
}
