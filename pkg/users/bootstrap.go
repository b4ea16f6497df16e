package users

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-cards/pkg/auth"
	"github.com/tendant/simple-cards/pkg/domain"
)

// AdminEnsurer creates an admin or promotes an existing account with the same email.
type AdminEnsurer interface {
	EnsureAdmin(ctx context.Context, user *domain.User) (created bool, err error)
}

// BootstrapAdmin makes sure email belongs to an unblocked admin. The password
// is only used when the account does not exist yet.
func BootstrapAdmin(ctx context.Context, store AdminEnsurer, email, password string) (bool, error) {
	if err := auth.ValidateEmail(email, false, false); err != nil {
		verr := &domain.ValidationError{}
		verr.Add("email", err.Error())
		return false, verr
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	return store.EnsureAdmin(ctx, &domain.User{
		ID:           uuid.New(),
		Email:        auth.NormalizeEmail(email),
		PasswordHash: hash,
		Name:         "Administrator",
		IsAdmin:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
