package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents the account.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Phone        string
	IsAdmin      bool
	IsBusiness   bool
	IsBlocked    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanOwnCards reports whether the account may publish cards.
func (u *User) CanOwnCards() bool {
	return u.IsBusiness && !u.IsBlocked
}
