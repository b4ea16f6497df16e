package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tendant/simple-cards/internal/config"
)

// PasswordPolicy defines password complexity requirements.
type PasswordPolicy struct {
	MinLength        int
	MaxLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// NewPasswordPolicy creates a PasswordPolicy from config.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        cfg.MinLength,
		MaxLength:        cfg.MaxLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireNumber:    cfg.RequireNumber,
		RequireSpecial:   cfg.RequireSpecial,
	}
}

// ValidatePassword reports every unmet requirement in a single error.
func (p *PasswordPolicy) ValidatePassword(password string) error {
	n := len([]rune(password))
	if p.MinLength > 0 && n < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return fmt.Errorf("password must be at most %d characters long", p.MaxLength)
	}

	var missing []string
	if p.RequireUppercase && !containsAny(password, unicode.IsUpper) {
		missing = append(missing, "one uppercase letter")
	}
	if p.RequireLowercase && !containsAny(password, unicode.IsLower) {
		missing = append(missing, "one lowercase letter")
	}
	if p.RequireNumber && !containsAny(password, unicode.IsDigit) {
		missing = append(missing, "one number")
	}
	if p.RequireSpecial && !containsAny(password, isSpecial) {
		missing = append(missing, "one special character")
	}
	if len(missing) > 0 {
		return errors.New("password must contain at least " + strings.Join(missing, ", "))
	}
	return nil
}

func containsAny(s string, pred func(rune) bool) bool {
	return strings.IndexFunc(s, pred) >= 0
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}
