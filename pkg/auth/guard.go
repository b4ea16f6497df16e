package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/simple-cards/pkg/domain"
)

// TokenHeader is the primary header carrying the session token.
const TokenHeader = "x-auth-token"

// Principal is the authenticated caller as described by its token claims.
type Principal struct {
	UserID     uuid.UUID
	IsAdmin    bool
	IsBusiness bool
}

type principalKey struct{}

// ContextWithPrincipal returns a copy of ctx carrying p.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the principal stored by ContextWithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ExtractToken reads the token from x-auth-token, then Authorization: Bearer,
// then the raw Authorization value.
func ExtractToken(r *http.Request) (string, bool) {
	if t := strings.TrimSpace(r.Header.Get(TokenHeader)); t != "" {
		return t, true
	}

	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" || strings.EqualFold(h, "Bearer") {
		return "", false
	}
	if scheme, rest, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
		rest = strings.TrimSpace(rest)
		return rest, rest != ""
	}
	return h, true
}

// UserByIDGetter looks up an identity by id and returns domain.ErrUserNotFound
// when none exists.
type UserByIDGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Guard authenticates requests and evaluates access checks.
type Guard struct {
	tokens *TokenProvider
	users  UserByIDGetter
}

func NewGuard(tokens *TokenProvider, users UserByIDGetter) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// Authenticate resolves the request's token into a Principal.
func (g *Guard) Authenticate(r *http.Request) (Principal, error) {
	raw, ok := ExtractToken(r)
	if !ok {
		return Principal{}, domain.ErrAuthenticationRequired
	}

	claims, ok := g.tokens.Verify(raw)
	if !ok {
		return Principal{}, domain.ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, domain.ErrInvalidToken
	}
	return Principal{UserID: id, IsAdmin: claims.IsAdmin, IsBusiness: claims.IsBusiness}, nil
}

// Check is an access predicate evaluated against an authenticated principal.
type Check func(ctx context.Context, p Principal) error

// All runs checks in order and returns the first failure.
func All(checks ...Check) Check {
	return func(ctx context.Context, p Principal) error {
		for _, c := range checks {
			if err := c(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}
}

func RequireAdmin() Check {
	return func(_ context.Context, p Principal) error {
		if !p.IsAdmin {
			return domain.ErrForbidden
		}
		return nil
	}
}

func RequireBusiness() Check {
	return func(_ context.Context, p Principal) error {
		if !p.IsBusiness {
			return domain.ErrForbidden
		}
		return nil
	}
}

// RequireOwnerOrAdmin passes when the principal is owner or an admin.
func RequireOwnerOrAdmin(owner uuid.UUID) Check {
	return func(_ context.Context, p Principal) error {
		if p.IsAdmin || p.UserID == owner {
			return nil
		}
		return domain.ErrForbidden
	}
}

// RequireNotBlocked reloads the identity so an administrative block takes
// effect on tokens issued before it. A deleted identity invalidates the token.
func (g *Guard) RequireNotBlocked() Check {
	return func(ctx context.Context, p Principal) error {
		u, err := g.users.GetByID(ctx, p.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		if err != nil {
			return err
		}
		if u.IsBlocked {
			return domain.ErrAccountBlocked
		}
		return nil
	}
}
