package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cards/internal/testutil"
	"github.com/tendant/simple-cards/pkg/domain"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
		wantOK  bool
	}{
		{name: "none", headers: nil},
		{name: "x-auth-token", headers: map[string]string{"x-auth-token": "abc"}, want: "abc", wantOK: true},
		{name: "x-auth-token wins", headers: map[string]string{"x-auth-token": "abc", "Authorization": "Bearer xyz"}, want: "abc", wantOK: true},
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer xyz"}, want: "xyz", wantOK: true},
		{name: "bearer case-insensitive", headers: map[string]string{"Authorization": "bearer xyz"}, want: "xyz", wantOK: true},
		{name: "bearer without token", headers: map[string]string{"Authorization": "Bearer "}},
		{name: "raw header", headers: map[string]string{"Authorization": "xyz"}, want: "xyz", wantOK: true},
		{name: "blank", headers: map[string]string{"Authorization": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			got, ok := ExtractToken(r)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuard_Authenticate(t *testing.T) {
	tokens := newTestTokenProvider(t)
	g := NewGuard(tokens, testutil.NewUserStore())
	user := &domain.User{ID: uuid.New(), IsAdmin: true}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := g.Authenticate(r)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	r.Header.Set("Authorization", "Bearer junk")
	_, err = g.Authenticate(r)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	r.Header.Set("Authorization", "Bearer "+tokens.Issue(user))
	p, err := g.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: user.ID, IsAdmin: true}, p)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	want := Principal{UserID: uuid.New(), IsBusiness: true}
	got, ok := PrincipalFromContext(ContextWithPrincipal(context.Background(), want))
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestChecks(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	admin := Principal{UserID: uuid.New(), IsAdmin: true}
	business := Principal{UserID: owner, IsBusiness: true}
	regular := Principal{UserID: uuid.New()}

	assert.NoError(t, RequireAdmin()(ctx, admin))
	assert.ErrorIs(t, RequireAdmin()(ctx, business), domain.ErrForbidden)

	assert.NoError(t, RequireBusiness()(ctx, business))
	assert.ErrorIs(t, RequireBusiness()(ctx, regular), domain.ErrForbidden)
	assert.ErrorIs(t, RequireBusiness()(ctx, admin), domain.ErrForbidden)

	assert.NoError(t, RequireOwnerOrAdmin(owner)(ctx, business))
	assert.NoError(t, RequireOwnerOrAdmin(owner)(ctx, admin))
	assert.ErrorIs(t, RequireOwnerOrAdmin(owner)(ctx, regular), domain.ErrForbidden)
}

func TestAll_StopsAtFirstFailure(t *testing.T) {
	var calls []string
	mk := func(name string, err error) Check {
		return func(context.Context, Principal) error {
			calls = append(calls, name)
			return err
		}
	}
	boom := errors.New("boom")

	err := All(mk("a", nil), mk("b", boom), mk("c", nil))(context.Background(), Principal{})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.NoError(t, All()(context.Background(), Principal{}))
}

func TestGuard_RequireNotBlocked(t *testing.T) {
	ctx := context.Background()
	active := &domain.User{ID: uuid.New()}
	blocked := &domain.User{ID: uuid.New(), IsBlocked: true}
	users := testutil.NewUserStore(active, blocked)
	g := NewGuard(newTestTokenProvider(t), users)

	assert.NoError(t, g.RequireNotBlocked()(ctx, Principal{UserID: active.ID}))
	assert.ErrorIs(t, g.RequireNotBlocked()(ctx, Principal{UserID: blocked.ID}), domain.ErrAccountBlocked)
	assert.ErrorIs(t, g.RequireNotBlocked()(ctx, Principal{UserID: uuid.New()}), domain.ErrInvalidToken)

	users.Err = errors.New("db down")
	err := g.RequireNotBlocked()(ctx, Principal{UserID: active.ID})
	assert.EqualError(t, err, "db down")
}

func TestGuard_BlockAppliesToIssuedTokens(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), IsBusiness: true}
	users := testutil.NewUserStore(user)
	tokens := newTestTokenProvider(t)
	g := NewGuard(tokens, users)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(TokenHeader, tokens.Issue(user))

	p, err := g.Authenticate(r)
	require.NoError(t, err)
	require.NoError(t, g.RequireNotBlocked()(ctx, p))

	require.NoError(t, users.SetBlocked(ctx, user.ID, true))

	p, err = g.Authenticate(r)
	require.NoError(t, err, "token itself remains valid")
	assert.ErrorIs(t, g.RequireNotBlocked()(ctx, p), domain.ErrAccountBlocked)
}
