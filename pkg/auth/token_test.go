package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cards/pkg/domain"
)

func newTestTokenProvider(t *testing.T) *TokenProvider {
	t.Helper()
	p, err := NewTokenProvider(TokenConfig{Secret: []byte("test-secret-at-least-32-bytes-long!!")})
	require.NoError(t, err)
	return p
}

func TestNewTokenProvider_RequiresSecret(t *testing.T) {
	_, err := NewTokenProvider(TokenConfig{})
	assert.Error(t, err)
}

func TestNewTokenProvider_Defaults(t *testing.T) {
	p := newTestTokenProvider(t)
	assert.Equal(t, DefaultTokenTTL, p.TTL())
	assert.Equal(t, DefaultIssuer, p.config.Issuer)
}

func TestTokenProvider_RoundTrip(t *testing.T) {
	p := newTestTokenProvider(t)
	user := &domain.User{ID: uuid.New(), IsBusiness: true, IsAdmin: false}

	claims, ok := p.Verify(p.Issue(user))

	require.True(t, ok)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.True(t, claims.IsBusiness)
	assert.False(t, claims.IsAdmin)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.Equal(t, DefaultTokenTTL, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestTokenProvider_Verify_Rejects(t *testing.T) {
	p := newTestTokenProvider(t)
	user := &domain.User{ID: uuid.New(), IsAdmin: true}
	valid := p.Issue(user)

	tampered := func() string {
		parts := strings.Split(valid, ".")
		payload := []byte(parts[1])
		mid := len(payload) / 2
		if payload[mid] == 'A' {
			payload[mid] = 'B'
		} else {
			payload[mid] = 'A'
		}
		parts[1] = string(payload)
		return strings.Join(parts, ".")
	}()

	other, err := NewTokenProvider(TokenConfig{Secret: []byte("a-completely-different-secret-value")})
	require.NoError(t, err)

	foreignIssuer, err := NewTokenProvider(TokenConfig{Secret: p.config.Secret, Issuer: "someone-else"})
	require.NoError(t, err)

	expiredProvider := newTestTokenProvider(t)
	expiredProvider.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    DefaultIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		IsAdmin: true,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    DefaultIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(p.config.Secret)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID.String(), Issuer: DefaultIssuer},
	}).SignedString(p.config.Secret)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"tampered":       tampered,
		"wrong secret":   other.Issue(user),
		"foreign issuer": foreignIssuer.Issue(user),
		"expired":        expiredProvider.Issue(user),
		"alg none":       noneToken,
		"alg HS512":      hs512,
		"no expiry":      noExpiry,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			claims, ok := p.Verify(token)
			assert.False(t, ok)
			assert.Nil(t, claims)
		})
	}
}

func TestTokenProvider_ClaimsAreIssuanceSnapshot(t *testing.T) {
	p := newTestTokenProvider(t)
	user := &domain.User{ID: uuid.New(), IsAdmin: true}
	token := p.Issue(user)

	user.IsAdmin = false

	claims, ok := p.Verify(token)
	require.True(t, ok)
	assert.True(t, claims.IsAdmin)
}
