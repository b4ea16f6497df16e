package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tendant/simple-cards/pkg/domain"
)

const (
	DefaultTokenTTL = time.Hour
	DefaultIssuer   = "simple-cards"
)

// TokenConfig holds token signing configuration.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Claims is the signed claim set. Role flags are a snapshot taken at issuance.
type Claims struct {
	jwt.RegisteredClaims
	IsBusiness bool `json:"isBusiness"`
	IsAdmin    bool `json:"isAdmin"`
}

// TokenProvider issues and verifies stateless HS256 session tokens.
type TokenProvider struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenProvider fails on an empty secret so a misconfigured deployment
// refuses to start instead of signing with a blank key.
func NewTokenProvider(cfg TokenConfig) (*TokenProvider, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	return &TokenProvider{config: cfg, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (p *TokenProvider) TTL() time.Duration {
	return p.config.TTL
}

// Issue signs a token for user. Signing with a validated HMAC key cannot fail
// at runtime, so a failure here is a programming error.
func (p *TokenProvider) Issue(user *domain.User) string {
	now := p.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    p.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.config.TTL)),
		},
		IsBusiness: user.IsBusiness,
		IsAdmin:    user.IsAdmin,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.config.Secret)
	if err != nil {
		panic(fmt.Sprintf("auth: sign token: %v", err))
	}
	return signed
}

// Verify returns the claims of a valid token. Malformed, tampered, expired,
// foreign-issuer and wrong-algorithm tokens are all reported the same way.
func (p *TokenProvider) Verify(tokenString string) (*Claims, bool) {
	if tokenString == "" {
		return nil, false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return p.config.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, false
	}
	return claims, true
}
