package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-cards/pkg/domain"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2 parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// UserCreator persists new accounts. Email uniqueness is enforced by storage.
type UserCreator interface {
	Create(ctx context.Context, user *domain.User) error
}

// PasswordService handles account registration with password credentials.
type PasswordService struct {
	users                 UserCreator
	policy                *PasswordPolicy
	strictEmailValidation bool
	blockDisposableEmail  bool
}

// NewPasswordService creates a new password service.
func NewPasswordService(users UserCreator, policy *PasswordPolicy, strictEmailValidation, blockDisposableEmail bool) *PasswordService {
	return &PasswordService{
		users:                 users,
		policy:                policy,
		strictEmailValidation: strictEmailValidation,
		blockDisposableEmail:  blockDisposableEmail,
	}
}

// RegisterInput holds the fields accepted at registration.
type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	Phone      string
	IsBusiness bool
}

// Register creates a new account. A duplicate email surfaces as domain.ErrUserAlreadyExists.
func (s *PasswordService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	verr := &domain.ValidationError{}
	if err := ValidateEmail(in.Email, s.strictEmailValidation, s.blockDisposableEmail); err != nil {
		verr.Add("email", err.Error())
	}
	if s.policy != nil {
		if err := s.policy.ValidatePassword(in.Password); err != nil {
			verr.Add("password", err.Error())
		}
	}
	name := SanitizeName(in.Name)
	if err := ValidateStringLength("name", name, 2, 256); err != nil {
		verr.Add("name", err.Error())
	}
	if err := ValidatePhone(in.Phone); err != nil {
		verr.Add("phone", err.Error())
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(in.Email),
		PasswordHash: hash,
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		IsBusiness:   in.IsBusiness,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := randomBytes(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return encodeArgon2Hash(hash, salt, argon2Time, argon2Memory, argon2Threads), nil
}

// VerifyPassword compares a password against an Argon2id hash in constant time.
// Bcrypt hashes imported from the previous system are accepted as well.
func VerifyPassword(password, encodedHash string) bool {
	if isBcryptHash(encodedHash) {
		return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
	}

	hash, salt, time, memory, threads, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))
	return constantTimeCompare(hash, computed)
}

func isBcryptHash(h string) bool {
	return strings.HasPrefix(h, "$2a$") || strings.HasPrefix(h, "$2b$") || strings.HasPrefix(h, "$2y$")
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// verifyDummyPassword burns the same work as a real verification so unknown
// identifiers cannot be told apart by response time.
func verifyDummyPassword(password string) {
	dummyHashOnce.Do(func() {
		h, err := HashPassword("dummy-password-for-timing")
		if err == nil {
			dummyHash = h
		}
	})
	_ = VerifyPassword(password, dummyHash)
}
