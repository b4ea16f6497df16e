// Package users serves registration, login and account administration.
package users

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tendant/simple-cards/internal/httputil"
	"github.com/tendant/simple-cards/pkg/auth"
	"github.com/tendant/simple-cards/pkg/domain"
	usersvc "github.com/tendant/simple-cards/pkg/users"
)

// Handler handles account endpoints.
type Handler struct {
	logger    *slog.Logger
	passwords *auth.PasswordService
	verifier  *auth.CredentialVerifier
	tokens    *auth.TokenProvider
	users     *usersvc.Service
	errs      *httputil.ErrorResponder
}

// NewHandler creates a new users handler.
func NewHandler(
	logger *slog.Logger,
	passwords *auth.PasswordService,
	verifier *auth.CredentialVerifier,
	tokens *auth.TokenProvider,
	users *usersvc.Service,
	errs *httputil.ErrorResponder,
) *Handler {
	return &Handler{
		logger:    logger,
		passwords: passwords,
		verifier:  verifier,
		tokens:    tokens,
		users:     users,
		errs:      errs,
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	IsBusiness bool   `json:"isBusiness"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// ResetAttemptsRequest names the identity whose lockout is lifted.
type ResetAttemptsRequest struct {
	Email string `json:"email"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	IsBusiness bool      `json:"isBusiness"`
	IsAdmin    bool      `json:"isAdmin"`
	IsBlocked  bool      `json:"isBlocked"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID.String(),
		Email:      u.Email,
		Name:       u.Name,
		Phone:      u.Phone,
		IsBusiness: u.IsBusiness,
		IsAdmin:    u.IsAdmin,
		IsBlocked:  u.IsBlocked,
		CreatedAt:  u.CreatedAt,
	}
}

// Register creates an account.
// POST /users
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ReadJSON(w, r, &req) {
		return
	}

	user, err := h.passwords.Register(r.Context(), auth.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		Phone:      req.Phone,
		IsBusiness: req.IsBusiness,
	})
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "business", user.IsBusiness)
	httputil.JSON(w, http.StatusCreated, toResponse(user))
}

// Login exchanges credentials for a session token.
// POST /users/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ReadJSON(w, r, &req) {
		return
	}

	verr := &domain.ValidationError{}
	if req.Email == "" {
		verr.Add("email", "email is required")
	}
	if req.Password == "" {
		verr.Add("password", "password is required")
	}
	if err := verr.OrNil(); err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	token, err := h.verifier.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("login failed", "email", auth.NormalizeEmail(req.Email), "ip", r.RemoteAddr, "error", err)
		h.errs.Respond(w, r, err)
		return
	}

	w.Header().Set(auth.TokenHeader, token)
	httputil.JSON(w, http.StatusOK, TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(h.tokens.TTL().Seconds()),
	})
}

// GetMe returns the caller's account.
// GET /users/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	user, err := h.users.Get(r.Context(), p, p.UserID)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toResponse(user))
}

// List returns every account.
// GET /users
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	resp := make([]UserResponse, 0, len(list))
	for _, u := range list {
		resp = append(resp, toResponse(u))
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// Get returns one account to its owner or an admin.
// GET /users/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	user, err := h.users.Get(r.Context(), p, id)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toResponse(user))
}

// Delete removes an account with its cards and likes.
// DELETE /users/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	user, err := h.users.Delete(r.Context(), p, id)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	h.logger.Info("user deleted", "user_id", id, "by", p.UserID)
	httputil.JSON(w, http.StatusOK, toResponse(user))
}

// Block applies an administrative block.
// PATCH /users/{id}/block
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// Unblock lifts an administrative block.
// PATCH /users/{id}/unblock
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	user, err := h.users.SetBlocked(r.Context(), p, id, blocked)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	h.logger.Warn("user block changed", "user_id", id, "blocked", blocked, "by", p.UserID)
	httputil.JSON(w, http.StatusOK, toResponse(user))
}

// ResetLoginAttempts clears the lockout for an email.
// POST /users/login-attempts/reset
func (h *Handler) ResetLoginAttempts(w http.ResponseWriter, r *http.Request) {
	var req ResetAttemptsRequest
	if !httputil.ReadJSON(w, r, &req) {
		return
	}
	if err := h.users.ResetLoginAttempts(r.Context(), req.Email); err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	h.logger.Info("login attempts reset", "email", auth.NormalizeEmail(req.Email), "by", p.UserID)
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "login attempts reset"})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		// malformed ids cannot exist
		h.errs.Respond(w, r, domain.ErrUserNotFound)
		return uuid.Nil, false
	}
	return id, true
}
