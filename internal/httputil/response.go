package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tendant/simple-cards/pkg/domain"
)

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error             string              `json:"error"`
	Details           []domain.FieldError `json:"details,omitempty"`
	Field             string              `json:"field,omitempty"`
	RemainingAttempts *int                `json:"remaining_attempts,omitempty"`
	RetryAfterSeconds int                 `json:"retry_after_seconds,omitempty"`
	Debug             string              `json:"debug,omitempty"`
}

// Error writes a plain error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// ErrorResponder maps domain errors to HTTP responses.
type ErrorResponder struct {
	Logger *slog.Logger
	// Debug includes the underlying error text on 500 responses.
	Debug bool
}

// NewErrorResponder creates an ErrorResponder.
func NewErrorResponder(logger *slog.Logger, debug bool) *ErrorResponder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorResponder{Logger: logger, Debug: debug}
}

// Respond writes the response for err.
func (er *ErrorResponder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	status, body := er.classify(err)
	if status == http.StatusLocked && body.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfterSeconds))
	}
	if status >= http.StatusInternalServerError {
		er.Logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	JSON(w, status, body)
}

func (er *ErrorResponder) classify(err error) (int, ErrorBody) {
	var (
		credErr     *domain.CredentialsError
		lockErr     *domain.LockedError
		conflictErr *domain.ConflictError
		validErr    *domain.ValidationError
	)

	switch {
	case errors.As(err, &validErr):
		return http.StatusBadRequest, ErrorBody{Error: domain.ErrValidation.Error(), Details: validErr.Fields}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, ErrorBody{Error: err.Error()}
	case errors.As(err, &credErr):
		remaining := credErr.RemainingAttempts
		return http.StatusUnauthorized, ErrorBody{Error: credErr.Error(), RemainingAttempts: &remaining}
	case errors.Is(err, domain.ErrAuthenticationRequired),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorBody{Error: rootMessage(err)}
	case errors.As(err, &lockErr):
		return http.StatusLocked, ErrorBody{Error: lockErr.Error(), RetryAfterSeconds: lockErr.RetryAfterSeconds()}
	case errors.Is(err, domain.ErrAccountLocked):
		return http.StatusLocked, ErrorBody{Error: domain.ErrAccountLocked.Error()}
	case errors.Is(err, domain.ErrAccountBlocked), errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, ErrorBody{Error: rootMessage(err)}
	case errors.As(err, &conflictErr):
		return http.StatusConflict, ErrorBody{Error: conflictErr.Message, Field: conflictErr.Field}
	case errors.Is(err, domain.ErrUniquenessConflict):
		return http.StatusConflict, ErrorBody{Error: domain.ErrUniquenessConflict.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: rootMessage(err)}
	case errors.Is(err, domain.ErrAllocationExhausted):
		return http.StatusServiceUnavailable, ErrorBody{Error: domain.ErrAllocationExhausted.Error()}
	}

	body := ErrorBody{Error: "internal server error"}
	if er.Debug {
		body.Debug = err.Error()
	}
	return http.StatusInternalServerError, body
}

// rootMessage returns the message of the outermost known sentinel so that wrapped
// storage context never leaks into client responses.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrUserNotFound,
		domain.ErrCardNotFound,
		domain.ErrNotFound,
		domain.ErrAuthenticationRequired,
		domain.ErrInvalidToken,
		domain.ErrInvalidCredentials,
		domain.ErrAccountBlocked,
		domain.ErrForbidden,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// ReadJSON decodes the request body into v. On failure it writes a 413 for
// bodies over the size limit or a 400 otherwise, and returns false.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	Error(w, http.StatusBadRequest, "invalid request body")
	return false
}
