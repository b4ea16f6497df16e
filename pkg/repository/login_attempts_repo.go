package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tendant/simple-cards/pkg/domain"
)

// LoginAttemptsRepository is the Postgres login attempt store.
type LoginAttemptsRepository struct {
	db Querier
}

func NewLoginAttemptsRepository(db Querier) *LoginAttemptsRepository {
	return &LoginAttemptsRepository{db: db}
}

func scanLoginAttempt(row *sql.Row) (*domain.LoginAttempt, error) {
	var (
		rec          domain.LoginAttempt
		blockedUntil sql.NullTime
	)
	if err := row.Scan(&rec.Email, &rec.Attempts, &rec.LastAttemptAt, &blockedUntil); err != nil {
		return nil, err
	}
	if blockedUntil.Valid {
		t := blockedUntil.Time
		rec.BlockedUntil = &t
	}
	return &rec, nil
}

// Get returns (nil, nil) when no record exists.
func (r *LoginAttemptsRepository) Get(ctx context.Context, key string) (*domain.LoginAttempt, error) {
	query := `SELECT email, attempts, last_attempt_at, blocked_until FROM login_attempts WHERE email = $1`
	rec, err := scanLoginAttempt(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get login attempts: %w", err)
	}
	return rec, nil
}

// IncrementFailure is a single upsert, so concurrent failures serialize on
// the row lock and none is lost. Every CASE reads the pre-update row.
func (r *LoginAttemptsRepository) IncrementFailure(ctx context.Context, key string, now time.Time, threshold int, blockedUntil time.Time) (*domain.LoginAttempt, error) {
	query := `
		INSERT INTO login_attempts AS la (email, attempts, last_attempt_at, blocked_until)
		VALUES ($1, 1, $2, CASE WHEN 1 >= $3 THEN $4::timestamptz END)
		ON CONFLICT (email) DO UPDATE SET
			attempts = CASE
				WHEN la.blocked_until IS NOT NULL AND la.blocked_until <= $2 THEN 1
				ELSE la.attempts + 1
			END,
			last_attempt_at = $2,
			blocked_until = CASE
				WHEN la.blocked_until > $2 THEN la.blocked_until
				WHEN la.blocked_until IS NOT NULL AND 1 >= $3 THEN $4::timestamptz
				WHEN la.blocked_until IS NULL AND la.attempts + 1 >= $3 THEN $4::timestamptz
			END
		RETURNING email, attempts, last_attempt_at, blocked_until
	`
	rec, err := scanLoginAttempt(r.db.QueryRowContext(ctx, query, key, now, threshold, blockedUntil))
	if err != nil {
		return nil, fmt.Errorf("record login failure: %w", err)
	}
	return rec, nil
}

// Delete is idempotent.
func (r *LoginAttemptsRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE email = $1`, key); err != nil {
		return fmt.Errorf("delete login attempts: %w", err)
	}
	return nil
}

func (r *LoginAttemptsRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE blocked_until <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired login attempts: %w", err)
	}
	return result.RowsAffected()
}
