package repository

import (
	"errors"

	"github.com/lib/pq"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Constraint names from migrations/001_init.sql.
const (
	constraintUsersEmail     = "users_email_key"
	constraintCardsBizNumber = "cards_biz_number_key"
)

func maybePgError(err error) (*pq.Error, bool) {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isUniqueViolation(err error, constraint string) bool {
	pgErr, ok := maybePgError(err)
	return ok && pgErr.Code == pgErrUniqueViolation && (constraint == "" || pgErr.Constraint == constraint)
}

func isForeignKeyViolation(err error) bool {
	pgErr, ok := maybePgError(err)
	return ok && pgErr.Code == pgErrForeignKeyViolation
}
