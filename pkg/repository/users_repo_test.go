package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cards/pkg/domain"
)

var userRowColumns = []string{"id", "email", "password_hash", "name", "phone", "is_admin", "is_business", "is_blocked", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestUsersRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsersRepository(db)
	now := time.Now().UTC()
	user := &domain.User{ID: uuid.New(), Email: "a@example.com", PasswordHash: "h", Name: "A", IsBusiness: true, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO users").
		WithArgs(user.ID, user.Email, "h", "A", "", false, true, false, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), user))
}

func TestUsersRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsersRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.Create(context.Background(), &domain.User{ID: uuid.New()})

	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	assert.ErrorIs(t, err, domain.ErrUniquenessConflict)
}

func TestUsersRepository_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsersRepository(db)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(id.String(), "a@example.com", "hash", "A", "050-1234567", false, true, false, now, now))

	user, err := repo.GetByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.True(t, user.IsBusiness)
	assert.Equal(t, "hash", user.PasswordHash)
}

func TestUsersRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsersRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUsersRepository_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsersRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery("ORDER BY created_at").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(uuid.NewString(), "a@example.com", "h", "A", "", true, false, false, now, now).
			AddRow(uuid.NewString(), "b@example.com", "h", "B", "", false, false, true, now, now))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.True(t, users[0].IsAdmin)
	assert.True(t, users[1].IsBlocked)
}

func TestUsersRepository_SetBlocked(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsersRepository(db)
	id := uuid.New()

	mock.ExpectExec("UPDATE users SET is_blocked").
		WithArgs(id, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET is_blocked").
		WithArgs(id, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetBlocked(context.Background(), id, true))
	assert.ErrorIs(t, repo.SetBlocked(context.Background(), id, false), domain.ErrUserNotFound)
}

func TestUsersRepository_Delete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsersRepository(db)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM users").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM users").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM users").WithArgs(id).WillReturnError(errors.New("conn reset"))

	require.NoError(t, repo.Delete(context.Background(), id))
	assert.ErrorIs(t, repo.Delete(context.Background(), id), domain.ErrUserNotFound)
	assert.EqualError(t, repo.Delete(context.Background(), id), "delete user: conn reset")
}

func TestUsersRepository_EnsureAdmin(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsersRepository(db)
	user := &domain.User{ID: uuid.New(), Email: "root@example.com", PasswordHash: "h", Name: "Root", CreatedAt: time.Now()}

	mock.ExpectQuery("ON CONFLICT \\(email\\) DO UPDATE SET is_admin = TRUE").
		WillReturnRows(sqlmock.NewRows([]string{"created"}).AddRow(false))

	created, err := repo.EnsureAdmin(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, created)
}
