package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevate-app/elevate-backend/internal/database"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewRepository(database.NewBunDB(sqlDB)), mock
}

func userColumns() []string {
	return []string{"id", "name", "email", "password_hash", "phone", "verified", "created_at", "updated_at"}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the stored row", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO "users".* RETURNING \*`).
			WillReturnRows(sqlmock.NewRows(userColumns()).
				AddRow(id, "Alice", "alice@example.com", "hash", nil, false, now, now))

		created, err := repo.Create(ctx, "Alice", "alice@example.com", "hash", nil)
		require.NoError(t, err)
		assert.Equal(t, id, created.ID)
		assert.False(t, created.Verified)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violations to ErrDuplicateEmail", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`INSERT INTO "users"`).
			WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`))

		_, err := repo.Create(ctx, "Alice", "alice@example.com", "hash", nil)
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})
}

func TestGetByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`SELECT .+ FROM "users"`).
			WillReturnRows(sqlmock.NewRows(userColumns()))

		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSetVerified(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE "users".*verified = TRUE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetVerified(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
