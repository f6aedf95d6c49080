package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewBunDB(sqlDB), mock
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectCommit()

		called := false
		err := RunInTx(ctx, db, func(ctx context.Context, tx bun.Tx) error {
			called = true
			return nil
		})

		require.NoError(t, err)
		assert.True(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and passes the inner error through", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := RunInTx(ctx, db, func(ctx context.Context, tx bun.Tx) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, IsUnavailable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure is unavailable", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin().WillReturnError(assert.AnError)

		err := RunInTx(ctx, db, func(ctx context.Context, tx bun.Tx) error {
			t.Fatal("fn must not run without a transaction")
			return nil
		})

		assert.True(t, IsUnavailable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit failure is unavailable", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(assert.AnError)

		err := RunInTx(ctx, db, func(ctx context.Context, tx bun.Tx) error {
			return nil
		})

		assert.True(t, IsUnavailable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
