package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/elevate-app/elevate-backend/internal/database"
	"github.com/elevate-app/elevate-backend/internal/logging"
)

type fakeEmailService struct {
	verifications chan string
	resets        chan string
}

func newFakeEmailService() *fakeEmailService {
	return &fakeEmailService{
		verifications: make(chan string, 1),
		resets:        make(chan string, 1),
	}
}

func (f *fakeEmailService) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	f.verifications <- toEmail
	return nil
}

func (f *fakeEmailService) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	f.resets <- toEmail
	return nil
}

func newMockAuthService(t *testing.T) (*Service, sqlmock.Sqlmock, *fakeEmailService) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	tokens, err := NewTokenService(testAuthConfig(time.Hour))
	require.NoError(t, err)

	emails := newFakeEmailService()
	svc := NewService(database.NewBunDB(sqlDB), tokens, emails, logging.NewLogger(true))

	return svc, mock, emails
}

func userRows(t *testing.T, id uuid.UUID, email, password string) *sqlmock.Rows {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "phone", "verified", "created_at", "updated_at",
	}).AddRow(id, "Alice", email, string(hash), nil, false, now, now)
}

func TestRegisterValidation(t *testing.T) {
	svc, mock, _ := newMockAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"missing name", RegisterInput{Email: "a@example.com", Password: "password123"}, ErrNameRequired},
		{"missing email", RegisterInput{Name: "Alice", Password: "password123"}, ErrEmailRequired},
		{"malformed email", RegisterInput{Name: "Alice", Email: "not-an-email", Password: "password123"}, ErrInvalidEmailFormat},
		{"missing password", RegisterInput{Name: "Alice", Email: "a@example.com"}, ErrPasswordRequired},
		{"short password", RegisterInput{Name: "Alice", Email: "a@example.com", Password: "short"}, ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// Validation rejects before anything reaches the store.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterCreatesUserAndStoresToken(t *testing.T) {
	svc, mock, emails := newMockAuthService(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users".* RETURNING \*`).
		WillReturnRows(userRows(t, id, "alice@example.com", "password123"))
	mock.ExpectExec(`DELETE FROM "tokens"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "tokens"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectCommit()

	created, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)
	assert.False(t, created.Verified)

	select {
	case to := <-emails.verifications:
		assert.Equal(t, "alice@example.com", to)
	case <-time.After(time.Second):
		t.Fatal("verification email was never sent")
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials mint a session token", func(t *testing.T) {
		svc, mock, _ := newMockAuthService(t)

		mock.ExpectQuery(`SELECT .+ FROM "users"`).
			WillReturnRows(userRows(t, uuid.New(), "alice@example.com", "password123"))

		result, err := svc.Login(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", result.User.Email)

		subject, err := svc.tokens.Validate(result.Token, PurposeSession)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", subject)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, mock, _ := newMockAuthService(t)

		mock.ExpectQuery(`SELECT .+ FROM "users"`).
			WillReturnRows(userRows(t, uuid.New(), "alice@example.com", "password123"))

		_, err := svc.Login(ctx, "alice@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, mock, _ := newMockAuthService(t)

		mock.ExpectQuery(`SELECT .+ FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := svc.Login(ctx, "nobody@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty credentials never hit the store", func(t *testing.T) {
		svc, mock, _ := newMockAuthService(t)

		_, err := svc.Login(ctx, "", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes the token and marks verified", func(t *testing.T) {
		svc, mock, _ := newMockAuthService(t)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`DELETE FROM "tokens".* RETURNING \*`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "token", "purpose", "subject", "created_at"}).
				AddRow(int64(1), "raw-token", string(PurposeVerification), "alice@example.com", time.Now()))
		mock.ExpectQuery(`SELECT .+ FROM "users"`).
			WillReturnRows(userRows(t, id, "alice@example.com", "password123"))
		mock.ExpectExec(`UPDATE "users".*verified = TRUE`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := svc.VerifyEmail(ctx, "raw-token")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("token minted for another purpose is rejected", func(t *testing.T) {
		svc, mock, _ := newMockAuthService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`DELETE FROM "tokens".* RETURNING \*`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "token", "purpose", "subject", "created_at"}).
				AddRow(int64(1), "raw-token", string(PurposeReset), "alice@example.com", time.Now()))
		mock.ExpectRollback()

		err := svc.VerifyEmail(ctx, "raw-token")
		assert.ErrorIs(t, err, ErrTokenNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("consumed token cannot verify twice", func(t *testing.T) {
		svc, mock, _ := newMockAuthService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`DELETE FROM "tokens".* RETURNING \*`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "token", "purpose", "subject", "created_at"}))
		mock.ExpectRollback()

		err := svc.VerifyEmail(ctx, "raw-token")
		assert.ErrorIs(t, err, ErrTokenNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRequestPasswordResetHidesUnknownEmails(t *testing.T) {
	svc, mock, emails := newMockAuthService(t)

	mock.ExpectQuery(`SELECT .+ FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	require.NoError(t, err)

	select {
	case <-emails.resets:
		t.Fatal("no email should go out for an unregistered address")
	case <-time.After(50 * time.Millisecond):
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("validates the new password first", func(t *testing.T) {
		svc, mock, _ := newMockAuthService(t)

		assert.ErrorIs(t, svc.ResetPassword(ctx, "raw-token", ""), ErrPasswordRequired)
		assert.ErrorIs(t, svc.ResetPassword(ctx, "raw-token", "short"), ErrPasswordTooShort)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("consumes the token and rewrites the hash", func(t *testing.T) {
		svc, mock, _ := newMockAuthService(t)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`DELETE FROM "tokens".* RETURNING \*`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "token", "purpose", "subject", "created_at"}).
				AddRow(int64(1), "raw-token", string(PurposeReset), "alice@example.com", time.Now()))
		mock.ExpectQuery(`SELECT .+ FROM "users"`).
			WillReturnRows(userRows(t, id, "alice@example.com", "old-password"))
		mock.ExpectExec(`UPDATE "users".*password_hash = `).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := svc.ResetPassword(ctx, "raw-token", "new-password-123")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
