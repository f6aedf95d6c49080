package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"github.com/elevate-app/elevate-backend/internal/database"
	"github.com/elevate-app/elevate-backend/internal/logging"
	"github.com/elevate-app/elevate-backend/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNameRequired       = errors.New("name is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidEmailFormat = errors.New("invalid email format")
)

// EmailService delivers the outbound verification and reset messages.
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}

// RegisterInput carries the fields for a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    *string
}

// LoginResult is a session token together with the authenticated user.
type LoginResult struct {
	User  *user.User `json:"user"`
	Token string     `json:"token"`
}

// Service implements the credential lifecycle: account creation, login,
// email verification and password reset.
type Service struct {
	db           *bun.DB
	tokens       *TokenService
	emailService EmailService
	logger       *logging.Logger
}

func NewService(db *bun.DB, tokens *TokenService, emailService EmailService, logger *logging.Logger) *Service {
	return &Service{
		db:           db,
		tokens:       tokens,
		emailService: emailService,
		logger:       logger,
	}
}

// Register creates an unverified account and sends a verification email.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*user.User, error) {
	if input.Name == "" {
		return nil, ErrNameRequired
	}
	if input.Email == "" {
		return nil, ErrEmailRequired
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if input.Password == "" {
		return nil, ErrPasswordRequired
	}
	if len(input.Password) < 8 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken, err := s.tokens.Generate(input.Email, PurposeVerification)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	var newUser *user.User
	err = database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		created, err := user.NewRepository(tx).Create(ctx, input.Name, input.Email, string(passwordHash), input.Phone)
		if err != nil {
			return err
		}
		newUser = created

		return NewTokenRepository(tx, s.logger).Store(ctx, verificationToken, PurposeVerification, input.Email)
	})
	if err != nil {
		return nil, err
	}

	go func() {
		if err := s.emailService.SendVerificationEmail(context.Background(), input.Email, verificationToken); err != nil {
			s.logger.Warn("failed to send verification email", "email", input.Email, "error", err)
		}
	}()

	return newUser, nil
}

// Login authenticates by email and password and mints a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existing, err := user.NewRepository(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(existing.Email, PurposeSession)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	return &LoginResult{User: existing, Token: token}, nil
}

// VerifyEmail consumes a verification token and marks its subject verified.
// An absent, stale or already-consumed token all answer ErrTokenNotFound.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) error {
	return database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		consumed, err := NewTokenRepository(tx, s.logger).Consume(ctx, rawToken)
		if err != nil {
			return err
		}
		if consumed.Purpose != PurposeVerification {
			return ErrTokenNotFound
		}

		users := user.NewRepository(tx)
		subject, err := users.GetByEmail(ctx, consumed.Subject)
		if err != nil {
			return err
		}

		return users.SetVerified(ctx, subject.ID)
	})
}

// SendVerificationEmail issues a fresh verification token for the user and
// emails it.
func (s *Service) SendVerificationEmail(ctx context.Context, u *user.User) error {
	token, err := s.tokens.Generate(u.Email, PurposeVerification)
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}

	err = database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		return NewTokenRepository(tx, s.logger).Store(ctx, token, PurposeVerification, u.Email)
	})
	if err != nil {
		return err
	}

	go func() {
		if err := s.emailService.SendVerificationEmail(context.Background(), u.Email, token); err != nil {
			s.logger.Warn("failed to send verification email", "email", u.Email, "error", err)
		}
	}()

	return nil
}

// RequestPasswordReset stores a reset token and emails it. It always
// returns nil to avoid revealing whether the email is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	existing, err := user.NewRepository(s.db).GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Warn("failed to get user for password reset", "error", err)
		}
		return nil
	}

	token, err := s.tokens.Generate(existing.Email, PurposeReset)
	if err != nil {
		s.logger.Warn("failed to generate password reset token", "error", err)
		return nil
	}

	err = database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		return NewTokenRepository(tx, s.logger).Store(ctx, token, PurposeReset, existing.Email)
	})
	if err != nil {
		s.logger.Warn("failed to store password reset token", "error", err)
		return nil
	}

	go func() {
		if err := s.emailService.SendPasswordResetEmail(context.Background(), existing.Email, token); err != nil {
			s.logger.Warn("failed to send password reset email", "email", existing.Email, "error", err)
		}
	}()

	return nil
}

// ResetPassword consumes a reset token and replaces the subject's password.
// Consumption and the password write share one transaction, so a racing
// duplicate request cannot reset twice.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	if len(newPassword) < 8 {
		return ErrPasswordTooShort
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		consumed, err := NewTokenRepository(tx, s.logger).Consume(ctx, rawToken)
		if err != nil {
			return err
		}
		if consumed.Purpose != PurposeReset {
			return ErrTokenNotFound
		}

		users := user.NewRepository(tx)
		subject, err := users.GetByEmail(ctx, consumed.Subject)
		if err != nil {
			return err
		}

		return users.UpdatePassword(ctx, subject.ID, string(passwordHash))
	})
}
