package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/elevate-app/elevate-backend/internal/database"
	"github.com/elevate-app/elevate-backend/internal/logging"
)

var ErrTokenNotFound = errors.New("token not found")

const (
	// tokenValidity is how long a stored token stays consumable.
	tokenValidity = 24 * time.Hour
	// tokenRetention is how long rows linger before the opportunistic sweep
	// removes them.
	tokenRetention = 7 * 24 * time.Hour
)

// SingleUseToken is a consumed token row handed back to the service layer.
type SingleUseToken struct {
	Token     string
	Purpose   Purpose
	Subject   string
	CreatedAt time.Time
}

// TokenRepository persists single-use tokens for email verification and
// password reset.
type TokenRepository struct {
	db     bun.IDB
	logger *logging.Logger
}

func NewTokenRepository(db bun.IDB, logger *logging.Logger) *TokenRepository {
	return &TokenRepository{db: db, logger: logger}
}

// Store inserts a new single-use token. Before inserting it sweeps rows
// older than the retention window; sweep failures are logged, never
// propagated.
func (r *TokenRepository) Store(ctx context.Context, raw string, purpose Purpose, subject string) error {
	_, err := r.db.NewDelete().
		Model((*database.Token)(nil)).
		Where("created_at < ?", time.Now().Add(-tokenRetention)).
		Exec(ctx)
	if err != nil {
		r.logger.Warn("failed to sweep expired tokens", "error", err)
	}

	row := &database.Token{
		Token:   raw,
		Purpose: string(purpose),
		Subject: subject,
	}

	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	return nil
}

// Consume atomically deletes and returns the token row, but only when it is
// still inside the validity window. A stale or absent token yields
// ErrTokenNotFound either way, so a consumed token and a never-issued token
// are indistinguishable to callers. The conditional delete guarantees that
// of two racing consumers at most one succeeds.
func (r *TokenRepository) Consume(ctx context.Context, raw string) (*SingleUseToken, error) {
	row := new(database.Token)

	res, err := r.db.NewDelete().
		Model(row).
		Where("token = ?", raw).
		Where("created_at > ?", time.Now().Add(-tokenValidity)).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrTokenNotFound
	}

	return &SingleUseToken{
		Token:     row.Token,
		Purpose:   Purpose(row.Purpose),
		Subject:   row.Subject,
		CreatedAt: row.CreatedAt,
	}, nil
}
