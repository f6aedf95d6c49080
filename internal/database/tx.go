package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// ErrUnavailable marks transaction acquisition or commit failures, which
// callers surface as a service-unavailable condition.
var ErrUnavailable = errors.New("database unavailable")

// IsUnavailable reports whether err stems from the store being unreachable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// RunInTx runs fn inside one transaction. Errors returned by fn roll the
// transaction back and pass through untouched; begin and commit failures
// are wrapped in ErrUnavailable so handlers can tell the two apart.
func RunInTx(ctx context.Context, db *bun.DB, fn func(ctx context.Context, tx bun.Tx) error) error {
	var fnErr error
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		fnErr = fn(ctx, tx)
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
