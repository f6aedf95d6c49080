package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/elevate-app/elevate-backend/internal/database"
)

var ErrNotFound = errors.New("location not found")

// Repository handles location and device-token persistence.
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Upsert writes the user's latest position, replacing any previous one.
func (r *Repository) Upsert(ctx context.Context, userID uuid.UUID, latitude, longitude float64) (*Location, error) {
	row := &database.Location{
		UserID:    userID,
		Latitude:  latitude,
		Longitude: longitude,
	}

	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("latitude = EXCLUDED.latitude").
		Set("longitude = EXCLUDED.longitude").
		Set("updated_at = now()").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert location: %w", err)
	}

	return decodeLocation(row), nil
}

// GetByUser retrieves the user's last known position.
func (r *Repository) GetByUser(ctx context.Context, userID uuid.UUID) (*Location, error) {
	row := new(database.Location)
	err := r.db.NewSelect().
		Model(row).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	return decodeLocation(row), nil
}

// UpsertDeviceToken registers or replaces the user's push token.
func (r *Repository) UpsertDeviceToken(ctx context.Context, userID uuid.UUID, token string) (*DeviceToken, error) {
	row := &database.DeviceToken{
		UserID: userID,
		Token:  token,
	}

	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("updated_at = now()").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device token: %w", err)
	}

	return &DeviceToken{
		UserID:    row.UserID,
		Token:     row.Token,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func decodeLocation(row *database.Location) *Location {
	return &Location{
		UserID:    row.UserID,
		Latitude:  row.Latitude,
		Longitude: row.Longitude,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
