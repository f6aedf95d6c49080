package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/elevate-app/elevate-backend/internal/database"
)

var (
	ErrNotFound     = errors.New("alert not found")
	ErrTypeNotFound = errors.New("alert type not found")
)

// BoxDegrees is the half-width of the rectangular pre-filter used for
// recipient discovery. 0.145 degrees is roughly 10 miles at mid-latitudes;
// it is a deliberately coarse selectivity filter, not geodesically exact.
const BoxDegrees = 0.145

// NearbyToken is one recipient candidate: a device push token together with
// the owner's last known position.
type NearbyToken struct {
	Token     string  `bun:"token"`
	Latitude  float64 `bun:"latitude"`
	Longitude float64 `bun:"longitude"`
}

// Repository handles alert and alert-type persistence. It accepts bun.IDB
// so the same methods run against the pool or an open transaction.
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Insert persists a new alert and returns the stored row.
func (r *Repository) Insert(ctx context.Context, a *Alert) (*Alert, error) {
	row := encodeAlert(a)

	_, err := r.db.NewInsert().
		Model(row).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to insert alert: %w", err)
	}

	return decodeAlert(row), nil
}

// Update replaces the mutable fields of an alert and returns the stored row.
func (r *Repository) Update(ctx context.Context, a *Alert) (*Alert, error) {
	row := new(database.Alert)

	res, err := r.db.NewUpdate().
		Model(row).
		Set("alert_type = ?", a.AlertType).
		Set("description = ?", a.Description).
		Set("place = ?", a.Place).
		Set("latitude = ?", a.Latitude).
		Set("longitude = ?", a.Longitude).
		Set("display_email = ?", a.DisplayEmail).
		Set("display_phone = ?", a.DisplayPhone).
		Set("track_location = ?", a.TrackLocation).
		Set("updated_at = now()").
		Where("id = ?", a.ID).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}

	return decodeAlert(row), nil
}

// Resolve marks the alert resolved and returns the stored row.
func (r *Repository) Resolve(ctx context.Context, id int64) (*Alert, error) {
	row := new(database.Alert)

	res, err := r.db.NewUpdate().
		Model(row).
		Set("is_resolved = ?", true).
		Set("updated_at = now()").
		Where("id = ?", id).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}

	return decodeAlert(row), nil
}

// Delete removes the alert and returns the pre-deletion row.
func (r *Repository) Delete(ctx context.Context, id int64) (*Alert, error) {
	row := new(database.Alert)

	res, err := r.db.NewDelete().
		Model(row).
		Where("id = ?", id).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to delete alert: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}

	return decodeAlert(row), nil
}

// GetByID retrieves one alert.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Alert, error) {
	row := new(database.Alert)
	err := r.db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return decodeAlert(row), nil
}

// ByViewport returns alerts strictly inside the caller-supplied rectangle.
func (r *Repository) ByViewport(ctx context.Context, neLat, neLng, swLat, swLng float64) ([]*Alert, error) {
	var rows []database.Alert
	err := r.db.NewSelect().
		Model(&rows).
		Where("latitude < ?", neLat).
		Where("longitude < ?", neLng).
		Where("latitude > ?", swLat).
		Where("longitude > ?", swLng).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts by viewport: %w", err)
	}

	alerts := make([]*Alert, len(rows))
	for i := range rows {
		alerts[i] = decodeAlert(&rows[i])
	}
	return alerts, nil
}

// TrackedByUser returns the user's alerts whose coordinates follow the
// user's location.
func (r *Repository) TrackedByUser(ctx context.Context, email string) ([]*Alert, error) {
	var rows []database.Alert
	err := r.db.NewSelect().
		Model(&rows).
		Where("created_by = ?", email).
		Where("track_location = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tracked alerts: %w", err)
	}

	alerts := make([]*Alert, len(rows))
	for i := range rows {
		alerts[i] = decodeAlert(&rows[i])
	}
	return alerts, nil
}

// UpdatePosition moves an alert to new coordinates with a freshly resolved
// place string. Used by the track-location fan-out.
func (r *Repository) UpdatePosition(ctx context.Context, id int64, latitude, longitude float64, place string) error {
	_, err := r.db.NewUpdate().
		Model((*database.Alert)(nil)).
		Set("latitude = ?", latitude).
		Set("longitude = ?", longitude).
		Set("place = ?", place).
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update alert position: %w", err)
	}
	return nil
}

// NearbyDeviceTokens selects the push tokens of every user whose last known
// location falls inside the bounding box around the given point. Boundary
// points are excluded (strict inequality).
func (r *Repository) NearbyDeviceTokens(ctx context.Context, latitude, longitude float64) ([]NearbyToken, error) {
	var rows []NearbyToken
	err := r.db.NewSelect().
		ColumnExpr("dt.token").
		ColumnExpr("l.latitude").
		ColumnExpr("l.longitude").
		TableExpr("device_tokens AS dt").
		Join("INNER JOIN locations AS l ON l.user_id = dt.user_id").
		Where("l.latitude > ?", latitude-BoxDegrees).
		Where("l.latitude < ?", latitude+BoxDegrees).
		Where("l.longitude > ?", longitude-BoxDegrees).
		Where("l.longitude < ?", longitude+BoxDegrees).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to discover nearby device tokens: %w", err)
	}

	return rows, nil
}

// TypeByName looks up one alert type.
func (r *Repository) TypeByName(ctx context.Context, name string) (*AlertType, error) {
	row := new(database.AlertType)
	err := r.db.NewSelect().
		Model(row).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTypeNotFound
		}
		return nil, fmt.Errorf("failed to get alert type: %w", err)
	}

	return decodeAlertType(row), nil
}

// AllTypes returns the full alert-type reference table.
func (r *Repository) AllTypes(ctx context.Context) ([]*AlertType, error) {
	var rows []database.AlertType
	err := r.db.NewSelect().
		Model(&rows).
		Order("alert_level DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert types: %w", err)
	}

	types := make([]*AlertType, len(rows))
	for i := range rows {
		types[i] = decodeAlertType(&rows[i])
	}
	return types, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeAlert(a *Alert) *database.Alert {
	return &database.Alert{
		ID:            a.ID,
		AlertType:     a.AlertType,
		Description:   a.Description,
		Place:         a.Place,
		Latitude:      a.Latitude,
		Longitude:     a.Longitude,
		DisplayEmail:  a.DisplayEmail,
		DisplayPhone:  a.DisplayPhone,
		TrackLocation: a.TrackLocation,
		CreatedBy:     a.CreatedBy,
		IsResolved:    a.IsResolved,
	}
}

func decodeAlert(row *database.Alert) *Alert {
	return &Alert{
		ID:            row.ID,
		AlertType:     row.AlertType,
		Description:   row.Description,
		Place:         row.Place,
		Latitude:      row.Latitude,
		Longitude:     row.Longitude,
		DisplayEmail:  row.DisplayEmail,
		DisplayPhone:  row.DisplayPhone,
		TrackLocation: row.TrackLocation,
		CreatedBy:     row.CreatedBy,
		IsResolved:    row.IsResolved,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func decodeAlertType(row *database.AlertType) *AlertType {
	return &AlertType{
		Name:       row.Name,
		AlertLevel: row.AlertLevel,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
