package location

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/elevate-app/elevate-backend/internal/database"
	"github.com/elevate-app/elevate-backend/internal/user"
)

// AlertTracker propagates a location change to the alerts that follow
// their creator.
type AlertTracker interface {
	TrackLocationChanged(ctx context.Context, tx bun.Tx, email string, latitude, longitude float64) error
}

// Geocoder reverse-resolves a stored position into an address.
type Geocoder interface {
	ResolveAddress(ctx context.Context, latitude, longitude float64) (string, error)
}

// Service owns the per-user location and device-token state.
type Service struct {
	db       *bun.DB
	tracker  AlertTracker
	geocoder Geocoder
}

func NewService(db *bun.DB, tracker AlertTracker, geocoder Geocoder) *Service {
	return &Service{db: db, tracker: tracker, geocoder: geocoder}
}

// Update upserts the user's position and, in the same transaction, moves
// the user's track_location alerts along with it.
func (s *Service) Update(ctx context.Context, actingUser *user.User, latitude, longitude float64) (*Location, error) {
	var loc *Location
	err := database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		updated, err := NewRepository(tx).Upsert(ctx, actingUser.ID, latitude, longitude)
		if err != nil {
			return err
		}
		loc = updated

		return s.tracker.TrackLocationChanged(ctx, tx, actingUser.Email, latitude, longitude)
	})
	if err != nil {
		return nil, err
	}

	return loc, nil
}

// Get returns the user's last known position.
func (s *Service) Get(ctx context.Context, actingUser *user.User) (*Location, error) {
	return NewRepository(s.db).GetByUser(ctx, actingUser.ID)
}

// Address reverse-geocodes the user's stored position.
func (s *Service) Address(ctx context.Context, actingUser *user.User) (string, error) {
	loc, err := s.Get(ctx, actingUser)
	if err != nil {
		return "", err
	}

	return s.geocoder.ResolveAddress(ctx, loc.Latitude, loc.Longitude)
}

// RegisterDeviceToken stores the user's push token.
func (s *Service) RegisterDeviceToken(ctx context.Context, actingUser *user.User, token string) (*DeviceToken, error) {
	return NewRepository(s.db).UpsertDeviceToken(ctx, actingUser.ID, token)
}
