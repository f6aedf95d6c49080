package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/elevate-app/elevate-backend/internal/database"
	"github.com/elevate-app/elevate-backend/internal/geocode"
	"github.com/elevate-app/elevate-backend/internal/logging"
	"github.com/elevate-app/elevate-backend/internal/notify"
	"github.com/elevate-app/elevate-backend/internal/user"
)

var (
	// ErrInputAmbiguous means the client supplied neither or both of
	// {place, coordinates}; exactly one must be given.
	ErrInputAmbiguous = errors.New("exactly one of place or coordinates must be supplied")
	// ErrForbidden means the acting user is not the alert's creator.
	ErrForbidden = errors.New("alert belongs to another user")
)

// Geocoder resolves between addresses and coordinates.
type Geocoder interface {
	ResolveAddress(ctx context.Context, latitude, longitude float64) (string, error)
	ResolveCoordinates(ctx context.Context, address string) (float64, float64, error)
}

// Notifier fans an alert out to nearby device tokens and reports how many
// deliveries succeeded.
type Notifier interface {
	SendAlertNotification(ctx context.Context, alertType, place string, recipients []notify.Recipient) int
}

// CreateInput carries the client-supplied fields for a new alert. Exactly
// one of Place or (Latitude, Longitude) must be set; the other half is
// resolved before persistence.
type CreateInput struct {
	AlertType     string
	Description   *string
	Place         *string
	Latitude      *float64
	Longitude     *float64
	DisplayEmail  bool
	DisplayPhone  bool
	TrackLocation bool
}

// UpdateInput mirrors CreateInput for alert updates.
type UpdateInput = CreateInput

// Service implements the alert lifecycle: geocode-resolve, persist inside a
// transaction, then notify nearby users strictly after commit.
type Service struct {
	db       *bun.DB
	geocoder Geocoder
	notifier Notifier
	logger   *logging.Logger
}

func NewService(db *bun.DB, geocoder Geocoder, notifier Notifier, logger *logging.Logger) *Service {
	return &Service{
		db:       db,
		geocoder: geocoder,
		notifier: notifier,
		logger:   logger,
	}
}

// Create validates and persists a new alert, then discovers nearby device
// tokens and fans out notifications. The returned count is the number of
// successful deliveries; notification failures never fail the create.
func (s *Service) Create(ctx context.Context, input CreateInput, actingUser *user.User) (*View, int, error) {
	place, latitude, longitude, err := s.resolveGeography(ctx, input.Place, input.Latitude, input.Longitude)
	if err != nil {
		return nil, 0, err
	}

	var view *View
	err = database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		repo := NewRepository(tx)

		alertType, err := repo.TypeByName(ctx, input.AlertType)
		if err != nil {
			return err
		}

		created, err := repo.Insert(ctx, &Alert{
			AlertType:     input.AlertType,
			Description:   input.Description,
			Place:         place,
			Latitude:      latitude,
			Longitude:     longitude,
			DisplayEmail:  input.DisplayEmail,
			DisplayPhone:  input.DisplayPhone,
			TrackLocation: input.TrackLocation,
			CreatedBy:     actingUser.Email,
		})
		if err != nil {
			return err
		}

		view = Enrich(created, alertType, actingUser)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	// Commit-then-notify: the write above is durable before any gateway
	// call goes out.
	notified := s.notifyNearby(ctx, view)

	return view, notified, nil
}

// Update re-resolves the changed geography and persists the new state.
// Only the creator may update an alert.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput, actingUser *user.User) (*View, error) {
	place, latitude, longitude, err := s.resolveGeography(ctx, input.Place, input.Latitude, input.Longitude)
	if err != nil {
		return nil, err
	}

	var view *View
	err = database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		repo := NewRepository(tx)

		existing, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.CreatedBy != actingUser.Email {
			return ErrForbidden
		}

		alertType, err := repo.TypeByName(ctx, input.AlertType)
		if err != nil {
			return err
		}

		updated, err := repo.Update(ctx, &Alert{
			ID:            id,
			AlertType:     input.AlertType,
			Description:   input.Description,
			Place:         place,
			Latitude:      latitude,
			Longitude:     longitude,
			DisplayEmail:  input.DisplayEmail,
			DisplayPhone:  input.DisplayPhone,
			TrackLocation: input.TrackLocation,
		})
		if err != nil {
			return err
		}

		view = Enrich(updated, alertType, actingUser)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return view, nil
}

// Resolve marks an alert resolved. No geocoding is involved.
func (s *Service) Resolve(ctx context.Context, id int64, actingUser *user.User) (*View, error) {
	var view *View
	err := database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		repo := NewRepository(tx)

		existing, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.CreatedBy != actingUser.Email {
			return ErrForbidden
		}

		resolved, err := repo.Resolve(ctx, id)
		if err != nil {
			return err
		}

		view = s.enrich(ctx, repo, resolved, actingUser)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return view, nil
}

// Delete removes an alert and returns its pre-deletion enriched snapshot.
func (s *Service) Delete(ctx context.Context, id int64, actingUser *user.User) (*View, error) {
	var view *View
	err := database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		repo := NewRepository(tx)

		existing, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.CreatedBy != actingUser.Email {
			return ErrForbidden
		}

		deleted, err := repo.Delete(ctx, id)
		if err != nil {
			return err
		}

		view = s.enrich(ctx, repo, deleted, actingUser)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return view, nil
}

// ByViewport returns the enriched alerts strictly inside the rectangle.
// This is the map read path; it never touches recipient discovery.
func (s *Service) ByViewport(ctx context.Context, neLat, neLng, swLat, swLng float64) ([]*View, error) {
	var views []*View
	err := database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		repo := NewRepository(tx)
		users := user.NewRepository(tx)

		alerts, err := repo.ByViewport(ctx, neLat, neLng, swLat, swLng)
		if err != nil {
			return err
		}

		views = make([]*View, 0, len(alerts))
		for _, a := range alerts {
			alertType, err := repo.TypeByName(ctx, a.AlertType)
			if err != nil && !errors.Is(err, ErrTypeNotFound) {
				return err
			}

			creator, err := users.GetByEmail(ctx, a.CreatedBy)
			if err != nil && !errors.Is(err, user.ErrNotFound) {
				return err
			}

			views = append(views, Enrich(a, alertType, creator))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return views, nil
}

// Types returns the alert-type reference table.
func (s *Service) Types(ctx context.Context) ([]*AlertType, error) {
	return NewRepository(s.db).AllTypes(ctx)
}

// TrackLocationChanged moves every track_location alert owned by the user
// to the new position, re-resolving the place string. A geocode failure
// skips the propagation without failing the caller; the location write is
// the primary operation and has already happened. Moving an alert does not
// re-notify nearby users.
func (s *Service) TrackLocationChanged(ctx context.Context, tx bun.Tx, email string, latitude, longitude float64) error {
	repo := NewRepository(tx)

	tracked, err := repo.TrackedByUser(ctx, email)
	if err != nil {
		return err
	}
	if len(tracked) == 0 {
		return nil
	}

	place, err := s.geocoder.ResolveAddress(ctx, latitude, longitude)
	if err != nil {
		s.logger.Warn("skipping tracked-alert propagation, geocode failed",
			"error", err, "email", email)
		return nil
	}

	for _, a := range tracked {
		if err := repo.UpdatePosition(ctx, a.ID, latitude, longitude, place); err != nil {
			return err
		}
	}

	return nil
}

// resolveGeography enforces the exactly-one-of invariant and derives the
// missing half via the geocoder. Runs before any store write so a geocode
// failure aborts the operation cleanly.
func (s *Service) resolveGeography(ctx context.Context, place *string, latitude, longitude *float64) (string, float64, float64, error) {
	hasPlace := place != nil && *place != ""
	hasCoords := latitude != nil && longitude != nil

	switch {
	case hasPlace && !hasCoords:
		lat, lng, err := s.geocoder.ResolveCoordinates(ctx, *place)
		if err != nil {
			return "", 0, 0, fmt.Errorf("could not resolve coordinates: %w", err)
		}
		return *place, lat, lng, nil

	case hasCoords && !hasPlace:
		resolved, err := s.geocoder.ResolveAddress(ctx, *latitude, *longitude)
		if err != nil {
			return "", 0, 0, fmt.Errorf("could not resolve address: %w", err)
		}
		return resolved, *latitude, *longitude, nil

	default:
		return "", 0, 0, ErrInputAmbiguous
	}
}

// notifyNearby discovers recipients and fans out. Discovery runs outside
// the owning transaction on purpose: a recipient registered between commit
// and fanout is an accepted race.
func (s *Service) notifyNearby(ctx context.Context, view *View) int {
	candidates, err := NewRepository(s.db).NearbyDeviceTokens(ctx, view.Latitude, view.Longitude)
	if err != nil {
		s.logger.Warn("recipient discovery failed", "error", err, "alert_id", view.ID)
		return 0
	}
	if len(candidates) == 0 {
		return 0
	}

	recipients := make([]notify.Recipient, len(candidates))
	for i, c := range candidates {
		recipients[i] = notify.Recipient{
			Token:      c.Token,
			DistanceKm: geocode.Distance(view.Latitude, view.Longitude, c.Latitude, c.Longitude),
		}
	}

	typeName := ""
	if view.AlertType != nil {
		typeName = view.AlertType.Name
	}

	return s.notifier.SendAlertNotification(ctx, typeName, view.Place, recipients)
}

// enrich loads the reference data for an alert whose creator is already in
// hand. Lookup failures downgrade to a partial view rather than failing the
// request.
func (s *Service) enrich(ctx context.Context, repo *Repository, a *Alert, creator *user.User) *View {
	alertType, err := repo.TypeByName(ctx, a.AlertType)
	if err != nil && !errors.Is(err, ErrTypeNotFound) {
		s.logger.Warn("failed to load alert type for enrichment", "error", err)
	}
	return Enrich(a, alertType, creator)
}
