package alert

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevate-app/elevate-backend/internal/database"
	"github.com/elevate-app/elevate-backend/internal/geocode"
	"github.com/elevate-app/elevate-backend/internal/logging"
	"github.com/elevate-app/elevate-backend/internal/notify"
	"github.com/elevate-app/elevate-backend/internal/user"
)

type fakeGeocoder struct {
	place    string
	lat, lng float64

	addressErr error
	coordsErr  error

	addressCalls int
	coordsCalls  int
}

func (g *fakeGeocoder) ResolveAddress(ctx context.Context, latitude, longitude float64) (string, error) {
	g.addressCalls++
	if g.addressErr != nil {
		return "", g.addressErr
	}
	return g.place, nil
}

func (g *fakeGeocoder) ResolveCoordinates(ctx context.Context, address string) (float64, float64, error) {
	g.coordsCalls++
	if g.coordsErr != nil {
		return 0, 0, g.coordsErr
	}
	return g.lat, g.lng, nil
}

type fakeNotifier struct {
	succeed    int
	alertType  string
	place      string
	recipients []notify.Recipient
}

func (n *fakeNotifier) SendAlertNotification(ctx context.Context, alertType, place string, recipients []notify.Recipient) int {
	n.alertType = alertType
	n.place = place
	n.recipients = recipients
	if n.succeed > len(recipients) {
		return len(recipients)
	}
	return n.succeed
}

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock, *fakeGeocoder, *fakeNotifier) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	geocoder := &fakeGeocoder{place: "1 Main St, Hoboken, NJ, US", lat: 40.7, lng: -74.1}
	notifier := &fakeNotifier{}
	svc := NewService(database.NewBunDB(sqlDB), geocoder, notifier, logging.NewLogger(true))

	return svc, mock, geocoder, notifier
}

func alertTypeRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"name", "alert_level", "created_at", "updated_at"}).
		AddRow("fire", int16(3), now, now)
}

func alertRows(id int64, createdBy string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "alert_type", "description", "place", "latitude", "longitude",
		"display_email", "display_phone", "track_location", "created_by",
		"is_resolved", "created_at", "updated_at",
	}).AddRow(id, "fire", nil, "1 Main St, Hoboken, NJ, US", 40.7, -74.1,
		false, false, false, createdBy, false, now, now)
}

func TestCreateRejectsAmbiguousInput(t *testing.T) {
	svc, mock, geocoder, _ := newMockService(t)
	actingUser := &user.User{Name: "Alice", Email: "alice@example.com"}

	lat, lng := 40.7, -74.1
	inputs := map[string]CreateInput{
		"neither place nor coordinates": {AlertType: "fire"},
		"both place and coordinates": {
			AlertType: "fire",
			Place:     strPtr("1 Main St"),
			Latitude:  &lat,
			Longitude: &lng,
		},
		"empty place without coordinates": {AlertType: "fire", Place: strPtr("")},
		"latitude without longitude":      {AlertType: "fire", Latitude: &lat},
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.Create(context.Background(), input, actingUser)
			assert.ErrorIs(t, err, ErrInputAmbiguous)
		})
	}

	// Validation fails before any geocoding or persistence.
	assert.Zero(t, geocoder.addressCalls)
	assert.Zero(t, geocoder.coordsCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAbortsWhenGeocodingFails(t *testing.T) {
	svc, mock, geocoder, _ := newMockService(t)
	geocoder.addressErr = geocode.ErrNoResult

	lat, lng := 40.7, -74.1
	_, _, err := svc.Create(context.Background(), CreateInput{
		AlertType: "fire",
		Latitude:  &lat,
		Longitude: &lng,
	}, &user.User{Name: "Alice", Email: "alice@example.com"})

	assert.ErrorIs(t, err, geocode.ErrNoResult)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePersistsThenNotifies(t *testing.T) {
	svc, mock, geocoder, notifier := newMockService(t)
	notifier.succeed = 2

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "alert_types"`).WillReturnRows(alertTypeRows())
	mock.ExpectQuery(`INSERT INTO "alerts".* RETURNING \*`).WillReturnRows(alertRows(42, "alice@example.com"))
	mock.ExpectCommit()

	// Recipient discovery happens only after the commit above.
	mock.ExpectQuery(`FROM device_tokens AS dt INNER JOIN locations AS l`).
		WillReturnRows(sqlmock.NewRows([]string{"token", "latitude", "longitude"}).
			AddRow("device-a", 40.75, -74.1).
			AddRow("device-b", 40.7, -74.05))

	view, notified, err := svc.Create(context.Background(), CreateInput{
		AlertType: "fire",
		Place:     strPtr("1 Main St, Hoboken, NJ, US"),
	}, &user.User{Name: "Alice", Email: "alice@example.com"})

	require.NoError(t, err)
	assert.Equal(t, 2, notified)
	assert.Equal(t, int64(42), view.ID)
	require.NotNil(t, view.AlertType)
	assert.Equal(t, "fire", view.AlertType.Name)
	assert.Equal(t, 1, geocoder.coordsCalls)

	require.Len(t, notifier.recipients, 2)
	assert.Equal(t, "fire", notifier.alertType)
	assert.Equal(t, "1 Main St, Hoboken, NJ, US", notifier.place)
	for _, r := range notifier.recipients {
		assert.Greater(t, r.DistanceKm, 0.0)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSucceedsWhenDiscoveryFails(t *testing.T) {
	svc, mock, _, notifier := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "alert_types"`).WillReturnRows(alertTypeRows())
	mock.ExpectQuery(`INSERT INTO "alerts".* RETURNING \*`).WillReturnRows(alertRows(42, "alice@example.com"))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM device_tokens AS dt INNER JOIN locations AS l`).
		WillReturnError(assert.AnError)

	view, notified, err := svc.Create(context.Background(), CreateInput{
		AlertType: "fire",
		Place:     strPtr("1 Main St, Hoboken, NJ, US"),
	}, &user.User{Name: "Alice", Email: "alice@example.com"})

	require.NoError(t, err)
	assert.Zero(t, notified)
	assert.Nil(t, notifier.recipients)
	assert.Equal(t, int64(42), view.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateForbiddenForNonCreator(t *testing.T) {
	svc, mock, _, _ := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "alerts"`).WillReturnRows(alertRows(42, "bob@example.com"))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), 42, UpdateInput{
		AlertType: "fire",
		Place:     strPtr("1 Main St, Hoboken, NJ, US"),
	}, &user.User{Name: "Alice", Email: "alice@example.com"})

	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveForbiddenForNonCreator(t *testing.T) {
	svc, mock, _, _ := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "alerts"`).WillReturnRows(alertRows(42, "bob@example.com"))
	mock.ExpectRollback()

	_, err := svc.Resolve(context.Background(), 42, &user.User{Name: "Alice", Email: "alice@example.com"})

	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackLocationChanged(t *testing.T) {
	ctx := context.Background()

	t.Run("no tracked alerts skips geocoding", func(t *testing.T) {
		svc, mock, geocoder, _ := newMockService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM "alerts"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		tx, err := svc.db.BeginTx(ctx, nil)
		require.NoError(t, err)

		err = svc.TrackLocationChanged(ctx, tx, "alice@example.com", 40.8, -74.0)
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		assert.Zero(t, geocoder.addressCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("geocode failure skips propagation without error", func(t *testing.T) {
		svc, mock, geocoder, _ := newMockService(t)
		geocoder.addressErr = geocode.ErrNoResult

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM "alerts"`).WillReturnRows(alertRows(42, "alice@example.com"))
		mock.ExpectRollback()

		tx, err := svc.db.BeginTx(ctx, nil)
		require.NoError(t, err)

		err = svc.TrackLocationChanged(ctx, tx, "alice@example.com", 40.8, -74.0)
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		assert.Equal(t, 1, geocoder.addressCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("moves every tracked alert", func(t *testing.T) {
		svc, mock, geocoder, _ := newMockService(t)

		tracked := alertRows(42, "alice@example.com")
		tracked.AddRow(int64(43), "fire", nil, "somewhere", 40.7, -74.1,
			false, false, true, "alice@example.com", false, time.Now(), time.Now())

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM "alerts"`).WillReturnRows(tracked)
		mock.ExpectExec(`UPDATE "alerts".* WHERE \(id = 42\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "alerts".* WHERE \(id = 43\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := svc.db.BeginTx(ctx, nil)
		require.NoError(t, err)

		err = svc.TrackLocationChanged(ctx, tx, "alice@example.com", 40.8, -74.0)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		assert.Equal(t, 1, geocoder.addressCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
