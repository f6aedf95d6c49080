package location

import (
	"time"

	"github.com/google/uuid"
)

// Location is a user's latest known position. At most one row exists per
// user; updates overwrite, never historize.
type Location struct {
	UserID    uuid.UUID `json:"userId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DeviceToken is a user's registered push token, one per user.
type DeviceToken struct {
	UserID    uuid.UUID `json:"userId"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
