package alert

import (
	"time"

	"github.com/elevate-app/elevate-backend/internal/user"
)

// Creator is the redacted creator block attached to alert views. Name is
// always present; email and phone appear only when the alert's display
// flags allow it.
type Creator struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// View is the enriched representation returned to clients: the raw alert
// plus its denormalized type and redacted creator info.
type View struct {
	ID            int64      `json:"id"`
	AlertType     *AlertType `json:"alertType"`
	Description   *string    `json:"description,omitempty"`
	Place         string     `json:"place"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	TrackLocation bool       `json:"trackLocation"`
	Creator       *Creator   `json:"createdBy,omitempty"`
	IsResolved    bool       `json:"isResolved"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Enrich builds a View from a persisted alert. It is a pure transform: the
// input alert is never mutated. The creator may be nil when the owning user
// row is gone; the view then simply omits the block.
func Enrich(a *Alert, alertType *AlertType, creator *user.User) *View {
	view := &View{
		ID:            a.ID,
		AlertType:     alertType,
		Description:   a.Description,
		Place:         a.Place,
		Latitude:      a.Latitude,
		Longitude:     a.Longitude,
		TrackLocation: a.TrackLocation,
		IsResolved:    a.IsResolved,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}

	if creator != nil {
		block := &Creator{Name: creator.Name}
		if a.DisplayEmail {
			email := creator.Email
			block.Email = &email
		}
		if a.DisplayPhone {
			block.Phone = creator.Phone
		}
		view.Creator = block
	}

	return view
}
