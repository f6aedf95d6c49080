package alert

import "time"

// Alert is the persisted shape of an incident report. Handlers never see it
// directly; they get the enriched View.
type Alert struct {
	ID            int64
	AlertType     string
	Description   *string
	Place         string
	Latitude      float64
	Longitude     float64
	DisplayEmail  bool
	DisplayPhone  bool
	TrackLocation bool
	CreatedBy     string
	IsResolved    bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AlertType is read-only reference data describing an incident category.
type AlertType struct {
	Name       string    `json:"name"`
	AlertLevel int16     `json:"alertLevel"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
