package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Row models are the persisted shapes. Domain packages decode them into
// their own types and never hand them back to callers.

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name         string    `bun:"name,notnull"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Phone        *string   `bun:"phone"`
	Verified     bool      `bun:"verified,notnull,default:false"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:now()"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:now()"`
}

type Location struct {
	bun.BaseModel `bun:"table:locations"`

	UserID    uuid.UUID `bun:"user_id,pk,type:uuid"`
	Latitude  float64   `bun:"latitude,notnull"`
	Longitude float64   `bun:"longitude,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:now()"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:now()"`
}

type DeviceToken struct {
	bun.BaseModel `bun:"table:device_tokens"`

	UserID    uuid.UUID `bun:"user_id,pk,type:uuid"`
	Token     string    `bun:"token,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:now()"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:now()"`
}

type AlertType struct {
	bun.BaseModel `bun:"table:alert_types"`

	Name       string    `bun:"name,pk"`
	AlertLevel int16     `bun:"alert_level,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:now()"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:now()"`
}

type Alert struct {
	bun.BaseModel `bun:"table:alerts"`

	ID            int64     `bun:"id,pk,autoincrement"`
	AlertType     string    `bun:"alert_type,notnull"`
	Description   *string   `bun:"description"`
	Place         string    `bun:"place,notnull"`
	Latitude      float64   `bun:"latitude,notnull"`
	Longitude     float64   `bun:"longitude,notnull"`
	DisplayEmail  bool      `bun:"display_email,notnull,default:false"`
	DisplayPhone  bool      `bun:"display_phone,notnull,default:false"`
	TrackLocation bool      `bun:"track_location,notnull,default:false"`
	CreatedBy     string    `bun:"created_by,notnull"`
	IsResolved    bool      `bun:"is_resolved,notnull,default:false"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:now()"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:now()"`
}

// Token is a single-use credential row. Consumption is a conditional
// DELETE ... RETURNING so two racing consumers cannot both succeed.
type Token struct {
	bun.BaseModel `bun:"table:tokens"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Token     string    `bun:"token,notnull,unique"`
	Purpose   string    `bun:"purpose,notnull"`
	Subject   string    `bun:"subject,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:now()"`
}
