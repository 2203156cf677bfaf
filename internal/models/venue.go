package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Venue struct {
	bun.BaseModel `bun:"table:venues"`

	VenueID   string    `bun:"venue_id,pk" json:"venue_id"`
	Name      string    `bun:"venue_name,notnull" json:"venue_name"`
	Slug      string    `bun:"venue_slug,notnull,unique" json:"venue_slug"`
	IsActive  bool      `bun:"is_active" json:"is_active"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}
