package models

import (
	"time"

	"github.com/uptrace/bun"
)

// GoldEvent is the denormalized serving-store row for a published event.
// It is fully recomputable from its CandidateEvent; the publish projector
// is the only writer.
type GoldEvent struct {
	bun.BaseModel `bun:"table:gold_events"`

	EventID      string    `bun:"event_id,pk" json:"event_id"`
	EventName    string    `bun:"event_name,notnull" json:"event_name"`
	VenueName    string    `bun:"venue_name,notnull" json:"venue_name"`
	VenueSlug    string    `bun:"venue_slug,notnull" json:"venue_slug"`
	EventDate    time.Time `bun:"event_date,notnull" json:"event_date"`
	StartTime    *string   `bun:"start_time" json:"start_time,omitempty"`
	GenresConcat string    `bun:"genres_concat" json:"genres_concat"`
	PriceMin     *float64  `bun:"price_min" json:"price_min,omitempty"`
	PriceMax     *float64  `bun:"price_max" json:"price_max,omitempty"`
	IsFree       bool      `bun:"is_free" json:"is_free"`
	TicketURL    *string   `bun:"ticket_url" json:"ticket_url,omitempty"`
	PublishedAt  time.Time `bun:"published_at,notnull" json:"published_at"`
}
