package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Curation lifecycle statuses. Pending is the only non-terminal status;
// transitions happen exclusively through the audit engine.
const (
	StatusPending     = "pending"
	StatusPublished   = "published"
	StatusRejected    = "rejected"
	StatusQuarantined = "quarantined"
)

// Submission source types.
const (
	SourceUserSubmission = "user_submission"
	SourceScraper        = "scraper"
	SourceAdmin          = "admin"
)

type CandidateEvent struct {
	bun.BaseModel `bun:"table:candidate_events"`

	EventID        string    `bun:"event_id,pk" json:"event_id"`
	VenueID        string    `bun:"venue_id,notnull,unique:uq_events_natural_key" json:"venue_id"`
	EventDate      time.Time `bun:"event_date,notnull,unique:uq_events_natural_key" json:"event_date"`
	EventName      string    `bun:"event_name,notnull" json:"event_name"`
	NameNormalized string    `bun:"name_normalized,notnull,unique:uq_events_natural_key" json:"-"`
	StartTime      *string   `bun:"start_time" json:"start_time,omitempty"`
	EndTime        *string   `bun:"end_time" json:"end_time,omitempty"`
	GenresConcat   string    `bun:"genres_concat" json:"genres_concat"`
	PriceMin       *float64  `bun:"price_min" json:"price_min,omitempty"`
	PriceMax       *float64  `bun:"price_max" json:"price_max,omitempty"`
	IsFree         bool      `bun:"is_free" json:"is_free"`
	Description    *string   `bun:"description" json:"description,omitempty"`
	AgeRestriction string    `bun:"age_restriction" json:"age_restriction"`
	TicketURL      *string   `bun:"ticket_url" json:"ticket_url,omitempty"`
	SourceType     string    `bun:"source_type,notnull" json:"source_type"`
	SubmissionID   string    `bun:"submission_id,notnull" json:"submission_id"`
	Status         string    `bun:"status,notnull" json:"status"`
	StatusReason   *string   `bun:"status_reason" json:"status_reason,omitempty"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// EventUpsertRequest is the input to the upsert engine. VenueID names an
// existing venue; NewVenueName asks for one to be created instead.
type EventUpsertRequest struct {
	VenueID        string   `json:"venue_id"`
	NewVenueName   string   `json:"new_venue_name"`
	EventDate      string   `json:"event_date"`
	EventName      string   `json:"event_name"`
	StartTime      *string  `json:"start_time"`
	EndTime        *string  `json:"end_time"`
	GenresConcat   string   `json:"genres_concat"`
	PriceMin       *float64 `json:"price_min"`
	PriceMax       *float64 `json:"price_max"`
	IsFree         bool     `json:"is_free"`
	Description    *string  `json:"description"`
	AgeRestriction string   `json:"age_restriction"`
	TicketURL      *string  `json:"ticket_url"`
	SourceType     string   `json:"source_type"`
	SubmissionID   string   `json:"submission_id"`
}

type UpsertResult struct {
	EventID string `json:"event_id"`
	IsNew   bool   `json:"is_new"`
}
