package curation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ms-curation/internal/curation/db"
	"ms-curation/internal/logger"
	"ms-curation/internal/models"

	"github.com/google/uuid"
)

// DBLayer is the curation-store surface the upsert engine needs.
type DBLayer interface {
	GetVenueByID(ctx context.Context, id string) (*models.Venue, error)
	GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error)
	CreateVenue(ctx context.Context, venue models.Venue) error
	GetEventByID(ctx context.Context, id string) (*models.CandidateEvent, error)
	FindByNaturalKey(ctx context.Context, venueID string, eventDate time.Time, nameNormalized string) (*models.CandidateEvent, error)
	CreateEvent(ctx context.Context, event models.CandidateEvent) error
	UpdateEvent(ctx context.Context, event models.CandidateEvent) error
	ListActiveVenues(ctx context.Context) ([]models.Venue, error)
}

type UpsertService struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewUpsertService(dbLayer DBLayer, log *logger.Logger) *UpsertService {
	return &UpsertService{DB: dbLayer, Logger: log}
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify derives a URL-safe venue slug: lowercase, runs of non-alphanumeric
// characters collapsed to a single hyphen.
func Slugify(name string) string {
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// NormalizeEventName produces the dedup form of an event name: trimmed,
// lowercased, inner whitespace collapsed.
func NormalizeEventName(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
}

const dateLayout = "2006-01-02"

// Upsert resolves the venue, deduplicates against the curation store by
// (venue id, event date, normalized name) and creates or merges a candidate
// event. New candidates start as pending; a merge never changes status.
func (s *UpsertService) Upsert(ctx context.Context, req models.EventUpsertRequest) (*models.UpsertResult, error) {
	if strings.TrimSpace(req.EventName) == "" {
		return nil, &ValidationError{Field: "event_name", Reason: "must not be empty"}
	}
	eventDate, err := time.Parse(dateLayout, req.EventDate)
	if err != nil {
		return nil, &ValidationError{Field: "event_date", Reason: "must be a date in YYYY-MM-DD form"}
	}
	if req.VenueID == "" && strings.TrimSpace(req.NewVenueName) == "" {
		return nil, &ValidationError{Field: "venue_id", Reason: "either an existing venue id or a new venue name is required"}
	}

	// Free events carry no price range, even if the caller supplied one.
	if req.IsFree {
		req.PriceMin = nil
		req.PriceMax = nil
	}
	if req.SourceType == "" {
		req.SourceType = models.SourceUserSubmission
	}
	if req.AgeRestriction == "" {
		req.AgeRestriction = "all_ages"
	}

	venue, err := s.resolveVenue(ctx, req)
	if err != nil {
		return nil, err
	}

	normalized := NormalizeEventName(req.EventName)

	existing, err := s.DB.FindByNaturalKey(ctx, venue.VenueID, eventDate, normalized)
	if err != nil {
		return nil, &StorageError{Op: "dedup lookup", Err: err}
	}
	if existing != nil {
		return s.merge(ctx, existing, req, normalized)
	}

	event := s.buildEvent(req, venue.VenueID, eventDate, normalized)
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		if db.IsUniqueViolation(err) {
			// Lost a concurrent race on the natural key: merge into the
			// winner's record instead of failing.
			winner, findErr := s.DB.FindByNaturalKey(ctx, venue.VenueID, eventDate, normalized)
			if findErr != nil || winner == nil {
				return nil, &ConflictError{Constraint: "events natural key", Err: err}
			}
			return s.merge(ctx, winner, req, normalized)
		}
		return nil, &StorageError{Op: "create candidate event", Err: err}
	}

	s.Logger.LogEvent("UPSERT", event.EventID, fmt.Sprintf("created pending candidate %q at %s", req.EventName, venue.Name))
	return &models.UpsertResult{EventID: event.EventID, IsNew: true}, nil
}

// resolveVenue returns the referenced venue, creating it when the request
// names a new one. A slug race is retried exactly once by re-reading the
// winning row.
func (s *UpsertService) resolveVenue(ctx context.Context, req models.EventUpsertRequest) (*models.Venue, error) {
	if name := strings.TrimSpace(req.NewVenueName); name != "" {
		venue := models.Venue{
			VenueID:   uuid.NewString(),
			Name:      name,
			Slug:      Slugify(name),
			IsActive:  true,
			CreatedAt: time.Now(),
		}
		err := s.DB.CreateVenue(ctx, venue)
		if err == nil {
			s.Logger.LogEvent("VENUE", venue.VenueID, fmt.Sprintf("created venue %q (%s)", venue.Name, venue.Slug))
			return &venue, nil
		}
		if !db.IsUniqueViolation(err) {
			return nil, &StorageError{Op: "create venue", Err: err}
		}
		winner, findErr := s.DB.GetVenueBySlug(ctx, venue.Slug)
		if findErr != nil {
			return nil, &ConflictError{Constraint: "venue slug", Err: err}
		}
		return winner, nil
	}

	venue, err := s.DB.GetVenueByID(ctx, req.VenueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "venue", ID: req.VenueID}
	}
	if err != nil {
		return nil, &StorageError{Op: "venue lookup", Err: err}
	}
	return venue, nil
}

func (s *UpsertService) buildEvent(req models.EventUpsertRequest, venueID string, eventDate time.Time, normalized string) models.CandidateEvent {
	now := time.Now()
	return models.CandidateEvent{
		EventID:        uuid.NewString(),
		VenueID:        venueID,
		EventDate:      eventDate,
		EventName:      strings.TrimSpace(req.EventName),
		NameNormalized: normalized,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		GenresConcat:   strings.TrimSpace(req.GenresConcat),
		PriceMin:       req.PriceMin,
		PriceMax:       req.PriceMax,
		IsFree:         req.IsFree,
		Description:    req.Description,
		AgeRestriction: req.AgeRestriction,
		TicketURL:      req.TicketURL,
		SourceType:     req.SourceType,
		SubmissionID:   req.SubmissionID,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// merge folds the new submission into an existing candidate: non-null inputs
// overwrite, the id and status stay as they are.
func (s *UpsertService) merge(ctx context.Context, existing *models.CandidateEvent, req models.EventUpsertRequest, normalized string) (*models.UpsertResult, error) {
	existing.EventName = strings.TrimSpace(req.EventName)
	existing.NameNormalized = normalized
	if req.StartTime != nil {
		existing.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		existing.EndTime = req.EndTime
	}
	if g := strings.TrimSpace(req.GenresConcat); g != "" {
		existing.GenresConcat = g
	}
	existing.IsFree = req.IsFree
	if req.IsFree {
		existing.PriceMin = nil
		existing.PriceMax = nil
	} else {
		if req.PriceMin != nil {
			existing.PriceMin = req.PriceMin
		}
		if req.PriceMax != nil {
			existing.PriceMax = req.PriceMax
		}
	}
	if req.Description != nil {
		existing.Description = req.Description
	}
	if req.AgeRestriction != "" {
		existing.AgeRestriction = req.AgeRestriction
	}
	if req.TicketURL != nil {
		existing.TicketURL = req.TicketURL
	}
	existing.SourceType = req.SourceType
	if req.SubmissionID != "" {
		existing.SubmissionID = req.SubmissionID
	}
	existing.UpdatedAt = time.Now()

	if err := s.DB.UpdateEvent(ctx, *existing); err != nil {
		return nil, &StorageError{Op: "merge candidate event", Err: err}
	}

	s.Logger.LogEvent("UPSERT", existing.EventID, "merged duplicate submission into existing candidate")
	return &models.UpsertResult{EventID: existing.EventID, IsNew: false}, nil
}

// ListVenues exposes the active-venue directory for the submission form.
func (s *UpsertService) ListVenues(ctx context.Context) ([]models.Venue, error) {
	venues, err := s.DB.ListActiveVenues(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list venues", Err: err}
	}
	return venues, nil
}
