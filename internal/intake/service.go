package intake

import (
	"context"
	"fmt"
	"time"

	"ms-curation/internal/curation"
	"ms-curation/internal/logger"
	"ms-curation/internal/models"

	"github.com/google/uuid"
)

// DBLayer is the bronze-store surface the intake service needs.
type DBLayer interface {
	InsertSubmission(ctx context.Context, submission models.RawSubmission) error
}

// Upserter feeds validated submissions into the curation store.
type Upserter interface {
	Upsert(ctx context.Context, req models.EventUpsertRequest) (*models.UpsertResult, error)
}

// SourceIdentity describes where a submission came from: client address and
// user agent for form submissions, a scraper id for scraped ones.
type SourceIdentity struct {
	IP        string
	UserAgent string
}

type Service struct {
	DB     DBLayer
	Upsert Upserter
	Logger *logger.Logger
}

func NewService(dbLayer DBLayer, upserter Upserter, log *logger.Logger) *Service {
	return &Service{DB: dbLayer, Upsert: upserter, Logger: log}
}

// SubmitEvent writes the bronze audit record first, then runs the upsert
// engine with the bronze id as lineage. The bronze write happens even when
// the upsert later fails validation: the raw record is the audit trail.
func (s *Service) SubmitEvent(ctx context.Context, req models.EventUpsertRequest, source SourceIdentity) (*models.UpsertResult, error) {
	submission := models.RawSubmission{
		SubmissionID: uuid.NewString(),
		ReceivedAt:   time.Now(),
		SourceIP:     source.IP,
		UserAgent:    source.UserAgent,
		RawPayload:   payloadMap(req),
	}
	if err := s.DB.InsertSubmission(ctx, submission); err != nil {
		return nil, &curation.StorageError{Op: "bronze write", Err: err}
	}
	s.Logger.LogEvent("INTAKE", submission.SubmissionID, fmt.Sprintf("raw submission recorded from %s", source.IP))

	req.SubmissionID = submission.SubmissionID
	return s.Upsert.Upsert(ctx, req)
}

// payloadMap flattens the request into the opaque key/value form stored in
// bronze, preserving exactly what the caller sent.
func payloadMap(req models.EventUpsertRequest) map[string]string {
	payload := map[string]string{
		"venue_id":        req.VenueID,
		"new_venue_name":  req.NewVenueName,
		"event_date":      req.EventDate,
		"event_name":      req.EventName,
		"genres_concat":   req.GenresConcat,
		"is_free":         fmt.Sprintf("%t", req.IsFree),
		"age_restriction": req.AgeRestriction,
		"source_type":     req.SourceType,
	}
	if req.StartTime != nil {
		payload["start_time"] = *req.StartTime
	}
	if req.EndTime != nil {
		payload["end_time"] = *req.EndTime
	}
	if req.PriceMin != nil {
		payload["price_min"] = fmt.Sprintf("%g", *req.PriceMin)
	}
	if req.PriceMax != nil {
		payload["price_max"] = fmt.Sprintf("%g", *req.PriceMax)
	}
	if req.Description != nil {
		payload["description"] = *req.Description
	}
	if req.TicketURL != nil {
		payload["ticket_url"] = *req.TicketURL
	}
	return payload
}
