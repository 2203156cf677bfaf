package curation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-curation/internal/config"
	"ms-curation/internal/logger"
	"ms-curation/internal/models"
	"ms-curation/internal/publish"
)

// DefaultRejectionReason is stored when an admin rejects without a note.
const DefaultRejectionReason = "Manual rejection by admin"

// AuditDBLayer is the curation-store surface the audit engine needs. The
// publish transition is a single transactional operation in the store so the
// status flip and the gold projection commit or roll back together.
type AuditDBLayer interface {
	GetEventByID(ctx context.Context, id string) (*models.CandidateEvent, error)
	GetVenueByID(ctx context.Context, id string) (*models.Venue, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]models.CandidateEvent, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	MarkPublished(ctx context.Context, eventID string, gold models.GoldEvent) (int, error)
	MarkQuarantined(ctx context.Context, eventID, reason string) (bool, error)
	MarkRejected(ctx context.Context, eventID, reason string) (bool, error)
}

// LifecyclePublisher streams curation lifecycle notifications. Failures are
// logged, never propagated: the state transition has already committed.
type LifecyclePublisher interface {
	Publish(topic string, key string, value []byte) error
}

type AuditService struct {
	DB     AuditDBLayer
	Kafka  LifecyclePublisher
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewAuditService(dbLayer AuditDBLayer, kafka LifecyclePublisher, topics config.TopicConfig, log *logger.Logger) *AuditService {
	return &AuditService{DB: dbLayer, Kafka: kafka, Topics: topics, Logger: log}
}

// AuditResult reports the outcome of a single transition attempt.
type AuditResult struct {
	EventID   string `json:"event_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Published int    `json:"published"`
}

// AuditSummary reports a batch gate run.
type AuditSummary struct {
	Scanned     int `json:"scanned"`
	Published   int `json:"published"`
	Quarantined int `json:"quarantined"`
}

// qualityCheck is one gate rule. Checks run in a fixed order and the first
// failure wins, so quarantine reasons are deterministic.
type qualityCheck struct {
	name  string
	check func(event *models.CandidateEvent, venue *models.Venue) string
}

var qualityGate = []qualityCheck{
	{
		name: "venue-active",
		check: func(_ *models.CandidateEvent, venue *models.Venue) string {
			if venue == nil || !venue.IsActive {
				return "venue is not active"
			}
			return ""
		},
	},
	{
		name: "date-not-past",
		check: func(event *models.CandidateEvent, _ *models.Venue) string {
			today := time.Now().Truncate(24 * time.Hour)
			if event.EventDate.Before(today) {
				return "event date is in the past"
			}
			return ""
		},
	},
	{
		name: "price-consistency",
		check: func(event *models.CandidateEvent, _ *models.Venue) string {
			if event.IsFree && (event.PriceMin != nil || event.PriceMax != nil) {
				return "free event carries a price range"
			}
			if event.PriceMin != nil && event.PriceMax != nil && *event.PriceMin > *event.PriceMax {
				return "price_min is greater than price_max"
			}
			return ""
		},
	},
	{
		name: "name-non-empty",
		check: func(event *models.CandidateEvent, _ *models.Venue) string {
			if strings.TrimSpace(event.EventName) == "" {
				return "event name is empty"
			}
			return ""
		},
	},
}

// runGate returns the failing check's message, or "" when all checks pass.
func runGate(event *models.CandidateEvent, venue *models.Venue) string {
	for _, gate := range qualityGate {
		if reason := gate.check(event, venue); reason != "" {
			return fmt.Sprintf("%s: %s", gate.name, reason)
		}
	}
	return ""
}

// Approve drives the pending → published transition. A non-pending candidate
// is an idempotent no-op so duplicate admin clicks never error. A candidate
// failing the quality gate is quarantined instead, with the failing check's
// message as the stored reason.
func (s *AuditService) Approve(ctx context.Context, eventID, approver, note string) (*AuditResult, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if event.Status != models.StatusPending {
		s.Logger.LogAudit("APPROVE", eventID, fmt.Sprintf("already %s, nothing to do", event.Status))
		return &AuditResult{EventID: eventID, Status: event.Status, Published: 0}, nil
	}

	venue, err := s.loadVenue(ctx, event.VenueID)
	if err != nil {
		return nil, err
	}

	if reason := runGate(event, venue); reason != "" {
		return s.quarantine(ctx, event, reason)
	}

	gold := publish.BuildProjection(*event, *venue)
	published, err := s.DB.MarkPublished(ctx, eventID, gold)
	if err != nil {
		return nil, &StorageError{Op: "publish transition", Err: err}
	}
	if published == 0 {
		// Lost a race with another transition; report the current state.
		current, loadErr := s.loadEvent(ctx, eventID)
		if loadErr != nil {
			return nil, loadErr
		}
		return &AuditResult{EventID: eventID, Status: current.Status, Published: 0}, nil
	}

	s.Logger.LogAudit("APPROVE", eventID, fmt.Sprintf("published by %s", approver))
	s.notify(s.Topics.EventPublished, eventID, models.StatusPublished, note)
	return &AuditResult{EventID: eventID, Status: models.StatusPublished, Published: published}, nil
}

// Reject drives the pending → rejected transition with a caller-supplied
// reason. Blank reasons fall back to the fixed default.
func (s *AuditService) Reject(ctx context.Context, eventID, reason string) (*AuditResult, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != models.StatusPending {
		return &AuditResult{EventID: eventID, Status: event.Status, Published: 0}, nil
	}

	if strings.TrimSpace(reason) == "" {
		reason = DefaultRejectionReason
	}
	moved, err := s.DB.MarkRejected(ctx, eventID, reason)
	if err != nil {
		return nil, &StorageError{Op: "reject transition", Err: err}
	}
	if moved {
		s.Logger.LogAudit("REJECT", eventID, reason)
		s.notify(s.Topics.EventRejected, eventID, models.StatusRejected, reason)
	}
	return &AuditResult{EventID: eventID, Status: models.StatusRejected, Reason: reason, Published: 0}, nil
}

// RunAudit sweeps pending candidates through the quality gate, publishing the
// clean ones and quarantining the rest. This is the automated counterpart of
// per-event admin approval.
func (s *AuditService) RunAudit(ctx context.Context, limit int) (*AuditSummary, error) {
	pending, err := s.DB.ListByStatus(ctx, models.StatusPending, limit)
	if err != nil {
		return nil, &StorageError{Op: "list pending", Err: err}
	}

	summary := &AuditSummary{Scanned: len(pending)}
	for i := range pending {
		result, err := s.Approve(ctx, pending[i].EventID, "auto-gate", "")
		if err != nil {
			return summary, err
		}
		switch result.Status {
		case models.StatusPublished:
			summary.Published += result.Published
		case models.StatusQuarantined:
			summary.Quarantined++
		}
	}

	s.Logger.LogAudit("GATE", "batch", fmt.Sprintf("scanned=%d published=%d quarantined=%d",
		summary.Scanned, summary.Published, summary.Quarantined))
	return summary, nil
}

// Stats returns candidate counts by status for the admin dashboard.
func (s *AuditService) Stats(ctx context.Context) (map[string]int, error) {
	counts, err := s.DB.CountByStatus(ctx)
	if err != nil {
		return nil, &StorageError{Op: "count by status", Err: err}
	}
	return counts, nil
}

func (s *AuditService) ListPending(ctx context.Context, limit int) ([]models.CandidateEvent, error) {
	events, err := s.DB.ListByStatus(ctx, models.StatusPending, limit)
	if err != nil {
		return nil, &StorageError{Op: "list pending", Err: err}
	}
	return events, nil
}

func (s *AuditService) ListQuarantined(ctx context.Context, limit int) ([]models.CandidateEvent, error) {
	events, err := s.DB.ListByStatus(ctx, models.StatusQuarantined, limit)
	if err != nil {
		return nil, &StorageError{Op: "list quarantined", Err: err}
	}
	return events, nil
}

func (s *AuditService) quarantine(ctx context.Context, event *models.CandidateEvent, reason string) (*AuditResult, error) {
	moved, err := s.DB.MarkQuarantined(ctx, event.EventID, reason)
	if err != nil {
		return nil, &StorageError{Op: "quarantine transition", Err: err}
	}
	if moved {
		s.Logger.LogAudit("QUARANTINE", event.EventID, reason)
		s.notify(s.Topics.EventQuarantined, event.EventID, models.StatusQuarantined, reason)
	}
	return &AuditResult{EventID: event.EventID, Status: models.StatusQuarantined, Reason: reason, Published: 0}, nil
}

func (s *AuditService) loadEvent(ctx context.Context, eventID string) (*models.CandidateEvent, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "event", ID: eventID}
	}
	if err != nil {
		return nil, &StorageError{Op: "event lookup", Err: err}
	}
	return event, nil
}

func (s *AuditService) loadVenue(ctx context.Context, venueID string) (*models.Venue, error) {
	venue, err := s.DB.GetVenueByID(ctx, venueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "venue", ID: venueID}
	}
	if err != nil {
		return nil, &StorageError{Op: "venue lookup", Err: err}
	}
	return venue, nil
}

// notify streams a lifecycle change to Kafka. Best effort only.
func (s *AuditService) notify(topic, eventID, status, detail string) {
	if s.Kafka == nil || topic == "" {
		return
	}
	payload, err := json.Marshal(map[string]string{
		"event_id": eventID,
		"status":   status,
		"detail":   detail,
	})
	if err != nil {
		return
	}
	if err := s.Kafka.Publish(topic, eventID, payload); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish %s notification for %s: %v", status, eventID, err))
	}
}
