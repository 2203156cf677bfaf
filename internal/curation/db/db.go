package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"ms-curation/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// IsUniqueViolation reports whether err is a uniqueness-constraint failure.
// Covers both the postgres driver used at runtime and the sqlite driver used
// in tests.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// ---------------- VENUES ----------------

func (d *DB) GetVenueByID(ctx context.Context, id string) (*models.Venue, error) {
	var venue models.Venue
	err := d.Bun.NewSelect().
		Model(&venue).
		Where("venue_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

func (d *DB) GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error) {
	var venue models.Venue
	err := d.Bun.NewSelect().
		Model(&venue).
		Where("venue_slug = ?", slug).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

func (d *DB) CreateVenue(ctx context.Context, venue models.Venue) error {
	_, err := d.Bun.NewInsert().Model(&venue).Exec(ctx)
	return err
}

func (d *DB) ListActiveVenues(ctx context.Context) ([]models.Venue, error) {
	var venues []models.Venue
	err := d.Bun.NewSelect().
		Model(&venues).
		Where("is_active = ?", true).
		Order("venue_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return venues, nil
}

// ---------------- CANDIDATE EVENTS ----------------

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.CandidateEvent, error) {
	var event models.CandidateEvent
	err := d.Bun.NewSelect().
		Model(&event).
		Where("event_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// FindByNaturalKey looks up a candidate by the dedup key
// (venue id, event date, normalized name). Returns nil when no match exists.
func (d *DB) FindByNaturalKey(ctx context.Context, venueID string, eventDate time.Time, nameNormalized string) (*models.CandidateEvent, error) {
	var event models.CandidateEvent
	err := d.Bun.NewSelect().
		Model(&event).
		Where("venue_id = ?", venueID).
		Where("event_date = ?", eventDate).
		Where("name_normalized = ?", nameNormalized).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) CreateEvent(ctx context.Context, event models.CandidateEvent) error {
	_, err := d.Bun.NewInsert().Model(&event).Exec(ctx)
	return err
}

func (d *DB) UpdateEvent(ctx context.Context, event models.CandidateEvent) error {
	_, err := d.Bun.NewUpdate().
		Model(&event).
		Column("event_name", "name_normalized", "start_time", "end_time",
			"genres_concat", "price_min", "price_max", "is_free", "description",
			"age_restriction", "ticket_url", "source_type", "submission_id",
			"updated_at").
		Where("event_id = ?", event.EventID).
		Exec(ctx)
	return err
}

func (d *DB) ListByStatus(ctx context.Context, status string, limit int) ([]models.CandidateEvent, error) {
	var events []models.CandidateEvent
	err := d.Bun.NewSelect().
		Model(&events).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.CandidateEvent{}
	}
	return events, nil
}

func (d *DB) ListPendingBefore(ctx context.Context, limit int) ([]models.CandidateEvent, error) {
	return d.ListByStatus(ctx, models.StatusPending, limit)
}

func (d *DB) CountByStatus(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}
	err := d.Bun.NewSelect().
		Model((*models.CandidateEvent)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS count").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ---------------- STATE TRANSITIONS ----------------

// MarkPublished flips a pending candidate to published and writes its gold
// projection in one transaction. If either write fails the whole transition
// rolls back, so a candidate is never published without a live projection.
// Returns the number of projected rows: 0 when the candidate was not pending
// anymore, 1 on success.
func (d *DB) MarkPublished(ctx context.Context, eventID string, gold models.GoldEvent) (int, error) {
	published := 0
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.CandidateEvent)(nil)).
			Set("status = ?", models.StatusPublished).
			Set("status_reason = NULL").
			Set("updated_at = ?", time.Now()).
			Where("event_id = ?", eventID).
			Where("status = ?", models.StatusPending).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Already processed elsewhere; nothing to project.
			return nil
		}

		_, err = tx.NewInsert().
			Model(&gold).
			On("CONFLICT (event_id) DO UPDATE").
			Set("event_name = EXCLUDED.event_name").
			Set("venue_name = EXCLUDED.venue_name").
			Set("venue_slug = EXCLUDED.venue_slug").
			Set("event_date = EXCLUDED.event_date").
			Set("start_time = EXCLUDED.start_time").
			Set("genres_concat = EXCLUDED.genres_concat").
			Set("price_min = EXCLUDED.price_min").
			Set("price_max = EXCLUDED.price_max").
			Set("is_free = EXCLUDED.is_free").
			Set("ticket_url = EXCLUDED.ticket_url").
			Set("published_at = EXCLUDED.published_at").
			Exec(ctx)
		if err != nil {
			return err
		}
		published = 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

// markTerminal moves a pending candidate into a terminal status with a reason.
// Returns false when the candidate was not pending.
func (d *DB) markTerminal(ctx context.Context, eventID, status, reason string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.CandidateEvent)(nil)).
		Set("status = ?", status).
		Set("status_reason = ?", reason).
		Set("updated_at = ?", time.Now()).
		Where("event_id = ?", eventID).
		Where("status = ?", models.StatusPending).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (d *DB) MarkQuarantined(ctx context.Context, eventID, reason string) (bool, error) {
	return d.markTerminal(ctx, eventID, models.StatusQuarantined, reason)
}

func (d *DB) MarkRejected(ctx context.Context, eventID, reason string) (bool, error) {
	return d.markTerminal(ctx, eventID, models.StatusRejected, reason)
}
