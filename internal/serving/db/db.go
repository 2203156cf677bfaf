package db

import (
	"context"
	"strings"
	"time"

	"ms-curation/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// ListUpcoming returns live events inside the listing window, soonest first,
// capped at pageSize. This is the default unfiltered listing view.
func (d *DB) ListUpcoming(ctx context.Context, windowDays, pageSize int) ([]models.GoldEvent, error) {
	today := startOfToday()
	var events []models.GoldEvent
	err := d.Bun.NewSelect().
		Model(&events).
		Where("event_date >= ?", today).
		Where("event_date < ?", today.AddDate(0, 0, windowDays)).
		Order("event_date ASC").
		Limit(pageSize).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.GoldEvent{}
	}
	return events, nil
}

// ExecuteFilter compiles a translated query filter into a constrained read.
// All filters are ANDed on top of the date bound; an empty filter degrades to
// the plain upcoming listing. Empty result sets are a normal outcome.
func (d *DB) ExecuteFilter(ctx context.Context, filter models.QueryFilter, pageSize int) ([]models.GoldEvent, error) {
	var events []models.GoldEvent
	q := d.Bun.NewSelect().
		Model(&events).
		Where("event_date >= ?", startOfToday())

	if filter.Venue != nil {
		q = q.Where("LOWER(venue_name) LIKE ?", "%"+strings.ToLower(*filter.Venue)+"%")
	}
	if filter.Genre != nil {
		// The joined genre string uses ", " between tokens. Match the token
		// as a whole entry wherever it sits: first, middle, last or alone.
		genre := strings.ToLower(strings.TrimSpace(*filter.Genre))
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("LOWER(genres_concat) LIKE ?", genre+",%").
				WhereOr("LOWER(genres_concat) LIKE ?", "%, "+genre+",%").
				WhereOr("LOWER(genres_concat) LIKE ?", "%, "+genre).
				WhereOr("LOWER(genres_concat) = ?", genre)
		})
	}
	if filter.MaxPrice != nil {
		maxPrice := *filter.MaxPrice
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("price_min <= ?", maxPrice).
				WhereOr("is_free = ?", true)
		})
	}
	if filter.FreeOnly != nil && *filter.FreeOnly {
		q = q.Where("is_free = ?", true)
	}

	err := q.Order("event_date ASC").
		Limit(pageSize).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.GoldEvent{}
	}
	return events, nil
}

// CountLive returns the gold row count for the admin stats view.
func (d *DB) CountLive(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().Model((*models.GoldEvent)(nil)).Count(ctx)
}
