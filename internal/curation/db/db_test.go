package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ms-curation/internal/curation/db"
	"ms-curation/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	for _, model := range []interface{}{
		(*models.Venue)(nil),
		(*models.CandidateEvent)(nil),
		(*models.GoldEvent)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(context.Background())
		if err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func testVenue() models.Venue {
	return models.Venue{
		VenueID:   uuid.NewString(),
		Name:      "Zouk",
		Slug:      "zouk",
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}

func testEvent(venueID string, date time.Time) models.CandidateEvent {
	now := time.Now()
	return models.CandidateEvent{
		EventID:        uuid.NewString(),
		VenueID:        venueID,
		EventDate:      date,
		EventName:      "Warehouse Night",
		NameNormalized: "warehouse night",
		GenresConcat:   "Techno, House",
		IsFree:         false,
		AgeRestriction: "18+",
		SourceType:     models.SourceUserSubmission,
		SubmissionID:   uuid.NewString(),
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestVenueSlugUniqueness(t *testing.T) {
	curDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	venue := testVenue()
	assert.NoError(t, curDB.CreateVenue(ctx, venue))

	duplicate := testVenue()
	err := curDB.CreateVenue(ctx, duplicate)
	assert.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))

	// The winner is still readable by slug.
	winner, err := curDB.GetVenueBySlug(ctx, "zouk")
	assert.NoError(t, err)
	assert.Equal(t, venue.VenueID, winner.VenueID)
}

func TestNaturalKeyUniqueness(t *testing.T) {
	curDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	venue := testVenue()
	assert.NoError(t, curDB.CreateVenue(ctx, venue))

	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	event := testEvent(venue.VenueID, date)
	assert.NoError(t, curDB.CreateEvent(ctx, event))

	// Same (venue, date, normalized name) must not create a second row.
	duplicate := testEvent(venue.VenueID, date)
	err := curDB.CreateEvent(ctx, duplicate)
	assert.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))

	found, err := curDB.FindByNaturalKey(ctx, venue.VenueID, date, "warehouse night")
	assert.NoError(t, err)
	assert.NotNil(t, found)
	assert.Equal(t, event.EventID, found.EventID)
}

func TestFindByNaturalKeyMiss(t *testing.T) {
	curDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	found, err := curDB.FindByNaturalKey(context.Background(), "no-venue", time.Now(), "nothing")
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestMarkPublishedWritesProjectionAtomically(t *testing.T) {
	curDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	venue := testVenue()
	assert.NoError(t, curDB.CreateVenue(ctx, venue))
	event := testEvent(venue.VenueID, time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, curDB.CreateEvent(ctx, event))

	gold := models.GoldEvent{
		EventID:      event.EventID,
		EventName:    event.EventName,
		VenueName:    venue.Name,
		VenueSlug:    venue.Slug,
		EventDate:    event.EventDate,
		GenresConcat: "Techno, House",
		PublishedAt:  time.Now(),
	}

	published, err := curDB.MarkPublished(ctx, event.EventID, gold)
	assert.NoError(t, err)
	assert.Equal(t, 1, published)

	updated, err := curDB.GetEventByID(ctx, event.EventID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPublished, updated.Status)

	count, err := bunDB.NewSelect().Model((*models.GoldEvent)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	// Re-publishing a non-pending candidate is a no-op.
	published, err = curDB.MarkPublished(ctx, event.EventID, gold)
	assert.NoError(t, err)
	assert.Equal(t, 0, published)
}

func TestMarkPublishedRollsBackWhenProjectionFails(t *testing.T) {
	curDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	venue := testVenue()
	assert.NoError(t, curDB.CreateVenue(ctx, venue))
	event := testEvent(venue.VenueID, time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, curDB.CreateEvent(ctx, event))

	// Break the serving store so the projection write fails mid-transaction.
	_, err := bunDB.NewDropTable().Model((*models.GoldEvent)(nil)).Exec(ctx)
	assert.NoError(t, err)

	gold := models.GoldEvent{EventID: event.EventID, EventName: event.EventName,
		VenueName: venue.Name, VenueSlug: venue.Slug, EventDate: event.EventDate, PublishedAt: time.Now()}
	published, err := curDB.MarkPublished(ctx, event.EventID, gold)
	assert.Error(t, err)
	assert.Equal(t, 0, published)

	// The status flip must have rolled back with the projection.
	unchanged, err := curDB.GetEventByID(ctx, event.EventID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, unchanged.Status)
}

func TestMarkTerminalOnlyMovesPending(t *testing.T) {
	curDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	venue := testVenue()
	assert.NoError(t, curDB.CreateVenue(ctx, venue))
	event := testEvent(venue.VenueID, time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, curDB.CreateEvent(ctx, event))

	moved, err := curDB.MarkQuarantined(ctx, event.EventID, "date-not-past: event date is in the past")
	assert.NoError(t, err)
	assert.True(t, moved)

	quarantined, err := curDB.GetEventByID(ctx, event.EventID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusQuarantined, quarantined.Status)
	assert.NotNil(t, quarantined.StatusReason)

	// A terminal record cannot be rejected afterwards.
	moved, err = curDB.MarkRejected(ctx, event.EventID, "too late")
	assert.NoError(t, err)
	assert.False(t, moved)
}

func TestCountByStatus(t *testing.T) {
	curDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	venue := testVenue()
	assert.NoError(t, curDB.CreateVenue(ctx, venue))

	for i, status := range []string{models.StatusPending, models.StatusPending, models.StatusQuarantined} {
		event := testEvent(venue.VenueID, time.Date(2030, 6, 1+i, 0, 0, 0, 0, time.UTC))
		event.NameNormalized = event.NameNormalized + string(rune('a'+i))
		event.Status = status
		assert.NoError(t, curDB.CreateEvent(ctx, event))
	}

	counts, err := curDB.CountByStatus(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, counts[models.StatusPending])
	assert.Equal(t, 1, counts[models.StatusQuarantined])
}

func TestListByStatusOrdersAndCaps(t *testing.T) {
	curDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	venue := testVenue()
	assert.NoError(t, curDB.CreateVenue(ctx, venue))

	for i := 0; i < 5; i++ {
		event := testEvent(venue.VenueID, time.Date(2030, 7, 1+i, 0, 0, 0, 0, time.UTC))
		event.NameNormalized = event.NameNormalized + string(rune('a'+i))
		event.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		assert.NoError(t, curDB.CreateEvent(ctx, event))
	}

	pending, err := curDB.ListByStatus(ctx, models.StatusPending, 3)
	assert.NoError(t, err)
	assert.Len(t, pending, 3)
}
