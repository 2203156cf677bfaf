package publish

import (
	"testing"
	"time"

	"ms-curation/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestJoinGenres(t *testing.T) {
	assert.Equal(t, "techno, house", JoinGenres("techno,house"))
	assert.Equal(t, "techno, house", JoinGenres("  techno ,  house  "))
	assert.Equal(t, "techno", JoinGenres("techno,,"))
	assert.Equal(t, "", JoinGenres("  ,  "))
}

func TestBuildProjectionDenormalizesVenue(t *testing.T) {
	start := "22:00"
	price := 25.0
	event := models.CandidateEvent{
		EventID:      "event-1",
		VenueID:      "venue-1",
		EventName:    "Warehouse Night",
		EventDate:    time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC),
		StartTime:    &start,
		GenresConcat: "techno , house",
		PriceMin:     &price,
		Status:       models.StatusPending,
	}
	venue := models.Venue{VenueID: "venue-1", Name: "Zouk", Slug: "zouk"}

	gold := BuildProjection(event, venue)

	assert.Equal(t, "event-1", gold.EventID)
	assert.Equal(t, "Zouk", gold.VenueName)
	assert.Equal(t, "zouk", gold.VenueSlug)
	assert.Equal(t, "techno, house", gold.GenresConcat)
	assert.Equal(t, "22:00", *gold.StartTime)
	assert.Equal(t, 25.0, *gold.PriceMin)
	assert.False(t, gold.PublishedAt.IsZero())
}
