package publish

import (
	"strings"
	"time"

	"ms-curation/internal/models"
)

// JoinGenres normalizes a raw genre list into the serving-store form: tokens
// trimmed and joined with ", ". Empty tokens are dropped.
func JoinGenres(raw string) string {
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := strings.TrimSpace(part); token != "" {
			tokens = append(tokens, token)
		}
	}
	return strings.Join(tokens, ", ")
}

// BuildProjection denormalizes an approved candidate into its gold row.
// The projection is disposable and fully recomputable from its source.
func BuildProjection(event models.CandidateEvent, venue models.Venue) models.GoldEvent {
	return models.GoldEvent{
		EventID:      event.EventID,
		EventName:    event.EventName,
		VenueName:    venue.Name,
		VenueSlug:    venue.Slug,
		EventDate:    event.EventDate,
		StartTime:    event.StartTime,
		GenresConcat: JoinGenres(event.GenresConcat),
		PriceMin:     event.PriceMin,
		PriceMax:     event.PriceMax,
		IsFree:       event.IsFree,
		TicketURL:    event.TicketURL,
		PublishedAt:  time.Now(),
	}
}
