package curation

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ms-curation/internal/logger"
	"ms-curation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) GetVenueByID(ctx context.Context, id string) (*models.Venue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Venue), args.Error(1)
}

func (m *MockDBLayer) GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Venue), args.Error(1)
}

func (m *MockDBLayer) CreateVenue(ctx context.Context, venue models.Venue) error {
	args := m.Called(ctx, venue)
	return args.Error(0)
}

func (m *MockDBLayer) GetEventByID(ctx context.Context, id string) (*models.CandidateEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CandidateEvent), args.Error(1)
}

func (m *MockDBLayer) FindByNaturalKey(ctx context.Context, venueID string, eventDate time.Time, nameNormalized string) (*models.CandidateEvent, error) {
	args := m.Called(ctx, venueID, eventDate, nameNormalized)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CandidateEvent), args.Error(1)
}

func (m *MockDBLayer) CreateEvent(ctx context.Context, event models.CandidateEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockDBLayer) UpdateEvent(ctx context.Context, event models.CandidateEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockDBLayer) ListActiveVenues(ctx context.Context) ([]models.Venue, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Venue), args.Error(1)
}

func newTestUpsertService(dbLayer DBLayer) *UpsertService {
	return NewUpsertService(dbLayer, logger.NewLogger())
}

func floatPtr(v float64) *float64 { return &v }

func activeVenue() *models.Venue {
	return &models.Venue{
		VenueID:  "venue-1",
		Name:     "Zouk",
		Slug:     "zouk",
		IsActive: true,
	}
}

func validRequest() models.EventUpsertRequest {
	return models.EventUpsertRequest{
		EventName:    "Warehouse Night",
		EventDate:    "2030-06-01",
		VenueID:      "venue-1",
		GenresConcat: "Techno, House",
		PriceMin:     floatPtr(20),
		PriceMax:     floatPtr(35),
		SourceType:   models.SourceUserSubmission,
		SubmissionID: "sub-1",
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "zouk", Slugify("Zouk"))
	assert.Equal(t, "marina-bay-sands", Slugify("Marina Bay Sands"))
	assert.Equal(t, "kilo-lounge", Slugify("  Kilo / Lounge!  "))
}

func TestNormalizeEventName(t *testing.T) {
	assert.Equal(t, "warehouse night", NormalizeEventName("  Warehouse   NIGHT "))
}

func TestUpsertRejectsEmptyName(t *testing.T) {
	svc := newTestUpsertService(new(MockDBLayer))

	req := validRequest()
	req.EventName = "   "
	_, err := svc.Upsert(context.Background(), req)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "event_name", validationErr.Field)
}

func TestUpsertRejectsMalformedDate(t *testing.T) {
	svc := newTestUpsertService(new(MockDBLayer))

	req := validRequest()
	req.EventDate = "June 1st"
	_, err := svc.Upsert(context.Background(), req)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "event_date", validationErr.Field)
}

func TestUpsertRequiresVenueReference(t *testing.T) {
	svc := newTestUpsertService(new(MockDBLayer))

	req := validRequest()
	req.VenueID = ""
	req.NewVenueName = ""
	_, err := svc.Upsert(context.Background(), req)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "venue_id", validationErr.Field)
}

func TestUpsertUnknownVenueIsNotFound(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetVenueByID", mock.Anything, "venue-404").Return(nil, sql.ErrNoRows)

	svc := newTestUpsertService(mockDB)
	req := validRequest()
	req.VenueID = "venue-404"
	_, err := svc.Upsert(context.Background(), req)

	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, "venue", notFound.Kind)
}

func TestUpsertCreatesPendingCandidate(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetVenueByID", mock.Anything, "venue-1").Return(activeVenue(), nil)
	mockDB.On("FindByNaturalKey", mock.Anything, "venue-1", mock.Anything, "warehouse night").Return(nil, nil)
	mockDB.On("CreateEvent", mock.Anything, mock.MatchedBy(func(event models.CandidateEvent) bool {
		return event.Status == models.StatusPending &&
			event.NameNormalized == "warehouse night" &&
			event.SubmissionID == "sub-1"
	})).Return(nil)

	svc := newTestUpsertService(mockDB)
	result, err := svc.Upsert(context.Background(), validRequest())

	assert.NoError(t, err)
	assert.True(t, result.IsNew)
	assert.NotEmpty(t, result.EventID)
	mockDB.AssertExpectations(t)
}

func TestUpsertFreeEventDropsPrices(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetVenueByID", mock.Anything, "venue-1").Return(activeVenue(), nil)
	mockDB.On("FindByNaturalKey", mock.Anything, "venue-1", mock.Anything, "warehouse night").Return(nil, nil)
	mockDB.On("CreateEvent", mock.Anything, mock.MatchedBy(func(event models.CandidateEvent) bool {
		return event.IsFree && event.PriceMin == nil && event.PriceMax == nil
	})).Return(nil)

	svc := newTestUpsertService(mockDB)
	req := validRequest()
	req.IsFree = true
	result, err := svc.Upsert(context.Background(), req)

	assert.NoError(t, err)
	assert.True(t, result.IsNew)
	mockDB.AssertExpectations(t)
}

func TestUpsertMergesIntoExistingCandidate(t *testing.T) {
	existing := &models.CandidateEvent{
		EventID:        "event-1",
		VenueID:        "venue-1",
		EventName:      "Warehouse Night",
		NameNormalized: "warehouse night",
		GenresConcat:   "Techno",
		PriceMin:       floatPtr(15),
		Status:         models.StatusPublished,
		SubmissionID:   "sub-0",
	}

	mockDB := new(MockDBLayer)
	mockDB.On("GetVenueByID", mock.Anything, "venue-1").Return(activeVenue(), nil)
	mockDB.On("FindByNaturalKey", mock.Anything, "venue-1", mock.Anything, "warehouse night").Return(existing, nil)
	mockDB.On("UpdateEvent", mock.Anything, mock.MatchedBy(func(event models.CandidateEvent) bool {
		// New values overwrite, status and id stay untouched.
		return event.EventID == "event-1" &&
			event.Status == models.StatusPublished &&
			event.GenresConcat == "Techno, House" &&
			event.PriceMin != nil && *event.PriceMin == 20 &&
			event.SubmissionID == "sub-1"
	})).Return(nil)

	svc := newTestUpsertService(mockDB)
	result, err := svc.Upsert(context.Background(), validRequest())

	assert.NoError(t, err)
	assert.False(t, result.IsNew)
	assert.Equal(t, "event-1", result.EventID)
	mockDB.AssertExpectations(t)
}

func TestUpsertMergeKeepsAbsentFields(t *testing.T) {
	desc := "Basement techno all night"
	existing := &models.CandidateEvent{
		EventID:        "event-1",
		VenueID:        "venue-1",
		EventName:      "Warehouse Night",
		NameNormalized: "warehouse night",
		Description:    &desc,
		Status:         models.StatusPending,
	}

	mockDB := new(MockDBLayer)
	mockDB.On("GetVenueByID", mock.Anything, "venue-1").Return(activeVenue(), nil)
	mockDB.On("FindByNaturalKey", mock.Anything, "venue-1", mock.Anything, "warehouse night").Return(existing, nil)
	mockDB.On("UpdateEvent", mock.Anything, mock.MatchedBy(func(event models.CandidateEvent) bool {
		return event.Description != nil && *event.Description == desc
	})).Return(nil)

	svc := newTestUpsertService(mockDB)
	req := validRequest()
	req.Description = nil
	_, err := svc.Upsert(context.Background(), req)

	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
}

func TestUpsertNaturalKeyRaceMergesIntoWinner(t *testing.T) {
	winner := &models.CandidateEvent{
		EventID:        "event-winner",
		VenueID:        "venue-1",
		EventName:      "Warehouse Night",
		NameNormalized: "warehouse night",
		Status:         models.StatusPending,
	}

	mockDB := new(MockDBLayer)
	mockDB.On("GetVenueByID", mock.Anything, "venue-1").Return(activeVenue(), nil)
	mockDB.On("FindByNaturalKey", mock.Anything, "venue-1", mock.Anything, "warehouse night").
		Return(nil, nil).Once()
	mockDB.On("CreateEvent", mock.Anything, mock.Anything).
		Return(errors.New(`pq: duplicate key value violates unique constraint "uq_events_natural_key"`))
	mockDB.On("FindByNaturalKey", mock.Anything, "venue-1", mock.Anything, "warehouse night").
		Return(winner, nil).Once()
	mockDB.On("UpdateEvent", mock.Anything, mock.Anything).Return(nil)

	svc := newTestUpsertService(mockDB)
	result, err := svc.Upsert(context.Background(), validRequest())

	assert.NoError(t, err)
	assert.False(t, result.IsNew)
	assert.Equal(t, "event-winner", result.EventID)
	mockDB.AssertExpectations(t)
}

func TestUpsertCreatesNewVenueWithSlug(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("CreateVenue", mock.Anything, mock.MatchedBy(func(venue models.Venue) bool {
		return venue.Slug == "marina-bay-sands" && venue.IsActive
	})).Return(nil)
	mockDB.On("FindByNaturalKey", mock.Anything, mock.Anything, mock.Anything, "warehouse night").Return(nil, nil)
	mockDB.On("CreateEvent", mock.Anything, mock.Anything).Return(nil)

	svc := newTestUpsertService(mockDB)
	req := validRequest()
	req.VenueID = ""
	req.NewVenueName = "Marina Bay Sands"
	result, err := svc.Upsert(context.Background(), req)

	assert.NoError(t, err)
	assert.True(t, result.IsNew)
	mockDB.AssertExpectations(t)
}

func TestUpsertVenueSlugRaceReusesWinner(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("CreateVenue", mock.Anything, mock.Anything).
		Return(errors.New(`pq: duplicate key value violates unique constraint "venues_venue_slug_key"`))
	mockDB.On("GetVenueBySlug", mock.Anything, "zouk").Return(activeVenue(), nil)
	mockDB.On("FindByNaturalKey", mock.Anything, "venue-1", mock.Anything, "warehouse night").Return(nil, nil)
	mockDB.On("CreateEvent", mock.Anything, mock.MatchedBy(func(event models.CandidateEvent) bool {
		return event.VenueID == "venue-1"
	})).Return(nil)

	svc := newTestUpsertService(mockDB)
	req := validRequest()
	req.VenueID = ""
	req.NewVenueName = "Zouk"
	result, err := svc.Upsert(context.Background(), req)

	assert.NoError(t, err)
	assert.True(t, result.IsNew)
	mockDB.AssertExpectations(t)
}
