package search

import (
	"context"
	"fmt"
	"strings"

	"ms-curation/internal/curation"
	"ms-curation/internal/logger"
	"ms-curation/internal/models"
)

// ServingReader is the gold-store surface the search service reads. The
// serving store is the only store this service ever touches.
type ServingReader interface {
	ListUpcoming(ctx context.Context, windowDays, pageSize int) ([]models.GoldEvent, error)
	ExecuteFilter(ctx context.Context, filter models.QueryFilter, pageSize int) ([]models.GoldEvent, error)
}

type Service struct {
	Translator Translator
	Serving    ServingReader
	PageSize   int
	WindowDays int
	Logger     *logger.Logger
}

func NewService(translator Translator, serving ServingReader, pageSize, windowDays int, log *logger.Logger) *Service {
	return &Service{
		Translator: translator,
		Serving:    serving,
		PageSize:   pageSize,
		WindowDays: windowDays,
		Logger:     log,
	}
}

// SearchResult carries the rows plus the filter that produced them, so the
// caller can show what the query was understood as.
type SearchResult struct {
	Events  []models.GoldEvent `json:"events"`
	Filters models.QueryFilter `json:"filters_applied"`
	Count   int                `json:"result_count"`
}

// Search translates the free text and executes the compiled filter. A failed
// translation aborts the search: no unconstrained query ever runs in its
// place.
func (s *Service) Search(ctx context.Context, freeText string) (*SearchResult, error) {
	if strings.TrimSpace(freeText) == "" {
		return nil, &TranslationError{Reason: "empty query"}
	}

	filter, err := s.Translator.Translate(ctx, freeText)
	if err != nil {
		return nil, err
	}

	events, err := s.Serving.ExecuteFilter(ctx, filter, s.PageSize)
	if err != nil {
		return nil, &curation.StorageError{Op: "search query", Err: err}
	}

	s.Logger.LogSearch("EXECUTE", fmt.Sprintf("%q matched %d events", freeText, len(events)))
	return &SearchResult{Events: events, Filters: filter, Count: len(events)}, nil
}

// ListUpcoming is the unfiltered listing view over the serving store.
func (s *Service) ListUpcoming(ctx context.Context, windowDays int) ([]models.GoldEvent, error) {
	if windowDays <= 0 {
		windowDays = s.WindowDays
	}
	events, err := s.Serving.ListUpcoming(ctx, windowDays, s.PageSize)
	if err != nil {
		return nil, &curation.StorageError{Op: "list upcoming", Err: err}
	}
	return events, nil
}
