package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ms-curation/internal/models"
)

// Translator turns free-text search input into a structured query filter.
// The provider behind it is swappable: remote model, static rules, or a
// caching wrapper around either.
type Translator interface {
	Translate(ctx context.Context, freeText string) (models.QueryFilter, error)
}

// TranslationError reports that the understanding step produced unusable
// output or did not answer in time. The caller must surface it; it never
// degrades into an unconstrained query.
type TranslationError struct {
	Reason string
	Err    error
}

func (e *TranslationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("translation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("translation failed: %s", e.Reason)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// ParseFilter decodes the wire form of a translated filter: a JSON object
// with exactly the keys v, g, p_max and free, each nullable. Markdown code
// fences around the object are tolerated since some models add them. Any
// unknown key, wrong type or negative price cap is a translation failure.
func ParseFilter(raw string) (models.QueryFilter, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var filter models.QueryFilter
	decoder := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&filter); err != nil {
		return models.QueryFilter{}, &TranslationError{Reason: "malformed filter payload", Err: err}
	}
	if decoder.More() {
		return models.QueryFilter{}, &TranslationError{Reason: "trailing content after filter payload"}
	}
	if filter.MaxPrice != nil && *filter.MaxPrice < 0 {
		return models.QueryFilter{}, &TranslationError{Reason: "negative price cap"}
	}
	if filter.Venue != nil && strings.TrimSpace(*filter.Venue) == "" {
		filter.Venue = nil
	}
	if filter.Genre != nil && strings.TrimSpace(*filter.Genre) == "" {
		filter.Genre = nil
	}
	return filter, nil
}
