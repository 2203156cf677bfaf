package search

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"ms-curation/internal/models"
)

// StaticTranslator is a rule-based fallback for development and tests: no
// network, deterministic output, same contract as the remote model. Enabled
// via TRANSLATOR_MOCK_MODE.
type StaticTranslator struct{}

func NewStaticTranslator() *StaticTranslator {
	return &StaticTranslator{}
}

// knownGenres are the tokens the rule-based translator recognizes, matched
// as whole words.
var knownGenres = []string{
	"techno", "house", "trance", "dnb", "drum and bass", "dubstep",
	"garage", "electro", "disco", "hardstyle", "ambient", "hardcore",
}

var (
	pricePattern = regexp.MustCompile(`\b(?:under|below|less than|max)\s+\$?(\d+(?:\.\d+)?)\b`)
	venuePattern = regexp.MustCompile(`\bat\s+(.+?)\s*$`)
	freePattern  = regexp.MustCompile(`\bfree\b`)
)

func (t *StaticTranslator) Translate(_ context.Context, freeText string) (models.QueryFilter, error) {
	if strings.TrimSpace(freeText) == "" {
		return models.QueryFilter{}, &TranslationError{Reason: "empty query"}
	}

	lower := strings.ToLower(freeText)
	var filter models.QueryFilter

	if freePattern.MatchString(lower) {
		free := true
		filter.FreeOnly = &free
	}

	if match := pricePattern.FindStringSubmatch(lower); match != nil {
		if price, err := strconv.ParseFloat(match[1], 64); err == nil {
			filter.MaxPrice = &price
		}
	}

	for _, genre := range knownGenres {
		if regexp.MustCompile(`\b` + regexp.QuoteMeta(genre) + `\b`).MatchString(lower) {
			g := genre
			filter.Genre = &g
			break
		}
	}

	// Venue is whatever follows a trailing "at ...", with the caller's
	// original casing preserved.
	if loc := venuePattern.FindStringSubmatchIndex(lower); loc != nil {
		venue := strings.TrimSpace(freeText[loc[2]:loc[3]])
		if venue != "" {
			filter.Venue = &venue
		}
	}

	return filter, nil
}
