package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ms-curation/internal/logger"
	"ms-curation/internal/models"

	"github.com/go-redis/redis/v8"
)

const translationKeyPrefix = "nlq:"

// CachedTranslator memoizes translation results in Redis so repeated queries
// skip the model round-trip. Cache failures fall through to the inner
// translator; a broken cache never breaks search.
type CachedTranslator struct {
	Inner  Translator
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewCachedTranslator(inner Translator, client *redis.Client, ttl time.Duration, log *logger.Logger) *CachedTranslator {
	return &CachedTranslator{Inner: inner, Client: client, TTL: ttl, Logger: log}
}

func cacheKey(freeText string) string {
	return translationKeyPrefix + strings.Join(strings.Fields(strings.ToLower(freeText)), " ")
}

func (t *CachedTranslator) Translate(ctx context.Context, freeText string) (models.QueryFilter, error) {
	key := cacheKey(freeText)

	cached, err := t.Client.Get(ctx, key).Result()
	if err == nil {
		var filter models.QueryFilter
		if jsonErr := json.Unmarshal([]byte(cached), &filter); jsonErr == nil {
			t.Logger.LogSearch("CACHE", fmt.Sprintf("hit for %q", freeText))
			return filter, nil
		}
		// Unreadable entry; drop it and translate fresh.
		t.Client.Del(ctx, key)
	} else if err != redis.Nil {
		t.Logger.Warn("SEARCH", fmt.Sprintf("translation cache read failed: %v", err))
	}

	filter, err := t.Inner.Translate(ctx, freeText)
	if err != nil {
		return models.QueryFilter{}, err
	}

	if payload, jsonErr := json.Marshal(filter); jsonErr == nil {
		if setErr := t.Client.Set(ctx, key, payload, t.TTL).Err(); setErr != nil {
			t.Logger.Warn("SEARCH", fmt.Sprintf("translation cache write failed: %v", setErr))
		}
	}
	return filter, nil
}
