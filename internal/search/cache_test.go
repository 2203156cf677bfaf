package search

import (
	"context"
	"testing"
	"time"

	"ms-curation/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

func TestCacheKeyNormalizesWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, "nlq:free house events", cacheKey("  Free   HOUSE events "))
	assert.Equal(t, cacheKey("techno at Zouk"), cacheKey("TECHNO at ZOUK"))
}

func TestCachedTranslatorFailsOpenWhenRedisIsDown(t *testing.T) {
	// Nothing listens here; every cache call errors out.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	defer client.Close()

	translator := NewCachedTranslator(NewStaticTranslator(), client, time.Minute, logger.NewLogger())
	filter, err := translator.Translate(context.Background(), "free house events")

	assert.NoError(t, err)
	assert.Equal(t, "house", *filter.Genre)
	assert.True(t, *filter.FreeOnly)
}

func TestCachedTranslatorPropagatesTranslationFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	defer client.Close()

	translator := NewCachedTranslator(failingTranslator{}, client, time.Minute, logger.NewLogger())
	_, err := translator.Translate(context.Background(), "techno tonight")

	var translationErr *TranslationError
	assert.ErrorAs(t, err, &translationErr)
}
