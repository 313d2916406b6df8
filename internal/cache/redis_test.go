package cache_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/cache"
)

func newTestRedisCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCache(client)
}

// Scenario 5 (spec.md §8): a semantically equivalent repeat query
// returns a cache hit with the same recorded cost.
func TestRedisCacheHitOnSimilarEmbedding(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	embedding := []float32{1, 0, 0}
	entry := cache.Entry{
		AnswerText: "properties in Tamarindo under 500k",
		ModelID:    "gpt-cheap",
		SourceIDs:  []string{"doc-1"},
		TTLSeconds: 3600,
	}
	require.NoError(t, c.Store(ctx, "acme", "buyer", embedding, entry))

	got, hit, err := c.Lookup(ctx, "acme", "buyer", []float32{0.999, 0.001, 0})
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, entry.AnswerText, got.AnswerText)
}

func TestRedisCacheMissBelowThreshold(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "acme", "buyer", []float32{1, 0, 0}, cache.Entry{AnswerText: "x", TTLSeconds: 3600}))

	_, hit, err := c.Lookup(ctx, "acme", "buyer", []float32{0, 1, 0})
	require.NoError(t, err)
	assert.False(t, hit)
}

// Testable Properties (spec.md §8, line 327): a query scoring exactly
// at the similarity threshold is a miss, not a hit (strict >).
func TestRedisCacheMissWhenScoreIsExactlyAtThreshold(t *testing.T) {
	c := newTestRedisCache(t)
	c.SimilarityThreshold = 0.6
	ctx := context.Background()

	// cosine([1,0], [3,4]) == 3/5 == 0.6 exactly: both sides of the
	// comparison round dot/(|a||b|) to the identical float64.
	require.NoError(t, c.Store(ctx, "acme", "buyer", []float32{1, 0}, cache.Entry{AnswerText: "x", TTLSeconds: 3600}))

	_, hit, err := c.Lookup(ctx, "acme", "buyer", []float32{3, 4})
	require.NoError(t, err)
	assert.False(t, hit, "a score exactly at the threshold must miss")
}

func TestRedisCacheScopedPerRoleAndTenant(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "acme", "buyer", []float32{1, 0, 0}, cache.Entry{AnswerText: "buyer answer", TTLSeconds: 3600}))

	_, hit, err := c.Lookup(ctx, "acme", "tourist", []float32{1, 0, 0})
	require.NoError(t, err)
	assert.False(t, hit, "cache buckets are scoped per (tenant, role) and must not leak across roles")
}

func TestRedisCacheInvalidateEvictsBySource(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	entry := cache.Entry{AnswerText: "x", SourceIDs: []string{"doc-42"}, TTLSeconds: 3600}
	require.NoError(t, c.Store(ctx, "acme", "buyer", []float32{1, 0, 0}, entry))

	require.NoError(t, c.Invalidate(ctx, "doc-42"))

	_, hit, err := c.Lookup(ctx, "acme", "buyer", []float32{1, 0, 0})
	require.NoError(t, err)
	assert.False(t, hit, "invalidating a source document must evict cache entries that cited it")
}

func TestDummyCacheAlwaysMissesAndNeverErrors(t *testing.T) {
	d := cache.NewDummyCache()
	ctx := context.Background()

	require.NoError(t, d.Store(ctx, "acme", "buyer", []float32{1, 0, 0}, cache.Entry{AnswerText: "x"}))
	_, hit, err := d.Lookup(ctx, "acme", "buyer", []float32{1, 0, 0})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, d.Invalidate(ctx, "doc-1"))
}
