package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/casatico/stayfly/internal/jsonx"
)

// RedisCache backs the semantic cache with go-redis/v9. Redis has no
// builtin nearest-cosine-neighbor primitive for an ad hoc bucket this
// size, so each (tenant, role) bucket is stored as a small Redis hash
// of cache-key -> serialized Entry and scored client-side on lookup.
type RedisCache struct {
	Client              redis.Cmdable
	SimilarityThreshold float64
	MaxBucketSize       int
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{
		Client:              client,
		SimilarityThreshold: DefaultSimilarityThreshold,
		MaxBucketSize:       200,
	}
}

func bucketKey(tenant, role string) string {
	return fmt.Sprintf("stayfly:cache:%s:%s", tenant, role)
}

func invalidationIndexKey(documentID string) string {
	return fmt.Sprintf("stayfly:cache:docidx:%s", documentID)
}

func (c *RedisCache) threshold() float64 {
	if c.SimilarityThreshold == 0 {
		return DefaultSimilarityThreshold
	}
	return c.SimilarityThreshold
}

// Lookup scans the (tenant, role) bucket and returns the nearest entry
// whose cosine similarity exceeds the threshold and whose TTL has not
// expired. Expired entries encountered along the way are dropped.
func (c *RedisCache) Lookup(ctx context.Context, tenant, role string, queryEmbedding []float32) (*Entry, bool, error) {
	raw, err := c.Client.HGetAll(ctx, bucketKey(tenant, role)).Result()
	if err != nil && err != redis.Nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}

	now := time.Now()
	var best *Entry
	bestScore := -1.0
	for field, payload := range raw {
		var e Entry
		if err := jsonx.Unmarshal([]byte(payload), &e); err != nil {
			continue
		}
		if e.Expired(now) {
			_ = c.Client.HDel(ctx, bucketKey(tenant, role), field).Err()
			continue
		}
		score := cosineSimilarity(queryEmbedding, e.QueryEmbedding)
		if score > bestScore {
			bestScore = score
			entryCopy := e
			best = &entryCopy
		}
	}

	if best == nil || bestScore <= c.threshold() {
		return nil, false, nil
	}
	return best, true, nil
}

// Store writes entry into the (tenant, role) bucket and registers its
// sources in the write-through invalidation index.
func (c *RedisCache) Store(ctx context.Context, tenant, role string, queryEmbedding []float32, entry Entry) error {
	entry.QueryEmbedding = queryEmbedding
	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}

	payload, err := jsonx.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	key := cacheFieldKey(queryEmbedding, entry.StoredAt)
	bk := bucketKey(tenant, role)

	pipe := c.Client.Pipeline()
	pipe.HSet(ctx, bk, key, payload)
	for _, sourceID := range entry.SourceIDs {
		pipe.SAdd(ctx, invalidationIndexKey(sourceID), bk+":"+key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}

	if c.MaxBucketSize > 0 {
		c.evictOldestIfOverCapacity(ctx, bk)
	}
	return nil
}

func (c *RedisCache) evictOldestIfOverCapacity(ctx context.Context, bucket string) {
	size, err := c.Client.HLen(ctx, bucket).Result()
	if err != nil || int(size) <= c.MaxBucketSize {
		return
	}
	raw, err := c.Client.HGetAll(ctx, bucket).Result()
	if err != nil {
		return
	}
	var oldestField string
	var oldestAt time.Time
	for field, payload := range raw {
		var e Entry
		if err := jsonx.Unmarshal([]byte(payload), &e); err != nil {
			continue
		}
		if oldestField == "" || e.StoredAt.Before(oldestAt) {
			oldestField, oldestAt = field, e.StoredAt
		}
	}
	if oldestField != "" {
		_ = c.Client.HDel(ctx, bucket, oldestField).Err()
	}
}

// Invalidate evicts every cache entry that cited documentID as a
// source, via the write-through index maintained by Store.
func (c *RedisCache) Invalidate(ctx context.Context, documentID string) error {
	idxKey := invalidationIndexKey(documentID)
	members, err := c.Client.SMembers(ctx, idxKey).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("invalidate: read index: %w", err)
	}

	pipe := c.Client.Pipeline()
	for _, m := range members {
		bucket, field, ok := splitBucketField(m)
		if !ok {
			continue
		}
		pipe.HDel(ctx, bucket, field)
	}
	pipe.Del(ctx, idxKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate: evict: %w", err)
	}
	return nil
}

func cacheFieldKey(embedding []float32, storedAt time.Time) string {
	return fmt.Sprintf("%d-%d", storedAt.UnixNano(), len(embedding))
}

func splitBucketField(combined string) (bucket, field string, ok bool) {
	for i := len(combined) - 1; i >= 0; i-- {
		if combined[i] == ':' {
			return combined[:i], combined[i+1:], true
		}
	}
	return "", "", false
}

var _ Cache = (*RedisCache)(nil)
