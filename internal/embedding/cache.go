package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/binary"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// KVCache is the minimal byte-cache contract CachingEmbedder needs. A
// Redis-backed implementation can reuse internal/cache's client; the
// in-memory default here is for tests and single-process deployments.
type KVCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// LRUCache is an in-process KVCache backed by hashicorp/golang-lru.
type LRUCache struct {
	cache *lru.Cache[string, []byte]
}

// NewLRUCache constructs an in-memory cache holding up to size entries.
func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("constructing LRU cache: %w", err)
	}
	return &LRUCache{cache: c}, nil
}

func (c *LRUCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := c.cache.Get(key)
	return v, ok, nil
}

func (c *LRUCache) Set(ctx context.Context, key string, value []byte) error {
	c.cache.Add(key, value)
	return nil
}

// CachingEmbedder decorates an Embedder with a text-hash keyed cache, so
// repeated embedding of identical text (the idempotence law in spec.md
// §8) never re-calls the upstream model. Grounded on spec.md §4.7:
// "implementations may cache them keyed by a text hash."
type CachingEmbedder struct {
	Inner Embedder
	Cache KVCache
}

func NewCachingEmbedder(inner Embedder, cache KVCache) *CachingEmbedder {
	return &CachingEmbedder{Inner: inner, Cache: cache}
}

func (c *CachingEmbedder) Capabilities() Capabilities {
	return c.Inner.Capabilities()
}

func (c *CachingEmbedder) Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	key := cacheKey(c.Inner.Capabilities().ModelID, purpose, text)

	if raw, ok, err := c.Cache.Get(ctx, key); err == nil && ok {
		return decodeFloat32s(raw), nil
	}

	vec, err := c.Inner.Embed(ctx, text, purpose)
	if err != nil {
		return nil, err
	}

	_ = c.Cache.Set(ctx, key, encodeFloat32s(vec))
	return vec, nil
}

func (c *CachingEmbedder) EmbedBatch(ctx context.Context, texts []string, purpose Purpose) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var misses []int
	var missTexts []string

	for i, t := range texts {
		key := cacheKey(c.Inner.Capabilities().ModelID, purpose, t)
		if raw, ok, err := c.Cache.Get(ctx, key); err == nil && ok {
			vectors[i] = decodeFloat32s(raw)
			continue
		}
		misses = append(misses, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := c.Inner.EmbedBatch(ctx, missTexts, purpose)
	if err != nil {
		return nil, err
	}
	for j, idx := range misses {
		vectors[idx] = fresh[j]
		key := cacheKey(c.Inner.Capabilities().ModelID, purpose, missTexts[j])
		_ = c.Cache.Set(ctx, key, encodeFloat32s(fresh[j]))
	}
	return vectors, nil
}

// cacheKey hashes (model, purpose, text) so a model upgrade or a
// document/query purpose split never collides cache entries.
func cacheKey(modelID string, purpose Purpose, text string) string {
	h := sha256.Sum256([]byte(modelID + "|" + string(purpose) + "|" + text))
	return hex.EncodeToString(h[:])
}

func encodeFloat32s(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloat32s(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
