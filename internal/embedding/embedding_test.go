package embedding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/embedding"
)

type stubEmbedder struct {
	calls int
	vec   []float32
}

func (s *stubEmbedder) Capabilities() embedding.Capabilities {
	return embedding.Capabilities{Dimension: 3, ModelID: "stub-model"}
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, purpose embedding.Purpose) ([]float32, error) {
	s.calls++
	return s.vec, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string, purpose embedding.Purpose) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

func TestCachingEmbedderReusesVectorForIdenticalText(t *testing.T) {
	inner := &stubEmbedder{vec: []float32{0.1, 0.2, 0.3}}
	cache, err := embedding.NewLRUCache(16)
	require.NoError(t, err)
	caching := embedding.NewCachingEmbedder(inner, cache)

	v1, err := caching.Embed(context.Background(), "same text", embedding.PurposeDocument)
	require.NoError(t, err)
	v2, err := caching.Embed(context.Background(), "same text", embedding.PurposeDocument)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "second call for identical text must hit the cache")
	assert.InDeltaSlice(t, v1, v2, 1e-6)
}

func TestCachingEmbedderDistinguishesPurpose(t *testing.T) {
	inner := &stubEmbedder{vec: []float32{1, 2, 3}}
	cache, err := embedding.NewLRUCache(16)
	require.NoError(t, err)
	caching := embedding.NewCachingEmbedder(inner, cache)

	_, err = caching.Embed(context.Background(), "text", embedding.PurposeDocument)
	require.NoError(t, err)
	_, err = caching.Embed(context.Background(), "text", embedding.PurposeQuery)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls, "document and query purposes must not share a cache key")
}

func TestCachingEmbedderBatchMixesHitsAndMisses(t *testing.T) {
	inner := &stubEmbedder{vec: []float32{9, 9}}
	cache, err := embedding.NewLRUCache(16)
	require.NoError(t, err)
	caching := embedding.NewCachingEmbedder(inner, cache)

	_, err = caching.Embed(context.Background(), "cached", embedding.PurposeDocument)
	require.NoError(t, err)
	inner.calls = 0

	vectors, err := caching.EmbedBatch(context.Background(), []string{"cached", "fresh"}, embedding.PurposeDocument)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, 1, inner.calls, "only the uncached text should trigger an upstream batch call")
}
