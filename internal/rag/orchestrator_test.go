package rag_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/cache"
	"github.com/casatico/stayfly/internal/chatmodel"
	"github.com/casatico/stayfly/internal/config"
	"github.com/casatico/stayfly/internal/convstore"
	"github.com/casatico/stayfly/internal/embedding"
	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/rag"
	"github.com/casatico/stayfly/internal/retrieval"
	"github.com/casatico/stayfly/internal/router"
	"github.com/casatico/stayfly/internal/store"
)

type stubEmbedder struct{ vec []float32 }

func (s stubEmbedder) Capabilities() embedding.Capabilities {
	return embedding.Capabilities{Dimension: len(s.vec), MaxBatchSize: 16, ModelID: "stub"}
}
func (s stubEmbedder) Embed(context.Context, string, embedding.Purpose) ([]float32, error) {
	return s.vec, nil
}
func (s stubEmbedder) EmbedBatch(ctx context.Context, texts []string, p embedding.Purpose) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

type stubChatModel struct {
	text         string
	inputTokens  int
	outputTokens int
	calls        int
}

func (s *stubChatModel) Complete(context.Context, string, chatmodel.CompletionOptions) (chatmodel.CompletionResult, error) {
	s.calls++
	return chatmodel.CompletionResult{Text: s.text, InputTokens: s.inputTokens, OutputTokens: s.outputTokens}, nil
}

type mapCache struct {
	entries map[string]cache.Entry
}

func newMapCache() *mapCache { return &mapCache{entries: map[string]cache.Entry{}} }

func (c *mapCache) key(tenant, role string) string { return tenant + ":" + role }

func (c *mapCache) Lookup(ctx context.Context, tenant, role string, embedding []float32) (*cache.Entry, bool, error) {
	e, ok := c.entries[c.key(tenant, role)]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (c *mapCache) Store(ctx context.Context, tenant, role string, embedding []float32, entry cache.Entry) error {
	c.entries[c.key(tenant, role)] = entry
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context, documentID string) error { return nil }

func newHarness(t *testing.T, c cache.Cache) (*rag.Orchestrator, *store.MemoryStore, uuid.UUID) {
	t.Helper()
	s := store.NewMemoryStore()
	tenant := &model.Tenant{Slug: "acme"}
	require.NoError(t, s.CreateTenant(context.Background(), tenant))

	cs := convstore.New(s)
	embedder := stubEmbedder{vec: []float32{1, 0, 0}}
	engine := retrieval.NewEngine(s, retrieval.DefaultConfig())
	cheapModel := &stubChatModel{text: "Villa Mar has a lovely beach nearby.", inputTokens: 100, outputTokens: 50}
	strongModel := &stubChatModel{text: "strong answer", inputTokens: 200, outputTokens: 100}
	cheapCfg := config.ChatModelConfig{Model: "gpt-cheap", CostPerInputToken: 0.0000001, CostPerOutputToken: 0.0000002}
	strongCfg := config.ChatModelConfig{Model: "gpt-strong", CostPerInputToken: 0.000001, CostPerOutputToken: 0.000002}
	r := router.New(cheapCfg, strongCfg)

	o := rag.New(cs, embedder, c, engine, r, cheapModel, strongModel)
	return o, s, tenant.ID
}

// Scenario 4 (spec.md §8): a tourist asking about Villa Mar's price
// must not see it as a source when Villa Mar's Document visibility
// excludes tourist, and falls back instead of fabricating an answer.
func TestHandleExcludesDocumentNotVisibleToTouristRole(t *testing.T) {
	o, s, tenantID := newHarness(t, cache.NewDummyCache())

	villaMar := &model.Document{
		TenantID:    tenantID,
		ContentType: model.DocumentContentTypeRealEstate,
		Content:     "Villa Mar: $750,000, beachfront villa with private pool",
		Visibility:  model.NewVisibilitySet(model.RoleBuyer, model.RoleStaff),
		IsActive:    true,
		Embedding:   []float32{1, 0, 0},
	}
	_, err := s.UpsertDocumentForProperty(context.Background(), villaMar)
	require.NoError(t, err)

	result, err := o.Handle(context.Background(), tenantID, nil, nil, model.RoleTourist, "What's the price of Villa Mar?", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Sources, "Villa Mar must not appear in sources since its visibility excludes tourist")
	assert.Equal(t, rag.DefaultFallbackMessage, result.Answer)
}

func TestHandleIncludesDocumentWhenVisibleToRole(t *testing.T) {
	o, s, tenantID := newHarness(t, cache.NewDummyCache())

	villaMar := &model.Document{
		TenantID:    tenantID,
		ContentType: model.DocumentContentTypeRealEstate,
		Content:     "Villa Mar is a beachfront villa near Tamarindo with a private pool and garden.",
		Visibility:  model.NewVisibilitySet(model.RoleTourist, model.RoleBuyer),
		IsActive:    true,
		Embedding:   []float32{1, 0, 0},
	}
	_, err := s.UpsertDocumentForProperty(context.Background(), villaMar)
	require.NoError(t, err)

	result, err := o.Handle(context.Background(), tenantID, nil, nil, model.RoleTourist, "Tell me about Villa Mar", nil)
	require.NoError(t, err)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, villaMar.ID, result.Sources[0].DocumentID)
}

// Scenario 5 (spec.md §8): a repeat query within TTL returns cached=true
// with the same source ids and the cached-path cost, not a fresh charge.
func TestHandleSecondCallHitsCacheWithoutFreshCharge(t *testing.T) {
	mc := newMapCache()
	o, s, tenantID := newHarness(t, mc)

	doc := &model.Document{
		TenantID:    tenantID,
		ContentType: model.DocumentContentTypeRealEstate,
		Content:     "Properties in Tamarindo listed under $500,000",
		Visibility:  model.NewVisibilitySet(model.RoleBuyer),
		IsActive:    true,
		Embedding:   []float32{1, 0, 0},
	}
	_, err := s.UpsertDocumentForProperty(context.Background(), doc)
	require.NoError(t, err)

	first, err := o.Handle(context.Background(), tenantID, nil, nil, model.RoleBuyer, "properties in Tamarindo under 500k", nil)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Greater(t, first.CostUSD, 0.0)

	second, err := o.Handle(context.Background(), tenantID, nil, nil, model.RoleBuyer, "properties in Tamarindo under 500k", nil)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Sources[0].DocumentID, second.Sources[0].DocumentID)
	assert.Equal(t, 0.0, second.CostUSD, "a cache hit must not incur a fresh LLM charge")
}

func TestHandleReturnsFallbackWhenNoCandidatesMatch(t *testing.T) {
	o, _, tenantID := newHarness(t, cache.NewDummyCache())

	result, err := o.Handle(context.Background(), tenantID, nil, nil, model.RoleBuyer, "anything at all", nil)
	require.NoError(t, err)
	assert.Equal(t, rag.DefaultFallbackMessage, result.Answer)
	assert.Empty(t, result.Sources)
}
