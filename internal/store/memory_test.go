package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/store"
)

func newTestTenant(t *testing.T, s *store.MemoryStore) uuid.UUID {
	t.Helper()
	tenant := &model.Tenant{Slug: "acme"}
	require.NoError(t, s.CreateTenant(context.Background(), tenant))
	return tenant.ID
}

// Scenario 1 (spec.md §8): ingest, then a location-filtered listing
// query returns the upserted record.
func TestUpsertPropertyThenListByLocation(t *testing.T) {
	s := store.NewMemoryStore()
	tenantID := newTestTenant(t, s)

	prop := &model.Property{
		TenantID:    tenantID,
		ContentType: model.ContentTypeRealEstate,
		PageType:    model.PageTypeSpecific,
		SourceURL:   "https://www.coldwellbankercostarica.com/property/land-for-sale-in-curridabat/2785",
		RealEstate: &model.RealEstateFields{
			PropertyType: model.NewField("land", 0.9, "scrape"),
			Status:       model.NewField("for_sale", 0.9, "scrape"),
			Address:      model.Address{City: "Curridabat", Country: "Costa Rica"},
		},
	}

	saved, err := s.UpsertPropertyBySourceURL(context.Background(), prop)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)

	results, err := s.ListProperties(context.Background(), tenantID, store.PropertyFilter{Location: "Curridabat"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, saved.ID, results[0].ID)
}

func TestUpsertPropertySameSourceURLIsIdempotent(t *testing.T) {
	s := store.NewMemoryStore()
	tenantID := newTestTenant(t, s)

	mk := func() *model.Property {
		return &model.Property{
			TenantID:    tenantID,
			ContentType: model.ContentTypeRealEstate,
			PageType:    model.PageTypeSpecific,
			SourceURL:   "https://example.com/listing/1",
			RealEstate:  &model.RealEstateFields{},
		}
	}

	first, err := s.UpsertPropertyBySourceURL(context.Background(), mk())
	require.NoError(t, err)
	second, err := s.UpsertPropertyBySourceURL(context.Background(), mk())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "re-ingesting the same source_url must not create a duplicate row")

	all, err := s.ListProperties(context.Background(), tenantID, store.PropertyFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestVectorSearchRanksByCosineSimilarity(t *testing.T) {
	s := store.NewMemoryStore()
	tenantID := newTestTenant(t, s)

	near := &model.Document{
		TenantID:    tenantID,
		ContentType: model.DocumentContentTypeRealEstate,
		Content:     "beachfront villa",
		Visibility:  model.NewVisibilitySet(model.RoleBuyer),
		IsActive:    true,
		Embedding:   []float32{1, 0, 0},
	}
	far := &model.Document{
		TenantID:    tenantID,
		ContentType: model.DocumentContentTypeRealEstate,
		Content:     "mountain cabin",
		Visibility:  model.NewVisibilitySet(model.RoleBuyer),
		IsActive:    true,
		Embedding:   []float32{0, 1, 0},
	}
	_, err := s.UpsertDocumentForProperty(context.Background(), near)
	require.NoError(t, err)
	_, err = s.UpsertDocumentForProperty(context.Background(), far)
	require.NoError(t, err)

	results, err := s.VectorSearch(context.Background(), tenantID, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "beachfront villa", results[0].Document.Content)
	assert.Greater(t, results[0].VectorScore, results[1].VectorScore)
}

func TestConversationAggregatesIncrementOnAssistantMessage(t *testing.T) {
	s := store.NewMemoryStore()
	tenantID := newTestTenant(t, s)

	conv := &model.Conversation{TenantID: tenantID}
	require.NoError(t, s.CreateConversation(context.Background(), conv))

	err := s.AppendMessage(context.Background(), conv.ID, model.Message{
		ConversationID: conv.ID,
		Role:           model.MessageRoleAssistant,
		Content:        "answer",
		InputTokens:    100,
		OutputTokens:   50,
		CostUSD:        0.002,
	})
	require.NoError(t, err)

	got, err := s.GetConversation(context.Background(), tenantID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Totals.InputTokens)
	assert.Equal(t, 50, got.Totals.OutputTokens)
	assert.InDelta(t, 0.002, got.Totals.CostUSD, 1e-9)
	require.Len(t, got.Messages, 1)
}

func TestListTenantsReturnsEveryCreatedTenant(t *testing.T) {
	s := store.NewMemoryStore()
	first := newTestTenant(t, s)
	second := newTestTenant(t, s)

	tenants, err := s.ListTenants(context.Background())
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(tenants))
	for _, tenant := range tenants {
		ids = append(ids, tenant.ID)
	}
	assert.Contains(t, ids, first)
	assert.Contains(t, ids, second)
}
