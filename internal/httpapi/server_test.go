package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casatico/stayfly/internal/cache"
	"github.com/casatico/stayfly/internal/chatmodel"
	"github.com/casatico/stayfly/internal/config"
	"github.com/casatico/stayfly/internal/convstore"
	"github.com/casatico/stayfly/internal/embedding"
	"github.com/casatico/stayfly/internal/httpapi"
	"github.com/casatico/stayfly/internal/ingest"
	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/rag"
	"github.com/casatico/stayfly/internal/retrieval"
	"github.com/casatico/stayfly/internal/router"
	"github.com/casatico/stayfly/internal/siteextract"
	"github.com/casatico/stayfly/internal/store"
	"github.com/casatico/stayfly/internal/task"
)

type stubEmbedder struct{ dim int }

func (s *stubEmbedder) Capabilities() embedding.Capabilities {
	return embedding.Capabilities{Dimension: s.dim, ModelID: "stub-embedder"}
}
func (s *stubEmbedder) Embed(ctx context.Context, text string, purpose embedding.Purpose) ([]float32, error) {
	v := make([]float32, s.dim)
	for i := range v {
		v[i] = float32(len(text)%7) / 7
	}
	return v, nil
}
func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string, purpose embedding.Purpose) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := s.Embed(ctx, t, purpose)
		out[i] = v
	}
	return out, nil
}

type stubChatModel struct{ reply string }

func (s *stubChatModel) Complete(ctx context.Context, prompt string, opts chatmodel.CompletionOptions) (chatmodel.CompletionResult, error) {
	return chatmodel.CompletionResult{Text: s.reply, InputTokens: 10, OutputTokens: 5}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, uuid.UUID, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	tenant := &model.Tenant{Slug: "acme-realty"}
	require.NoError(t, st.CreateTenant(context.Background(), tenant))

	tasks := task.NewMemoryStore()
	pipeline := &ingest.Pipeline{
		SiteExtractor: siteextract.NewDefaultRegistry(),
		Store:         st,
		Tasks:         tasks,
	}

	embedder := &stubEmbedder{dim: 8}
	retrievalEngine := retrieval.NewEngine(st, retrieval.DefaultConfig())
	cheapCfg := config.ChatModelConfig{Provider: config.ChatModelProviderOpenAI, Model: "stub-cheap"}
	strongCfg := config.ChatModelConfig{Provider: config.ChatModelProviderOpenAI, Model: "stub-strong"}
	r := router.New(cheapCfg, strongCfg)
	orchestrator := rag.New(convstore.New(st), embedder, cache.NewDummyCache(), retrievalEngine, r,
		&stubChatModel{reply: "Thanks for asking! I'd recommend contacting our staff for exact pricing."},
		&stubChatModel{reply: "Thanks for asking! I'd recommend contacting our staff for exact pricing."})

	srv := &httpapi.Server{
		Store:        st,
		Pipeline:     pipeline,
		Orchestrator: orchestrator,
		Logger:       zap.NewNop(),
	}

	ts := httptest.NewServer(srv.NewMux())
	t.Cleanup(ts.Close)
	return ts, tenant.ID, st
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, tenantSlug string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if tenantSlug != "" {
		req.Header.Set(httpapi.TenantHeader, tenantSlug)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealthCheckIsExemptFromTenantResolution(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp := doJSON(t, ts, http.MethodGet, "/api/health/", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownTenantReturns401(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp := doJSON(t, ts, http.MethodGet, "/properties/", "no-such-tenant", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIngestSaveThenListPropertiesByLocation(t *testing.T) {
	ts, _, _ := newTestServer(t)

	saveBody := map[string]any{
		"property_data": map[string]any{
			"ContentType": "real_estate",
			"PageType":    "specific",
			"SourceURL":   "https://www.coldwellbankercostarica.com/property/land-for-sale-in-curridabat/2785",
			"RealEstate": map[string]any{
				"PropertyType": map[string]any{"value": "land", "confidence": 0.9, "evidence": "llm"},
				"Status":       map[string]any{"value": "for_sale", "confidence": 0.9, "evidence": "llm"},
				"Location":     "Curridabat",
			},
		},
	}
	resp := doJSON(t, ts, http.MethodPost, "/ingest/save/", "acme-realty", saveBody)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	listResp := doJSON(t, ts, http.MethodGet, "/properties/?location=Curridabat", "acme-realty", nil)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var decoded struct {
		Properties []model.Property `json:"properties"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&decoded))
	require.Len(t, decoded.Properties, 1)
	require.Equal(t, "Curridabat", decoded.Properties[0].RealEstate.Location)
}

func TestGetPropertyNotFoundReturns404(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp := doJSON(t, ts, http.MethodGet, "/properties/"+uuid.New().String()+"/", "acme-realty", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, true, body["error"])
}

func TestSupportedWebsitesAndContentTypes(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := doJSON(t, ts, http.MethodGet, "/ingest/supported-websites/", "acme-realty", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Websites []string `json:"websites"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Contains(t, body.Websites, "costarica.org")

	ctResp := doJSON(t, ts, http.MethodGet, "/ingest/content-types/", "acme-realty", nil)
	defer ctResp.Body.Close()
	require.Equal(t, http.StatusOK, ctResp.StatusCode)
}

func TestChatRequiresAValidRole(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp := doJSON(t, ts, http.MethodPost, "/chat/", "acme-realty", map[string]any{"message": "hello"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyPropertyOverlaysHumanCorrectionWithFullConfidence(t *testing.T) {
	ts, tenantID, st := newTestServer(t)

	prop := &model.Property{
		TenantID:    tenantID,
		ContentType: model.ContentTypeRealEstate,
		PageType:    model.PageTypeSpecific,
		SourceURL:   "https://www.coldwellbankercostarica.com/property/land-for-sale-in-curridabat/2785",
		RealEstate: &model.RealEstateFields{
			PropertyType: model.NewField("land", 0.6, "heuristic"),
			Location:     "Curridabat",
		},
	}
	saved, err := st.UpsertPropertyBySourceURL(context.Background(), prop)
	require.NoError(t, err)

	verifyBody := map[string]any{
		"fields": map[string]any{
			"bedrooms": 3,
			"status":   "for_sale",
		},
	}
	resp := doJSON(t, ts, http.MethodPost, "/properties/"+saved.ID.String()+"/verify/", "acme-realty", verifyBody)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded model.Property
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Equal(t, 3, decoded.RealEstate.Bedrooms.Value)
	require.Equal(t, 1.0, decoded.RealEstate.Bedrooms.Confidence)
	require.Equal(t, "human_verified", decoded.RealEstate.Bedrooms.Evidence)
	require.Equal(t, "for_sale", decoded.RealEstate.Status.Value)
}

func TestVerifyPropertyRejectsUnknownField(t *testing.T) {
	ts, tenantID, st := newTestServer(t)

	prop := &model.Property{
		TenantID:    tenantID,
		ContentType: model.ContentTypeRealEstate,
		PageType:    model.PageTypeSpecific,
		SourceURL:   "https://www.coldwellbankercostarica.com/property/some-other-listing/9001",
		RealEstate:  &model.RealEstateFields{Location: "Escazu"},
	}
	saved, err := st.UpsertPropertyBySourceURL(context.Background(), prop)
	require.NoError(t, err)

	resp := doJSON(t, ts, http.MethodPost, "/properties/"+saved.ID.String()+"/verify/", "acme-realty",
		map[string]any{"fields": map[string]any{"not_a_real_field": "x"}})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestBatchSyncReturnsOneResultPerURL(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp := doJSON(t, ts, http.MethodPost, "/ingest/batch/", "acme-realty", map[string]any{
		"urls":  []string{"https://www.costarica.org/hotels/does-not-exist/"},
		"async": false,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded struct {
		Results []ingest.BatchResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Len(t, decoded.Results, 1)
}

func TestIngestBatchAsyncAssignsATaskIDPerURL(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp := doJSON(t, ts, http.MethodPost, "/ingest/batch/", "acme-realty", map[string]any{
		"urls":  []string{"https://www.costarica.org/hotels/one/", "https://www.costarica.org/hotels/two/"},
		"async": true,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded struct {
		Results []ingest.BatchResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Len(t, decoded.Results, 2)
	for _, r := range decoded.Results {
		require.NotEmpty(t, r.TaskID)
	}
}

func TestIngestBatchRejectsEmptyURLList(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp := doJSON(t, ts, http.MethodPost, "/ingest/batch/", "acme-realty", map[string]any{"urls": []string{}})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type stubApifyClient struct {
	items []ingest.ApifyItem
	err   error
}

func (s *stubApifyClient) FetchDatasetItems(ctx context.Context, datasetID string) ([]ingest.ApifyItem, error) {
	return s.items, s.err
}

func TestIngestApifySyncIsDisabledWithoutAConfiguredClient(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp := doJSON(t, ts, http.MethodPost, "/ingest/apify/sync/", "acme-realty", map[string]any{"dataset_id": "ds1"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestApifySyncRejectsEmptyDatasetID(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp := doJSON(t, ts, http.MethodPost, "/ingest/apify/sync/", "acme-realty", map[string]any{"dataset_id": ""})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestTextExtractsWithoutPersisting(t *testing.T) {
	ts, _, st := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/ingest/text/", "acme-realty", map[string]any{
		"text":         "3 bedroom house in Curridabat for $250,000",
		"source_url":   "https://example.com/manual-entry",
		"content_type": "real_estate",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stats, err := st.PropertyStats(context.Background(), uuid.Nil)
	require.NoError(t, err)
	require.Empty(t, stats)
}

func TestConversationsRoundTripThroughChat(t *testing.T) {
	ts, _, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/chat/", bytes.NewBufferString(`{"message":"hello"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpapi.TenantHeader, "acme-realty")
	req.Header.Set(httpapi.RoleHeader, "buyer")
	chatResp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer chatResp.Body.Close()
	require.Equal(t, http.StatusOK, chatResp.StatusCode)

	var chatDecoded struct {
		ConversationID uuid.UUID `json:"conversation_id"`
	}
	require.NoError(t, json.NewDecoder(chatResp.Body).Decode(&chatDecoded))

	listResp := doJSON(t, ts, http.MethodGet, "/conversations/", "acme-realty", nil)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	getResp := doJSON(t, ts, http.MethodGet, "/conversations/"+chatDecoded.ConversationID.String()+"/", "acme-realty", nil)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestChatWithValidRoleReturnsAnswerAndSources(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]any{"message": "What's the price of Villa Mar?"}))
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/chat/", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpapi.TenantHeader, "acme-realty")
	req.Header.Set(httpapi.RoleHeader, "tourist")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded struct {
		ConversationID uuid.UUID         `json:"conversation_id"`
		Response       string            `json:"response"`
		Sources        []model.SourceRef `json:"sources"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.NotEmpty(t, decoded.Response)
	require.NotEqual(t, uuid.Nil, decoded.ConversationID)
}
