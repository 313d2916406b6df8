package httpapi

import (
	"net/http"

	"github.com/casatico/stayfly/internal/apperr"
	"github.com/casatico/stayfly/internal/ingest"
	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/scraper"
)

type ingestURLRequest struct {
	URL          string            `json:"url"`
	ContentType  model.ContentType `json:"content_type"`
	PageType     model.PageType    `json:"page_type"`
	UseWebsocket bool              `json:"use_websocket"`
}

type previewResponse struct {
	ContentType model.ContentType `json:"content_type"`
	PageType    model.PageType    `json:"page_type"`
	Property    *model.Property   `json:"property"`
	Confidence  float64           `json:"confidence"`
	Status      string            `json:"extraction_status"`
}

func previewToResponse(p *ingest.PreviewRecord) previewResponse {
	return previewResponse{
		ContentType: p.ContentType,
		PageType:    p.PageType,
		Property:    p.Property,
		Confidence:  p.Confidence,
		Status:      string(p.Status),
	}
}

// handleIngestURL implements POST /ingest/url/, per spec.md §6: scrape
// + extract + classify, no persistence.
func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	hints := scraper.Hints{}
	if req.UseWebsocket {
		hints.ForceMethod = scraper.MethodHeadlessBrowser
	}

	preview, err := s.Pipeline.PreviewURL(r.Context(), tenantIDFrom(r.Context()), req.URL, req.ContentType, req.PageType, hints)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previewToResponse(preview))
}

type ingestTextRequest struct {
	Text        string            `json:"text"`
	SourceURL   string            `json:"source_url"`
	ContentType model.ContentType `json:"content_type"`
}

// handleIngestText implements POST /ingest/text/: extract only, no scrape.
func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	preview, err := s.Pipeline.ExtractText(r.Context(), req.Text, req.SourceURL, req.ContentType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previewToResponse(preview))
}

type ingestSaveRequest struct {
	PropertyData model.Property `json:"property_data"`
}

type savedResponse struct {
	Property *model.Property `json:"property"`
	Document *model.Document `json:"document"`
}

// handleIngestSave implements POST /ingest/save/: persists and
// triggers async embedding, per spec.md §6 and §4.8.
func (s *Server) handleIngestSave(w http.ResponseWriter, r *http.Request) {
	var req ingestSaveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	prop, doc, err := s.Pipeline.Save(r.Context(), tenantIDFrom(r.Context()), &req.PropertyData)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, savedResponse{Property: prop, Document: doc})
}

type ingestBatchRequest struct {
	URLs  []string `json:"urls"`
	Async bool     `json:"async"`
}

// handleIngestBatch implements POST /ingest/batch/: bulk ingest, per-URL
// errors collected rather than aborting the whole batch.
func (s *Server) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	var req ingestBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, apperr.New(apperr.KindValidation, "urls must not be empty"))
		return
	}

	results, err := s.Pipeline.BatchURLs(r.Context(), tenantIDFrom(r.Context()), req.URLs, req.Async)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type ingestApifySyncRequest struct {
	DatasetID  string `json:"dataset_id"`
	ActorRunID string `json:"actor_run_id"`
}

// handleIngestApifySync implements POST /ingest/apify/sync/: fetches a
// pre-scraped dataset, extracts, and persists each item.
func (s *Server) handleIngestApifySync(w http.ResponseWriter, r *http.Request) {
	var req ingestApifySyncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.DatasetID == "" {
		writeError(w, apperr.New(apperr.KindValidation, "dataset_id must not be empty"))
		return
	}
	if s.ApifyClient == nil {
		writeError(w, apperr.New(apperr.KindValidation, "apify sync is not configured"))
		return
	}

	results, err := s.Pipeline.ApifySync(r.Context(), s.ApifyClient, tenantIDFrom(r.Context()), req.DatasetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// handleSupportedWebsites implements GET /ingest/supported-websites/.
func (s *Server) handleSupportedWebsites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"websites": s.Pipeline.SupportedWebsites()})
}

// handleContentTypes implements GET /ingest/content-types/.
func (s *Server) handleContentTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"content_types": ingest.ContentTypes()})
}

// handleIngestStats implements GET /ingest/stats/: per-content-type
// property counts for the resolved tenant.
func (s *Server) handleIngestStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Store.PropertyStats(r.Context(), tenantIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}
