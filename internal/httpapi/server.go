package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/casatico/stayfly/internal/ingest"
	"github.com/casatico/stayfly/internal/rag"
	"github.com/casatico/stayfly/internal/store"
)

// Server holds every dependency the HTTP routes call into. It is
// stateless beyond these references — all mutable state lives in
// Store/Tasks.
type Server struct {
	Store        store.Store
	Pipeline     *ingest.Pipeline
	ApifyClient  ingest.ApifyClient // nil disables POST /ingest/apify/sync/
	Orchestrator *rag.Orchestrator
	Logger       *zap.Logger
}

// NewMux builds the complete routing table from spec.md §6, wrapped in
// tenant-resolution and panic-recovery middleware. Every route is
// registered in its canonical trailing-slash form; ServeMux's Go 1.22+
// method+pattern matching means this never 301-redirects a client that
// already supplies the trailing slash, per spec.md §6.
func (s *Server) NewMux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /ingest/url/", s.handleIngestURL)
	mux.HandleFunc("POST /ingest/text/", s.handleIngestText)
	mux.HandleFunc("POST /ingest/save/", s.handleIngestSave)
	mux.HandleFunc("POST /ingest/batch/", s.handleIngestBatch)
	mux.HandleFunc("POST /ingest/apify/sync/", s.handleIngestApifySync)
	mux.HandleFunc("GET /ingest/supported-websites/", s.handleSupportedWebsites)
	mux.HandleFunc("GET /ingest/content-types/", s.handleContentTypes)
	mux.HandleFunc("GET /ingest/stats/", s.handleIngestStats)

	mux.HandleFunc("GET /properties/", s.handleListProperties)
	mux.HandleFunc("GET /properties/stats/", s.handlePropertyStats)
	mux.HandleFunc("GET /properties/{id}/", s.handleGetProperty)
	mux.HandleFunc("POST /properties/{id}/verify/", s.handleVerifyProperty)

	mux.HandleFunc("POST /chat/", s.handleChat)
	mux.HandleFunc("GET /conversations/", s.handleListConversations)
	mux.HandleFunc("GET /conversations/{id}/", s.handleGetConversation)

	return s.recoverer(s.resolveTenant(mux))
}
