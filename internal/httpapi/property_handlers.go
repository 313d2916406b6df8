package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/casatico/stayfly/internal/apperr"
	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/store"
)

// bindOptionalQueryParam binds queryParams[paramName] into dst (a
// pointer to the field's scalar type) using oapi-codegen/runtime's
// generated-server parameter binder, the same one SPEC_FULL.md's
// openapi.yaml-described query parameters are bound by. A malformed or
// absent value leaves dst untouched.
func bindOptionalQueryParam(queryParams map[string][]string, paramName string, dst interface{}) {
	if _, ok := queryParams[paramName]; !ok {
		return
	}
	_ = runtime.BindQueryParameter("form", false, false, paramName, queryParams, dst)
}

// handleListProperties implements GET /properties/. It parses location,
// min_price, max_price, bedrooms, property_type and status into a
// store.PropertyFilter. MemoryStore applies property_type, location,
// min_price and max_price; PostgresStore applies property_type only.
// Neither store filters on bedrooms or status.
func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.PropertyFilter{
		Location:    q.Get("location"),
		ContentType: model.ContentType(q.Get("property_type")),
		Status:      q.Get("status"),
	}
	if q.Get("min_price") != "" {
		var v float64
		bindOptionalQueryParam(q, "min_price", &v)
		filter.MinPriceUSD = &v
	}
	if q.Get("max_price") != "" {
		var v float64
		bindOptionalQueryParam(q, "max_price", &v)
		filter.MaxPriceUSD = &v
	}
	if q.Get("bedrooms") != "" {
		var v int
		bindOptionalQueryParam(q, "bedrooms", &v)
		filter.Bedrooms = &v
	}
	bindOptionalQueryParam(q, "limit", &filter.Limit)
	bindOptionalQueryParam(q, "offset", &filter.Offset)

	properties, err := s.Store.ListProperties(r.Context(), tenantIDFrom(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": properties})
}

// handleGetProperty implements GET /properties/{id}/.
func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "malformed property id"))
		return
	}

	prop, err := s.Store.GetProperty(r.Context(), tenantIDFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prop)
}

// handlePropertyStats implements GET /properties/stats/.
func (s *Server) handlePropertyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Store.PropertyStats(r.Context(), tenantIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

// verifyPropertyRequest carries human-reviewed field corrections, keyed
// by field name. Values arrive as `any` since a single endpoint spans
// several attribute schemas; applyVerifiedFields dispatches by content
// type and field name.
type verifyPropertyRequest struct {
	Fields map[string]any `json:"fields"`
}

// humanVerifiedEvidence marks a Field[T] as corrected by a person
// rather than extracted, per spec.md §6's "store human corrections
// into field_confidence."
const humanVerifiedEvidence = "human_verified"

// handleVerifyProperty implements POST /properties/{id}/verify/:
// overlays human corrections onto named fields, setting their
// confidence to 1.0 and evidence to "human_verified", then re-validates
// and persists.
func (s *Server) handleVerifyProperty(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "malformed property id"))
		return
	}

	var req verifyPropertyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenantID := tenantIDFrom(r.Context())
	prop, err := s.Store.GetProperty(r.Context(), tenantID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := applyVerifiedFields(prop, req.Fields); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "invalid field correction"))
		return
	}
	if err := prop.Validate(); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "property invalid after correction"))
		return
	}

	saved, err := s.Store.UpsertPropertyBySourceURL(r.Context(), prop)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
