package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/casatico/stayfly/internal/apperr"
	"github.com/casatico/stayfly/internal/model"
)

type chatRequest struct {
	Message        string     `json:"message"`
	ConversationID *uuid.UUID `json:"conversation_id"`
}

type chatResponse struct {
	ConversationID uuid.UUID         `json:"conversation_id"`
	Response       string            `json:"response"`
	Sources        []model.SourceRef `json:"sources"`
	ModelUsed      string            `json:"model_used"`
	Tokens         int               `json:"tokens"`
	CostUSD        float64           `json:"cost_usd"`
	Cached         bool              `json:"cached"`
}

// handleChat implements POST /chat/, per spec.md §6: runs the RAG
// orchestrator's 10-step control loop for one user turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Message == "" {
		writeError(w, apperr.New(apperr.KindValidation, "message must not be empty"))
		return
	}

	role := roleFrom(r.Context())
	if !model.ValidRole(role) {
		writeError(w, apperr.New(apperr.KindAuth, "missing or invalid role"))
		return
	}

	result, err := s.Orchestrator.Handle(r.Context(), tenantIDFrom(r.Context()), userIDFrom(r.Context()), req.ConversationID, role, req.Message, nil)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInternal, err, "chat turn failed"))
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: result.ConversationID,
		Response:       result.Answer,
		Sources:        result.Sources,
		ModelUsed:      result.ModelID,
		Tokens:         result.InputTokens + result.OutputTokens,
		CostUSD:        result.CostUSD,
		Cached:         result.Cached,
	})
}

// handleListConversations implements GET /conversations/.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := s.Store.ListConversations(r.Context(), tenantIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

// handleGetConversation implements GET /conversations/{id}/.
func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "malformed conversation id"))
		return
	}

	conv, err := s.Store.GetConversation(r.Context(), tenantIDFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}
