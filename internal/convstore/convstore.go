// Package convstore is the conversation-history responsibility from
// spec.md §4.12, built on the same store.Store the rest of the system
// uses (same Postgres instance, different tables) rather than a
// separate data store.
package convstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/retrieval"
	"github.com/casatico/stayfly/internal/store"
)

// Store wraps store.Store with the conversation-specific helpers the
// RAG orchestrator needs: starting a conversation on first contact,
// and freezing retrieval candidates into immutable SourceRef snapshots
// before they're attached to an assistant Message.
type Store struct {
	store store.Store
}

func New(s store.Store) *Store {
	return &Store{store: s}
}

// GetOrCreate loads an existing conversation by id, or starts a new
// one for the tenant (and optional user) if id is nil.
func (s *Store) GetOrCreate(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, id *uuid.UUID) (*model.Conversation, error) {
	if id != nil {
		conv, err := s.store.GetConversation(ctx, tenantID, *id)
		if err != nil {
			return nil, fmt.Errorf("load conversation: %w", err)
		}
		return conv, nil
	}

	conv := &model.Conversation{TenantID: tenantID, UserID: userID}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// AppendUserMessage persists the user's turn.
func (s *Store) AppendUserMessage(ctx context.Context, conversationID uuid.UUID, content string) error {
	return s.store.AppendMessage(ctx, conversationID, model.Message{
		ConversationID: conversationID,
		Role:           model.MessageRoleUser,
		Content:        content,
	})
}

// AppendAssistantMessage persists the assistant's turn, atomically
// folding its token/cost usage into the Conversation's aggregates
// (spec.md §4.12: "atomic increment of Conversation aggregates... when
// an assistant Message is persisted").
func (s *Store) AppendAssistantMessage(ctx context.Context, conversationID uuid.UUID, content, modelID string, inputTokens, outputTokens int, costUSD float64, sources []model.SourceRef) error {
	return s.store.AppendMessage(ctx, conversationID, model.Message{
		ConversationID: conversationID,
		Role:           model.MessageRoleAssistant,
		Content:        content,
		ModelID:        modelID,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		CostUSD:        costUSD,
		Sources:        sources,
	})
}

// Snapshot freezes a retrieval candidate into the immutable SourceRef
// form stored on an assistant Message, so later edits to the
// underlying Document can't retroactively alter conversation history.
func Snapshot(c retrieval.Candidate) model.SourceRef {
	excerpt := c.Document.Content
	const maxExcerpt = 200
	if len(excerpt) > maxExcerpt {
		excerpt = excerpt[:maxExcerpt] + "…"
	}
	return model.SourceRef{
		DocumentID:  c.Document.ID,
		Score:       c.CombinedScore,
		ContentType: c.Document.ContentType,
		Excerpt:     excerpt,
	}
}

// RecentTurns returns the last n messages of a conversation, oldest
// first, for composing into the prompt window (spec.md §4.13 step 6).
func RecentTurns(conv *model.Conversation, n int) []model.Message {
	if n <= 0 || len(conv.Messages) <= n {
		return conv.Messages
	}
	return conv.Messages[len(conv.Messages)-n:]
}
