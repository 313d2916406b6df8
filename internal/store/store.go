// Package store persists Properties, Documents, Tenants, Users,
// Conversations, and Messages with tenant isolation, per spec.md §4.8
// and §6. Store is a narrow interface so internal/rag and
// internal/retrieval never import a database driver directly — the
// teacher's own pattern of keeping provider specifics (libaf's
// reranking.Model, embeddings.Embedder) behind small interfaces.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/casatico/stayfly/internal/model"
)

// PropertyFilter narrows a Property listing query (spec.md §6
// `GET /properties/`).
type PropertyFilter struct {
	Location     string
	MinPriceUSD  *float64
	MaxPriceUSD  *float64
	Bedrooms     *int
	ContentType  model.ContentType
	Status       string
	Limit        int
	Offset       int
}

// VectorCandidate is one nearest-neighbour hit from a vector search,
// scored as 1 - cosine_distance (spec.md §4.9).
type VectorCandidate struct {
	Document     model.Document
	VectorScore  float64
}

// LexicalCandidate is one full-text search hit, with the raw rank the
// retrieval engine normalizes into lex_score.
type LexicalCandidate struct {
	Document model.Document
	RawRank  float64
}

// Store is the record store's full contract.
type Store interface {
	// Tenants and users.
	CreateTenant(ctx context.Context, t *model.Tenant) error
	GetTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error)
	GetTenantByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)

	// Properties.
	UpsertPropertyBySourceURL(ctx context.Context, p *model.Property) (*model.Property, error)
	GetProperty(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.Property, error)
	ListProperties(ctx context.Context, tenantID uuid.UUID, filter PropertyFilter) ([]model.Property, error)
	PropertyStats(ctx context.Context, tenantID uuid.UUID) (map[model.ContentType]int, error)

	// Documents.
	UpsertDocumentForProperty(ctx context.Context, d *model.Document) (*model.Document, error)
	GetDocument(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.Document, error)
	GetDocuments(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]model.Document, error)
	SetDocumentEmbedding(ctx context.Context, tenantID, id uuid.UUID, embedding []float32) error
	MarkDocumentsStaleByProperty(ctx context.Context, propertyID uuid.UUID) error

	// Retrieval primitives (spec.md §4.9).
	VectorSearch(ctx context.Context, tenantID uuid.UUID, queryEmbedding []float32, topK int) ([]VectorCandidate, error)
	LexicalSearch(ctx context.Context, tenantID uuid.UUID, queryText string, topK int) ([]LexicalCandidate, error)

	// Conversations and messages (spec.md §4.12).
	CreateConversation(ctx context.Context, c *model.Conversation) error
	GetConversation(ctx context.Context, tenantID, id uuid.UUID) (*model.Conversation, error)
	ListConversations(ctx context.Context, tenantID uuid.UUID) ([]model.Conversation, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, msg model.Message) error

	// Health.
	Ping(ctx context.Context) error
}

// now is overridden in tests that need deterministic timestamps.
var now = time.Now
