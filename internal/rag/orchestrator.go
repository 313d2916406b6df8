// Package rag implements the RAG orchestrator: the 10-step control
// loop from spec.md §4.13 that turns one user message into a cited,
// role-appropriate assistant answer.
package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/casatico/stayfly/internal/cache"
	"github.com/casatico/stayfly/internal/chatmodel"
	"github.com/casatico/stayfly/internal/convstore"
	"github.com/casatico/stayfly/internal/embedding"
	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/retrieval"
	"github.com/casatico/stayfly/internal/router"
)

// StreamCallback mirrors antfly's AnswerAgentOptions streaming hooks
// (antfly/requests.go: OnClassification, OnHit, OnAnswer), reduced to
// what this system's turn shape needs, so Handle is testable on the Go
// side without requiring SSE. The HTTP chat handler passes a nil
// callback, so no HTTP route streams.
type StreamCallback struct {
	OnSources     func([]model.SourceRef)
	OnAnswerChunk func(string)
}

// Result is the response shape from spec.md §4.13 step 10.
type Result struct {
	Answer         string
	Sources        []model.SourceRef
	ModelID        string
	InputTokens    int
	OutputTokens   int
	CostUSD        float64
	ConversationID uuid.UUID
	Cached         bool
}

// Orchestrator wires together every component the control loop needs.
type Orchestrator struct {
	ConvStore  *convstore.Store
	Embedder   embedding.Embedder
	Cache      cache.Cache
	Retrieval  *retrieval.Engine
	Router     *router.Router
	CheapModel chatmodel.ChatModel
	Strong     chatmodel.ChatModel

	MaxContextChars int // total character budget for retrieved excerpts, spec.md §4.13 step 6
	RecentTurns     int
	FallbackMessage string

	locks convLocks
}

func New(convStore *convstore.Store, embedder embedding.Embedder, c cache.Cache, retrievalEngine *retrieval.Engine, r *router.Router, cheapModel, strongModel chatmodel.ChatModel) *Orchestrator {
	return &Orchestrator{
		ConvStore:       convStore,
		Embedder:        embedder,
		Cache:           c,
		Retrieval:       retrievalEngine,
		Router:          r,
		CheapModel:      cheapModel,
		Strong:          strongModel,
		MaxContextChars: 6000,
		RecentTurns:     6,
		FallbackMessage: DefaultFallbackMessage,
	}
}

// Handle runs the control loop for one user message. Per-conversation
// turns are serialized by an in-process sharded mutex keyed by
// conversation id (spec.md §5 concurrency model), backstopped by the
// storage layer's (tenant, source_url) upsert for ingestion — this
// lock only protects chat turn ordering.
func (o *Orchestrator) Handle(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, conversationID *uuid.UUID, role model.Role, message string, stream *StreamCallback) (*Result, error) {
	// Step 1 is the caller's responsibility (tenant/role resolved by
	// internal/httpapi's middleware before Handle is invoked).

	// Step 2: create or load the Conversation; persist the user Message.
	conv, err := o.ConvStore.GetOrCreate(ctx, tenantID, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	unlock := o.locks.Lock(conv.ID)
	defer unlock()

	if err := o.ConvStore.AppendUserMessage(ctx, conv.ID, message); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	// Step 3: embed the user query.
	queryEmbedding, err := o.Embedder.Embed(ctx, message, embedding.PurposeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	tenantSlug := tenantID.String()
	roleStr := string(role)

	// Step 4: semantic cache lookup.
	if o.Cache != nil {
		if entry, hit, err := o.Cache.Lookup(ctx, tenantSlug, roleStr, queryEmbedding); err == nil && hit {
			sources := sourcesFromSnapshots(entry.CitationSnapshots)
			if err := o.ConvStore.AppendAssistantMessage(ctx, conv.ID, entry.AnswerText, entry.ModelID, 0, 0, 0, sources); err != nil {
				return nil, fmt.Errorf("persist cached assistant message: %w", err)
			}
			if stream != nil && stream.OnSources != nil {
				stream.OnSources(sources)
			}
			if stream != nil && stream.OnAnswerChunk != nil {
				stream.OnAnswerChunk(entry.AnswerText)
			}
			return &Result{
				Answer:         entry.AnswerText,
				Sources:        sources,
				ModelID:        entry.ModelID,
				ConversationID: conv.ID,
				Cached:         true,
			}, nil
		}
	}

	// Step 5: retrieval. Zero documents passing the role filter answers
	// with the configured fallback and an empty source list.
	candidates, err := o.Retrieval.Retrieve(ctx, tenantID, queryEmbedding, message, role)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(candidates) == 0 {
		fallback := o.fallbackMessage()
		if err := o.ConvStore.AppendAssistantMessage(ctx, conv.ID, fallback, "", 0, 0, 0, nil); err != nil {
			return nil, fmt.Errorf("persist fallback message: %w", err)
		}
		if stream != nil && stream.OnAnswerChunk != nil {
			stream.OnAnswerChunk(fallback)
		}
		return &Result{Answer: fallback, ConversationID: conv.ID}, nil
	}

	sources := make([]model.SourceRef, len(candidates))
	for i, c := range candidates {
		sources[i] = convstore.Snapshot(c)
	}
	if stream != nil && stream.OnSources != nil {
		stream.OnSources(sources)
	}

	// Step 6: compose the prompt.
	systemPrompt := SystemPromptFor(role)
	prompt := o.composePrompt(candidates, convstore.RecentTurns(conv, o.RecentTurns), message)

	// Step 7: route to a model; request a bounded completion.
	complexity, modelCfg := o.Router.RouteMessage(message)
	chosenModel := o.modelFor(complexity)

	start := time.Now()
	result, err := chosenModel.Complete(ctx, prompt, chatmodel.CompletionOptions{
		Temperature:     0.3,
		MaxOutputTokens: 800,
		SystemPrompt:    systemPrompt,
	})
	elapsed := time.Since(start)
	_ = elapsed // measured but neither recorded nor returned
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	if stream != nil && stream.OnAnswerChunk != nil {
		stream.OnAnswerChunk(result.Text)
	}

	costUSD := chatmodel.CostUSD(modelCfg, result)

	// Step 8: persist assistant Message with sources and cost; update
	// Conversation aggregates (done atomically inside AppendAssistantMessage).
	if err := o.ConvStore.AppendAssistantMessage(ctx, conv.ID, result.Text, modelCfg.Model, result.InputTokens, result.OutputTokens, costUSD, sources); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	// Step 9: write to the semantic cache, if available.
	if o.Cache != nil {
		_ = o.Cache.Store(ctx, tenantSlug, roleStr, queryEmbedding, cache.Entry{
			AnswerText:        result.Text,
			ModelID:           modelCfg.Model,
			SourceIDs:         sourceIDs(sources),
			CitationSnapshots: snapshotsFromSources(sources),
			TTLSeconds:        3600,
		})
	}

	// Step 10: return the result.
	return &Result{
		Answer:         result.Text,
		Sources:        sources,
		ModelID:        modelCfg.Model,
		InputTokens:    result.InputTokens,
		OutputTokens:   result.OutputTokens,
		CostUSD:        costUSD,
		ConversationID: conv.ID,
		Cached:         false,
	}, nil
}

func (o *Orchestrator) fallbackMessage() string {
	if o.FallbackMessage != "" {
		return o.FallbackMessage
	}
	return DefaultFallbackMessage
}

func (o *Orchestrator) modelFor(c router.Complexity) chatmodel.ChatModel {
	if c == router.ComplexityComplex {
		return o.Strong
	}
	return o.CheapModel
}

// composePrompt builds the user turn: top-K document excerpts bounded
// by a total character budget (longer documents truncated with a
// marker) + the conversation's recent turns + the current message.
func (o *Orchestrator) composePrompt(candidates []retrieval.Candidate, recent []model.Message, message string) string {
	var b strings.Builder

	b.WriteString("Context documents:\n")
	budget := o.MaxContextChars
	if budget <= 0 {
		budget = 6000
	}
	used := 0
	for _, c := range candidates {
		excerpt := c.Document.Content
		remaining := budget - used
		if remaining <= 0 {
			break
		}
		if len(excerpt) > remaining {
			excerpt = excerpt[:remaining] + " …[truncated]"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", c.Document.ID, excerpt)
		used += len(excerpt)
	}

	if len(recent) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, m := range recent {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	b.WriteString("\nCurrent question: ")
	b.WriteString(message)
	return b.String()
}

func sourceIDs(refs []model.SourceRef) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.DocumentID.String()
	}
	return ids
}

func snapshotsFromSources(refs []model.SourceRef) []cache.CitationSnapshot {
	snaps := make([]cache.CitationSnapshot, len(refs))
	for i, r := range refs {
		snaps[i] = cache.CitationSnapshot{
			DocumentID:  r.DocumentID.String(),
			Score:       r.Score,
			ContentType: string(r.ContentType),
			Excerpt:     r.Excerpt,
		}
	}
	return snaps
}

func sourcesFromSnapshots(snaps []cache.CitationSnapshot) []model.SourceRef {
	refs := make([]model.SourceRef, 0, len(snaps))
	for _, s := range snaps {
		id, err := uuid.Parse(s.DocumentID)
		if err != nil {
			continue
		}
		refs = append(refs, model.SourceRef{
			DocumentID:  id,
			Score:       s.Score,
			ContentType: model.DocumentContentType(s.ContentType),
			Excerpt:     s.Excerpt,
		})
	}
	return refs
}

// convLocks is the in-process sharded mutex keyed by conversation id.
// A plain keyed mutex, not golang.org/x/sync/singleflight: singleflight
// collapses concurrent calls sharing a key into one execution and
// hands every caller the same result, which is correct for deduplicating
// identical requests but wrong here — two different messages arriving
// for the same conversation must each run and get their own answer, just
// not concurrently.
type convLocks struct {
	mu    sync.Mutex
	perID map[uuid.UUID]*sync.Mutex
}

func (c *convLocks) Lock(id uuid.UUID) (unlock func()) {
	c.mu.Lock()
	if c.perID == nil {
		c.perID = make(map[uuid.UUID]*sync.Mutex)
	}
	l, ok := c.perID[id]
	if !ok {
		l = &sync.Mutex{}
		c.perID[id] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}
