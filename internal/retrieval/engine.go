// Package retrieval implements the hybrid vector+lexical search
// described in spec.md §4.9: vector candidates and lexical candidates
// are each scored independently, role-filtered after scoring, weighted
// together, and deterministically tie-broken.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/store"
)

// Config holds the tunables spec.md §4.9 calls out as configuration,
// not constants: α, K, the vector candidate pool size, and the
// freshness horizon/multiplier.
type Config struct {
	Alpha            float64 // weight on vector_score; (1-Alpha) on lex_score
	TopK             int     // documents returned
	VectorSearchTopK int     // candidate pool size per side, spec.md default ~20
	FreshnessHorizon time.Duration
	StaleMultiplier  float64 // applied to documents older than FreshnessHorizon
}

// DefaultConfig matches spec.md §4.9's stated defaults.
func DefaultConfig() Config {
	return Config{
		Alpha:            0.5,
		TopK:             5,
		VectorSearchTopK: 20,
		FreshnessHorizon: 180 * 24 * time.Hour,
		StaleMultiplier:  0.8,
	}
}

// Candidate is one scored, role-filtered result with its score
// breakdown, for callers (the RAG orchestrator, debugging endpoints)
// that need to see how a Document was ranked.
type Candidate struct {
	Document        model.Document
	VectorScore     float64
	LexScore        float64
	FreshnessFactor float64
	CombinedScore   float64
}

// Engine runs the hybrid algorithm against a store.Store.
type Engine struct {
	Store  store.Store
	Config Config
}

func NewEngine(s store.Store, cfg Config) *Engine {
	return &Engine{Store: s, Config: cfg}
}

// Retrieve returns up to Config.TopK ranked Documents visible to role,
// given a query embedding and the raw query text for lexical search.
func (e *Engine) Retrieve(ctx context.Context, tenantID uuid.UUID, queryEmbedding []float32, queryText string, role model.Role) ([]Candidate, error) {
	poolSize := e.Config.VectorSearchTopK
	if poolSize <= 0 {
		poolSize = 20
	}

	vectorCandidates, err := e.Store.VectorSearch(ctx, tenantID, queryEmbedding, poolSize)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	lexicalCandidates, err := e.Store.LexicalSearch(ctx, tenantID, queryText, poolSize)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	merged := mergeCandidates(vectorCandidates, lexicalCandidates)

	now := time.Now()
	alpha := e.Config.Alpha
	horizon := e.Config.FreshnessHorizon
	staleMultiplier := e.Config.StaleMultiplier
	if staleMultiplier == 0 {
		staleMultiplier = 1
	}

	var scored []Candidate
	for _, c := range merged {
		// Role filter applied after scoring (spec.md §4.9: "Applied
		// after scoring to preserve score distributions").
		if !c.doc.VisibleTo(role) {
			continue
		}

		freshness := 1.0
		if !c.doc.IsFresh(now, horizon) {
			freshness = staleMultiplier
		}

		combined := (alpha*c.vectorScore + (1-alpha)*c.lexScore) * freshness
		scored = append(scored, Candidate{
			Document:        c.doc,
			VectorScore:     c.vectorScore,
			LexScore:        c.lexScore,
			FreshnessFactor: freshness,
			CombinedScore:   combined,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].CombinedScore != scored[j].CombinedScore {
			return scored[i].CombinedScore > scored[j].CombinedScore
		}
		if scored[i].FreshnessFactor != scored[j].FreshnessFactor {
			return scored[i].FreshnessFactor > scored[j].FreshnessFactor
		}
		return scored[i].Document.CreatedAt.After(scored[j].Document.CreatedAt)
	})

	topK := e.Config.TopK
	if topK <= 0 {
		topK = 5
	}
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

type mergedCandidate struct {
	doc         model.Document
	vectorScore float64
	lexScore    float64
}

// mergeCandidates unions the two candidate sets by document id,
// normalizing lex_score by the top lexical rank in the set (spec.md
// §4.9: "Produce lex_score ∈ [0,1] normalized by the top lexical rank
// in the candidate set").
func mergeCandidates(vector []store.VectorCandidate, lexical []store.LexicalCandidate) []mergedCandidate {
	byID := make(map[uuid.UUID]*mergedCandidate)

	for _, v := range vector {
		byID[v.Document.ID] = &mergedCandidate{doc: v.Document, vectorScore: v.VectorScore}
	}

	var topRank float64
	for _, l := range lexical {
		if l.RawRank > topRank {
			topRank = l.RawRank
		}
	}

	for _, l := range lexical {
		lexScore := 0.0
		if topRank > 0 {
			lexScore = l.RawRank / topRank
		}
		if existing, ok := byID[l.Document.ID]; ok {
			existing.lexScore = lexScore
			continue
		}
		byID[l.Document.ID] = &mergedCandidate{doc: l.Document, lexScore: lexScore}
	}

	out := make([]mergedCandidate, 0, len(byID))
	for _, c := range byID {
		out = append(out, *c)
	}
	return out
}
