// Package websearch fills missing critical fields for a content record by
// invoking a tool-using strong model backed by a web search, per spec.md
// §4.6. It is a cost-gated, best-effort enricher: when every critical
// field for the content type is already populated, it must not run at
// all, and it never overwrites a field that already has a value.
package websearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/casatico/stayfly/internal/model"
)

// Searcher performs a raw web search and returns ranked results. Grounded
// on theRebelliousNerd-codenerd's research.WebSearchTool (DuckDuckGo HTML
// scrape, no API key required) — the same shape, reduced to the method
// the enricher needs.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// SearchResult is one raw web search hit.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// ChatModel is the minimal tool-augmented completion contract the
// enricher needs from the strong model. The search results are folded
// into the prompt rather than modeled as a live tool-call loop, since
// the enricher only ever needs one round of search-then-summarize.
type ChatModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Citation preserves whatever shape the search/model combination
// returns beyond URL/Title/Fragment — spec.md §9 leaves the exact
// citation schema as an open question, so Extra carries any additional
// fields read-only instead of dropping them.
type Citation struct {
	URL      string
	Title    string
	Fragment string
	Extra    map[string]any
}

// Answer is the enricher's output: a grounded paragraph plus its
// supporting sources and citations.
type Answer struct {
	Text       string
	Sources    []string
	Citations  []Citation
}

// criticalFields is the per-content-type set of fields that must all be
// non-empty for the enricher to be skipped (the cost gate). Spec.md
// §4.6's restaurant example is reproduced verbatim; the other content
// types extrapolate the same "identity + descriptive" shape from their
// field sets in internal/model.
var criticalFields = map[model.ContentType][]string{
	model.ContentTypeRestaurant: {
		"description", "price_range_bucket", "signature_dishes", "amenities", "atmosphere",
	},
	model.ContentTypeRealEstate: {
		"description", "price_usd", "amenities",
	},
	model.ContentTypeTour: {
		"description", "price_usd", "duration_hours",
	},
	model.ContentTypeTransportation: {
		"description", "price_usd",
	},
	model.ContentTypeLocalTips: {
		"description",
	},
}

// Enricher wires a Searcher and a ChatModel into the cost-gated
// enrichment step described in spec.md §4.6.
type Enricher struct {
	Search       Searcher
	Model        ChatModel
	MaxResults   int
}

// NewEnricher constructs an Enricher with a default result count.
func NewEnricher(search Searcher, chatModel ChatModel) *Enricher {
	return &Enricher{Search: search, Model: chatModel, MaxResults: 8}
}

// Enrich runs the cost gate, and on a gate failure builds a
// natural-language query from identity fields + location, searches,
// and asks the model to ground an answer in the results. It returns
// (nil, nil) when the gate passes (every critical field present) —
// callers must treat a nil Answer as "nothing to append", not an error.
func (e *Enricher) Enrich(ctx context.Context, ct model.ContentType, identity string, location string, fields map[string]any) (*Answer, error) {
	if allCriticalFieldsPresent(ct, fields) {
		return nil, nil
	}

	query := buildQuery(identity, location, missingCritical(ct, fields))
	results, err := e.Search.Search(ctx, query, e.maxResults())
	if err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	prompt := buildGroundingPrompt(query, results)
	text, err := e.Model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("grounding completion failed: %w", err)
	}

	sources := make([]string, 0, len(results))
	citations := make([]Citation, 0, len(results))
	for _, r := range results {
		sources = append(sources, r.URL)
		citations = append(citations, Citation{URL: r.URL, Title: r.Title, Fragment: r.Snippet})
	}

	return &Answer{Text: text, Sources: sources, Citations: citations}, nil
}

func (e *Enricher) maxResults() int {
	if e.MaxResults <= 0 {
		return 8
	}
	return e.MaxResults
}

// allCriticalFieldsPresent implements the cost gate: an unknown content
// type has no critical-field set, so it trivially passes (nothing to
// enrich against).
func allCriticalFieldsPresent(ct model.ContentType, fields map[string]any) bool {
	return len(missingCritical(ct, fields)) == 0
}

func missingCritical(ct model.ContentType, fields map[string]any) []string {
	required, ok := criticalFields[ct]
	if !ok {
		return nil
	}
	var missing []string
	for _, f := range required {
		v, present := fields[f]
		if !present || isEmptyValue(v) {
			missing = append(missing, f)
		}
	}
	return missing
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

func buildQuery(identity, location string, missing []string) string {
	var sb strings.Builder
	sb.WriteString(identity)
	if location != "" {
		sb.WriteString(" ")
		sb.WriteString(location)
	}
	if len(missing) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(missing, " "))
	}
	return sb.String()
}

func buildGroundingPrompt(query string, results []SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Using only the search results below, write a short grounded paragraph answering: ")
	sb.WriteString(query)
	sb.WriteString("\nDo not invent facts not present in the results. Cite nothing inline; sources are attached separately.\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s\n%s\n%s\n\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return sb.String()
}
