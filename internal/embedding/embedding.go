// Package embedding adapts the teacher's generic, provider-agnostic
// Embedder interface to the text-only contract spec.md §4.7 needs:
// (text, purpose) -> vector in R^D.
package embedding

import (
	"context"
)

// Purpose distinguishes a document embedding (stored, async) from a
// query embedding (computed synchronously per user message), per
// spec.md §4.7's lifecycle note.
type Purpose string

const (
	PurposeDocument Purpose = "document"
	PurposeQuery    Purpose = "query"
)

// Embedder is the core embedding contract. Reduced from
// libaf/embeddings.Embedder's multimodal `[][]ai.ContentPart -> [][]float32`
// batch contract to single-text calls, since stayfly only ever embeds
// text — but the capabilities struct is kept as Capabilities (see capabilities.go) as
// forward-compatible surface the teacher itself exposes.
type Embedder interface {
	Capabilities() Capabilities
	Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, purpose Purpose) ([][]float32, error)
}
