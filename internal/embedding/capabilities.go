package embedding

// Capabilities describes what an Embedder supports. Carried over from
// libaf/embeddings.EmbedderCapabilities nearly verbatim, trimmed to the
// fields a text-only system can actually populate (no MIME-type
// matching, since stayfly never embeds non-text content today).
type Capabilities struct {
	// Dimension is the fixed output dimension D (spec.md §6: "fixed
	// output dimension D agreed system-wide").
	Dimension int `json:"dimension"`

	// MaxBatchSize is the maximum items per EmbedBatch call (0 = unlimited).
	MaxBatchSize int `json:"max_batch_size,omitempty"`

	// ModelID is recorded alongside embeddings so a model change forces
	// re-embedding (spec.md §6).
	ModelID string `json:"model_id"`
}
