package task

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// EmbeddingIdempotencyKey builds the `(id, text_hash)` idempotency key
// spec.md §4.14 requires: "a retried embedding for the same (id, text
// hash) is a no-op."
func EmbeddingIdempotencyKey(recordID, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%s", recordID, hex.EncodeToString(sum[:]))
}

// EnqueueEmbeddingJob enqueues a KindEmbedDocument task for the given
// document, deduplicated on (record_id, text_hash).
func EnqueueEmbeddingJob(ctx context.Context, store Store, documentID, text string) error {
	return store.Enqueue(ctx, &Task{
		ID:             uuid.NewString(),
		Kind:           KindEmbedDocument,
		Payload:        map[string]any{"document_id": documentID, "text": text},
		IdempotencyKey: EmbeddingIdempotencyKey(documentID, text),
	})
}
