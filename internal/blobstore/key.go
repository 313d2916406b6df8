package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ObjectKey derives a stable archive key from (tenant, source URL) so a
// re-ingest of the same URL overwrites the same object rather than
// accumulating duplicates.
func ObjectKey(tenantSlug, sourceURL string) string {
	h := sha256.Sum256([]byte(sourceURL))
	return fmt.Sprintf("%s/%s.html", tenantSlug, hex.EncodeToString(h[:]))
}
