package appwiring

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/casatico/stayfly/internal/embedding"
	"github.com/casatico/stayfly/internal/ingest"
	"github.com/casatico/stayfly/internal/scraper"
	"github.com/casatico/stayfly/internal/store"
	"github.com/casatico/stayfly/internal/task"
)

// ingestURLHandler runs the full preview-then-save pipeline for a
// KindIngestURL task, the async side of POST /ingest/batch/.
func ingestURLHandler(pipeline *ingest.Pipeline) task.Handler {
	return func(ctx context.Context, t *task.Task) error {
		tenantID, url, err := parseTenantURLPayload(t.Payload)
		if err != nil {
			return err
		}
		preview, err := pipeline.PreviewURL(ctx, tenantID, url, "", "", scraper.Hints{})
		if err != nil {
			return err
		}
		_, _, err = pipeline.Save(ctx, tenantID, preview.Property)
		return err
	}
}

func parseTenantURLPayload(payload map[string]any) (uuid.UUID, string, error) {
	tenantIDStr, _ := payload["tenant_id"].(string)
	url, _ := payload["url"].(string)
	if tenantIDStr == "" || url == "" {
		return uuid.Nil, "", fmt.Errorf("ingest_url task payload missing tenant_id or url")
	}
	tenantID, err := uuid.Parse(tenantIDStr)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("parsing tenant_id: %w", err)
	}
	return tenantID, url, nil
}

// embedDocumentHandler computes and persists a Document's embedding
// for a KindEmbedDocument task, per spec.md §4.8.
func embedDocumentHandler(s store.Store, embedder embedding.Embedder) task.Handler {
	return func(ctx context.Context, t *task.Task) error {
		documentIDStr, _ := t.Payload["document_id"].(string)
		text, _ := t.Payload["text"].(string)
		if documentIDStr == "" {
			return fmt.Errorf("embed_document task payload missing document_id")
		}
		documentID, err := uuid.Parse(documentIDStr)
		if err != nil {
			return fmt.Errorf("parsing document_id: %w", err)
		}

		vector, err := embedder.Embed(ctx, text, embedding.PurposeDocument)
		if err != nil {
			return fmt.Errorf("embedding document: %w", err)
		}

		tenantID, err := lookupDocumentTenant(ctx, s, documentID)
		if err != nil {
			return err
		}
		return s.SetDocumentEmbedding(ctx, tenantID, documentID, vector)
	}
}

// lookupDocumentTenant recovers a Document's tenant id, since
// SetDocumentEmbedding is tenant-scoped but the queued payload only
// carries the document id. GetDocuments across every known tenant
// would be wasteful at scale; scanning tenants here mirrors the same
// tradeoff the reprocessing sweep below already makes for a
// memory-store-scale deployment.
func lookupDocumentTenant(ctx context.Context, s store.Store, documentID uuid.UUID) (uuid.UUID, error) {
	tenants, err := s.ListTenants(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("listing tenants: %w", err)
	}
	for _, tenant := range tenants {
		if _, err := s.GetDocument(ctx, tenant.ID, documentID); err == nil {
			return tenant.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("no tenant owns document %s", documentID)
}

// reprocessRecordHandler re-extracts a single archived property for a
// KindReprocessRecord task, per spec.md §4.14c.
func reprocessRecordHandler(pipeline *ingest.Pipeline) task.Handler {
	return func(ctx context.Context, t *task.Task) error {
		tenantIDStr, _ := t.Payload["tenant_id"].(string)
		recordIDStr, _ := t.Payload["record_id"].(string)
		if tenantIDStr == "" || recordIDStr == "" {
			return fmt.Errorf("reprocess_record task payload missing tenant_id or record_id")
		}
		tenantID, err := uuid.Parse(tenantIDStr)
		if err != nil {
			return fmt.Errorf("parsing tenant_id: %w", err)
		}
		recordID, err := uuid.Parse(recordIDStr)
		if err != nil {
			return fmt.Errorf("parsing record_id: %w", err)
		}
		_, err = pipeline.Reprocess(ctx, tenantID, recordID)
		return err
	}
}

// reprocessTargets lists every property across every tenant as a
// reprocessing candidate. The historical dataset this sweep walks is
// a tenant's full property set, not a delta, per spec.md §4.14c.
func reprocessTargets(s store.Store) func(ctx context.Context) ([]task.ReprocessTarget, error) {
	return func(ctx context.Context) ([]task.ReprocessTarget, error) {
		tenants, err := s.ListTenants(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing tenants: %w", err)
		}

		var targets []task.ReprocessTarget
		for _, tenant := range tenants {
			properties, err := s.ListProperties(ctx, tenant.ID, store.PropertyFilter{})
			if err != nil {
				return nil, fmt.Errorf("listing properties for tenant %s: %w", tenant.ID, err)
			}
			for _, p := range properties {
				targets = append(targets, task.ReprocessTarget{TenantID: tenant.ID, RecordID: p.ID})
			}
		}
		return targets, nil
	}
}
