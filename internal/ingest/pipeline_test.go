package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/ingest"
	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/siteextract"
	"github.com/casatico/stayfly/internal/store"
	"github.com/casatico/stayfly/internal/task"
)

func newTestPipeline() (*ingest.Pipeline, store.Store, task.Store) {
	st := store.NewMemoryStore()
	tasks := task.NewMemoryStore()
	return &ingest.Pipeline{
		SiteExtractor: siteextract.NewDefaultRegistry(),
		Store:         st,
		Tasks:         tasks,
	}, st, tasks
}

func TestPipelineSavePersistsPropertyDocumentAndEnqueuesEmbeddingJob(t *testing.T) {
	p, st, tasks := newTestPipeline()
	tenantID := uuid.New()

	prop := &model.Property{
		ContentType: model.ContentTypeLocalTips,
		PageType:    model.PageTypeGeneral,
		SourceURL:   "https://example.com/tips",
		LocalTips: &model.LocalTipsFields{
			Category: model.NewField("beaches", 0.9, "evidence"),
			Tips:     []string{"Arrive before sunrise to avoid crowds."},
		},
	}

	saved, doc, err := p.Save(context.Background(), tenantID, prop)
	require.NoError(t, err)
	require.Equal(t, tenantID, saved.TenantID)
	require.NotEmpty(t, doc.Content)
	require.True(t, doc.Visibility.Allows(model.RoleTourist))

	fromStore, err := st.GetProperty(context.Background(), tenantID, saved.ID)
	require.NoError(t, err)
	require.Equal(t, saved.ID, fromStore.ID)

	claimed, err := tasks.Dequeue(context.Background(), []task.Kind{task.KindEmbedDocument}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, doc.ID.String(), claimed.Payload["document_id"])
}

func TestPipelineSaveIsIdempotentOnRepeatedSourceURL(t *testing.T) {
	p, _, tasks := newTestPipeline()
	tenantID := uuid.New()

	prop := func() *model.Property {
		return &model.Property{
			ContentType: model.ContentTypeLocalTips,
			PageType:    model.PageTypeGeneral,
			SourceURL:   "https://example.com/tips",
			LocalTips:   &model.LocalTipsFields{Category: model.NewField("beaches", 0.9, "evidence")},
		}
	}

	first, _, err := p.Save(context.Background(), tenantID, prop())
	require.NoError(t, err)
	second, _, err := p.Save(context.Background(), tenantID, prop())
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// Two embedding jobs with identical (document_id, text) dedupe to one.
	var drained int
	for {
		claimed, err := tasks.Dequeue(context.Background(), []task.Kind{task.KindEmbedDocument}, time.Now())
		require.NoError(t, err)
		if claimed == nil {
			break
		}
		drained++
	}
	require.Equal(t, 1, drained)
}

func TestPipelineBatchURLsAsyncEnqueuesOneTaskPerURLWithTaskID(t *testing.T) {
	p, _, tasks := newTestPipeline()
	tenantID := uuid.New()

	results, err := p.BatchURLs(context.Background(), tenantID, []string{
		"https://coldwellbankercostarica.com/listing/1",
		"https://costarica.org/tours/",
	}, true)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Empty(t, r.Error)
		require.NotEmpty(t, r.TaskID)
	}

	var seen []string
	for {
		claimed, err := tasks.Dequeue(context.Background(), []task.Kind{task.KindIngestURL}, time.Now())
		require.NoError(t, err)
		if claimed == nil {
			break
		}
		seen = append(seen, claimed.ID)
	}
	require.Len(t, seen, 2)
}

func TestPipelineSupportedWebsitesListsRegisteredDomains(t *testing.T) {
	p, _, _ := newTestPipeline()
	domains := p.SupportedWebsites()
	require.Contains(t, domains, "coldwellbankercostarica.com")
	require.Contains(t, domains, "costarica.org")
}

func TestContentTypesListsAllFiveDomains(t *testing.T) {
	require.Len(t, ingest.ContentTypes(), 5)
}
