package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casatico/stayfly/internal/apperr"
	"github.com/casatico/stayfly/internal/blobstore"
	"github.com/casatico/stayfly/internal/classify"
	"github.com/casatico/stayfly/internal/llmextract"
	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/preparse"
	"github.com/casatico/stayfly/internal/scraper"
	"github.com/casatico/stayfly/internal/siteextract"
	"github.com/casatico/stayfly/internal/store"
	"github.com/casatico/stayfly/internal/task"
	"github.com/casatico/stayfly/internal/websearch"
)

// Pipeline wires every ingestion-side component from spec.md §4 into
// the coarse operations internal/httpapi's /ingest/ routes call.
type Pipeline struct {
	Scraper       *scraper.Client
	Classifier    *classify.Classifier
	SiteExtractor *siteextract.Registry
	LLMExtractor  *llmextract.Extractor
	Enricher      *websearch.Enricher // nil disables enrichment
	BlobStore     blobstore.Store     // nil disables raw-HTML archival for reprocessing
	Store         store.Store
	Tasks         task.Store
	Logger        *zap.Logger
}

// blobKey is the archival key for a tenant's scraped page, mirroring
// store.MemoryStore's "tenantID|sourceURL" composite-key convention.
func blobKey(tenantID uuid.UUID, sourceURL string) string {
	return tenantID.String() + "|" + sourceURL
}

// PreviewRecord is the unpersisted preview returned by POST /ingest/url/
// and POST /ingest/text/.
type PreviewRecord struct {
	ContentType model.ContentType
	PageType    model.PageType
	Property    *model.Property
	Confidence  float64
	Status      llmextract.ExtractionStatus
}

// PreviewURL runs scrape + classify + extract without persisting,
// per spec.md §6 POST /ingest/url/. The scraped HTML is archived
// best-effort under tenantID so a later reprocessing sweep can re-run
// extraction without re-scraping, per spec.md §4.14c.
func (p *Pipeline) PreviewURL(ctx context.Context, tenantID uuid.UUID, rawURL string, ctHint model.ContentType, ptHint model.PageType, hints scraper.Hints) (*PreviewRecord, error) {
	if rawURL == "" {
		return nil, apperr.New(apperr.KindValidation, "url must not be empty")
	}

	result, err := p.Scraper.Scrape(ctx, rawURL, hints)
	if err != nil {
		return nil, classifyScrapeError(err)
	}

	if p.BlobStore != nil {
		if err := p.BlobStore.PutHTML(ctx, blobKey(tenantID, rawURL), result.HTML); err != nil && p.Logger != nil {
			p.Logger.Warn("archiving scraped html failed", zap.String("url", rawURL), zap.Error(err))
		}
	}

	return p.extractFromHTML(ctx, result.HTML, rawURL, ctHint, ptHint)
}

// Reprocess re-runs extraction over a previously archived page and
// re-saves the result, per spec.md §4.14c's reprocessing sweep: when
// prompts or extractors improve, historical pages are re-extracted
// without re-scraping.
func (p *Pipeline) Reprocess(ctx context.Context, tenantID, propertyID uuid.UUID) (*model.Property, error) {
	if p.BlobStore == nil {
		return nil, apperr.New(apperr.KindValidation, "reprocessing requires a configured blob store")
	}

	existing, err := p.Store.GetProperty(ctx, tenantID, propertyID)
	if err != nil {
		return nil, err
	}

	html, err := p.BlobStore.GetHTML(ctx, blobKey(tenantID, existing.SourceURL))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "no archived page for this property")
	}

	preview, err := p.extractFromHTML(ctx, html, existing.SourceURL, existing.ContentType, existing.PageType)
	if err != nil {
		return nil, err
	}

	saved, _, err := p.Save(ctx, tenantID, preview.Property)
	return saved, err
}

// ExtractText runs classify + extract over caller-supplied text, per
// spec.md §6 POST /ingest/text/. sourceURL may be empty.
func (p *Pipeline) ExtractText(ctx context.Context, text, sourceURL string, ctHint model.ContentType) (*PreviewRecord, error) {
	if text == "" {
		return nil, apperr.New(apperr.KindValidation, "text must not be empty")
	}
	return p.extractFromHTML(ctx, text, sourceURL, ctHint, "")
}

func (p *Pipeline) extractFromHTML(ctx context.Context, htmlOrText, sourceURL string, ctHint model.ContentType, ptHint model.PageType) (*PreviewRecord, error) {
	cls := classify.Result{ContentType: ctHint, PageType: ptHint, Confidence: 1}
	if ctHint == "" {
		cls = p.Classifier.Classify(ctx, sourceURL, htmlOrText)
	}

	var prop *model.Property
	var status llmextract.ExtractionStatus

	if extractor := p.SiteExtractor.Lookup(sourceURL); extractor != nil {
		extracted, _, err := extractor(htmlOrText, sourceURL)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindExtractionFailed, err, "site-specific extraction failed")
		}
		prop, status = extracted, llmextract.ExtractionStatusOK
	} else {
		pre, _ := preparse.Parse(htmlOrText)
		record, err := p.LLMExtractor.Extract(ctx, htmlOrText, cls.ContentType, cls.PageType, PreparsedFieldsFromResult(pre))
		if err != nil {
			return nil, apperr.Wrap(apperr.KindExtractionFailed, err, "llm extraction failed")
		}
		prop = AssembleProperty(cls.ContentType, cls.PageType, sourceURL, record)
		status = record.Status
	}
	prop.SourceURL = sourceURL

	if p.Enricher != nil && status == llmextract.ExtractionStatusOK {
		p.enrich(ctx, prop)
	}

	return &PreviewRecord{
		ContentType: cls.ContentType,
		PageType:    cls.PageType,
		Property:    prop,
		Confidence:  cls.Confidence,
		Status:      status,
	}, nil
}

// enrich fills missing critical fields via the web-search enricher,
// best-effort: a failure here never fails the whole ingest, per
// spec.md §7's "persistent upstream" policy (web_search_skipped).
func (p *Pipeline) enrich(ctx context.Context, prop *model.Property) {
	fields := propertyFieldMap(prop)
	identity := propertyIdentity(prop)
	location := propertyLocation(prop)

	answer, err := p.Enricher.Enrich(ctx, prop.ContentType, identity, location, fields)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Warn("enrichment failed, continuing with best-effort data", zap.Error(err))
		}
		return
	}
	if answer != nil && p.Logger != nil {
		p.Logger.Info("enrichment filled missing fields", zap.String("property", identity))
	}
}

// Save persists a Property, maintains its derived Document, and
// enqueues an async embedding job, per spec.md §6 POST /ingest/save/
// and §4.8.
func (p *Pipeline) Save(ctx context.Context, tenantID uuid.UUID, prop *model.Property) (*model.Property, *model.Document, error) {
	prop.TenantID = tenantID
	if prop.Visibility == nil {
		prop.Visibility = VisibilityForProperty(prop)
	}

	saved, err := p.Store.UpsertPropertyBySourceURL(ctx, prop)
	if err != nil {
		return nil, nil, err
	}

	doc := NewDocumentForProperty(saved, time.Now())
	savedDoc, err := p.Store.UpsertDocumentForProperty(ctx, doc)
	if err != nil {
		return saved, nil, err
	}

	if p.Tasks != nil {
		if err := task.EnqueueEmbeddingJob(ctx, p.Tasks, savedDoc.ID.String(), savedDoc.Content); err != nil && p.Logger != nil {
			p.Logger.Warn("failed to enqueue embedding job", zap.Error(err))
		}
	}

	return saved, savedDoc, nil
}

// BatchResult is one URL's outcome from POST /ingest/batch/.
type BatchResult struct {
	URL    string
	TaskID string
	Error  string
}

// BatchURLs ingests multiple URLs, per spec.md §6 POST /ingest/batch/.
// When async, each URL is enqueued as a KindIngestURL task and the
// caller polls task status; when synchronous, each URL runs the full
// preview+save pipeline inline and errors are collected per-URL rather
// than aborting the batch.
func (p *Pipeline) BatchURLs(ctx context.Context, tenantID uuid.UUID, urls []string, async bool) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(urls))
	for _, u := range urls {
		if async {
			t := &task.Task{
				ID:             uuid.NewString(),
				Kind:           task.KindIngestURL,
				Payload:        map[string]any{"tenant_id": tenantID.String(), "url": u},
				IdempotencyKey: tenantID.String() + "|" + u,
			}
			if err := p.Tasks.Enqueue(ctx, t); err != nil {
				results = append(results, BatchResult{URL: u, Error: err.Error()})
				continue
			}
			results = append(results, BatchResult{URL: u, TaskID: t.ID})
			continue
		}

		preview, err := p.PreviewURL(ctx, tenantID, u, "", "", scraper.Hints{})
		if err != nil {
			results = append(results, BatchResult{URL: u, Error: err.Error()})
			continue
		}
		if _, _, err := p.Save(ctx, tenantID, preview.Property); err != nil {
			results = append(results, BatchResult{URL: u, Error: err.Error()})
			continue
		}
		results = append(results, BatchResult{URL: u})
	}
	return results, nil
}

// SupportedWebsites lists the domains with a dedicated site-specific
// extractor, per spec.md §6 GET /ingest/supported-websites/.
func (p *Pipeline) SupportedWebsites() []string {
	return p.SiteExtractor.Domains()
}

// ContentTypes lists the known Property content types, per spec.md §6
// GET /ingest/content-types/.
func ContentTypes() []model.ContentType {
	return []model.ContentType{
		model.ContentTypeRealEstate,
		model.ContentTypeTour,
		model.ContentTypeRestaurant,
		model.ContentTypeTransportation,
		model.ContentTypeLocalTips,
	}
}

func classifyScrapeError(err error) error {
	var scrapeErr *scraper.Error
	if errors.As(err, &scrapeErr) {
		switch scrapeErr.Kind {
		case scraper.ErrKindInvalidURL:
			return apperr.Wrap(apperr.KindValidation, err, "invalid url")
		case scraper.ErrKindNoMethodAvailable:
			return apperr.Wrap(apperr.KindExtractionFailed, err, "no scrape method available")
		default:
			return apperr.Wrap(apperr.KindTransient, err, "scrape failed")
		}
	}
	return apperr.Wrap(apperr.KindTransient, err, "scrape failed")
}

func propertyIdentity(p *model.Property) string {
	switch p.ContentType {
	case model.ContentTypeRealEstate:
		if p.RealEstate != nil {
			return p.RealEstate.PropertyType.Value
		}
	case model.ContentTypeTour:
		if p.TourSpecific != nil {
			return p.TourSpecific.Name.Value
		}
	case model.ContentTypeRestaurant:
		if p.Restaurant != nil {
			return p.Restaurant.Location
		}
	}
	return p.SourceURL
}

func propertyLocation(p *model.Property) string {
	switch p.ContentType {
	case model.ContentTypeRealEstate:
		if p.RealEstate != nil {
			return p.RealEstate.Location
		}
	case model.ContentTypeRestaurant:
		if p.Restaurant != nil {
			return p.Restaurant.Location
		}
	}
	return ""
}

// propertyFieldMap flattens the populated variant's scalar fields into a
// generic map so websearch.Enricher (content-type agnostic) can compute
// which critical fields are still missing.
func propertyFieldMap(p *model.Property) map[string]any {
	fields := map[string]any{}
	switch p.ContentType {
	case model.ContentTypeRealEstate:
		if f := p.RealEstate; f != nil {
			fields["price_usd"] = f.PriceUSD.Value
			fields["bedrooms"] = f.Bedrooms.Value
			fields["bathrooms"] = f.Bathrooms.Value
		}
	case model.ContentTypeRestaurant:
		if f := p.Restaurant; f != nil {
			fields["rating"] = f.Rating.Value
			fields["number_of_reviews"] = f.NumberOfReviews.Value
			fields["contact_phone"] = f.ContactPhone.Value
		}
	}
	return fields
}
