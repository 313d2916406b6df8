package model

import (
	"time"

	"github.com/google/uuid"
)

// DocumentContentType extends ContentType with categories that exist
// only as standalone knowledge, never as a Property (market commentary,
// legal notes, neighborhood guides, process explainers).
type DocumentContentType string

const (
	DocumentContentTypeRealEstate     DocumentContentType = DocumentContentType(ContentTypeRealEstate)
	DocumentContentTypeTour           DocumentContentType = DocumentContentType(ContentTypeTour)
	DocumentContentTypeRestaurant     DocumentContentType = DocumentContentType(ContentTypeRestaurant)
	DocumentContentTypeTransportation DocumentContentType = DocumentContentType(ContentTypeTransportation)
	DocumentContentTypeLocalTips      DocumentContentType = DocumentContentType(ContentTypeLocalTips)
	DocumentContentTypeMarket         DocumentContentType = "market"
	DocumentContentTypeLegal          DocumentContentType = "legal"
	DocumentContentTypeFinance        DocumentContentType = "finance"
	DocumentContentTypeNeighborhood   DocumentContentType = "neighborhood"
	DocumentContentTypeProcess        DocumentContentType = "process"
)

// RetrievalStats tracks how often a Document has surfaced and how well
// it has scored, updated after every retrieval that returns it.
type RetrievalStats struct {
	TimesRetrieved   int
	AvgRelevanceScore float64 // exponential moving average over observed scores
}

// Document is the retrieval unit: free-text content plus the metadata
// the retrieval engine and role filter need to decide whether to
// surface it.
type Document struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	ContentType DocumentContentType
	Content     string

	PropertyID *uuid.UUID // weak reference; cleared, not cascaded, if Property is removed

	Visibility   VisibilitySet
	FreshnessDate time.Time
	IsActive     bool

	Stats RetrievalStats

	Embedding []float32

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsFresh reports whether d's FreshnessDate falls within horizon days of
// now.
func (d *Document) IsFresh(now time.Time, horizon time.Duration) bool {
	return now.Sub(d.FreshnessDate) <= horizon
}

// VisibleTo reports whether role may see d at retrieval time.
func (d *Document) VisibleTo(role Role) bool {
	return d.Visibility.Allows(role)
}

// RecordRetrieval folds a newly observed relevance score into Stats
// using an exponential moving average with the given smoothing factor
// alpha (0, 1].
func (s *RetrievalStats) RecordRetrieval(score, alpha float64) {
	s.TimesRetrieved++
	if s.TimesRetrieved == 1 {
		s.AvgRelevanceScore = score
		return
	}
	s.AvgRelevanceScore = alpha*score + (1-alpha)*s.AvgRelevanceScore
}
