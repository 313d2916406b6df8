package classify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/casatico/stayfly/internal/classify"
	"github.com/casatico/stayfly/internal/model"
)

// Scenario 1 (spec.md §8): a Coldwell Banker property page classifies
// as real_estate/specific.
func TestClassifyScenario1(t *testing.T) {
	c := classify.New(nil)
	result := c.Classify(context.Background(), "https://www.coldwellbankercostarica.com/property/land-for-sale-in-curridabat/2785", "")

	assert.Equal(t, model.ContentTypeRealEstate, result.ContentType)
	assert.Equal(t, model.PageTypeSpecific, result.PageType)
}

// Scenario 2 (spec.md §8): a tours landing page classifies as
// tour/general.
func TestClassifyScenario2(t *testing.T) {
	c := classify.New(nil)
	result := c.Classify(context.Background(), "https://costarica.org/tours/", "")

	assert.Equal(t, model.ContentTypeTour, result.ContentType)
	assert.Equal(t, model.PageTypeGeneral, result.PageType)
}

func TestClassifyUnknownDomainFallsBackToPathTokens(t *testing.T) {
	c := classify.New(nil)
	result := c.Classify(context.Background(), "https://example.com/restaurants/la-bomba", "")
	assert.Equal(t, model.ContentTypeRestaurant, result.ContentType)
}

type stubSearcher struct {
	contentType model.ContentType
	confidence  float64
	ok          bool
}

func (s stubSearcher) ClassifyURL(ctx context.Context, rawURL string) (model.ContentType, float64, bool) {
	return s.contentType, s.confidence, s.ok
}

func TestClassifyConsultsWebSearchWhenNoOtherSignal(t *testing.T) {
	c := classify.New(stubSearcher{contentType: model.ContentTypeLocalTips, confidence: 0.85, ok: true})
	result := c.Classify(context.Background(), "https://example.com/unrecognized-page", "")
	assert.Equal(t, model.ContentTypeLocalTips, result.ContentType)
}

func TestClassifyDefaultsToUnknown(t *testing.T) {
	c := classify.New(nil)
	result := c.Classify(context.Background(), "https://example.com/unrecognized-page", "")
	assert.Equal(t, classify.ContentTypeUnknown, result.ContentType)
}

func TestClassifyPageTypeBookingWords(t *testing.T) {
	c := classify.New(nil)
	result := c.Classify(context.Background(), "https://example.com/tours/zipline", "Book now for departure time 9am")
	assert.Equal(t, model.PageTypeSpecific, result.PageType)
}
