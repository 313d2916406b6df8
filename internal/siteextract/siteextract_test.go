package siteextract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/siteextract"
)

func TestRegistryLookupFirstMatchWins(t *testing.T) {
	r := siteextract.NewRegistry()
	calledFirst := false
	calledSecond := false
	r.Register("example.com", func(html, url string) (*model.Property, map[string]float64, error) {
		calledFirst = true
		return &model.Property{}, nil, nil
	})
	r.Register("example.com/blog", func(html, url string) (*model.Property, map[string]float64, error) {
		calledSecond = true
		return &model.Property{}, nil, nil
	})

	extractor := r.Lookup("https://example.com/blog/post-1")
	require.NotNil(t, extractor)
	_, _, err := extractor("", "")
	require.NoError(t, err)
	assert.True(t, calledFirst)
	assert.False(t, calledSecond)
}

func TestRegistryLookupNoMatch(t *testing.T) {
	r := siteextract.NewDefaultRegistry()
	assert.Nil(t, r.Lookup("https://unknown-domain.example/page"))
}

// Scenario 1 (spec.md §8): a Coldwell Banker property page extracts to
// content_type=real_estate, page_type=specific.
func TestExtractColdwellBankerScenario1(t *testing.T) {
	htmlDoc := `<html><body>
<div class="listing-price">$185,000</div>
<div class="beds">3 bed</div>
<div class="baths">2 bath</div>
<div class="listing-status">For Sale</div>
<div class="property-location">Curridabat, San Jose, Costa Rica</div>
</body></html>`

	property, confidence, err := siteextract.ExtractColdwellBanker(htmlDoc,
		"https://www.coldwellbankercostarica.com/property/land-for-sale-in-curridabat/2785")
	require.NoError(t, err)
	require.NotNil(t, property.RealEstate)

	assert.Equal(t, model.ContentTypeRealEstate, property.ContentType)
	assert.Equal(t, model.PageTypeSpecific, property.PageType)
	assert.Equal(t, 185000.0, property.RealEstate.PriceUSD.Value)
	assert.Equal(t, 3, property.RealEstate.Bedrooms.Value)
	assert.Contains(t, property.RealEstate.Location, "Curridabat")
	assert.NotZero(t, confidence["price_usd"])
}

// Scenario 2 (spec.md §8): a tours listing page extracts a non-empty
// featured_tours array with total_tours >= len(featured_tours).
func TestExtractCostaRicaOrgToursScenario2(t *testing.T) {
	htmlDoc := `<html><body>
<article class="tour">
  <h3 class="tour-name">Arenal Volcano Hike</h3>
  <span class="tour-price">$65</span>
  <span class="tour-duration">4</span>
</article>
<article class="tour">
  <h3 class="tour-name">Manuel Antonio Snorkel</h3>
  <span class="tour-price">$45</span>
  <span class="tour-duration">6</span>
</article>
</body></html>`

	property, _, err := siteextract.ExtractCostaRicaOrgTours(htmlDoc, "https://costarica.org/tours/")
	require.NoError(t, err)
	require.NotNil(t, property.TourGeneral)

	assert.Equal(t, model.ContentTypeTour, property.ContentType)
	assert.Equal(t, model.PageTypeGeneral, property.PageType)
	assert.NotEmpty(t, property.TourGeneral.FeaturedTours)
	assert.GreaterOrEqual(t, property.TourGeneral.TotalTours, len(property.TourGeneral.FeaturedTours))
	assert.Equal(t, "Manuel Antonio Snorkel", property.TourGeneral.CheapestOption)
}
