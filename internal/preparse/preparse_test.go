package preparse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/preparse"
)

// TestParseRestaurantScenario3 mirrors spec.md §8 scenario 3: a
// Restaurant JSON-LD block with aggregateRating.ratingValue=4.8,
// reviewCount=45, telephone="+506 6143 6871".
func TestParseRestaurantScenario3(t *testing.T) {
	htmlDoc := `<html><head>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Restaurant",
  "name": "Soda La Bomba",
  "telephone": "+506 6143 6871",
  "servesCuisine": ["Costa Rican", "Seafood"],
  "priceRange": "$$",
  "acceptsReservations": "True",
  "aggregateRating": {
    "@type": "AggregateRating",
    "ratingValue": 4.8,
    "reviewCount": 45
  },
  "address": {
    "@type": "PostalAddress",
    "streetAddress": "Calle Principal",
    "addressLocality": "Tamarindo",
    "addressCountry": "CR"
  }
}
</script>
</head><body></body></html>`

	result, err := preparse.Parse(htmlDoc)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, result.Restaurant)

	r := result.Restaurant
	assert.Equal(t, 4.8, r.Rating.Value)
	assert.GreaterOrEqual(t, r.Rating.Confidence, preparse.MinConfidence)
	assert.Equal(t, 45, r.NumberOfReviews.Value)
	assert.Equal(t, "+506 6143 6871", r.ContactPhone.Value)
	assert.ElementsMatch(t, []string{"Costa Rican", "Seafood"}, r.CuisineTypes)
	assert.Equal(t, model.PriceRangeModerate, r.PriceRangeBucket)
	assert.True(t, r.AcceptsReservations.Value)
	assert.Contains(t, r.Location, "Tamarindo")
}

func TestParseReturnsNilForUnregisteredType(t *testing.T) {
	htmlDoc := `<html><head>
<script type="application/ld+json">
{"@context": "https://schema.org", "@type": "Hotel", "name": "Villa Mar"}
</script>
</head></html>`

	result, err := preparse.Parse(htmlDoc)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestParseNoJSONLD(t *testing.T) {
	result, err := preparse.Parse(`<html><body>plain text</body></html>`)
	require.NoError(t, err)
	assert.Nil(t, result)
}
