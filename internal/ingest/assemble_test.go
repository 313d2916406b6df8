package ingest_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/ingest"
	"github.com/casatico/stayfly/internal/llmextract"
	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/preparse"
)

func TestAssemblePropertyRealEstateSpecific(t *testing.T) {
	record := &llmextract.Record{
		Status: llmextract.ExtractionStatusOK,
		Fields: map[string]any{
			"property_type": "house",
			"status":        "for_sale",
			"price_usd":     450000.0,
			"bedrooms":      3,
			"bathrooms":     2,
			"location":      "Curridabat",
		},
		FieldConfidence: map[string]float64{"price_usd": 0.9},
		FieldEvidence:   map[string]string{"price_usd": "LLM extraction"},
	}

	p := ingest.AssembleProperty(model.ContentTypeRealEstate, model.PageTypeSpecific, "https://example.com/land", record)
	require.NoError(t, p.Validate())
	require.Equal(t, 450000.0, p.RealEstate.PriceUSD.Value)
	require.Equal(t, "Curridabat", p.RealEstate.Location)
	require.True(t, p.HasPrice())
}

func TestAssemblePropertyTourGeneralCountsFeaturedTours(t *testing.T) {
	record := &llmextract.Record{
		Status: llmextract.ExtractionStatusOK,
		Fields: map[string]any{
			"featured_tours": []any{
				map[string]any{"name": "Arenal Volcano", "price_usd": 89.0, "duration_hours": 6.0},
				map[string]any{"name": "Manuel Antonio", "price_usd": 69.0, "duration_hours": 5.0},
			},
			"total_tours": 2.0,
		},
	}

	p := ingest.AssembleProperty(model.ContentTypeTour, model.PageTypeGeneral, "https://costarica.org/tours/", record)
	require.NoError(t, p.Validate())
	require.Len(t, p.TourGeneral.FeaturedTours, 2)
	require.GreaterOrEqual(t, p.TourGeneral.TotalTours, len(p.TourGeneral.FeaturedTours))
}

func TestPreparsedFieldsFromResultSurvivesEmptyLLMOutput(t *testing.T) {
	pre := &preparse.Result{
		SchemaType: "Restaurant",
		Restaurant: &model.RestaurantFields{
			Rating:          model.NewField(4.8, preparse.MinConfidence, "json-ld"),
			NumberOfReviews: model.NewField(45, preparse.MinConfidence, "json-ld"),
			ContactPhone:    model.NewField("+506 6143 6871", preparse.MinConfidence, "json-ld"),
		},
	}

	preparsedFields := ingest.PreparsedFieldsFromResult(pre)
	record := &llmextract.Record{
		Status: llmextract.ExtractionStatusOK,
		Fields: map[string]any{
			"rating":            preparsedFields["rating"],
			"number_of_reviews": preparsedFields["number_of_reviews"],
			"contact_phone":     preparsedFields["contact_phone"],
		},
		FieldConfidence: map[string]float64{
			"rating": preparse.MinConfidence, "number_of_reviews": preparse.MinConfidence, "contact_phone": preparse.MinConfidence,
		},
	}

	p := ingest.AssembleProperty(model.ContentTypeRestaurant, model.PageTypeSpecific, "", record)
	require.Equal(t, 4.8, p.Restaurant.Rating.Value)
	require.Equal(t, 45, p.Restaurant.NumberOfReviews.Value)
	require.Equal(t, "+506 6143 6871", p.Restaurant.ContactPhone.Value)
}

func TestVisibilityForPropertyExcludesTouristWhenPriceIsPresent(t *testing.T) {
	p := &model.Property{
		ContentType: model.ContentTypeRealEstate,
		PageType:    model.PageTypeSpecific,
		RealEstate:  &model.RealEstateFields{PriceUSD: model.NewField(450000.0, 0.9, "evidence")},
	}
	vis := ingest.VisibilityForProperty(p)
	require.False(t, vis.Allows(model.RoleTourist))
	require.True(t, vis.Allows(model.RoleBuyer))
	require.True(t, vis.Allows(model.RoleStaff))
}

func TestVisibilityForPropertyIncludesTouristWhenNoPrice(t *testing.T) {
	p := &model.Property{
		ContentType: model.ContentTypeLocalTips,
		PageType:    model.PageTypeGeneral,
		LocalTips:   &model.LocalTipsFields{Category: model.NewField("beaches", 0.9, "evidence")},
	}
	vis := ingest.VisibilityForProperty(p)
	require.True(t, vis.Allows(model.RoleTourist))
}

func TestVisibilityForPropertyExcludesTouristForPricedTourGeneral(t *testing.T) {
	p := &model.Property{
		ContentType: model.ContentTypeTour,
		PageType:    model.PageTypeGeneral,
		TourGeneral: &model.TourGeneralFields{
			FeaturedTours: []model.TourOption{
				{Name: "Arenal Volcano Hike", DurationHours: 4, PriceUSD: 65},
			},
			TotalTours: 1,
		},
	}
	require.True(t, p.HasPrice())
	vis := ingest.VisibilityForProperty(p)
	require.False(t, vis.Allows(model.RoleTourist))
	require.True(t, vis.Allows(model.RoleBuyer))
}

func TestVisibilityForPropertyExcludesTouristForPricedTransportationGeneral(t *testing.T) {
	p := &model.Property{
		ContentType: model.ContentTypeTransportation,
		PageType:    model.PageTypeGeneral,
		TransportationGeneral: &model.TransportationGeneralFields{
			RouteOptions: []model.RouteOption{
				{Mode: "shuttle", DurationMin: 90, PriceUSD: 45},
			},
		},
	}
	require.True(t, p.HasPrice())
	vis := ingest.VisibilityForProperty(p)
	require.False(t, vis.Allows(model.RoleTourist))
	require.True(t, vis.Allows(model.RoleBuyer))
}

func TestDocumentTextForPropertyOmitsPriceLineWhenPriceUnset(t *testing.T) {
	p := &model.Property{
		ContentType: model.ContentTypeTour,
		PageType:    model.PageTypeSpecific,
		TourSpecific: &model.TourSpecificFields{
			Name: model.NewField("Arenal Volcano Hike", 0.9, "evidence"),
		},
	}
	text := ingest.DocumentTextForProperty(p)
	require.Contains(t, text, "Arenal Volcano Hike")
	require.NotContains(t, text, "Price:")
}
