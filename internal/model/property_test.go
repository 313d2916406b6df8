package model_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/model"
)

func TestPropertyValidateRealEstateSpecific(t *testing.T) {
	p := &model.Property{
		ID:          uuid.New(),
		ContentType: model.ContentTypeRealEstate,
		PageType:    model.PageTypeSpecific,
		RealEstate:  &model.RealEstateFields{},
	}
	require.NoError(t, p.Validate())
}

func TestPropertyValidateRejectsWrongVariantPopulated(t *testing.T) {
	p := &model.Property{
		ID:          uuid.New(),
		ContentType: model.ContentTypeRealEstate,
		PageType:    model.PageTypeSpecific,
		RealEstate:  &model.RealEstateFields{},
		TourGeneral: &model.TourGeneralFields{}, // must not be set alongside RealEstate
	}
	assert.Error(t, p.Validate())
}

func TestPropertyValidateRejectsMissingVariant(t *testing.T) {
	p := &model.Property{
		ID:          uuid.New(),
		ContentType: model.ContentTypeTour,
		PageType:    model.PageTypeGeneral,
	}
	assert.Error(t, p.Validate())
}

func TestPropertyValidateRejectsUnknownContentType(t *testing.T) {
	p := &model.Property{
		ID:          uuid.New(),
		ContentType: "vacation_rental",
	}
	assert.Error(t, p.Validate())
}

func TestPropertyHasPriceGatesOnVariant(t *testing.T) {
	withPrice := &model.Property{
		ContentType: model.ContentTypeRealEstate,
		PageType:    model.PageTypeSpecific,
		RealEstate: &model.RealEstateFields{
			PriceUSD: model.NewField(450000.0, 0.9, "listed at $450,000"),
		},
	}
	assert.True(t, withPrice.HasPrice())

	tourGeneral := &model.Property{
		ContentType: model.ContentTypeTour,
		PageType:    model.PageTypeGeneral,
		TourGeneral: &model.TourGeneralFields{TotalTours: 5},
	}
	assert.False(t, tourGeneral.HasPrice())

	pricedTourGeneral := &model.Property{
		ContentType: model.ContentTypeTour,
		PageType:    model.PageTypeGeneral,
		TourGeneral: &model.TourGeneralFields{
			FeaturedTours: []model.TourOption{{Name: "Arenal Volcano Hike", PriceUSD: 65}},
		},
	}
	assert.True(t, pricedTourGeneral.HasPrice())

	pricedTransportationGeneral := &model.Property{
		ContentType: model.ContentTypeTransportation,
		PageType:    model.PageTypeGeneral,
		TransportationGeneral: &model.TransportationGeneralFields{
			RouteOptions: []model.RouteOption{{Mode: "shuttle", PriceUSD: 45}},
		},
	}
	assert.True(t, pricedTransportationGeneral.HasPrice())
}

func TestVisibilitySetAllows(t *testing.T) {
	vs := model.NewVisibilitySet(model.RoleStaff, model.RoleAdmin)
	assert.True(t, vs.Allows(model.RoleStaff))
	assert.False(t, vs.Allows(model.RoleTourist))
}

func TestFieldIsZero(t *testing.T) {
	var zero model.Field[float64]
	assert.True(t, zero.IsZero())

	present := model.NewField(0.0, 0.5, "explicitly zero")
	assert.False(t, present.IsZero())
}
