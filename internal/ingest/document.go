package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/casatico/stayfly/internal/model"
)

// VisibilityForProperty decides which roles may see the Document
// derived from p. Any property carrying a price is hidden from tourist
// (spec.md §8 scenario 4): every other role keeps full visibility.
func VisibilityForProperty(p *model.Property) model.VisibilitySet {
	if p.HasPrice() {
		return model.NewVisibilitySet(model.RoleBuyer, model.RoleVendor, model.RoleStaff, model.RoleAdmin)
	}
	return model.NewVisibilitySet(model.RoleBuyer, model.RoleTourist, model.RoleVendor, model.RoleStaff, model.RoleAdmin)
}

// DocumentTextForProperty renders p's fields into the free-text form the
// retrieval engine embeds and full-text-indexes, per spec.md §4.7's
// "Document derives its free text from the Property's typed fields."
func DocumentTextForProperty(p *model.Property) string {
	var b strings.Builder
	switch p.ContentType {
	case model.ContentTypeRealEstate:
		writeRealEstate(&b, p.RealEstate)
	case model.ContentTypeTour:
		if p.PageType == model.PageTypeSpecific {
			writeTourSpecific(&b, p.TourSpecific)
		} else {
			writeTourGeneral(&b, p.TourGeneral)
		}
	case model.ContentTypeRestaurant:
		writeRestaurant(&b, p.Restaurant)
	case model.ContentTypeTransportation:
		if p.PageType == model.PageTypeSpecific {
			writeTransportationSpecific(&b, p.TransportationSpecific)
		} else {
			writeTransportationGeneral(&b, p.TransportationGeneral)
		}
	case model.ContentTypeLocalTips:
		writeLocalTips(&b, p.LocalTips)
	}
	return strings.TrimSpace(b.String())
}

func writeRealEstate(b *strings.Builder, f *model.RealEstateFields) {
	if f == nil {
		return
	}
	fmt.Fprintf(b, "Property type: %s. Status: %s. Location: %s.\n", f.PropertyType.Value, f.Status.Value, f.Location)
	if !f.PriceUSD.IsZero() {
		fmt.Fprintf(b, "Price: $%.0f USD.\n", f.PriceUSD.Value)
	}
	fmt.Fprintf(b, "%d bedrooms, %d bathrooms, %.0f sqm.\n", f.Bedrooms.Value, f.Bathrooms.Value, f.AreaSqm.Value)
}

func writeTourSpecific(b *strings.Builder, f *model.TourSpecificFields) {
	if f == nil {
		return
	}
	fmt.Fprintf(b, "Tour: %s. %s\n", f.Name.Value, f.Description.Value)
	fmt.Fprintf(b, "Duration: %.1f hours.\n", f.DurationHours.Value)
	if !f.PriceUSD.IsZero() {
		fmt.Fprintf(b, "Price: $%.0f USD.\n", f.PriceUSD.Value)
	}
	if len(f.Includes) > 0 {
		fmt.Fprintf(b, "Includes: %s.\n", strings.Join(f.Includes, ", "))
	}
}

func writeTourGeneral(b *strings.Builder, f *model.TourGeneralFields) {
	if f == nil {
		return
	}
	fmt.Fprintf(b, "%d tours available. Fastest: %s. Cheapest: %s. Recommended: %s.\n",
		f.TotalTours, f.FastestOption, f.CheapestOption, f.RecommendedOption)
	for _, t := range f.FeaturedTours {
		fmt.Fprintf(b, "- %s: %.1f hours, $%.0f USD.\n", t.Name, t.DurationHours, t.PriceUSD)
	}
}

func writeRestaurant(b *strings.Builder, f *model.RestaurantFields) {
	if f == nil {
		return
	}
	fmt.Fprintf(b, "Restaurant in %s. Cuisine: %s. Price range: %s.\n",
		f.Location, strings.Join(f.CuisineTypes, ", "), f.PriceRangeBucket)
	if !f.Rating.IsZero() {
		fmt.Fprintf(b, "Rating: %.1f from %d reviews.\n", f.Rating.Value, f.NumberOfReviews.Value)
	}
	if !f.ContactPhone.IsZero() {
		fmt.Fprintf(b, "Phone: %s.\n", f.ContactPhone.Value)
	}
}

func writeTransportationSpecific(b *strings.Builder, f *model.TransportationSpecificFields) {
	if f == nil {
		return
	}
	fmt.Fprintf(b, "%s (%s). Duration: %.0f minutes.\n", f.ServiceName.Value, f.Mode.Value, f.DurationMin.Value)
	if !f.PriceUSD.IsZero() {
		fmt.Fprintf(b, "Price: $%.0f USD.\n", f.PriceUSD.Value)
	}
}

func writeTransportationGeneral(b *strings.Builder, f *model.TransportationGeneralFields) {
	if f == nil {
		return
	}
	fmt.Fprintf(b, "Fastest: %s. Cheapest: %s. Recommended: %s.\n", f.FastestOption, f.CheapestOption, f.RecommendedOption)
	for _, r := range f.RouteOptions {
		fmt.Fprintf(b, "- %s: %.0f min, $%.0f USD.\n", r.Mode, r.DurationMin, r.PriceUSD)
	}
}

func writeLocalTips(b *strings.Builder, f *model.LocalTipsFields) {
	if f == nil {
		return
	}
	fmt.Fprintf(b, "Local tips (%s):\n", f.Category.Value)
	for _, tip := range f.Tips {
		fmt.Fprintf(b, "- %s\n", tip)
	}
}

// NewDocumentForProperty builds the Document derived from a persisted
// Property, per spec.md §4.8's "maintain derived Document per Property."
func NewDocumentForProperty(p *model.Property, now time.Time) *model.Document {
	return &model.Document{
		TenantID:      p.TenantID,
		ContentType:   model.DocumentContentType(p.ContentType),
		Content:       DocumentTextForProperty(p),
		PropertyID:    &p.ID,
		Visibility:    VisibilityForProperty(p),
		FreshnessDate: now,
		IsActive:      true,
	}
}
