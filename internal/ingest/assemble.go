// Package ingest wires the scrape -> pre-parse -> classify -> extract ->
// enrich -> embed -> store pipeline described in spec.md §4, exposing
// the coarse operations internal/httpapi's ingest routes call.
package ingest

import (
	"github.com/casatico/stayfly/internal/llmextract"
	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/preparse"
)

// field reads key out of fields/confidence/evidence into a Field[T],
// defaulting to the zero value with zero confidence when absent.
func field[T any](fields map[string]any, confidence map[string]float64, evidence map[string]string, key string) model.Field[T] {
	var zero T
	raw, ok := fields[key]
	if !ok {
		return model.NewField(zero, 0, "")
	}
	value, ok := raw.(T)
	if !ok {
		return model.NewField(zero, 0, "")
	}
	return model.NewField(value, confidence[key], evidence[key])
}

func stringSlice(fields map[string]any, key string) []string {
	raw, ok := fields[key].([]string)
	if ok {
		return raw
	}
	if rawAny, ok := fields[key].([]any); ok {
		out := make([]string, 0, len(rawAny))
		for _, v := range rawAny {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func stringOf(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// AssembleProperty builds the typed Property variant selected by
// (ct, pt) out of an llmextract.Record's merged, generic-named field
// map, per spec.md §4.5 step 7's "map to storage field names" and
// §4.8's tagged-union storage shape.
func AssembleProperty(ct model.ContentType, pt model.PageType, sourceURL string, record *llmextract.Record) *model.Property {
	p := &model.Property{ContentType: ct, PageType: pt, SourceURL: sourceURL}
	if record == nil {
		return p
	}
	fields, confidence, evidence := record.Fields, record.FieldConfidence, record.FieldEvidence

	switch {
	case ct == model.ContentTypeRealEstate && pt == model.PageTypeSpecific:
		p.RealEstate = &model.RealEstateFields{
			PropertyType: field[string](fields, confidence, evidence, "property_type"),
			Status:       field[string](fields, confidence, evidence, "status"),
			PriceUSD:     field[float64](fields, confidence, evidence, "price_usd"),
			Bedrooms:     field[int](fields, confidence, evidence, "bedrooms"),
			Bathrooms:    field[int](fields, confidence, evidence, "bathrooms"),
			AreaSqm:      field[float64](fields, confidence, evidence, "area_sqm"),
			Location:     stringOf(fields, "location"),
		}
	case ct == model.ContentTypeTour && pt == model.PageTypeSpecific:
		p.TourSpecific = &model.TourSpecificFields{
			Name:          field[string](fields, confidence, evidence, "name"),
			Description:   field[string](fields, confidence, evidence, "description"),
			DurationHours: field[float64](fields, confidence, evidence, "duration_hours"),
			PriceUSD:      field[float64](fields, confidence, evidence, "price_usd"),
			Includes:      stringSlice(fields, "includes"),
		}
	case ct == model.ContentTypeTour && pt == model.PageTypeGeneral:
		p.TourGeneral = assembleTourGeneral(fields)
	case ct == model.ContentTypeRestaurant:
		p.Restaurant = &model.RestaurantFields{
			Rating:              field[float64](fields, confidence, evidence, "rating"),
			NumberOfReviews:     field[int](fields, confidence, evidence, "number_of_reviews"),
			ContactPhone:        field[string](fields, confidence, evidence, "contact_phone"),
			CuisineTypes:        stringSlice(fields, "cuisine_types"),
			PriceRangeBucket:    model.PriceRangeBucket(stringOf(fields, "price_range_bucket")),
			AcceptsReservations: field[bool](fields, confidence, evidence, "accepts_reservations"),
			Location:            stringOf(fields, "location"),
		}
	case ct == model.ContentTypeTransportation && pt == model.PageTypeSpecific:
		p.TransportationSpecific = &model.TransportationSpecificFields{
			ServiceName: field[string](fields, confidence, evidence, "service_name"),
			Mode:        field[string](fields, confidence, evidence, "mode"),
			PriceUSD:    field[float64](fields, confidence, evidence, "price_usd"),
			DurationMin: field[float64](fields, confidence, evidence, "duration_min"),
		}
	case ct == model.ContentTypeTransportation && pt == model.PageTypeGeneral:
		p.TransportationGeneral = &model.TransportationGeneralFields{
			FastestOption:     stringOf(fields, "fastest_option"),
			CheapestOption:    stringOf(fields, "cheapest_option"),
			RecommendedOption: stringOf(fields, "recommended_option"),
		}
	case ct == model.ContentTypeLocalTips:
		p.LocalTips = &model.LocalTipsFields{
			Category: field[string](fields, confidence, evidence, "category"),
			Tips:     stringSlice(fields, "tips"),
		}
	}
	return p
}

// assembleTourGeneral fills TotalTours from the featured_tours array's
// own length when the model omits or undercounts it, per scenario 2 in
// spec.md §8 ("total_tours >= the array length").
func assembleTourGeneral(fields map[string]any) *model.TourGeneralFields {
	out := &model.TourGeneralFields{
		FastestOption:     stringOf(fields, "fastest_option"),
		CheapestOption:    stringOf(fields, "cheapest_option"),
		RecommendedOption: stringOf(fields, "recommended_option"),
	}
	if raw, ok := fields["featured_tours"].([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			price, _ := m["price_usd"].(float64)
			duration, _ := m["duration_hours"].(float64)
			out.FeaturedTours = append(out.FeaturedTours, model.TourOption{
				Name:          stringOf(m, "name"),
				DurationHours: duration,
				PriceUSD:      price,
			})
		}
	}
	out.TotalTours = len(out.FeaturedTours)
	if raw, ok := fields["total_tours"].(float64); ok && int(raw) > out.TotalTours {
		out.TotalTours = int(raw)
	}
	return out
}

// PreparsedFieldsFromResult flattens a structured pre-parse Result into
// the generic field map llmextract.Extractor.Extract expects as its
// preparsedFields argument, so pre-parsed values fill the fields the LLM
// left null or empty inside the merge itself rather than as a later
// patch.
func PreparsedFieldsFromResult(pre *preparse.Result) map[string]any {
	if pre == nil || pre.Restaurant == nil {
		return nil
	}
	r := pre.Restaurant
	out := map[string]any{}
	if !r.Rating.IsZero() {
		out["rating"] = r.Rating.Value
	}
	if !r.NumberOfReviews.IsZero() {
		out["number_of_reviews"] = r.NumberOfReviews.Value
	}
	if !r.ContactPhone.IsZero() {
		out["contact_phone"] = r.ContactPhone.Value
	}
	return out
}
