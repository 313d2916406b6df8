package preparse

import (
	"fmt"
	"strings"

	"github.com/casatico/stayfly/internal/model"
)

// extractRestaurant maps a Restaurant/FoodEstablishment JSON-LD payload
// into model.RestaurantFields. Grounded on spec.md §4.2's literal field
// list and scenario 3 (spec.md §8): aggregateRating.ratingValue,
// reviewCount, telephone, servesCuisine, address, priceRange,
// acceptsReservations.
func extractRestaurant(raw map[string]any) *model.RestaurantFields {
	fields := &model.RestaurantFields{}

	if rating, reviews, ok := extractAggregateRating(raw); ok {
		if rating != 0 {
			fields.Rating = model.NewField(rating, MinConfidence, "aggregateRating.ratingValue")
		}
		if reviews != 0 {
			fields.NumberOfReviews = model.NewField(reviews, MinConfidence, "aggregateRating.reviewCount")
		}
	}

	if phone, ok := raw["telephone"].(string); ok && phone != "" {
		fields.ContactPhone = model.NewField(phone, MinConfidence, "telephone")
	}

	if cuisine, ok := raw["servesCuisine"]; ok {
		fields.CuisineTypes = toStringSlice(cuisine)
	}

	if addr, ok := raw["address"].(map[string]any); ok {
		fields.Address = extractAddress(addr)
		fields.Location = joinAddress(fields.Address)
	}

	if priceRange, ok := raw["priceRange"].(string); ok {
		fields.PriceRangeBucket = normalizePriceRange(priceRange)
	}

	if reservations, ok := raw["acceptsReservations"]; ok {
		if b, ok := toBool(reservations); ok {
			fields.AcceptsReservations = model.NewField(b, MinConfidence, "acceptsReservations")
		}
	}

	return fields
}

func extractAggregateRating(raw map[string]any) (rating float64, reviews int, ok bool) {
	agg, found := raw["aggregateRating"].(map[string]any)
	if !found {
		return 0, 0, false
	}
	if v, ok := toFloat(agg["ratingValue"]); ok {
		rating = v
	}
	if v, ok := toFloat(agg["reviewCount"]); ok {
		reviews = int(v)
	}
	return rating, reviews, true
}

func extractAddress(addr map[string]any) model.Address {
	return model.Address{
		Street:     stringField(addr, "streetAddress"),
		City:       stringField(addr, "addressLocality"),
		Region:     stringField(addr, "addressRegion"),
		PostalCode: stringField(addr, "postalCode"),
		Country:    stringField(addr, "addressCountry"),
	}
}

func joinAddress(a model.Address) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.Region, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// normalizePriceRange maps a free-text price indicator ($, $$, $$$, or a
// descriptive string) onto the budget/moderate/upscale bucket.
func normalizePriceRange(raw string) model.PriceRangeBucket {
	dollarSigns := strings.Count(raw, "$")
	switch {
	case dollarSigns >= 3:
		return model.PriceRangeUpscale
	case dollarSigns == 2:
		return model.PriceRangeModerate
	case dollarSigns == 1:
		return model.PriceRangeBudget
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "upscale") || strings.Contains(lower, "fine dining") || strings.Contains(lower, "expensive"):
		return model.PriceRangeUpscale
	case strings.Contains(lower, "moderate") || strings.Contains(lower, "mid"):
		return model.PriceRangeModerate
	default:
		return model.PriceRangeBudget
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(t, "%f", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		return strings.EqualFold(t, "true") || strings.EqualFold(t, "yes"), true
	default:
		return false, false
	}
}
