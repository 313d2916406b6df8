package httpapi

import (
	"fmt"

	"github.com/casatico/stayfly/internal/model"
)

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	f, ok := asFloat64(v)
	return int(f), ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// applyVerifiedFields overlays human-reviewed values onto p's populated
// variant, per field name, marking each corrected field with full
// confidence and "human_verified" evidence. Unknown field names for
// p's content type are rejected rather than silently ignored.
func applyVerifiedFields(p *model.Property, fields map[string]any) error {
	for name, value := range fields {
		if err := applyVerifiedField(p, name, value); err != nil {
			return err
		}
	}
	return nil
}

func applyVerifiedField(p *model.Property, name string, value any) error {
	switch p.ContentType {
	case model.ContentTypeRealEstate:
		return applyRealEstateField(p.RealEstate, name, value)
	case model.ContentTypeTour:
		if p.PageType == model.PageTypeSpecific {
			return applyTourSpecificField(p.TourSpecific, name, value)
		}
		return fmt.Errorf("field %q is not verifiable on a general tour listing", name)
	case model.ContentTypeRestaurant:
		return applyRestaurantField(p.Restaurant, name, value)
	case model.ContentTypeTransportation:
		if p.PageType == model.PageTypeSpecific {
			return applyTransportationSpecificField(p.TransportationSpecific, name, value)
		}
		return fmt.Errorf("field %q is not verifiable on a general transportation listing", name)
	default:
		return fmt.Errorf("content type %q has no verifiable fields", p.ContentType)
	}
}

func applyRealEstateField(f *model.RealEstateFields, name string, value any) error {
	if f == nil {
		return fmt.Errorf("property has no real_estate fields")
	}
	switch name {
	case "property_type":
		s, ok := asString(value)
		if !ok {
			return fmt.Errorf("property_type must be a string")
		}
		f.PropertyType = model.NewField(s, 1.0, humanVerifiedEvidence)
	case "status":
		s, ok := asString(value)
		if !ok {
			return fmt.Errorf("status must be a string")
		}
		f.Status = model.NewField(s, 1.0, humanVerifiedEvidence)
	case "price_usd":
		n, ok := asFloat64(value)
		if !ok {
			return fmt.Errorf("price_usd must be a number")
		}
		f.PriceUSD = model.NewField(n, 1.0, humanVerifiedEvidence)
	case "bedrooms":
		n, ok := asInt(value)
		if !ok {
			return fmt.Errorf("bedrooms must be a number")
		}
		f.Bedrooms = model.NewField(n, 1.0, humanVerifiedEvidence)
	case "bathrooms":
		n, ok := asInt(value)
		if !ok {
			return fmt.Errorf("bathrooms must be a number")
		}
		f.Bathrooms = model.NewField(n, 1.0, humanVerifiedEvidence)
	case "area_sqm":
		n, ok := asFloat64(value)
		if !ok {
			return fmt.Errorf("area_sqm must be a number")
		}
		f.AreaSqm = model.NewField(n, 1.0, humanVerifiedEvidence)
	case "location":
		s, ok := asString(value)
		if !ok {
			return fmt.Errorf("location must be a string")
		}
		f.Location = s
	default:
		return fmt.Errorf("unknown real_estate field %q", name)
	}
	return nil
}

func applyTourSpecificField(f *model.TourSpecificFields, name string, value any) error {
	if f == nil {
		return fmt.Errorf("property has no tour fields")
	}
	switch name {
	case "name":
		s, ok := asString(value)
		if !ok {
			return fmt.Errorf("name must be a string")
		}
		f.Name = model.NewField(s, 1.0, humanVerifiedEvidence)
	case "description":
		s, ok := asString(value)
		if !ok {
			return fmt.Errorf("description must be a string")
		}
		f.Description = model.NewField(s, 1.0, humanVerifiedEvidence)
	case "duration_hours":
		n, ok := asFloat64(value)
		if !ok {
			return fmt.Errorf("duration_hours must be a number")
		}
		f.DurationHours = model.NewField(n, 1.0, humanVerifiedEvidence)
	case "price_usd":
		n, ok := asFloat64(value)
		if !ok {
			return fmt.Errorf("price_usd must be a number")
		}
		f.PriceUSD = model.NewField(n, 1.0, humanVerifiedEvidence)
	default:
		return fmt.Errorf("unknown tour field %q", name)
	}
	return nil
}

func applyRestaurantField(f *model.RestaurantFields, name string, value any) error {
	if f == nil {
		return fmt.Errorf("property has no restaurant fields")
	}
	switch name {
	case "rating":
		n, ok := asFloat64(value)
		if !ok {
			return fmt.Errorf("rating must be a number")
		}
		f.Rating = model.NewField(n, 1.0, humanVerifiedEvidence)
	case "number_of_reviews":
		n, ok := asInt(value)
		if !ok {
			return fmt.Errorf("number_of_reviews must be a number")
		}
		f.NumberOfReviews = model.NewField(n, 1.0, humanVerifiedEvidence)
	case "contact_phone":
		s, ok := asString(value)
		if !ok {
			return fmt.Errorf("contact_phone must be a string")
		}
		f.ContactPhone = model.NewField(s, 1.0, humanVerifiedEvidence)
	case "accepts_reservations":
		b, ok := asBool(value)
		if !ok {
			return fmt.Errorf("accepts_reservations must be a boolean")
		}
		f.AcceptsReservations = model.NewField(b, 1.0, humanVerifiedEvidence)
	default:
		return fmt.Errorf("unknown restaurant field %q", name)
	}
	return nil
}

func applyTransportationSpecificField(f *model.TransportationSpecificFields, name string, value any) error {
	if f == nil {
		return fmt.Errorf("property has no transportation fields")
	}
	switch name {
	case "service_name":
		s, ok := asString(value)
		if !ok {
			return fmt.Errorf("service_name must be a string")
		}
		f.ServiceName = model.NewField(s, 1.0, humanVerifiedEvidence)
	case "mode":
		s, ok := asString(value)
		if !ok {
			return fmt.Errorf("mode must be a string")
		}
		f.Mode = model.NewField(s, 1.0, humanVerifiedEvidence)
	case "price_usd":
		n, ok := asFloat64(value)
		if !ok {
			return fmt.Errorf("price_usd must be a number")
		}
		f.PriceUSD = model.NewField(n, 1.0, humanVerifiedEvidence)
	case "duration_min":
		n, ok := asFloat64(value)
		if !ok {
			return fmt.Errorf("duration_min must be a number")
		}
		f.DurationMin = model.NewField(n, 1.0, humanVerifiedEvidence)
	default:
		return fmt.Errorf("unknown transportation field %q", name)
	}
	return nil
}
