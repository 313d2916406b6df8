package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContentType tags a Property (and, in its extended form, a Document)
// by the kind of content it holds. Once set on a Property it is
// immutable: the record must never be presented against a different
// content type's attribute schema.
type ContentType string

const (
	ContentTypeRealEstate     ContentType = "real_estate"
	ContentTypeTour           ContentType = "tour"
	ContentTypeRestaurant     ContentType = "restaurant"
	ContentTypeTransportation ContentType = "transportation"
	ContentTypeLocalTips      ContentType = "local_tips"
)

// ValidPropertyContentType reports whether ct is one of the five
// Property content types.
func ValidPropertyContentType(ct ContentType) bool {
	switch ct {
	case ContentTypeRealEstate, ContentTypeTour, ContentTypeRestaurant, ContentTypeTransportation, ContentTypeLocalTips:
		return true
	default:
		return false
	}
}

// PageType tags whether a page describes one specific item (a single
// property, a single tour) or a general listing/overview page (a tours
// landing page, a transportation options page).
type PageType string

const (
	PageTypeSpecific PageType = "specific"
	PageTypeGeneral  PageType = "general"
)

// Address is the structured form of a location, used alongside the
// free-text Location string so GET /properties/ can filter on city
// without re-parsing free text on every query.
type Address struct {
	Street     string
	City       string
	Region     string
	PostalCode string
	Country    string
}

// PriceRangeBucket is the pre-parser's normalized form of a site's
// free-text price indicator ($, $$, $$$).
type PriceRangeBucket string

const (
	PriceRangeBudget   PriceRangeBucket = "budget"
	PriceRangeModerate PriceRangeBucket = "moderate"
	PriceRangeUpscale  PriceRangeBucket = "upscale"
)

// RealEstateFields holds the attribute schema for content_type=real_estate,
// page_type=specific. general real-estate pages are not modeled: listing
// pages for real estate are treated as navigational and are not ingested
// as Properties (spec.md Non-goals).
type RealEstateFields struct {
	PropertyType Field[string]
	Status       Field[string] // for_sale, for_rent, sold
	PriceUSD     Field[float64]
	Bedrooms     Field[int]
	Bathrooms    Field[int]
	AreaSqm      Field[float64]
	Location     string
	Address      Address
}

// TourOption is one entry in a tour general page's featured_tours array.
type TourOption struct {
	Name         string
	DurationHours float64
	PriceUSD     float64
}

// TourSpecificFields holds the attribute schema for content_type=tour,
// page_type=specific.
type TourSpecificFields struct {
	Name          Field[string]
	Description   Field[string]
	DurationHours Field[float64]
	PriceUSD      Field[float64]
	Includes      []string
}

// TourGeneralFields holds the attribute schema for content_type=tour,
// page_type=general: a listing page summarizing several tours.
type TourGeneralFields struct {
	FeaturedTours      []TourOption
	TotalTours         int
	FastestOption      string
	CheapestOption     string
	RecommendedOption  string
}

// RestaurantFields holds the attribute schema for content_type=restaurant.
// Populated first by the structured pre-parser from Restaurant/
// FoodEstablishment JSON-LD, then merged with LLM-extracted fields: a
// pre-parsed value fills a field the LLM left null or empty, and a
// non-null LLM value is kept (spec.md §4.5 step 5).
type RestaurantFields struct {
	Rating              Field[float64]
	NumberOfReviews     Field[int]
	ContactPhone        Field[string]
	CuisineTypes        []string
	PriceRangeBucket    PriceRangeBucket
	AcceptsReservations Field[bool]
	Location            string
	Address             Address
}

// RouteOption is one entry in a transportation general page's
// route_options array.
type RouteOption struct {
	Mode        string
	DurationMin float64
	PriceUSD    float64
}

// TransportationSpecificFields holds the attribute schema for
// content_type=transportation, page_type=specific: one concrete route
// or service (e.g. a single shuttle company's page).
type TransportationSpecificFields struct {
	ServiceName Field[string]
	Mode        Field[string]
	PriceUSD    Field[float64]
	DurationMin Field[float64]
}

// TransportationGeneralFields holds the attribute schema for
// content_type=transportation, page_type=general: a page comparing
// several ways to get from A to B.
type TransportationGeneralFields struct {
	RouteOptions      []RouteOption
	FastestOption     string
	CheapestOption    string
	RecommendedOption string
}

// LocalTipsFields holds the attribute schema for content_type=local_tips.
// These pages are treated as general-only: a tip page is inherently a
// collection, never a single-item "specific" record.
type LocalTipsFields struct {
	Category Field[string]
	Tips     []string
}

// Property is the primary typed record, polymorphic over ContentType and
// PageType. Exactly one of the variant fields is populated, selected by
// (ContentType, PageType); Validate enforces this exhaustively.
type Property struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	ContentType ContentType
	PageType    PageType
	SourceURL   string

	RealEstate             *RealEstateFields
	TourSpecific           *TourSpecificFields
	TourGeneral            *TourGeneralFields
	Restaurant             *RestaurantFields
	TransportationSpecific *TransportationSpecificFields
	TransportationGeneral  *TransportationGeneralFields
	LocalTips              *LocalTipsFields

	Visibility VisibilitySet
	Embedding  []float32
	EmbeddingStale bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that exactly the variant field matching
// (ContentType, PageType) is populated and every other variant field is
// nil, per the tagged-union invariant in SPEC_FULL.md §4.
func (p *Property) Validate() error {
	if !ValidPropertyContentType(p.ContentType) {
		return fmt.Errorf("property %s: invalid content_type %q", p.ID, p.ContentType)
	}

	type slot struct {
		name    string
		wantSet bool
		isSet   bool
	}
	want := func(ct ContentType, pt PageType) bool {
		return p.ContentType == ct && p.PageType == pt
	}
	slots := []slot{
		{"RealEstate", want(ContentTypeRealEstate, PageTypeSpecific), p.RealEstate != nil},
		{"TourSpecific", want(ContentTypeTour, PageTypeSpecific), p.TourSpecific != nil},
		{"TourGeneral", want(ContentTypeTour, PageTypeGeneral), p.TourGeneral != nil},
		{"Restaurant", p.ContentType == ContentTypeRestaurant, p.Restaurant != nil},
		{"TransportationSpecific", want(ContentTypeTransportation, PageTypeSpecific), p.TransportationSpecific != nil},
		{"TransportationGeneral", want(ContentTypeTransportation, PageTypeGeneral), p.TransportationGeneral != nil},
		{"LocalTips", p.ContentType == ContentTypeLocalTips, p.LocalTips != nil},
	}

	for _, s := range slots {
		if s.wantSet && !s.isSet {
			return fmt.Errorf("property %s: (%s, %s) requires %s to be set", p.ID, p.ContentType, p.PageType, s.name)
		}
		if !s.wantSet && s.isSet {
			return fmt.Errorf("property %s: (%s, %s) must not set %s", p.ID, p.ContentType, p.PageType, s.name)
		}
	}

	return nil
}

// HasPrice reports whether this Property variant carries a price field
// subject to visibility gating.
func (p *Property) HasPrice() bool {
	switch p.ContentType {
	case ContentTypeRealEstate:
		return p.RealEstate != nil && !p.RealEstate.PriceUSD.IsZero()
	case ContentTypeTour:
		if p.PageType == PageTypeSpecific {
			return p.TourSpecific != nil && !p.TourSpecific.PriceUSD.IsZero()
		}
		if p.TourGeneral == nil {
			return false
		}
		for _, t := range p.TourGeneral.FeaturedTours {
			if t.PriceUSD != 0 {
				return true
			}
		}
		return false
	case ContentTypeTransportation:
		if p.PageType == PageTypeSpecific {
			return p.TransportationSpecific != nil && !p.TransportationSpecific.PriceUSD.IsZero()
		}
		if p.TransportationGeneral == nil {
			return false
		}
		for _, r := range p.TransportationGeneral.RouteOptions {
			if r.PriceUSD != 0 {
				return true
			}
		}
		return false
	default:
		return false
	}
}
