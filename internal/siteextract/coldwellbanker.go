package siteextract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/casatico/stayfly/internal/model"
)

// ExtractColdwellBanker is the deterministic extractor for
// coldwellbankercostarica.com property pages (content_type=real_estate,
// page_type=specific). Grounded on docsaf/html.go's goquery traversal
// style (doc.Find(...).Each / .First().Text()), adapted from chunking
// document sections to pulling named fields off a listing page's DOM.
func ExtractColdwellBanker(htmlDoc, sourceURL string) (*model.Property, map[string]float64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlDoc))
	if err != nil {
		return nil, nil, err
	}

	confidence := make(map[string]float64)
	fields := &model.RealEstateFields{}

	if priceText := doc.Find(".listing-price, .property-price, [itemprop='price']").First().Text(); priceText != "" {
		if price, ok := parseUSD(priceText); ok {
			fields.PriceUSD = model.NewField(price, 0.9, priceText)
			confidence["price_usd"] = 0.9
		}
	}

	if bedText := doc.Find(".beds, .bedrooms, [data-field='bedrooms']").First().Text(); bedText != "" {
		if n, ok := parseLeadingInt(bedText); ok {
			fields.Bedrooms = model.NewField(n, 0.85, bedText)
			confidence["bedrooms"] = 0.85
		}
	}

	if bathText := doc.Find(".baths, .bathrooms, [data-field='bathrooms']").First().Text(); bathText != "" {
		if n, ok := parseLeadingInt(bathText); ok {
			fields.Bathrooms = model.NewField(n, 0.85, bathText)
			confidence["bathrooms"] = 0.85
		}
	}

	if areaText := doc.Find(".lot-size, .area, [data-field='area']").First().Text(); areaText != "" {
		if area, ok := parseUSD(areaText); ok {
			fields.AreaSqm = model.NewField(area, 0.75, areaText)
			confidence["area_sqm"] = 0.75
		}
	}

	if statusText := doc.Find(".listing-status, .status-badge").First().Text(); statusText != "" {
		fields.Status = model.NewField(strings.ToLower(strings.TrimSpace(statusText)), 0.8, statusText)
		confidence["status"] = 0.8
	}

	if location := doc.Find(".property-location, .listing-location, [itemprop='address']").First().Text(); location != "" {
		fields.Location = strings.TrimSpace(location)
		confidence["location"] = 0.7
	}

	fields.PropertyType = model.NewField("land", 0.6, "inferred from URL path")
	if strings.Contains(strings.ToLower(sourceURL), "home") || strings.Contains(strings.ToLower(sourceURL), "house") {
		fields.PropertyType = model.NewField("house", 0.6, "inferred from URL path")
	}
	confidence["property_type"] = 0.6

	property := &model.Property{
		ContentType: model.ContentTypeRealEstate,
		PageType:    model.PageTypeSpecific,
		SourceURL:   sourceURL,
		RealEstate:  fields,
	}
	return property, confidence, nil
}

func parseUSD(text string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.':
			return r
		default:
			return -1
		}
	}, text)
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseLeadingInt(text string) (int, bool) {
	text = strings.TrimSpace(text)
	end := 0
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(text[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
