// Package classify decides a Property's content_type and page_type from
// its URL and, optionally, an external web-search signal — before any
// expensive LLM call runs.
package classify

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/casatico/stayfly/internal/model"
)

// WebSearcher is the optional layer 3 signal: a tool-using lookup that
// can classify an ambiguous URL by searching the open web. Defined here
// (not imported from internal/websearch) to keep classify's dependency
// surface minimal; internal/websearch.Client satisfies it.
type WebSearcher interface {
	ClassifyURL(ctx context.Context, rawURL string) (contentType model.ContentType, confidence float64, ok bool)
}

// ContentTypeUnknown marks a Property whose content type could not be
// determined by any layered signal; downstream extraction falls back to
// a generic prompt.
const ContentTypeUnknown model.ContentType = "unknown"

// Result is the classifier's decision with its confidence.
type Result struct {
	ContentType model.ContentType
	PageType    model.PageType
	Confidence  float64
}

// domainAllowlist maps known hostnames straight to a content type,
// layer 1 of spec.md §4.3.
var domainAllowlist = map[string]model.ContentType{
	"www.coldwellbankercostarica.com": model.ContentTypeRealEstate,
	"coldwellbankercostarica.com":     model.ContentTypeRealEstate,
	"costarica.org":                   model.ContentTypeTour,
}

// pathTokenPatterns maps URL path substrings to content types, layer 2.
var pathTokenPatterns = []struct {
	token       string
	contentType model.ContentType
}{
	{"/property/", model.ContentTypeRealEstate},
	{"/properties/", model.ContentTypeRealEstate},
	{"/real-estate/", model.ContentTypeRealEstate},
	{"/tours/", model.ContentTypeTour},
	{"/tour/", model.ContentTypeTour},
	{"/restaurants/", model.ContentTypeRestaurant},
	{"/restaurant/", model.ContentTypeRestaurant},
	{"/transportation/", model.ContentTypeTransportation},
	{"/transport/", model.ContentTypeTransportation},
	{"/local-tips/", model.ContentTypeLocalTips},
	{"/tips/", model.ContentTypeLocalTips},
}

var (
	bookingWords    = regexp.MustCompile(`(?i)book now|reserve|departure time|check availability`)
	comparisonWords = regexp.MustCompile(`(?i)compare|ways to get|best |top \d|featured`)
	numericSlug     = regexp.MustCompile(`/\d+/?$`)
	pluralSlug      = regexp.MustCompile(`(?i)(tours|restaurants|properties|options|tips)/?$`)
)

// Classifier runs the layered decision described in spec.md §4.3.
type Classifier struct {
	WebSearch WebSearcher
}

// New constructs a Classifier. webSearch may be nil, disabling layer 3.
func New(webSearch WebSearcher) *Classifier {
	return &Classifier{WebSearch: webSearch}
}

// Classify decides content_type and page_type for rawURL, optionally
// consulting htmlDoc (may be empty) for page-type keyword signals.
func (c *Classifier) Classify(ctx context.Context, rawURL, htmlDoc string) Result {
	contentType, confidence := c.classifyContentType(ctx, rawURL)
	pageType, pageConfidence := classifyPageType(rawURL, htmlDoc)

	if pageConfidence < confidence {
		confidence = pageConfidence
	}

	return Result{ContentType: contentType, PageType: pageType, Confidence: confidence}
}

func (c *Classifier) classifyContentType(ctx context.Context, rawURL string) (model.ContentType, float64) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ContentTypeUnknown, 0
	}

	if ct, ok := domainAllowlist[parsed.Hostname()]; ok {
		return ct, 0.95
	}

	lowerPath := strings.ToLower(parsed.Path)
	for _, p := range pathTokenPatterns {
		if strings.Contains(lowerPath, p.token) {
			return p.contentType, 0.75
		}
	}

	if c.WebSearch != nil {
		if ct, confidence, ok := c.WebSearch.ClassifyURL(ctx, rawURL); ok {
			return ct, confidence
		}
	}

	return ContentTypeUnknown, 0.3
}

func classifyPageType(rawURL, htmlDoc string) (model.PageType, float64) {
	haystack := rawURL + " " + htmlDoc

	if bookingWords.MatchString(haystack) {
		return model.PageTypeSpecific, 0.6
	}
	if comparisonWords.MatchString(haystack) {
		return model.PageTypeGeneral, 0.6
	}

	if numericSlug.MatchString(rawURL) {
		return model.PageTypeSpecific, 0.55
	}
	if pluralSlug.MatchString(rawURL) {
		return model.PageTypeGeneral, 0.55
	}

	// No pattern matched: default to "general" at the plurality
	// heuristic's lowest confidence, below every pattern-backed result.
	return model.PageTypeGeneral, 0.5
}
