// Package preparse extracts schema.org JSON-LD embedded in HTML
// directly into typed field values, without invoking the LLM. Anything
// it yields carries confidence >= MinConfidence for the downstream
// merge step (internal/llmextract).
package preparse

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/casatico/stayfly/internal/jsonx"
	"github.com/casatico/stayfly/internal/model"
)

// MinConfidence is the confidence every pre-parsed field carries.
const MinConfidence = 0.95

// Extractor maps one schema.org @type to typed Restaurant fields. The
// registry is keyed by @type so new schema.org types can be added
// without touching the HTML-walking code, mirroring antfly's
// provider-tagged config switches (one case per known shape).
type Extractor func(raw map[string]any) *model.RestaurantFields

var registry = map[string]Extractor{
	"Restaurant":        extractRestaurant,
	"FoodEstablishment": extractRestaurant,
}

// Register adds or replaces the extractor for a schema.org @type.
func Register(schemaType string, e Extractor) {
	registry[schemaType] = e
}

// Result carries the fields produced for whichever @type matched, plus
// the raw @type string so callers can route to the right Property
// variant.
type Result struct {
	SchemaType string
	Restaurant *model.RestaurantFields
}

// Parse walks htmlDoc for <script type="application/ld+json"> blocks and
// returns the first one whose @type is registered. Multiple JSON-LD
// blocks are common (breadcrumbs, organization, the actual entity); the
// first registered match wins.
func Parse(htmlDoc string) (*Result, error) {
	blocks, err := extractLDJSONBlocks(htmlDoc)
	if err != nil {
		return nil, err
	}

	for _, raw := range blocks {
		schemaType, ok := raw["@type"].(string)
		if !ok {
			continue
		}
		extractor, ok := registry[schemaType]
		if !ok {
			continue
		}
		switch schemaType {
		case "Restaurant", "FoodEstablishment":
			return &Result{SchemaType: schemaType, Restaurant: extractor(raw)}, nil
		}
	}
	return nil, nil
}

func extractLDJSONBlocks(htmlDoc string) ([]map[string]any, error) {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlDoc))
	var blocks []map[string]any
	inLDJSON := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return blocks, nil
		case html.StartTagToken:
			tok := tokenizer.Token()
			if tok.Data == "script" && isLDJSONScript(tok) {
				inLDJSON = true
			}
		case html.EndTagToken:
			tok := tokenizer.Token()
			if tok.Data == "script" {
				inLDJSON = false
			}
		case html.TextToken:
			if inLDJSON {
				var raw map[string]any
				if err := jsonx.Unmarshal(tokenizer.Text(), &raw); err == nil {
					blocks = append(blocks, raw)
				}
			}
		}
	}
}

func isLDJSONScript(tok html.Token) bool {
	for _, attr := range tok.Attr {
		if attr.Key == "type" && strings.EqualFold(attr.Val, "application/ld+json") {
			return true
		}
	}
	return false
}
