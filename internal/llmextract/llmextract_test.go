package llmextract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/llmextract"
	"github.com/casatico/stayfly/internal/model"
)

type stubModel struct {
	responses []string
	calls     int
}

func (s *stubModel) Complete(ctx context.Context, prompt string, opts llmextract.CompletionOptions) (llmextract.CompletionResult, error) {
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return llmextract.CompletionResult{Text: s.responses[idx], InputTokens: 100, OutputTokens: 50}, nil
}

// Scenario 3 (spec.md §8): pre-parsed rating/number_of_reviews/
// contact_phone survive an LLM response that nulls all three.
func TestExtractScenario3PreparsedSurvivesLLMNulls(t *testing.T) {
	m := &stubModel{responses: []string{
		`{"rating": null, "number_of_reviews": null, "contact_phone": null, "cuisine_types": ["Seafood"], "price_range_bucket": "moderate", "accepts_reservations": true, "location": "Tamarindo"}`,
	}}
	extractor := llmextract.NewExtractor(m, nil, 0)

	preparsed := map[string]any{
		"rating":            4.8,
		"number_of_reviews": 45,
		"contact_phone":     "+506 6143 6871",
	}

	record, err := extractor.Extract(context.Background(), "<html><body>La Bomba</body></html>", model.ContentTypeRestaurant, model.PageTypeSpecific, preparsed)
	require.NoError(t, err)
	require.Equal(t, llmextract.ExtractionStatusOK, record.Status)

	assert.Equal(t, 4.8, record.Fields["rating"])
	assert.Equal(t, 45, record.Fields["number_of_reviews"])
	assert.Equal(t, "+506 6143 6871", record.Fields["contact_phone"])
	assert.Equal(t, "Seafood", record.Fields["cuisine_types"].([]any)[0])
}

func TestExtractLLMValueWinsWhenNonNull(t *testing.T) {
	m := &stubModel{responses: []string{
		`{"rating": 4.2}`,
	}}
	extractor := llmextract.NewExtractor(m, nil, 0)

	preparsed := map[string]any{"rating": 4.8}
	record, err := extractor.Extract(context.Background(), "<html></html>", model.ContentTypeRestaurant, model.PageTypeSpecific, preparsed)
	require.NoError(t, err)
	assert.Equal(t, 4.2, record.Fields["rating"])
}

func TestExtractStripsCodeFences(t *testing.T) {
	m := &stubModel{responses: []string{
		"```json\n{\"price_usd\": 450000}\n```",
	}}
	extractor := llmextract.NewExtractor(m, nil, 0)

	record, err := extractor.Extract(context.Background(), "<html></html>", model.ContentTypeRealEstate, model.PageTypeSpecific, nil)
	require.NoError(t, err)
	assert.Equal(t, llmextract.ExtractionStatusOK, record.Status)
	assert.Equal(t, float64(450000), record.Fields["price_usd"])
}

func TestExtractRepairsUnparsableJSON(t *testing.T) {
	m := &stubModel{responses: []string{
		"not json at all",
		`{"price_usd": 300000}`,
	}}
	extractor := llmextract.NewExtractor(m, nil, 0)

	record, err := extractor.Extract(context.Background(), "<html></html>", model.ContentTypeRealEstate, model.PageTypeSpecific, nil)
	require.NoError(t, err)
	assert.Equal(t, llmextract.ExtractionStatusOK, record.Status)
	assert.Equal(t, float64(300000), record.Fields["price_usd"])
	assert.GreaterOrEqual(t, m.calls, 2)
}

func TestExtractFailsAfterUnparsableRepair(t *testing.T) {
	m := &stubModel{responses: []string{"garbage", "still garbage"}}
	extractor := llmextract.NewExtractor(m, nil, 0)

	record, err := extractor.Extract(context.Background(), "<html></html>", model.ContentTypeRealEstate, model.PageTypeSpecific, nil)
	require.NoError(t, err)
	assert.Equal(t, llmextract.ExtractionStatusFailed, record.Status)
	assert.NotEmpty(t, record.RawModelText)
}

func TestExtractDropsFieldsOutsideWhitelist(t *testing.T) {
	m := &stubModel{responses: []string{
		`{"price_usd": 300000, "unexpected_admin_field": "secret"}`,
	}}
	extractor := llmextract.NewExtractor(m, nil, 0)

	record, err := extractor.Extract(context.Background(), "<html></html>", model.ContentTypeRealEstate, model.PageTypeSpecific, nil)
	require.NoError(t, err)
	_, present := record.Fields["unexpected_admin_field"]
	assert.False(t, present)
}

func TestCleanHTMLStripsScriptsAndCollapsesWhitespace(t *testing.T) {
	htmlDoc := `<html><head><script>var x = 1;</script></head><body>  Hello   <b>world</b>  </body></html>`
	cleaned := llmextract.CleanHTML(htmlDoc, 0)
	assert.Equal(t, "Hello world", cleaned)
}

func TestCleanHTMLTruncates(t *testing.T) {
	cleaned := llmextract.CleanHTML("<p>abcdefghijklmnopqrstuvwxyz</p>", 10)
	assert.Contains(t, cleaned, "truncated")
}
