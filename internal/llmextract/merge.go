package llmextract

import "github.com/casatico/stayfly/internal/preparse"

// mergeWithPreparsed combines LLM-extracted fields with pre-parsed
// structured data per spec.md §4.5 step 4: for each pre-parsed key, if
// the LLM returned null/empty, the pre-parsed value wins; otherwise the
// LLM's value is kept. Pre-parsed values always carry
// preparse.MinConfidence; LLM-only values get a flat default confidence
// since the cheap model does not self-report per-field confidence.
//
// This is the regression path exercised by spec.md §8 scenario 3: an
// LLM returning {rating: null, number_of_reviews: null, contact_phone:
// null} must not clobber non-null pre-parsed values for those keys.
func mergeWithPreparsed(llmFields, preparsedFields map[string]any) (merged map[string]any, confidence map[string]float64, evidence map[string]string) {
	const llmDefaultConfidence = 0.7

	merged = make(map[string]any, len(llmFields)+len(preparsedFields))
	confidence = make(map[string]float64, len(llmFields)+len(preparsedFields))
	evidence = make(map[string]string, len(llmFields)+len(preparsedFields))

	for k, v := range llmFields {
		if isEmpty(v) {
			continue
		}
		merged[k] = v
		confidence[k] = llmDefaultConfidence
		evidence[k] = "LLM extraction"
	}

	for k, v := range preparsedFields {
		if isEmpty(v) {
			continue
		}
		if existing, ok := merged[k]; ok && !isEmpty(existing) {
			continue // the LLM produced a non-null value for this key; it wins
		}
		merged[k] = v
		confidence[k] = preparse.MinConfidence
		evidence[k] = "structured pre-parse"
	}

	return merged, confidence, evidence
}
