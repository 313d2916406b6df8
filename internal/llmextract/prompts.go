package llmextract

import (
	"fmt"

	"github.com/casatico/stayfly/internal/model"
)

// promptKey identifies a prompt template by (content_type, page_type).
type promptKey struct {
	contentType model.ContentType
	pageType    model.PageType
}

// fieldWhitelist is the set of field names the model may populate for a
// given (content_type, page_type) pair. Kept alongside the prompt
// template so the two can never drift — the historical field-loss bug
// in spec.md §4.5 step 5 was exactly this whitelist falling out of sync
// with what the prompt asked for.
var fieldWhitelists = map[promptKey][]string{
	{model.ContentTypeRealEstate, model.PageTypeSpecific}: {
		"property_type", "status", "price_usd", "bedrooms", "bathrooms", "area_sqm", "location",
	},
	{model.ContentTypeTour, model.PageTypeSpecific}: {
		"name", "description", "duration_hours", "price_usd", "includes",
	},
	{model.ContentTypeTour, model.PageTypeGeneral}: {
		"featured_tours", "total_tours", "fastest_option", "cheapest_option", "recommended_option",
	},
	{model.ContentTypeRestaurant, model.PageTypeSpecific}: {
		"rating", "number_of_reviews", "contact_phone", "cuisine_types", "price_range_bucket", "accepts_reservations", "location",
	},
	{model.ContentTypeRestaurant, model.PageTypeGeneral}: {
		"rating", "number_of_reviews", "contact_phone", "cuisine_types", "price_range_bucket", "accepts_reservations", "location",
	},
	{model.ContentTypeTransportation, model.PageTypeSpecific}: {
		"service_name", "mode", "price_usd", "duration_min",
	},
	{model.ContentTypeTransportation, model.PageTypeGeneral}: {
		"route_options", "fastest_option", "cheapest_option", "recommended_option",
	},
	{model.ContentTypeLocalTips, model.PageTypeGeneral}: {
		"category", "tips",
	},
	{model.ContentTypeLocalTips, model.PageTypeSpecific}: {
		"category", "tips",
	},
}

// genericWhitelist covers content_type=unknown, where extraction falls
// back to a best-effort free-text summary with no typed schema.
var genericWhitelist = []string{"summary", "key_facts"}

// whitelistFor returns the field whitelist for (ct, pt), falling back to
// the generic whitelist when no specific template is registered.
func whitelistFor(ct model.ContentType, pt model.PageType) []string {
	if wl, ok := fieldWhitelists[promptKey{ct, pt}]; ok {
		return wl
	}
	return genericWhitelist
}

// buildPrompt selects a template keyed by (content_type, page_type) and
// renders it against the cleaned page text, per spec.md §4.5 step 2.
// general-page templates ask for an array of options plus derived
// summaries (fastest/cheapest/recommended); specific-page templates ask
// for the single entity's fields.
func buildPrompt(ct model.ContentType, pt model.PageType, cleanedText string) string {
	fields := whitelistFor(ct, pt)

	if pt == model.PageTypeGeneral {
		return fmt.Sprintf(
			"You are extracting structured data from a %s listing page. "+
				"Return ONLY a JSON object with these fields: %v. "+
				"Populate the options array field with every distinct item described, "+
				"and derive fastest_option, cheapest_option, and recommended_option from "+
				"that array. Use null for any field you cannot determine with confidence.\n\n"+
				"PAGE TEXT:\n%s",
			ct, fields, cleanedText,
		)
	}

	return fmt.Sprintf(
		"You are extracting structured data from a %s page describing one specific item. "+
			"Return ONLY a JSON object with these fields: %v. "+
			"Use null for any field you cannot determine with confidence.\n\n"+
			"PAGE TEXT:\n%s",
		ct, fields, cleanedText,
	)
}

// buildRepairPrompt is issued when the initial completion failed to
// parse as JSON (spec.md §4.5 step 3).
func buildRepairPrompt(original, modelOutput string) string {
	return fmt.Sprintf(
		"Your previous response could not be parsed as JSON:\n%s\n\n"+
			"Re-send ONLY a valid JSON object satisfying this request, with no "+
			"markdown fences or commentary:\n\n%s",
		modelOutput, original,
	)
}

// buildInferencePrompt is the second pass: ask the model to infer only
// the still-missing fields from the same text (spec.md §4.5 step 6).
func buildInferencePrompt(cleanedText string, currentFields map[string]any, missing []string) string {
	return fmt.Sprintf(
		"Given this page text and the fields already extracted, infer ONLY "+
			"these still-missing fields: %v. Return a JSON object with just "+
			"those keys. Use null if truly not inferable.\n\n"+
			"ALREADY EXTRACTED: %v\n\nPAGE TEXT:\n%s",
		missing, currentFields, cleanedText,
	)
}
