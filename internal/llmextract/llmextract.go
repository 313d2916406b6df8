// Package llmextract turns cleaned page text into a typed field map
// using a cheap structured chat model, merges it with pre-parsed
// structured data, validates against a per-content-type whitelist, and
// runs a second inference pass over any fields still missing.
package llmextract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/casatico/stayfly/internal/chatmodel"
	"github.com/casatico/stayfly/internal/jsonx"
	"github.com/casatico/stayfly/internal/model"
)

// ChatModel is the minimal interface the LLM extractor needs from a
// chat completion backend: a prompt in, a completion out, token counts
// for cost accounting. Shared with internal/rag's answer generation
// step via internal/chatmodel so both extraction and RAG can be backed
// by the same provider clients.
type ChatModel = chatmodel.ChatModel

// CompletionOptions configures one model call.
type CompletionOptions = chatmodel.CompletionOptions

// CompletionResult is one model call's output and usage.
type CompletionResult = chatmodel.CompletionResult

// ExtractionStatus records whether extraction produced usable fields.
type ExtractionStatus string

const (
	ExtractionStatusOK     ExtractionStatus = "ok"
	ExtractionStatusFailed ExtractionStatus = "failed"
)

// Record is the LLM extractor's output: generic-name-mapped fields with
// per-field confidence and evidence, per spec.md §4.5.
type Record struct {
	Status               ExtractionStatus
	Fields               map[string]any
	FieldConfidence      map[string]float64
	FieldEvidence        map[string]string
	ExtractionConfidence float64
	RawModelText         string // populated only on ExtractionStatusFailed
}

// Extractor is the LLM-backed extraction pipeline.
type Extractor struct {
	Model     ChatModel
	Logger    *zap.Logger
	MaxChars  int // per-call character budget for cleaned text
	fieldMap  map[string]string // content-specific name -> generic storage name
}

// NewExtractor constructs an Extractor. maxChars defaults to 8000 (the
// cheap-model budget in spec.md §4.5 step 1) when zero.
func NewExtractor(chatModel ChatModel, logger *zap.Logger, maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Extractor{
		Model:    chatModel,
		Logger:   logger,
		MaxChars: maxChars,
		fieldMap: defaultFieldNameMap(),
	}
}

// defaultFieldNameMap maps content-specific field names the model might
// use onto the generic storage names stayfly persists, per spec.md §4.5
// step 7's example (restaurant_name -> property_name).
func defaultFieldNameMap() map[string]string {
	return map[string]string{
		"restaurant_name": "name",
		"hotel_name":      "name",
		"tour_title":      "name",
		"listing_price":   "price_usd",
		"asking_price":    "price_usd",
	}
}

// Extract runs the full pipeline described in spec.md §4.5 steps 2-7.
// rawHTML is cleaned internally; preparsedFields (possibly nil) carries
// values the structured pre-parser already produced at
// preparse.MinConfidence — those fill only the keys the LLM leaves null
// or empty; a non-null LLM value is kept.
func (e *Extractor) Extract(ctx context.Context, rawHTML string, ct model.ContentType, pt model.PageType, preparsedFields map[string]any) (*Record, error) {
	cleaned := CleanHTML(rawHTML, e.MaxChars)
	whitelist := whitelistFor(ct, pt)
	validator, err := newWhitelistValidator(whitelist)
	if err != nil {
		return nil, fmt.Errorf("building whitelist validator: %w", err)
	}

	raw, modelText, err := e.completeAndParse(ctx, buildPrompt(ct, pt, cleaned))
	if err != nil {
		return &Record{
			Status:       ExtractionStatusFailed,
			RawModelText: modelText,
		}, nil
	}

	filtered := validator.filter(raw)
	merged, confidence, evidence := mergeWithPreparsed(filtered, preparsedFields)

	missing := missingFields(whitelist, merged)
	if len(missing) > 0 && e.Model != nil {
		if inferred, _, err := e.completeAndParse(ctx, buildInferencePrompt(cleaned, merged, missing)); err == nil {
			inferredFiltered := validator.filter(inferred)
			for k, v := range inferredFiltered {
				if !isEmpty(v) {
					merged[k] = v
					if _, ok := confidence[k]; !ok {
						confidence[k] = 0.6
						evidence[k] = "inferred from page text, second pass"
					}
				}
			}
		}
	}

	mapped := e.applyFieldNameMap(merged)

	return &Record{
		Status:               ExtractionStatusOK,
		Fields:               mapped,
		FieldConfidence:      confidence,
		FieldEvidence:        evidence,
		ExtractionConfidence: meanConfidence(confidence),
	}, nil
}

// completeAndParse invokes the model, stripping fenced-code wrappers and
// parsing strictly; on a parse failure it re-invokes once with a repair
// instruction (spec.md §4.5 step 3).
func (e *Extractor) completeAndParse(ctx context.Context, prompt string) (map[string]any, string, error) {
	result, err := e.Model.Complete(ctx, prompt, CompletionOptions{Temperature: 0.1, MaxOutputTokens: 2000})
	if err != nil {
		return nil, "", fmt.Errorf("model call failed: %w", err)
	}

	parsed, parseErr := parseJSONObject(result.Text)
	if parseErr == nil {
		return parsed, result.Text, nil
	}

	repair, repairErr := e.Model.Complete(ctx, buildRepairPrompt(prompt, result.Text), CompletionOptions{Temperature: 0.1, MaxOutputTokens: 2000})
	if repairErr != nil {
		return nil, result.Text, fmt.Errorf("repair call failed: %w", repairErr)
	}

	parsed, parseErr = parseJSONObject(repair.Text)
	if parseErr != nil {
		return nil, repair.Text, fmt.Errorf("unparsable after repair: %w", parseErr)
	}
	return parsed, repair.Text, nil
}

// parseJSONObject strips ```json fences if present and decodes strictly.
func parseJSONObject(text string) (map[string]any, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var obj map[string]any
	if err := jsonx.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (e *Extractor) applyFieldNameMap(fields map[string]any) map[string]any {
	mapped := make(map[string]any, len(fields))
	for k, v := range fields {
		if generic, ok := e.fieldMap[k]; ok {
			mapped[generic] = v
			continue
		}
		mapped[k] = v
	}
	return mapped
}

func missingFields(whitelist []string, fields map[string]any) []string {
	var missing []string
	for _, f := range whitelist {
		v, ok := fields[f]
		if !ok || isEmpty(v) {
			missing = append(missing, f)
		}
	}
	return missing
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

func meanConfidence(confidence map[string]float64) float64 {
	if len(confidence) == 0 {
		return 0
	}
	var sum float64
	for _, c := range confidence {
		sum += c
	}
	return sum / float64(len(confidence))
}
