// Package router implements the model router from spec.md §4.11: a
// cheap/complex classification heuristic over the user's message, and
// selection of which configured chat model slot to invoke.
package router

import (
	"strings"

	"github.com/casatico/stayfly/internal/config"
)

// Complexity is the two-way classification spec.md §4.11 defines.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// MessageLengthThreshold is the character count above which a message
// is classified complex regardless of keyword content, per spec.md
// §4.11 ("message length above threshold").
const MessageLengthThreshold = 600

var complexKeywords = []string{
	"legal", "lawsuit", "attorney", "contract", "liability",
	"investment", "financial", "mortgage", "tax", "taxes", "roi", "valuation",
	"analysis", "detailed", "comprehensive", "in-depth",
}

// Classify applies spec.md §4.11's heuristic: complex if the message
// contains a legal/financial/investment keyword, explicitly asks for
// analysis/detail, or exceeds the length threshold; simple otherwise.
func Classify(message string) Complexity {
	if len(message) > MessageLengthThreshold {
		return ComplexityComplex
	}
	lower := strings.ToLower(message)
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			return ComplexityComplex
		}
	}
	return ComplexitySimple
}

// Router selects which configured chat model slot answers a given
// turn (spec.md §4.11). It records nothing itself; the RAG orchestrator
// stores the chosen model id on the assistant Message.
type Router struct {
	Cheap  config.ChatModelConfig
	Strong config.ChatModelConfig
}

func New(cheap, strong config.ChatModelConfig) *Router {
	return &Router{Cheap: cheap, Strong: strong}
}

// Route returns the ChatModelConfig for the given complexity class.
func (r *Router) Route(c Complexity) config.ChatModelConfig {
	if c == ComplexityComplex {
		return r.Strong
	}
	return r.Cheap
}

// RouteMessage classifies message and returns the selected model
// config in one call, the common path for the RAG orchestrator.
func (r *Router) RouteMessage(message string) (Complexity, config.ChatModelConfig) {
	c := Classify(message)
	return c, r.Route(c)
}
