// Package siteextract holds deterministic, DOM-based extractors for
// domains the system has specific knowledge of, bypassing the LLM
// extractor entirely for those sites.
package siteextract

import (
	"strings"

	"github.com/casatico/stayfly/internal/model"
)

// Extractor deterministically extracts a typed Property from htmlDoc
// for a page at sourceURL. The returned confidence map is keyed
// identically to the populated Property's Field evidence, for callers
// that want a flat confidence view without walking the variant struct.
type Extractor func(htmlDoc, sourceURL string) (*model.Property, map[string]float64, error)

// registration pairs a domain substring with its Extractor. Order
// matters: Lookup tries registrations in registration order and the
// first substring match wins, per spec.md §4.4.
type registration struct {
	domainSubstring string
	extractor       Extractor
}

// Registry holds domain-substring-keyed extractors.
type Registry struct {
	registrations []registration
}

// NewRegistry constructs an empty Registry. Use Register to populate it,
// or NewDefaultRegistry for the two shipped extractors.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry returns a Registry pre-populated with the
// real-estate-portal and tour-listing extractors shipped with stayfly.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("coldwellbankercostarica.com", ExtractColdwellBanker)
	r.Register("costarica.org", ExtractCostaRicaOrgTours)
	return r
}

// Register adds e for any sourceURL containing domainSubstring. Earlier
// registrations take priority over later ones with the same or
// overlapping substrings.
func (r *Registry) Register(domainSubstring string, e Extractor) {
	r.registrations = append(r.registrations, registration{domainSubstring, e})
}

// Lookup returns the first registered Extractor whose domain substring
// appears in sourceURL, or nil if none match (callers fall back to the
// LLM extractor).
func (r *Registry) Lookup(sourceURL string) Extractor {
	lower := strings.ToLower(sourceURL)
	for _, reg := range r.registrations {
		if strings.Contains(lower, reg.domainSubstring) {
			return reg.extractor
		}
	}
	return nil
}

// Domains lists every registered domain substring, per spec.md §6
// GET /ingest/supported-websites/.
func (r *Registry) Domains() []string {
	domains := make([]string, 0, len(r.registrations))
	for _, reg := range r.registrations {
		domains = append(domains, reg.domainSubstring)
	}
	return domains
}
