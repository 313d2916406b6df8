package llmextract

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/kaptinlin/jsonschema"
)

// whitelistValidator compiles a JSON Schema restricting an object to a
// known set of top-level properties (additionalProperties: false) and
// validates extracted field maps against it. Grounded directly on
// antfly/oapi/validate.go's DocumentSchema.Validate: a sonic-backed
// jsonschema.Compiler, ValidateMap over the decoded document.
type whitelistValidator struct {
	compiled *jsonschema.Schema
}

// newWhitelistValidator builds the schema `{fields: allow-list, no
// additional properties}` and compiles it once per (content_type,
// page_type) pair.
func newWhitelistValidator(fields []string) (*whitelistValidator, error) {
	properties := make(map[string]any, len(fields))
	for _, f := range fields {
		properties[f] = map[string]any{}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}

	schemaBytes, err := sonic.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshalling whitelist schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.WithDecoderJSON(sonic.Unmarshal)
	compiler.WithEncoderJSON(sonic.Marshal)

	compiled, err := compiler.Compile(schemaBytes)
	if err != nil {
		return nil, fmt.Errorf("compiling whitelist schema: %w", err)
	}

	return &whitelistValidator{compiled: compiled}, nil
}

// filter drops every key of raw not present in the whitelist, returning
// only the keys the schema allows. Spec.md §4.5 step 5: "preserves
// unknown keys only if they appear in the whitelist for this content
// type."
func (v *whitelistValidator) filter(raw map[string]any) map[string]any {
	result := v.compiled.ValidateMap(raw)
	if result.IsValid() {
		return raw
	}

	allowed := make(map[string]any, len(raw))
	for key, val := range raw {
		single := map[string]any{key: val}
		if r := v.compiled.ValidateMap(single); r.IsValid() {
			allowed[key] = val
		}
	}
	return allowed
}
