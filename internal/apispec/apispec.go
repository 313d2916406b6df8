// Package apispec embeds the bundled OpenAPI document describing
// stayfly's HTTP API, so cmd/server can validate it's well-formed at
// startup without relying on a file path surviving deployment.
package apispec

import _ "embed"

//go:embed openapi.yaml
var OpenAPIYAML []byte
