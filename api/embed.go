// Package api provides embedded API specification assets.
package api

import _ "embed"

// OpenAPISpec contains the embedded OpenAPI 3.0 specification (spec.md
// §6: "GET /swagger | OpenAPI JSON").
//
//go:embed openapi.json
var OpenAPISpec []byte
