package api

import (
	"fmt"
	"net/http"

	openapispec "github.com/thewisecoder/dbrief/api"
)

// handleSwagger serves the embedded OpenAPI document (spec.md §6: "GET
// /swagger | OpenAPI JSON; optional filename -> attachment").
func handleSwagger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if fn := r.URL.Query().Get("filename"); fn != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fn))
	}
	_, _ = w.Write(openapispec.OpenAPISpec)
}
