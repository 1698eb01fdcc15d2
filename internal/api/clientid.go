package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/thewisecoder/dbrief/internal/api/handlers"
)

const clientIDCookie = "client-id"

// clientIDMiddleware resolves the requesting client's identity from the
// client-id cookie, issuing a fresh one (spec §4.F: "client identified
// by a client-id cookie; a fresh UUID issued if absent") when the
// request carries none, and stores it in the request context for
// handlers to read via handlers.ClientIDKey.
func clientIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(clientIDCookie); err == nil && c.Value != "" {
			id = c.Value
		} else {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     clientIDCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Expires:  time.Now().Add(30 * 24 * time.Hour),
			})
		}
		ctx := context.WithValue(r.Context(), handlers.ClientIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
