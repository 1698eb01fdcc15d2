package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewisecoder/dbrief/internal/api/handlers"
)

func TestClientIDMiddleware_IssuesCookieWhenAbsent(t *testing.T) {
	var capturedID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, _ := r.Context().Value(handlers.ClientIDKey).(string)
		capturedID = v
	})

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rr := httptest.NewRecorder()
	clientIDMiddleware(next).ServeHTTP(rr, req)

	require.NotEmpty(t, capturedID)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, clientIDCookie, cookies[0].Name)
	assert.Equal(t, capturedID, cookies[0].Value)
}

func TestClientIDMiddleware_ReusesExistingCookie(t *testing.T) {
	var capturedID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, _ := r.Context().Value(handlers.ClientIDKey).(string)
		capturedID = v
	})

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.AddCookie(&http.Cookie{Name: clientIDCookie, Value: "existing-client-id"})
	rr := httptest.NewRecorder()
	clientIDMiddleware(next).ServeHTTP(rr, req)

	assert.Equal(t, "existing-client-id", capturedID)
	assert.Empty(t, rr.Result().Cookies())
}
