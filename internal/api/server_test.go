package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewisecoder/dbrief/internal/config"
	"github.com/thewisecoder/dbrief/internal/metrics"
	"github.com/thewisecoder/dbrief/internal/migrator"
	"github.com/thewisecoder/dbrief/internal/session"
)

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	sessions := session.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := migrator.New(sessions, logger, "test-version")
	return NewServer(cfg, sessions, orch, "test-version", logger, WithMetrics(metrics.New()))
}

func TestServer_RouteTableDoesNotReturn404(t *testing.T) {
	srv := newTestServer(t, config.DefaultConfig())

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/version"},
		{http.MethodGet, "/rdbms/postgres"},
		{http.MethodGet, "/s3/minio"},
		{http.MethodGet, "/migration:metrics"},
		{http.MethodGet, "/logging"},
		{http.MethodDelete, "/migrate"},
		{http.MethodGet, "/swagger"},
		{http.MethodGet, "/metrics"},
	}

	for _, rt := range routes {
		req := httptest.NewRequest(rt.method, rt.path, nil)
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		assert.NotEqual(t, http.StatusNotFound, rr.Code, "%s %s returned 404", rt.method, rt.path)
	}
}

func TestServer_ClientIDCookieIssuedOnFirstRequest(t *testing.T) {
	srv := newTestServer(t, config.DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	require.Len(t, rr.Result().Cookies(), 1)
	assert.Equal(t, clientIDCookie, rr.Result().Cookies()[0].Name)
}

func TestServer_SwaggerDisabledWhenDocsDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.DocsEnabled = false
	srv := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/swagger", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_SwaggerServesOpenAPIJSON(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.DocsEnabled = true
	srv := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/swagger", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Body.Bytes())
}
