package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewisecoder/dbrief/internal/api/types"
	"github.com/thewisecoder/dbrief/internal/session"
)

func newTestHandler(t *testing.T) (*Handler, *session.Registry) {
	t.Helper()
	sessions := session.NewRegistry()
	h := New(sessions, nil, "test-version", nil)
	return h, sessions
}

func withClientID(r *http.Request, id string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ClientIDKey, id))
}

func TestVersion(t *testing.T) {
	h, _ := newTestHandler(t)
	req := withClientID(httptest.NewRequest(http.MethodGet, "/version", nil), "c1")
	rr := httptest.NewRecorder()

	h.Version(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp types.VersionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "test-version", resp.EngineVersion)
}

func TestSetAndGetRDBMSConfig(t *testing.T) {
	h, _ := newTestHandler(t)

	body, _ := json.Marshal(types.RDBMSConfigRequest{
		Engine: "postgres", Name: "mydb", User: "u", Password: "p", Host: "db", Port: 5432,
	})
	postReq := withClientID(httptest.NewRequest(http.MethodPost, "/rdbms", bytes.NewReader(body)), "c1")
	postRR := httptest.NewRecorder()
	h.SetRDBMSConfig(postRR, postReq)
	require.Equal(t, http.StatusOK, postRR.Code)

	getReq := withClientID(httptest.NewRequest(http.MethodGet, "/rdbms/postgres", nil), "c1")
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("engine", "postgres")
	getReq = getReq.WithContext(context.WithValue(getReq.Context(), chi.RouteCtxKey, rctx))
	getRR := httptest.NewRecorder()
	h.GetRDBMSConfig(getRR, getReq)

	require.Equal(t, http.StatusOK, getRR.Code)
	var resp types.RDBMSConfigResponse
	require.NoError(t, json.Unmarshal(getRR.Body.Bytes(), &resp))
	assert.Equal(t, "mydb", resp.Name)
	assert.NotContains(t, getRR.Body.String(), "\"p\"")
}

func TestGetRDBMSConfig_UnconfiguredDemotesToNoContent(t *testing.T) {
	h, _ := newTestHandler(t)

	req := withClientID(httptest.NewRequest(http.MethodGet, "/rdbms/mysql", nil), "c1")
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("engine", "mysql")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()
	h.GetRDBMSConfig(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestMetrics_GetAndPatch(t *testing.T) {
	h, _ := newTestHandler(t)

	getReq := withClientID(httptest.NewRequest(http.MethodGet, "/migration:metrics", nil), "c1")
	getRR := httptest.NewRecorder()
	h.GetMigrationMetrics(getRR, getReq)
	require.Equal(t, http.StatusOK, getRR.Code)
	var got types.MetricsResponse
	require.NoError(t, json.Unmarshal(getRR.Body.Bytes(), &got))
	assert.Equal(t, int64(1_000_000), got.BatchSizeIn)

	newChunk := int64(4096)
	patchBody, _ := json.Marshal(types.MetricsPatchRequest{ChunkSize: &newChunk})
	patchReq := withClientID(httptest.NewRequest(http.MethodPatch, "/migration:metrics", bytes.NewReader(patchBody)), "c1")
	patchRR := httptest.NewRecorder()
	h.PatchMigrationMetrics(patchRR, patchReq)
	require.Equal(t, http.StatusOK, patchRR.Code)
	var patched types.MetricsResponse
	require.NoError(t, json.Unmarshal(patchRR.Body.Bytes(), &patched))
	assert.Equal(t, newChunk, patched.ChunkSize)
}

func TestAbortMigration_NoActiveSessionDemotesToNoContent(t *testing.T) {
	h, _ := newTestHandler(t)
	req := withClientID(httptest.NewRequest(http.MethodDelete, "/migrate", nil), "unknown-client")
	rr := httptest.NewRecorder()
	h.AbortMigration(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestAbortMigration_RejectsWhenNotMigrating(t *testing.T) {
	h, sessions := newTestHandler(t)
	_, err := sessions.Create("c1")
	require.NoError(t, err)

	req := withClientID(httptest.NewRequest(http.MethodDelete, "/migrate", nil), "c1")
	rr := httptest.NewRecorder()
	h.AbortMigration(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestApplyMigrateRequest_RejectsUnknownDialect(t *testing.T) {
	h, sessions := newTestHandler(t)
	sess, err := sessions.Create("c1")
	require.NoError(t, err)

	errs := applyMigrateRequest(sess, types.MigrateRequest{FromRDBMS: "bogus", ToRDBMS: "postgres"})
	assert.NotEmpty(t, errs)
}

func TestApplyMigrateRequest_ParsesOverridesAndNamedLobdata(t *testing.T) {
	h, sessions := newTestHandler(t)
	_ = h
	sess, err := sessions.Create("c1")
	require.NoError(t, err)

	errs := applyMigrateRequest(sess, types.MigrateRequest{
		FromRDBMS:       "mysql",
		ToRDBMS:         "postgres",
		OverrideColumns: []string{"emp.salary=pg_numeric"},
		NamedLobdata:    []string{"emp.photo=ref_id.png"},
	})

	require.Empty(t, errs)
	assert.Equal(t, "pg_numeric", sess.Specs.Overrides["emp.salary"])
	assert.Equal(t, "ref_id", sess.Specs.NamedLobdata["emp.photo"].Column)
	assert.Equal(t, "png", sess.Specs.NamedLobdata["emp.photo"].FileExt)
}

func TestLogging(t *testing.T) {
	h, _ := newTestHandler(t)
	req := withClientID(httptest.NewRequest(http.MethodGet, "/logging", nil), "c1")
	rr := httptest.NewRecorder()
	h.Logging(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
