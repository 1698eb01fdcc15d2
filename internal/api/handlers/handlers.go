// Package handlers provides HTTP request handlers for the migration
// engine's HTTP surface (spec.md §6), grounded on the teacher's
// internal/api/handlers.Handler shape (a struct wrapping the engine's
// core components, writeJSON/writeError helpers).
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thewisecoder/dbrief/internal/api/types"
	"github.com/thewisecoder/dbrief/internal/migrator"
	"github.com/thewisecoder/dbrief/internal/objectstore"
	"github.com/thewisecoder/dbrief/internal/rdbms"
	"github.com/thewisecoder/dbrief/internal/rdbms/factory"
	"github.com/thewisecoder/dbrief/internal/session"
)

type clientIDKey struct{}

// ClientIDKey is the context key the client-id cookie middleware stores
// the resolved client id under (spec §4.F: "client identified by a
// client-id cookie").
var ClientIDKey = clientIDKey{}

// Handler provides HTTP handlers for the migration engine.
type Handler struct {
	Sessions *session.Registry
	Migrator *migrator.Orchestrator
	Version  string
	Logger   *slog.Logger
}

// New creates a new Handler.
func New(sessions *session.Registry, orch *migrator.Orchestrator, version string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Sessions: sessions, Migrator: orch, Version: version, Logger: logger}
}

func clientID(r *http.Request) string {
	if v, ok := r.Context().Value(ClientIDKey).(string); ok {
		return v
	}
	return ""
}

// activeSession returns the requesting client's active session,
// creating one (spec §4.F "create") if it doesn't have one yet — this
// HTTP surface has no dedicated session-creation route, so the first
// request from a client implicitly opens its session.
func (h *Handler) activeSession(r *http.Request) (*session.Session, error) {
	id := clientID(r)
	if id == "" {
		return nil, fmt.Errorf("missing client identity")
	}
	if s, ok := h.Sessions.GetActive(id); ok {
		return s, nil
	}
	return h.Sessions.Create(id)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the spec's error envelope (spec §6: error responses
// carry {"errors":[...]} and HTTP 400).
func writeError(w http.ResponseWriter, status int, messages ...string) {
	writeJSON(w, status, types.ErrorResponse{Errors: messages})
}

// writeNotFoundAsNoContent implements spec §6's "a 404 on GET is
// silently demoted to 204 to absorb browser re-submits".
func writeNotFoundAsNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Version handles GET /version.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.VersionResponse{
		EngineVersion: h.Version,
		GoVersion:     runtime.Version(),
	})
}

// GetRDBMSConfig handles GET /rdbms/{engine}.
func (h *Handler) GetRDBMSConfig(w http.ResponseWriter, r *http.Request) {
	sess, err := h.activeSession(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	engine, err := rdbms.ParseDialect(chi.URLParam(r, "engine"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, ok := sess.Connections[engine]
	if !ok {
		writeNotFoundAsNoContent(w)
		return
	}
	writeJSON(w, http.StatusOK, types.RDBMSConfigResponse{
		Engine: string(cfg.Engine),
		Name:   cfg.Name,
		User:   cfg.User,
		Host:   cfg.Host,
		Port:   cfg.Port,
	})
}

// SetRDBMSConfig handles POST /rdbms.
func (h *Handler) SetRDBMSConfig(w http.ResponseWriter, r *http.Request) {
	sess, err := h.activeSession(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req types.RDBMSConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	engine, err := rdbms.ParseDialect(req.Engine)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.Connections[engine] = rdbms.ConnConfig{
		Engine:         engine,
		Host:           req.Host,
		Port:           req.Port,
		Name:           req.Name,
		User:           req.User,
		Password:       req.Password,
		ClientOrDriver: req.ClientOrDriver,
	}
	writeJSON(w, http.StatusOK, types.RDBMSConfigResponse{
		Engine: string(engine), Name: req.Name, User: req.User, Host: req.Host, Port: req.Port,
	})
}

// GetS3Config handles GET /s3/{engine}.
func (h *Handler) GetS3Config(w http.ResponseWriter, r *http.Request) {
	sess, err := h.activeSession(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if sess.S3Config == nil {
		writeNotFoundAsNoContent(w)
		return
	}
	writeJSON(w, http.StatusOK, types.S3ConfigResponse{
		Engine:         chi.URLParam(r, "engine"),
		Endpoint:       sess.S3Config.Endpoint,
		Region:         sess.S3Config.Region,
		Bucket:         sess.S3Config.Bucket,
		AccessKeyID:    sess.S3Config.AccessKeyID,
		ForcePathStyle: sess.S3Config.ForcePathStyle,
	})
}

// SetS3Config handles POST /s3.
func (h *Handler) SetS3Config(w http.ResponseWriter, r *http.Request) {
	sess, err := h.activeSession(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req types.S3ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	sess.S3Config = &objectstore.Config{
		Endpoint:        req.Endpoint,
		Region:          req.Region,
		Bucket:          req.Bucket,
		AccessKeyID:     req.AccessKeyID,
		SecretAccessKey: req.SecretAccessKey,
		ForcePathStyle:  req.ForcePathStyle,
	}
	sess.Spots.TargetS3Set = true
	writeJSON(w, http.StatusOK, types.S3ConfigResponse{
		Engine: req.Engine, Endpoint: req.Endpoint, Region: req.Region,
		Bucket: req.Bucket, AccessKeyID: req.AccessKeyID, ForcePathStyle: req.ForcePathStyle,
	})
}

// GetMigrationMetrics handles GET /migration:metrics.
func (h *Handler) GetMigrationMetrics(w http.ResponseWriter, r *http.Request) {
	sess, err := h.activeSession(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, metricsResponse(sess.Metrics))
}

// PatchMigrationMetrics handles PATCH /migration:metrics.
func (h *Handler) PatchMigrationMetrics(w http.ResponseWriter, r *http.Request) {
	sess, err := h.activeSession(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req types.MetricsPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	m := sess.Metrics
	if req.BatchSizeIn != nil {
		m.BatchSizeIn = *req.BatchSizeIn
	}
	if req.BatchSizeOut != nil {
		m.BatchSizeOut = *req.BatchSizeOut
	}
	if req.ChunkSize != nil {
		m.ChunkSize = *req.ChunkSize
	}
	if req.IncrementalSize != nil {
		m.IncrementalSize = *req.IncrementalSize
	}
	if req.LobdataChannels != nil {
		m.LobdataChannels = *req.LobdataChannels
	}
	if req.PlaindataChannels != nil {
		m.PlaindataChannels = *req.PlaindataChannels
	}
	sess.Metrics = m.Clamp()
	writeJSON(w, http.StatusOK, metricsResponse(sess.Metrics))
}

func metricsResponse(m session.Metrics) types.MetricsResponse {
	return types.MetricsResponse{
		BatchSizeIn:       m.BatchSizeIn,
		BatchSizeOut:      m.BatchSizeOut,
		ChunkSize:         m.ChunkSize,
		IncrementalSize:   m.IncrementalSize,
		LobdataChannels:   m.LobdataChannels,
		PlaindataChannels: m.PlaindataChannels,
	}
}

// VerifyMigration handles POST /migration:verify: a dry-run connectivity
// probe over the session's configured source/target (spec §6: "dry-run
// validation; returns a context"; spec §7 "Environment" errors:
// "connectivity probe failed").
func (h *Handler) VerifyMigration(w http.ResponseWriter, r *http.Request) {
	sess, err := h.activeSession(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var warnings []string
	for _, dialect := range []rdbms.Dialect{sess.Spots.SourceRDBMS, sess.Spots.TargetRDBMS} {
		if dialect == "" {
			continue
		}
		cfg, ok := sess.Connections[dialect]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("RDBMS engine %q unconfigured", dialect))
			continue
		}
		c, err := factory.Connected(r.Context(), cfg)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("connectivity probe failed for %s: %v", dialect, err))
			return
		}
		_ = c.Close()
	}
	writeJSON(w, http.StatusOK, types.VerifyResponse{Context: sess.ID, Warnings: warnings})
}

// StartMigration handles POST /migrate.
func (h *Handler) StartMigration(w http.ResponseWriter, r *http.Request) {
	sess, err := h.activeSession(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req types.MigrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if errs := applyMigrateRequest(sess, req); len(errs) > 0 {
		writeError(w, http.StatusBadRequest, errs...)
		return
	}

	report, err := h.Migrator.Migrate(r.Context(), sess.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

// AbortMigration handles DELETE /migrate.
func (h *Handler) AbortMigration(w http.ResponseWriter, r *http.Request) {
	id := clientID(r)
	sess, ok := h.Sessions.GetActive(id)
	if !ok {
		writeNotFoundAsNoContent(w)
		return
	}
	if err := h.Sessions.Abort(sess.ID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.AbortResponse{SessionID: sess.ID, State: string(session.StateAborting)})
}

// Logging handles GET /logging: a passthrough to the process's current
// logging configuration (spec §6: "logging service passthrough").
func (h *Handler) Logging(w http.ResponseWriter, r *http.Request) {
	enabled := map[slog.Level]bool{}
	for _, lvl := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		enabled[lvl] = h.Logger.Enabled(r.Context(), lvl)
	}
	level := "error"
	switch {
	case enabled[slog.LevelDebug]:
		level = "debug"
	case enabled[slog.LevelInfo]:
		level = "info"
	case enabled[slog.LevelWarn]:
		level = "warn"
	}
	writeJSON(w, http.StatusOK, map[string]string{"level": level})
}

// applyMigrateRequest maps a MigrateRequest onto the session's Spots/
// Steps/Specs/Metrics (spec §6's /migrate parameter list), reporting
// every parse failure rather than stopping at the first one (spec §7:
// "Configuration" errors are "reported synchronously at request
// validation").
func applyMigrateRequest(sess *session.Session, req types.MigrateRequest) []string {
	var errs []string

	from, err := rdbms.ParseDialect(req.FromRDBMS)
	if err != nil {
		errs = append(errs, err.Error())
	}
	to, err := rdbms.ParseDialect(req.ToRDBMS)
	if err != nil {
		errs = append(errs, err.Error())
	}
	sess.Spots.SourceRDBMS = from
	sess.Spots.TargetRDBMS = to
	sess.Spots.TargetS3Set = req.ToS3

	sess.Steps = session.Steps{
		MigrateMetadata:      req.MigrateMetadata,
		MigratePlaindata:     req.MigratePlaindata,
		MigrateLobdata:       req.MigrateLobdata,
		SynchronizePlaindata: req.SynchronizePlaindata,
	}

	overrides := typeEquivOverrides(req.OverrideColumns, &errs)
	named := namedLobdata(req.NamedLobdata, &errs)

	sess.Specs = session.Specs{
		FromSchema:      req.FromSchema,
		ToSchema:        req.ToSchema,
		Include:         req.IncludeRelations,
		Exclude:         req.ExcludeRelations,
		Overrides:       overrides,
		NamedLobdata:    named,
		RemoveNulls:     req.RemoveNulls,
		SkipNonempty:    req.SkipNonempty,
		FlattenStorage:  req.FlattenStorage,
		MigrationBadge:  req.MigrationBadge,
		ProcessIndexes:  req.ProcessIndexes,
		ProcessViews:    req.ProcessViews,
		RelaxReflection: req.RelaxReflection,
	}

	if len(req.IncrementalMigration) > 0 {
		// incremental_size is a session-wide metric (spec §3); a
		// per-table "table=size" form only adjusts the first
		// recognized override since the metric has one slot.
		for _, spec := range req.IncrementalMigration {
			parts := strings.SplitN(spec, "=", 2)
			if len(parts) != 2 {
				continue
			}
			if n, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
				sess.Metrics.IncrementalSize = n
				break
			}
		}
	}
	sess.Metrics = sess.Metrics.Clamp()

	return errs
}

func typeEquivOverrides(entries []string, errs *[]string) map[string]string {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) != 2 {
			*errs = append(*errs, fmt.Sprintf("malformed override-columns entry %q", e))
			continue
		}
		out[parts[0]] = parts[1]
	}
	return out
}

func namedLobdata(entries []string, errs *[]string) map[string]rdbms.RefSpec {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]rdbms.RefSpec, len(entries))
	for _, e := range entries {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) != 2 {
			*errs = append(*errs, fmt.Sprintf("malformed named-lobdata entry %q", e))
			continue
		}
		ref := parts[1]
		column, ext, _ := strings.Cut(ref, ".")
		out[parts[0]] = rdbms.RefSpec{Column: column, FileExt: ext}
	}
	return out
}

func toReportResponse(r *migrator.Report) types.ReportResponse {
	resp := types.ReportResponse{
		StartedAt:     r.StartedAt.Format(time.RFC3339),
		FinishedAt:    r.FinishedAt.Format(time.RFC3339),
		EngineVersion: r.EngineVersion,
		SourceConn: types.RDBMSConfigResponse{
			Engine: string(r.SourceConn.Engine), Name: r.SourceConn.Name,
			User: r.SourceConn.User, Host: r.SourceConn.Host, Port: r.SourceConn.Port,
		},
		TargetConn: types.RDBMSConfigResponse{
			Engine: string(r.TargetConn.Engine), Name: r.TargetConn.Name,
			User: r.TargetConn.User, Host: r.TargetConn.Host, Port: r.TargetConn.Port,
		},
		TotalPlaindataRows: r.TotalPlaindataRows,
		TotalLOBObjects:    r.TotalLOBObjects,
		FinalState:         r.FinalState,
		Errors:             r.Errors,
	}
	resp.Steps.MigrateMetadata = r.Steps.MigrateMetadata
	resp.Steps.MigratePlaindata = r.Steps.MigratePlaindata
	resp.Steps.MigrateLobdata = r.Steps.MigrateLobdata
	resp.Steps.SynchronizePlaindata = r.Steps.SynchronizePlaindata

	for _, t := range r.Tables {
		tr := types.TableReportResponse{
			Name:            t.Name,
			Warning:         t.Warning,
			PlaindataRows:   t.PlaindataRows,
			PlaindataStatus: t.PlaindataStatus,
			SyncResult:      t.SyncResult,
			DurationSeconds: t.Duration.Seconds(),
			ThroughputRPS:   t.Throughput(),
		}
		for _, c := range t.LOBColumns {
			tr.LOBColumns = append(tr.LOBColumns, types.LOBColumnReportResponse{
				Column: c.Column, Status: c.Status, Migrated: c.Migrated, Warning: c.Warning,
			})
		}
		resp.Tables = append(resp.Tables, tr)
	}
	return resp
}
