// Package metrics provides Prometheus metrics for the migration engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the migration engine.
type Metrics struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Session metrics (component F)
	SessionsActive prometheus.Gauge
	SessionsTotal  *prometheus.CounterVec // label: state

	// Migration metrics (component G)
	MigrationsTotal    *prometheus.CounterVec // label: final_state
	MigrationDuration  *prometheus.HistogramVec
	TablesMigrated     *prometheus.CounterVec // label: step
	PlaindataRowsTotal *prometheus.CounterVec // label: direction
	LOBObjectsTotal    *prometheus.CounterVec // label: direction

	// RDBMS adapter metrics (component H)
	RDBMSOperations *prometheus.CounterVec
	RDBMSLatency    *prometheus.HistogramVec
	RDBMSErrors     *prometheus.CounterVec

	// Sync metrics (component E)
	SyncDiscrepancies *prometheus.CounterVec // label: kind (missing, orphaned)

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbrief_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbrief_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dbrief_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dbrief_sessions_active",
			Help: "Number of sessions currently in the active state",
		},
	)

	m.SessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbrief_sessions_total",
			Help: "Total number of session state transitions",
		},
		[]string{"state"},
	)

	m.MigrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbrief_migrations_total",
			Help: "Total number of completed migrations",
		},
		[]string{"final_state"},
	)

	m.MigrationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbrief_migration_duration_seconds",
			Help:    "Wall-clock duration of a migration run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		},
		[]string{"final_state"},
	)

	m.TablesMigrated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbrief_tables_migrated_total",
			Help: "Total number of tables processed by migration step",
		},
		[]string{"step"},
	)

	m.PlaindataRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbrief_plaindata_rows_total",
			Help: "Total number of plaindata rows transferred or synced",
		},
		[]string{"direction"},
	)

	m.LOBObjectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbrief_lobdata_objects_total",
			Help: "Total number of LOB objects transferred or synced",
		},
		[]string{"direction"},
	)

	m.RDBMSOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbrief_rdbms_operations_total",
			Help: "Total number of RDBMS client operations",
		},
		[]string{"dialect", "operation"},
	)

	m.RDBMSLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbrief_rdbms_latency_seconds",
			Help:    "RDBMS client operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dialect", "operation"},
	)

	m.RDBMSErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbrief_rdbms_errors_total",
			Help: "Total number of RDBMS client operation errors",
		},
		[]string{"dialect", "operation"},
	)

	m.SyncDiscrepancies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbrief_sync_discrepancies_total",
			Help: "Total number of discrepancies found and reconciled during synchronize_plaindata/LOB sync",
		},
		[]string{"kind"},
	)

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.SessionsActive,
		m.SessionsTotal,
		m.MigrationsTotal,
		m.MigrationDuration,
		m.TablesMigrated,
		m.PlaindataRowsTotal,
		m.LOBObjectsTotal,
		m.RDBMSOperations,
		m.RDBMSLatency,
		m.RDBMSErrors,
		m.SyncDiscrepancies,
	)

	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return m
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Middleware returns HTTP middleware that records request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		m.RequestsInFlight.Inc()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		m.RequestsInFlight.Dec()
		duration := time.Since(start).Seconds()

		path := normalizePath(r.URL.Path)

		m.RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes a URL path to reduce cardinality (spec §6
// routes: /rdbms/{engine}, /s3/{engine}).
func normalizePath(path string) string {
	switch {
	case startsWith(path, "/rdbms/"):
		return "/rdbms/{engine}"
	case startsWith(path, "/s3/"):
		return "/s3/{engine}"
	}
	return path
}

func startsWith(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// RecordSessionTransition records a session entering a new state.
func (m *Metrics) RecordSessionTransition(state string) {
	m.SessionsTotal.WithLabelValues(state).Inc()
}

// RecordMigration records a completed migration's final state and duration.
func (m *Metrics) RecordMigration(finalState string, duration time.Duration) {
	m.MigrationsTotal.WithLabelValues(finalState).Inc()
	m.MigrationDuration.WithLabelValues(finalState).Observe(duration.Seconds())
}

// RecordTableStep records one table having completed a migration step
// (spec §4.G: metadata, plaindata, lobdata, sync).
func (m *Metrics) RecordTableStep(step string) {
	m.TablesMigrated.WithLabelValues(step).Inc()
}

// RecordPlaindataRows records rows moved in a direction ("transfer" or "sync").
func (m *Metrics) RecordPlaindataRows(direction string, rows int64) {
	m.PlaindataRowsTotal.WithLabelValues(direction).Add(float64(rows))
}

// RecordLOBObjects records LOB objects moved in a direction ("transfer" or "sync").
func (m *Metrics) RecordLOBObjects(direction string, count int64) {
	m.LOBObjectsTotal.WithLabelValues(direction).Add(float64(count))
}

// RecordRDBMSOperation records an RDBMS client operation's latency and
// outcome (spec §4.H: Connect/Execute/Select/Count/BulkInsert/Sync/
// StreamLOB/MigrateLOB/ReflectSchema/ViewDDL).
func (m *Metrics) RecordRDBMSOperation(dialect, operation string, duration time.Duration, err error) {
	m.RDBMSOperations.WithLabelValues(dialect, operation).Inc()
	m.RDBMSLatency.WithLabelValues(dialect, operation).Observe(duration.Seconds())
	if err != nil {
		m.RDBMSErrors.WithLabelValues(dialect, operation).Inc()
	}
}

// RecordSyncDiscrepancy records one reconciled discrepancy found during
// synchronize_plaindata (kind is "missing" or "orphaned").
func (m *Metrics) RecordSyncDiscrepancy(kind string, count int64) {
	m.SyncDiscrepancies.WithLabelValues(kind).Add(float64(count))
}
