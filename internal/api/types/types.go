// Package types provides API request and response types for the
// migration engine's HTTP surface (spec.md §6).
package types

import "github.com/thewisecoder/dbrief/internal/rdbms"

// ErrorResponse is the error envelope for every non-2xx JSON response
// (spec §6: "error responses carry {"errors":[...]} and HTTP 400").
type ErrorResponse struct {
	Errors []string `json:"errors"`
}

// VersionResponse answers GET /version.
type VersionResponse struct {
	EngineVersion string `json:"engine_version"`
	GoVersion     string `json:"go_version"`
}

// RDBMSConfigRequest is the body of POST /rdbms (spec §6: "engine, name,
// user, pwd, host, port, [client|driver]").
type RDBMSConfigRequest struct {
	Engine         string `json:"engine"`
	Name           string `json:"name"`
	User           string `json:"user"`
	Password       string `json:"pwd"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	ClientOrDriver string `json:"client,omitempty"`
}

// RDBMSConfigResponse answers GET /rdbms/{engine} (spec: "no password").
type RDBMSConfigResponse struct {
	Engine string `json:"engine"`
	Name   string `json:"name"`
	User   string `json:"user"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
}

// S3ConfigRequest is the body of POST /s3.
type S3ConfigRequest struct {
	Engine          string `json:"engine"`
	Endpoint        string `json:"endpoint"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	ForcePathStyle  bool   `json:"force_path_style"`
}

// S3ConfigResponse answers GET /s3/{engine} (spec: "no secret").
type S3ConfigResponse struct {
	Engine         string `json:"engine"`
	Endpoint       string `json:"endpoint"`
	Region         string `json:"region"`
	Bucket         string `json:"bucket"`
	AccessKeyID    string `json:"access_key_id"`
	ForcePathStyle bool   `json:"force_path_style"`
}

// MetricsResponse is the body of GET/PATCH /migration:metrics.
type MetricsResponse struct {
	BatchSizeIn       int64 `json:"batch_size_in"`
	BatchSizeOut      int64 `json:"batch_size_out"`
	ChunkSize         int64 `json:"chunk_size"`
	IncrementalSize   int64 `json:"incremental_size"`
	LobdataChannels   int   `json:"lobdata_channels"`
	PlaindataChannels int   `json:"plaindata_channels"`
}

// MetricsPatchRequest is the body of PATCH /migration:metrics; omitted
// (null) fields are left unchanged, while a field that is present, even
// as zero, is applied and then clamped (spec defaults only apply at
// session creation, not on every patch).
type MetricsPatchRequest struct {
	BatchSizeIn       *int64 `json:"batch_size_in,omitempty"`
	BatchSizeOut      *int64 `json:"batch_size_out,omitempty"`
	ChunkSize         *int64 `json:"chunk_size,omitempty"`
	IncrementalSize   *int64 `json:"incremental_size,omitempty"`
	LobdataChannels   *int   `json:"lobdata_channels,omitempty"`
	PlaindataChannels *int   `json:"plaindata_channels,omitempty"`
}

// VerifyResponse is the body of POST /migration:verify (spec: "dry-run
// validation; returns a context").
type VerifyResponse struct {
	Context  string   `json:"context"`
	Warnings []string `json:"warnings,omitempty"`
}

// MigrateRequest is the body of POST /migrate (spec §6 "/migrate
// recognized parameters", hyphen-kebab spelling in JSON per the
// original's request shape).
type MigrateRequest struct {
	FromRDBMS            string            `json:"from-rdbms"`
	FromSchema           string            `json:"from-schema"`
	ToRDBMS              string            `json:"to-rdbms"`
	ToSchema             string            `json:"to-schema"`
	ToS3                 bool              `json:"to-s3"`
	MigrateMetadata      bool              `json:"migrate-metadata"`
	MigratePlaindata     bool              `json:"migrate-plaindata"`
	MigrateLobdata       bool              `json:"migrate-lobdata"`
	SynchronizePlaindata bool              `json:"synchronize-plaindata"`
	ProcessIndexes       bool              `json:"process-indexes"`
	ProcessViews         bool              `json:"process-views"`
	RelaxReflection      bool              `json:"relax-reflection"`
	SkipNonempty         bool              `json:"skip-nonempty"`
	ReflectFiletype      bool              `json:"reflect-filetype"`
	FlattenStorage       bool              `json:"flatten-storage"`
	IncludeRelations     []string          `json:"include-relations,omitempty"`
	ExcludeRelations     []string          `json:"exclude-relations,omitempty"`
	ExcludeConstraints   []string          `json:"exclude-constraints,omitempty"`
	IncrementalMigration []string          `json:"incremental-migration,omitempty"` // "table[=size]"
	RemoveNulls          []string          `json:"remove-nulls,omitempty"`
	ExcludeColumns       []string          `json:"exclude-columns,omitempty"`
	OverrideColumns      []string          `json:"override-columns,omitempty"` // "table.column=typename"
	NamedLobdata         []string          `json:"named-lobdata,omitempty"`    // "table.column=refcolumn[.ext]"
	MigrationBadge       string            `json:"migration-badge,omitempty"`
}

// MigrateStartResponse pairs a session id with its final state. POST
// /migrate does not return it: that handler runs the migration
// synchronously and answers with a ReportResponse once the run
// completes (there is no separate poll route).
type MigrateStartResponse struct {
	SessionID  string `json:"session_id"`
	FinalState string `json:"final_state"`
}

// AbortResponse is returned by DELETE /migrate.
type AbortResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// LOBColumnReportResponse is one LOB column's outcome within a table.
type LOBColumnReportResponse struct {
	Column   string `json:"column"`
	Status   string `json:"status"`
	Migrated int64  `json:"migrated"`
	Warning  string `json:"warning,omitempty"`
}

// TableReportResponse is one table's outcome within a migration report
// (SPEC_FULL §6: "per-table descriptor includes elapsed time and
// rows/sec").
type TableReportResponse struct {
	Name            string                     `json:"name"`
	Warning         string                     `json:"warning,omitempty"`
	PlaindataRows   int64                      `json:"plaindata_rows"`
	PlaindataStatus string                     `json:"plaindata_status,omitempty"`
	SyncResult      *rdbms.SyncResult          `json:"sync_result,omitempty"`
	LOBColumns      []LOBColumnReportResponse  `json:"lob_columns,omitempty"`
	DurationSeconds float64                    `json:"duration_seconds"`
	ThroughputRPS   float64                    `json:"throughput_rows_per_sec"`
}

// ReportResponse is the JSON rendering of the migrator's final report
// (spec §4.G: "timestamps, versions, source/target descriptors (with
// passwords removed), step flags, totals, and the per-table descriptor
// map").
type ReportResponse struct {
	StartedAt     string                `json:"started_at"`
	FinishedAt    string                `json:"finished_at"`
	EngineVersion string                `json:"engine_version"`

	SourceConn RDBMSConfigResponse `json:"source"`
	TargetConn RDBMSConfigResponse `json:"target"`

	Steps struct {
		MigrateMetadata      bool `json:"migrate_metadata"`
		MigratePlaindata     bool `json:"migrate_plaindata"`
		MigrateLobdata       bool `json:"migrate_lobdata"`
		SynchronizePlaindata bool `json:"synchronize_plaindata"`
	} `json:"steps"`

	Tables []TableReportResponse `json:"tables"`

	TotalPlaindataRows int64 `json:"total_plaindata_rows"`
	TotalLOBObjects    int64 `json:"total_lob_objects"`

	FinalState string   `json:"final_state"`
	Errors     []string `json:"errors,omitempty"`
}
