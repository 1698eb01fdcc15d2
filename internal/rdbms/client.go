package rdbms

import (
	"context"
	"database/sql"
	"io"
)

// ConnConfig carries everything a dialect adapter needs to open a
// connection. It is the per-RDBMS-kind entry of the session's "mapping
// from RDBMS kind -> connection configuration" (spec §3).
type ConnConfig struct {
	Engine   Dialect
	Host     string
	Port     int
	Name     string // database/service name
	User     string
	Password string
	// Client/Driver selects an alternate client library or connection mode
	// where the dialect supports more than one (spec §6 POST /rdbms body:
	// "[client|driver]"). Empty means the adapter's default.
	ClientOrDriver string
	MaxOpenConns   int
	MaxIdleConns   int
}

// Redacted returns a copy of c with the password removed, for inclusion in
// migration reports (spec §4.G: "source/target descriptors (with passwords
// removed)").
func (c ConnConfig) Redacted() ConnConfig {
	c.Password = ""
	return c
}

// Partition is a disjoint (offset, limit) slice of a table's rows assigned
// to one channel worker (spec §4.C step 4, GLOSSARY "Channel"). Limit == 0
// means unbounded — used for the final partition so residual rows are
// covered by exactly one worker.
type Partition struct {
	Offset int64
	Limit  int64
}

// RefSpec names the reference column backing a LOB column's S3 object
// naming (spec §3 Specs: "named_lobdata"; GLOSSARY "Reference column").
type RefSpec struct {
	Column  string // reference column name; empty means "no reference configured"
	FileExt string // optional forced extension, e.g. "pdf"
}

// HasColumn reports whether a reference column was configured.
func (r RefSpec) HasColumn() bool {
	return r.Column != ""
}

// SyncPlan describes a plaindata reconciliation request for one table
// (spec §4.E "Plaindata sync").
type SyncPlan struct {
	Table          string
	PKColumns      []string
	SyncColumns    []string // non-PK, non-LOB columns compared for updates
	IdentityColumn string   // empty if the table has no identity column
	CorrelateOnly  bool     // suppresses updates when true
}

// SyncResult reports the rows a Sync call reconciled.
type SyncResult struct {
	Deletes int64
	Inserts int64
	Updates int64
}

// LOBSyncPlan describes a LOB reconciliation request for one column
// against an S3 prefix (spec §4.E "LOB sync").
type LOBSyncPlan struct {
	Table       string
	Column      string
	RefColumn   string
	S3Prefix    string
	FileExt     string
	ChunkSize   int
}

// Client is the narrow interface the engine uses to talk to a source or
// target RDBMS. Concrete implementations are opaque and replaceable
// (spec.md §1: "the engine calls these through narrow interfaces;
// replacing the transport is independent of this design").
//
// One Client is owned by exactly one worker (spec §3 Ownership) and is
// closed on that worker's exit.
type Client interface {
	// Connect opens the underlying connection. Must be called before any
	// other method.
	Connect(ctx context.Context) error
	// Close releases the connection. Safe to call more than once.
	Close() error

	// Execute runs a non-row-returning statement (DDL or DML) and returns
	// the number of rows affected where applicable.
	Execute(ctx context.Context, stmt string, args ...any) (int64, error)
	// Select runs a row-returning query. The caller must close the
	// returned *sql.Rows.
	Select(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	// Count returns the single integer result of a COUNT(*)-shaped query.
	Count(ctx context.Context, query string, args ...any) (int64, error)

	// BulkInsert drains rows from in, writing them to table in batches of
	// batchSize, and returns the total rows written. Used by the plaindata
	// transfer pipeline (component C) with batch_size_out on the target
	// side.
	BulkInsert(ctx context.Context, table string, columns []string, in <-chan []any, batchSize int) (int64, error)

	// Sync reconciles an already-migrated table per plan and returns the
	// counts of rows deleted/inserted/updated (component E).
	Sync(ctx context.Context, plan SyncPlan, source Client) (SyncResult, error)

	// StreamLOB opens a streaming reader over the LOB cells selected by
	// query/args, chunked internally at chunkSize bytes. The caller must
	// close the returned reader.
	StreamLOB(ctx context.Context, query string, args []any, chunkSize int) (io.ReadCloser, error)
	// MigrateLOB copies LOB cells from source into this client's table and
	// column directly (RDBMS-to-RDBMS LOB transfer), returning the number
	// of cells migrated.
	MigrateLOB(ctx context.Context, source Client, table, column string, ref RefSpec, partition Partition, chunkSize int) (int64, error)

	// ReflectSchema reflects the named schema's tables, columns and
	// foreign keys (component B).
	ReflectSchema(ctx context.Context, schemaName string, flags ReflectFlags) (*Schema, error)
	// ViewDDL returns the CREATE TABLE (or CREATE VIEW) DDL text for name,
	// as rendered by the dialect (supplemental feature, SPEC_FULL §6).
	ViewDDL(ctx context.Context, schemaName, name string) (string, error)

	// Dialect returns this client's RDBMS dialect tag.
	Dialect() Dialect
}

// ReflectFlags narrows what ReflectSchema reflects, mirroring the spec's
// process_indexes/process_views/relax_reflection flags.
type ReflectFlags struct {
	ProcessIndexes  bool
	ProcessViews    bool
	RelaxReflection bool
}
