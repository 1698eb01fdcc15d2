package migrator

import (
	"time"

	"github.com/thewisecoder/dbrief/internal/rdbms"
)

// LOBColumnReport is one LOB column's transfer or sync outcome, nested
// under its table's TableReport.
type LOBColumnReport struct {
	Column   string
	Status   string
	Migrated int64
	Warning  string
}

// TableReport is the per-table descriptor in the final report (spec
// §4.G: "the per-table descriptor map"), supplemented with
// Duration/Throughput (SPEC_FULL §6: "the original's table descriptor
// includes elapsed time and rows/sec").
type TableReport struct {
	Name           string
	Warning        string
	PlaindataRows  int64
	PlaindataStatus string
	SyncResult     *rdbms.SyncResult
	LOBColumns     []LOBColumnReport
	Duration       time.Duration
	rowsForThroughput int64
}

// Throughput returns rows/sec for this table, 0 if Duration is zero.
func (t TableReport) Throughput() float64 {
	if t.Duration <= 0 {
		return 0
	}
	return float64(t.rowsForThroughput) / t.Duration.Seconds()
}

// Report is the migration's final assembled result (spec §4.G:
// "timestamps, versions, source/target descriptors (with passwords
// removed), step flags, totals, and the per-table descriptor map").
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	EngineVersion string

	SourceConn rdbms.ConnConfig // already redacted
	TargetConn rdbms.ConnConfig // already redacted

	Steps TeardownSteps

	Tables []TableReport

	TotalPlaindataRows  int64
	TotalLOBObjects     int64

	FinalState string // "finished" or "aborted"
	Errors     []string
}

// TeardownSteps mirrors session.Steps as the report's own copy of the
// step flags a run was configured with.
type TeardownSteps struct {
	MigrateMetadata      bool
	MigratePlaindata     bool
	MigrateLobdata       bool
	SynchronizePlaindata bool
}

// Duration returns the wall-clock span of the whole migration.
func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
