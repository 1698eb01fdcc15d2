// Package migrator implements the orchestrator component (spec.md §4.G,
// component G): it sequences the schema reflector/constructor (B), the
// plaindata and LOB transfer pipelines (C, D), and the sync operator
// (E) for one session, honoring cooperative cancellation and
// assembling the final migration report.
package migrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thewisecoder/dbrief/internal/metadata"
	"github.com/thewisecoder/dbrief/internal/objectstore"
	objectstores3 "github.com/thewisecoder/dbrief/internal/objectstore/s3"
	"github.com/thewisecoder/dbrief/internal/rdbms"
	"github.com/thewisecoder/dbrief/internal/rdbms/factory"
	"github.com/thewisecoder/dbrief/internal/session"
	"github.com/thewisecoder/dbrief/internal/syncop"
	"github.com/thewisecoder/dbrief/internal/transfer/lobdata"
	"github.com/thewisecoder/dbrief/internal/transfer/plaindata"
	"github.com/thewisecoder/dbrief/internal/typeequiv"
)

// Orchestrator sequences one session's migration run.
type Orchestrator struct {
	Sessions *session.Registry
	Logger   *slog.Logger
	Version  string
}

// New constructs an Orchestrator bound to a session registry.
func New(sessions *session.Registry, logger *slog.Logger, version string) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{Sessions: sessions, Logger: logger, Version: version}
}

// restoreStatement undoes the per-dialect "disable restrictions"
// statement plaindata.SessionSetupStatement applies, reverting the
// target connection to its normal constraint-enforcing mode
// (spec §4.G: "restore restrictions regardless of outcome").
func restoreStatement(d rdbms.Dialect) string {
	switch d {
	case rdbms.DialectPostgres:
		return "SET session_replication_role = origin"
	case rdbms.DialectMySQL:
		return "SET SESSION DISABLE_TRIGGERS = 0"
	default:
		return ""
	}
}

// Migrate runs the full sequence for sessionID: mark Migrating, call B,
// disable restrictions if migrate_plaindata or migrate_lobdata, run
// C/D/E per the session's step flags, restore restrictions, and mark
// Finished or Aborted (spec §4.G).
func (o *Orchestrator) Migrate(ctx context.Context, sessionID string) (*Report, error) {
	sess, ok := o.Sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("migrate: session %s not found", sessionID)
	}

	report := &Report{
		StartedAt:     time.Now(),
		EngineVersion: o.Version,
		SourceConn:    sess.Connections[sess.Spots.SourceRDBMS].Redacted(),
		TargetConn:    sess.Connections[sess.Spots.TargetRDBMS].Redacted(),
		Steps: TeardownSteps{
			MigrateMetadata:      sess.Steps.MigrateMetadata,
			MigratePlaindata:     sess.Steps.MigratePlaindata,
			MigrateLobdata:       sess.Steps.MigrateLobdata,
			SynchronizePlaindata: sess.Steps.SynchronizePlaindata,
		},
	}

	if err := o.Sessions.SetState(sessionID, session.StateMigrating); err != nil {
		return nil, err
	}

	abort := func() bool { return o.Sessions.AssertAbort(sessionID) }

	source, target, store, err := o.connect(ctx, sess)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		report.FinalState = string(session.StateFinished)
		report.FinishedAt = time.Now()
		o.Sessions.SetState(sessionID, session.StateFinished)
		return report, err
	}
	defer source.Close()
	defer target.Close()

	metaSpec := metadata.Spec{
		FromSchema:      sess.Specs.FromSchema,
		ToSchema:        sess.Specs.ToSchema,
		Include:         sess.Specs.Include,
		Exclude:         sess.Specs.Exclude,
		Overrides:       typeequiv.OverrideMap(sess.Specs.Overrides),
		MigrateMetadata: sess.Steps.MigrateMetadata,
		ProcessIndexes:  sess.Specs.ProcessIndexes,
		ProcessViews:    sess.Specs.ProcessViews,
		RelaxReflection: sess.Specs.RelaxReflection,
	}

	schema, ordered, err := metadata.Reflect(ctx, source, metaSpec)
	if err != nil {
		return o.finish(sessionID, report, fmt.Errorf("component B reflect: %w", err))
	}

	descriptors, viewWarnings, err := metadata.Construct(ctx, source, target, schema, ordered, metaSpec, "", "", o.Logger)
	if err != nil {
		return o.finish(sessionID, report, fmt.Errorf("component B construct: %w", err))
	}
	report.Errors = append(report.Errors, viewWarnings...)

	tableReports := make(map[string]*TableReport, len(descriptors))
	for _, d := range descriptors {
		tr := &TableReport{Name: d.Name, Warning: d.Warning}
		tableReports[d.Name] = tr
	}

	disableRestrictions := sess.Steps.MigratePlaindata || sess.Steps.MigrateLobdata
	if disableRestrictions {
		if stmt := plaindata.SessionSetupStatement(target.Dialect()); stmt != "" {
			if _, err := target.Execute(ctx, stmt); err != nil {
				o.Logger.Warn("disable restrictions failed", "error", err)
			}
		}
	}

	newSourceConn := func() (rdbms.Client, error) { return factory.Connected(ctx, sess.Connections[sess.Spots.SourceRDBMS]) }
	newTargetConn := func() (rdbms.Client, error) { return factory.Connected(ctx, sess.Connections[sess.Spots.TargetRDBMS]) }

	if sess.Steps.MigratePlaindata {
		o.runPlaindata(ctx, source, target, newSourceConn, newTargetConn, sess, descriptors, tableReports, abort, report)
	}

	if sess.Steps.MigrateLobdata {
		o.runLobdata(ctx, source, target, store, sess, descriptors, tableReports, abort, report)
	}

	if sess.Steps.SynchronizePlaindata {
		o.runSync(ctx, source, target, store, sess, descriptors, tableReports, report)
	}

	if disableRestrictions {
		if stmt := restoreStatement(target.Dialect()); stmt != "" {
			if _, err := target.Execute(ctx, stmt); err != nil {
				o.Logger.Warn("restore restrictions failed", "error", err)
			}
		}
	}

	for _, d := range descriptors {
		report.Tables = append(report.Tables, *tableReports[d.Name])
	}

	return o.finish(sessionID, report, nil)
}

func (o *Orchestrator) finish(sessionID string, report *Report, err error) (*Report, error) {
	report.FinishedAt = time.Now()
	finalState := session.StateFinished
	if o.Sessions.AssertAbort(sessionID) {
		finalState = session.StateAborted
	}
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
	}
	report.FinalState = string(finalState)
	o.Sessions.SetState(sessionID, finalState)
	return report, err
}

func (o *Orchestrator) connect(ctx context.Context, sess *session.Session) (rdbms.Client, rdbms.Client, objectstore.Client, error) {
	source, err := factory.Connected(ctx, sess.Connections[sess.Spots.SourceRDBMS])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect source: %w", err)
	}
	target, err := factory.Connected(ctx, sess.Connections[sess.Spots.TargetRDBMS])
	if err != nil {
		source.Close()
		return nil, nil, nil, fmt.Errorf("connect target: %w", err)
	}
	var store objectstore.Client
	if sess.Spots.TargetS3Set && sess.S3Config != nil {
		s3Client, err := objectstores3.New(ctx, *sess.S3Config)
		if err != nil {
			source.Close()
			target.Close()
			return nil, nil, nil, fmt.Errorf("connect object store: %w", err)
		}
		store = s3Client
	}
	return source, target, store, nil
}

func (o *Orchestrator) runPlaindata(ctx context.Context, source, target rdbms.Client, newSourceConn, newTargetConn func() (rdbms.Client, error), sess *session.Session, descriptors []metadata.TableDescriptor, tableReports map[string]*TableReport, abort func() bool, report *Report) {
	for _, desc := range descriptors {
		start := time.Now()
		hasNulls := contains(sess.Specs.RemoveNulls, desc.Name)
		spec := plaindata.Spec{
			Table:        desc,
			SkipNonempty: sess.Specs.SkipNonempty,
			HasNulls:     hasNulls,
			BatchSizeIn:  int(sess.Metrics.BatchSizeIn),
			BatchSizeOut: int(sess.Metrics.BatchSizeOut),
			Channels:     sess.Metrics.PlaindataChannels,
			ChannelSize:  sess.Metrics.IncrementalSize,
		}
		result, err := plaindata.Transfer(ctx, source, target, newSourceConn, newTargetConn, spec, abort)
		tr := tableReports[desc.Name]
		tr.PlaindataStatus = result.Status
		tr.PlaindataRows = result.RowsCopied
		tr.Duration += time.Since(start)
		tr.rowsForThroughput += result.RowsCopied
		report.TotalPlaindataRows += result.RowsCopied
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
		}
		if abort() {
			return
		}
	}
}

func (o *Orchestrator) runLobdata(ctx context.Context, source, target rdbms.Client, store objectstore.Client, sess *session.Session, descriptors []metadata.TableDescriptor, tableReports map[string]*TableReport, abort func() bool, report *Report) {
	for _, desc := range descriptors {
		if abort() {
			return
		}
		for _, col := range desc.Columns {
			if !col.Source.IsLOB() {
				continue
			}
			ref := sess.Specs.NamedLobdata[desc.Name+"."+col.Name]
			lobSpec := lobdata.Spec{
				Table:          desc.Name,
				Column:         col.Name,
				HasPrimaryKey:  desc.HasPrimaryKey(),
				PKColumns:      primaryKeyNames(desc),
				Ref:            ref,
				MigrationBadge: sess.Specs.MigrationBadge,
				ToSchema:       sess.Specs.ToSchema,
				SkipNonempty:   sess.Specs.SkipNonempty,
				FlattenStorage: sess.Specs.FlattenStorage,
				ChunkSize:      int(sess.Metrics.ChunkSize),
			}

			var result lobdata.Result
			var err error
			if store != nil {
				result, err = lobdata.TransferToS3(ctx, source, store, lobSpec, abort)
			} else {
				result, err = lobdata.TransferToRDBMS(ctx, source, target, lobSpec, abort)
			}

			tr := tableReports[desc.Name]
			tr.LOBColumns = append(tr.LOBColumns, LOBColumnReport{
				Column:   col.Name,
				Status:   result.Status,
				Migrated: result.Migrated,
				Warning:  result.Warning,
			})
			tr.rowsForThroughput += result.Migrated
			report.TotalLOBObjects += result.Migrated
			if err != nil {
				report.Errors = append(report.Errors, err.Error())
			}
		}
	}
}

func (o *Orchestrator) runSync(ctx context.Context, source, target rdbms.Client, store objectstore.Client, sess *session.Session, descriptors []metadata.TableDescriptor, tableReports map[string]*TableReport, report *Report) {
	for _, desc := range descriptors {
		pk := primaryKeyNames(desc)
		if len(pk) == 0 {
			continue
		}
		var syncCols []string
		for _, c := range desc.Columns {
			if c.Source.PrimaryKey || c.Source.IsLOB() {
				continue
			}
			syncCols = append(syncCols, c.Name)
		}
		identity := ""
		if col, ok := hasIdentity(desc); ok {
			identity = col
		}
		plan := rdbms.SyncPlan{
			Table:          desc.Name,
			PKColumns:      pk,
			SyncColumns:    syncCols,
			IdentityColumn: identity,
		}
		result, err := syncop.SyncPlaindata(ctx, target, source, plan)
		tr := tableReports[desc.Name]
		tr.SyncResult = &result
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
		}

		if store != nil {
			for _, col := range desc.Columns {
				if !col.Source.IsLOB() {
					continue
				}
				ref := sess.Specs.NamedLobdata[desc.Name+"."+col.Name]
				refCol := ref.Column
				if refCol == "" {
					refCol = pk[0]
				}
				lobPlan := rdbms.LOBSyncPlan{
					Table:     desc.Name,
					Column:    col.Name,
					RefColumn: refCol,
					S3Prefix:  lobdata.BuildS3Prefix(sess.Specs.MigrationBadge, sess.Specs.ToSchema, desc.Name, col.Name),
					FileExt:   ref.FileExt,
					ChunkSize: int(sess.Metrics.ChunkSize),
				}
				lobResult, err := syncop.SyncLOB(ctx, source, store, syncop.LOBSyncSpec{
					Plan:           lobPlan,
					MigrationBadge: sess.Specs.MigrationBadge,
					ToSchema:       sess.Specs.ToSchema,
					FlattenStorage: sess.Specs.FlattenStorage,
					HasPrimaryKey:  desc.HasPrimaryKey(),
					PKColumns:      pk,
				})
				if err != nil {
					report.Errors = append(report.Errors, err.Error())
					continue
				}
				tr.LOBColumns = append(tr.LOBColumns, LOBColumnReport{
					Column:   col.Name,
					Status:   "synced",
					Migrated: lobResult.Uploaded,
				})
				report.TotalLOBObjects += lobResult.Uploaded
			}
		}
	}
}

func primaryKeyNames(desc metadata.TableDescriptor) []string {
	var pk []string
	for _, c := range desc.Columns {
		if c.Source.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

func hasIdentity(desc metadata.TableDescriptor) (string, bool) {
	for _, c := range desc.Columns {
		if c.Source.Identity.IsIdentity {
			return c.Name, true
		}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
