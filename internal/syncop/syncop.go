// Package syncop implements the reconciliation component (spec.md §4.E,
// component E): plaindata sync delegates to the already-migrated
// table's Client.Sync primitive; LOB sync computes the symmetric
// difference between a table's reference-column values and the
// matching S3 prefix's object keys by sorted merge, then uploads the
// missing objects and deletes the orphaned ones.
package syncop

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/thewisecoder/dbrief/internal/objectstore"
	"github.com/thewisecoder/dbrief/internal/rdbms"
	"github.com/thewisecoder/dbrief/internal/transfer/lobdata"
)

// SyncPlaindata reconciles one already-migrated table by delegating to
// the target dialect's Sync primitive (spec §4.E "Plaindata sync": the
// plan's PK+sync-column rows are compared to the source and deletes,
// inserts and updates applied to the target).
func SyncPlaindata(ctx context.Context, target, source rdbms.Client, plan rdbms.SyncPlan) (rdbms.SyncResult, error) {
	return target.Sync(ctx, plan, source)
}

// LOBSyncResult reports the object-store reconciliation outcome.
type LOBSyncResult struct {
	Table, Column string
	Uploaded      int64
	Deleted       int64
}

// LOBSyncSpec carries the parameters syncop needs beyond rdbms.LOBSyncPlan
// to reuse lobdata's upload path (badge/schema identify the S3 prefix
// the same way the initial migration built it).
type LOBSyncSpec struct {
	Plan           rdbms.LOBSyncPlan
	MigrationBadge string
	ToSchema       string
	FlattenStorage bool
	HasPrimaryKey  bool
	PKColumns      []string
}

// SyncLOB implements spec §4.E "LOB sync": it sorts the source table's
// non-null reference-column values and the S3 prefix's existing object
// keys (stripped to their bare reference value), then walks both lists
// in lockstep — a merge-join, not an O(n*m) comparison — to find
// references missing from S3 (to upload) and objects with no matching
// reference row left (to delete).
func SyncLOB(ctx context.Context, source rdbms.Client, store objectstore.Client, spec LOBSyncSpec) (LOBSyncResult, error) {
	plan := spec.Plan
	result := LOBSyncResult{Table: plan.Table, Column: plan.Column}

	dbRefs, err := loadReferenceValues(ctx, source, plan)
	if err != nil {
		return result, fmt.Errorf("sync lob %s.%s: read source refs: %w", plan.Table, plan.Column, err)
	}
	sort.Strings(dbRefs)

	objs, err := store.List(ctx, plan.S3Prefix)
	if err != nil {
		return result, fmt.Errorf("sync lob %s.%s: list %s: %w", plan.Table, plan.Column, plan.S3Prefix, err)
	}
	s3Refs := make([]string, 0, len(objs))
	keyByRef := make(map[string]string, len(objs))
	for _, o := range objs {
		ref := refFromKey(o.Key, plan.S3Prefix, plan.FileExt)
		s3Refs = append(s3Refs, ref)
		keyByRef[ref] = o.Key
	}
	sort.Strings(s3Refs)

	missing, orphaned := mergeDiff(dbRefs, s3Refs)

	if len(missing) > 0 {
		uploadSpec := lobdata.Spec{
			Table:          plan.Table,
			Column:         plan.Column,
			HasPrimaryKey:  spec.HasPrimaryKey,
			PKColumns:      spec.PKColumns,
			Ref:            rdbms.RefSpec{Column: plan.RefColumn, FileExt: plan.FileExt},
			MigrationBadge: spec.MigrationBadge,
			ToSchema:       spec.ToSchema,
			FlattenStorage: spec.FlattenStorage,
			ChunkSize:      plan.ChunkSize,
		}
		uploadResult, err := lobdata.TransferExplicitToS3(ctx, source, store, uploadSpec, missing)
		if err != nil {
			return result, fmt.Errorf("sync lob %s.%s: upload missing: %w", plan.Table, plan.Column, err)
		}
		result.Uploaded = uploadResult.Migrated
	}

	if len(orphaned) > 0 {
		keys := make([]string, 0, len(orphaned))
		for _, ref := range orphaned {
			keys = append(keys, keyByRef[ref])
		}
		if err := store.Delete(ctx, keys); err != nil {
			return result, fmt.Errorf("sync lob %s.%s: delete orphaned: %w", plan.Table, plan.Column, err)
		}
		result.Deleted = int64(len(keys))
	}

	return result, nil
}

// mergeDiff walks two sorted string slices and returns the elements
// present only in a ("missing" from b) and only in b ("orphaned" in b).
func mergeDiff(a, b []string) (onlyA, onlyB []string) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			i++
			j++
		case a[i] < b[j]:
			onlyA = append(onlyA, a[i])
			i++
		default:
			onlyB = append(onlyB, b[j])
			j++
		}
	}
	onlyA = append(onlyA, a[i:]...)
	onlyB = append(onlyB, b[j:]...)
	return
}

func loadReferenceValues(ctx context.Context, source rdbms.Client, plan rdbms.LOBSyncPlan) ([]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL", plan.RefColumn, plan.Table, plan.Column)
	rows, err := source.Select(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		refs = append(refs, fmt.Sprintf("%v", v))
	}
	return refs, rows.Err()
}

// refFromKey strips prefix and any configured extension from an object
// key, recovering the bare reference value it was built from
// (lobdata.BuildObjectKey's inverse).
func refFromKey(key, prefix, ext string) string {
	ref := strings.TrimPrefix(key, prefix+"/")
	if ext != "" {
		ref = strings.TrimSuffix(ref, "."+ext)
	}
	return ref
}
