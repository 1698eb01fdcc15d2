// Package plaindata implements the plaindata transfer component
// (spec.md §4.C, component C): partitioning a table's non-LOB rows into
// channels, copying them with a worker pool grounded on
// golang.org/x/sync/errgroup, and aggregating per-table counts and
// errors.
package plaindata

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/thewisecoder/dbrief/internal/metadata"
	"github.com/thewisecoder/dbrief/internal/rdbms"
	"github.com/thewisecoder/dbrief/internal/rdbms/dialectutil"
)

// Status values for Result.Status.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Spec carries the per-table transfer configuration (spec §4.C).
type Spec struct {
	Table          metadata.TableDescriptor
	Offset         int64
	SkipNonempty   bool
	HasNulls       bool // table is listed in remove_nulls
	BatchSizeIn    int
	BatchSizeOut   int
	Channels       int
	ChannelSize    int64
}

// Result is the per-table outcome (spec §4.C: "plain-status", counts,
// errors).
type Result struct {
	Table      string
	Status     string
	RowsCopied int64
	Errors     []string
}

// columnNames returns the non-LOB source/target column name pairs, the
// PK/order-by columns, and the identity column name (spec §4.C step 3:
// "Build source and target column lists, excluding LOB-typed columns and
// escaping reserved words in the target. Identify the identity column
// (if any) and any primary-key columns").
func columnNames(sourceDialect, targetDialect rdbms.Dialect, desc metadata.TableDescriptor) (sourceCols, targetCols, pkCols []string, identityCol string) {
	for _, c := range desc.Columns {
		if c.Source.IsLOB() {
			continue
		}
		sourceCols = append(sourceCols, c.Name)
		targetCols = append(targetCols, metadata.QuoteIdent(targetDialect, c.Name))
		if c.Source.PrimaryKey {
			pkCols = append(pkCols, c.Name)
		}
		if c.Source.Identity.IsIdentity {
			identityCol = c.Name
		}
	}
	return
}

// ComputePartitions builds the (offset, limit) tuples for total rows
// (already excluding rows before Offset), sized by channels/channelSize;
// the final partition is unbounded so residual rows land in exactly one
// worker (spec §4.C step 4).
func ComputePartitions(offset int64, channels int, channelSize int64) []rdbms.Partition {
	if channels <= 0 {
		channels = 1
	}
	if channelSize <= 0 {
		channelSize = 100000
	}
	partitions := make([]rdbms.Partition, 0, channels)
	for i := 0; i < channels; i++ {
		off := offset + int64(i)*channelSize
		if i == channels-1 {
			partitions = append(partitions, rdbms.Partition{Offset: off, Limit: 0})
			break
		}
		partitions = append(partitions, rdbms.Partition{Offset: off, Limit: channelSize})
	}
	return partitions
}

// SessionSetupStatement returns the per-dialect session-level statement
// applied before a worker's bulk copy (spec §4.C step 5).
func SessionSetupStatement(d rdbms.Dialect) string {
	switch d {
	case rdbms.DialectPostgres:
		return "SET session_replication_role = replica"
	case rdbms.DialectOracle:
		return "ALTER SESSION SET NLS_SORT = BINARY NLS_COMP = BINARY"
	case rdbms.DialectMySQL:
		return "SET SESSION DISABLE_TRIGGERS = 1"
	default:
		return ""
	}
}

// nulSignature is the substring MySQL/Postgres/Oracle drivers surface
// when a text value carries an embedded NUL byte the target rejects
// (spec §4.C step 6's "string contains NUL" signature).
const nulSignature = "string contains nul"

// Transfer copies spec.Table's non-LOB rows from source to target using
// AbortFunc to probe cooperative cancellation at the top of the
// per-channel loop (spec §5: "probe ... at the top of the per-channel
// loop"). Each worker opens its own connections via newSource/newTarget.
func Transfer(ctx context.Context, source, target rdbms.Client, newSourceConn, newTargetConn func() (rdbms.Client, error), spec Spec, abort func() bool) (Result, error) {
	result := Result{Table: spec.Table.Name}

	if abort != nil && abort() {
		result.Status = StatusSkipped
		return result, nil
	}

	sourceCols, targetCols, pkCols, _ := columnNames(source.Dialect(), target.Dialect(), spec.Table)
	if len(sourceCols) == 0 {
		result.Status = StatusSkipped
		return result, nil
	}

	if spec.SkipNonempty && spec.Offset == 0 {
		nonEmpty, err := isNonEmpty(ctx, target, spec.Table.Name)
		if err != nil {
			result.Status = StatusError
			result.Errors = append(result.Errors, err.Error())
			return result, err
		}
		if nonEmpty {
			result.Status = StatusSkipped
			return result, nil
		}
	}

	countQuery := dialectutil.CountWithOffsetQuery(source.Dialect(), spec.Table.Name, spec.Offset)
	total, err := source.Count(ctx, countQuery)
	if err != nil {
		result.Status = StatusError
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	if total == 0 {
		result.Status = StatusOK
		return result, nil
	}

	partitions := ComputePartitions(spec.Offset, spec.Channels, spec.ChannelSize)

	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)

	for _, part := range partitions {
		part := part
		group.Go(func() error {
			if abort != nil && abort() {
				return nil
			}
			workerSource, err := newSourceConn()
			if err != nil {
				return fmt.Errorf("table %s: open source connection: %w", spec.Table.Name, err)
			}
			defer workerSource.Close()
			workerTarget, err := newTargetConn()
			if err != nil {
				return fmt.Errorf("table %s: open target connection: %w", spec.Table.Name, err)
			}
			defer workerTarget.Close()

			if stmt := SessionSetupStatement(workerTarget.Dialect()); stmt != "" {
				if _, err := workerTarget.Execute(gctx, stmt); err != nil {
					return fmt.Errorf("table %s: session setup: %w", spec.Table.Name, err)
				}
			}

			n, err := copyPartition(gctx, workerSource, workerTarget, spec, sourceCols, targetCols, pkCols, part)
			mu.Lock()
			result.RowsCopied += n
			mu.Unlock()
			if err != nil {
				if isNULError(err) {
					return fmt.Errorf("table %s: %w (add %q to remove_nulls and retry)", spec.Table.Name, err, spec.Table.Name)
				}
				return fmt.Errorf("table %s: %w", spec.Table.Name, err)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		result.Status = StatusError
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}

	result.Status = StatusOK
	return result, nil
}

func copyPartition(ctx context.Context, source, target rdbms.Client, spec Spec, sourceCols, targetCols, pkCols []string, part rdbms.Partition) (int64, error) {
	orderBy := ""
	if len(pkCols) > 0 {
		orderBy = " ORDER BY " + strings.Join(pkCols, ", ")
	} else if dialectutil.RequiresOrderByForPagination(source.Dialect()) {
		orderBy = dialectutil.OrderByOrdinal()
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(sourceCols, ", "), spec.Table.Name, orderBy)
	query += dialectutil.PaginationClause(source.Dialect(), part.Limit, part.Offset)

	rows, err := source.Select(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	in := make(chan []any, spec.BatchSizeIn)
	errc := make(chan error, 1)
	go func() {
		defer close(in)
		for rows.Next() {
			vals := make([]any, len(sourceCols))
			ptrs := make([]any, len(sourceCols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				errc <- err
				return
			}
			if spec.HasNulls {
				stripNULs(vals)
			}
			select {
			case in <- vals:
			case <-ctx.Done():
				return
			}
		}
		errc <- rows.Err()
	}()

	n, insertErr := target.BulkInsert(ctx, spec.Table.Name, targetCols, in, spec.BatchSizeOut)
	if scanErr := <-errc; scanErr != nil {
		return n, scanErr
	}
	return n, insertErr
}

func stripNULs(vals []any) {
	for i, v := range vals {
		switch s := v.(type) {
		case string:
			vals[i] = strings.ReplaceAll(s, "\x00", "")
		case []byte:
			vals[i] = []byte(strings.ReplaceAll(string(s), "\x00", ""))
		}
	}
}

func isNULError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), nulSignature)
}

func isNonEmpty(ctx context.Context, target rdbms.Client, table string) (bool, error) {
	n, err := target.Count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
