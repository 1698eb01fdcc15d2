package dialectutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/thewisecoder/dbrief/internal/rdbms"
)

// GenericSync implements the plaindata sync primitive (spec §4.E
// "Plaindata sync") over two database/sql connections: it loads
// pk+sync-column rows from both sides, keyed by the concatenated PK, and
// computes the delete/insert/update sets by set difference plus
// column-wise comparison.
//
// This is intentionally a two-pass, in-memory comparison rather than a
// server-side MERGE/diff: the narrow rdbms.Client interface is the
// engine's only contract with a dialect, and a portable implementation
// here means every dialect gets sync for free.
func GenericSync(ctx context.Context, targetDB *sql.DB, style PlaceholderStyle, plan rdbms.SyncPlan, source rdbms.Client) (rdbms.SyncResult, error) {
	allCols := append(append([]string{}, plan.PKColumns...), plan.SyncColumns...)
	if len(plan.PKColumns) == 0 {
		return rdbms.SyncResult{}, fmt.Errorf("sync %s: table has no primary key, cannot reconcile", plan.Table)
	}

	srcRows, err := loadKeyedRows(ctx, func(q string, a ...any) (rowsIter, error) {
		rows, err := source.Select(ctx, q, a...)
		return rows, err
	}, plan.Table, allCols, len(plan.PKColumns))
	if err != nil {
		return rdbms.SyncResult{}, fmt.Errorf("sync %s: read source: %w", plan.Table, err)
	}

	tgtRows, err := loadKeyedRows(ctx, func(q string, a ...any) (rowsIter, error) {
		return targetDB.QueryContext(ctx, q, a...)
	}, plan.Table, allCols, len(plan.PKColumns))
	if err != nil {
		return rdbms.SyncResult{}, fmt.Errorf("sync %s: read target: %w", plan.Table, err)
	}

	var result rdbms.SyncResult
	nPK := len(plan.PKColumns)

	for key, tgtRow := range tgtRows {
		if _, ok := srcRows[key]; !ok {
			if err := deleteByPK(ctx, targetDB, style, plan.Table, plan.PKColumns, tgtRow[:nPK]); err != nil {
				return result, err
			}
			result.Deletes++
		}
	}

	for key, srcRow := range srcRows {
		tgtRow, ok := tgtRows[key]
		if !ok {
			cols := allCols
			if err := insertRow(ctx, targetDB, style, plan.Table, cols, srcRow); err != nil {
				return result, err
			}
			result.Inserts++
			continue
		}
		if plan.CorrelateOnly {
			continue
		}
		if !rowsEqual(srcRow[nPK:], tgtRow[nPK:]) {
			if err := updateRow(ctx, targetDB, style, plan.Table, plan.PKColumns, plan.SyncColumns, srcRow); err != nil {
				return result, err
			}
			result.Updates++
		}
	}

	return result, nil
}

// rowsIter is the minimal surface GenericSync needs from *sql.Rows,
// satisfied by both database/sql directly and by rdbms.Client.Select.
type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func loadKeyedRows(ctx context.Context, query func(string, ...any) (rowsIter, error), table string, cols []string, nPK int) (map[string][]any, error) {
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table)
	rows, err := query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]any)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		key := rowKey(vals[:nPK])
		out[key] = vals
	}
	return out, rows.Err()
}

func rowKey(pk []any) string {
	parts := make([]string, len(pk))
	for i, v := range pk {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, "\x00")
}

func rowsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if fmt.Sprintf("%v", a[i]) != fmt.Sprintf("%v", b[i]) {
			return false
		}
	}
	return true
}

func deleteByPK(ctx context.Context, db *sql.DB, style PlaceholderStyle, table string, pkCols []string, pkVals []any) error {
	var where []string
	for i, c := range pkCols {
		where = append(where, fmt.Sprintf("%s = %s", c, Placeholder(style, i+1)))
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", table, strings.Join(where, " AND "))
	_, err := db.ExecContext(ctx, stmt, pkVals...)
	return err
}

func insertRow(ctx context.Context, db *sql.DB, style PlaceholderStyle, table string, cols []string, vals []any) error {
	phs := make([]string, len(cols))
	for i := range cols {
		phs[i] = Placeholder(style, i+1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(phs, ", "))
	_, err := db.ExecContext(ctx, stmt, vals...)
	return err
}

func updateRow(ctx context.Context, db *sql.DB, style PlaceholderStyle, table string, pkCols, syncCols []string, row []any) error {
	nPK := len(pkCols)
	var sets []string
	for i, c := range syncCols {
		sets = append(sets, fmt.Sprintf("%s = %s", c, Placeholder(style, i+1)))
	}
	var where []string
	for i, c := range pkCols {
		where = append(where, fmt.Sprintf("%s = %s", c, Placeholder(style, len(syncCols)+i+1)))
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), strings.Join(where, " AND "))
	args := append(append([]any{}, row[nPK:]...), row[:nPK]...)
	_, err := db.ExecContext(ctx, stmt, args...)
	return err
}
