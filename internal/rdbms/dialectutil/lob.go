package dialectutil

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/thewisecoder/dbrief/internal/rdbms"
)

// rowsLOBReader adapts a *sql.Rows of (single LOB column) results into an
// io.ReadCloser that concatenates every row's bytes, used by
// rdbms.Client.StreamLOB. chunkSize bounds how much of the current row's
// remaining bytes are copied per Read call, keeping memory bounded
// (spec §4.D step 3: "Workers stream LOB bytes chunked by chunk_size").
type rowsLOBReader struct {
	rows      *sql.Rows
	chunkSize int
	current   []byte
}

// NewRowsLOBReader wraps rows (expected to select exactly one LOB column)
// into a streaming reader.
func NewRowsLOBReader(rows *sql.Rows, chunkSize int) io.ReadCloser {
	if chunkSize <= 0 {
		chunkSize = 1 << 20
	}
	return &rowsLOBReader{rows: rows, chunkSize: chunkSize}
}

func (r *rowsLOBReader) Read(p []byte) (int, error) {
	for len(r.current) == 0 {
		if !r.rows.Next() {
			if err := r.rows.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		var raw []byte
		if err := r.rows.Scan(&raw); err != nil {
			return 0, err
		}
		r.current = raw
	}
	n := len(p)
	if n > len(r.current) {
		n = len(r.current)
	}
	if n > r.chunkSize {
		n = r.chunkSize
	}
	copy(p, r.current[:n])
	r.current = r.current[n:]
	return n, nil
}

func (r *rowsLOBReader) Close() error {
	return r.rows.Close()
}

// GenericMigrateLOB streams LOB cells for (table, column) from source and
// writes each to targetDB, scoped by partition and ordered by the
// reference column (the LOB column itself when ref names none).
func GenericMigrateLOB(ctx context.Context, targetDB *sql.DB, style PlaceholderStyle, source rdbms.Client, table, column string, ref rdbms.RefSpec, partition rdbms.Partition, chunkSize int) (int64, error) {
	refCol := ref.Column
	if refCol == "" {
		refCol = column // no stable reference: key updates by the LOB column's own row order is unsupported, caller must supply a PK-backed ref
	}
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IS NOT NULL ORDER BY %s", refCol, column, table, column, refCol)
	query += PaginationClause(source.Dialect(), partition.Limit, partition.Offset)

	rows, err := source.Select(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("migrate_lob select from %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var n int64
	for rows.Next() {
		var refVal any
		var payload []byte
		if err := rows.Scan(&refVal, &payload); err != nil {
			return n, err
		}
		stmt := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
			table, column, Placeholder(style, 1), refCol, Placeholder(style, 2))
		if _, err := targetDB.ExecContext(ctx, stmt, payload, refVal); err != nil {
			return n, fmt.Errorf("migrate_lob write to %s.%s: %w", table, column, err)
		}
		n++
	}
	return n, rows.Err()
}

// BuildFilterTableName and related helpers support spec §4.D step 4(iii):
// materializing a temporary filter table of reference-column values so a
// worker's WHERE clause for an explicit sublist (used by sync inserts)
// stays small instead of embedding thousands of literal values.
func BuildFilterTableName(table, column string) string {
	return fmt.Sprintf("tmp_lobfilter_%s_%s", sanitizeIdent(table), sanitizeIdent(column))
}

func sanitizeIdent(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

// CreateFilterTable creates a temporary single-column table on targetDB
// holding refValues, to be joined against in the explicit-sublist LOB
// migration path.
func CreateFilterTable(ctx context.Context, targetDB *sql.DB, style PlaceholderStyle, name string, refValues []any) error {
	if _, err := targetDB.ExecContext(ctx, fmt.Sprintf("CREATE TEMPORARY TABLE %s (ref_value VARCHAR(512))", name)); err != nil {
		return fmt.Errorf("create filter table %s: %w", name, err)
	}
	for _, v := range refValues {
		stmt := fmt.Sprintf("INSERT INTO %s (ref_value) VALUES (%s)", name, Placeholder(style, 1))
		if _, err := targetDB.ExecContext(ctx, stmt, v); err != nil {
			return fmt.Errorf("populate filter table %s: %w", name, err)
		}
	}
	return nil
}

// DropFilterTable removes a temporary filter table created by
// CreateFilterTable.
func DropFilterTable(ctx context.Context, targetDB *sql.DB, name string) error {
	_, err := targetDB.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s", name))
	return err
}
