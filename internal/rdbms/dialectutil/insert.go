package dialectutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// BatchedInsert drains rows from in and writes them to table in batches of
// batchSize, building a multi-row INSERT per batch. This backs
// rdbms.Client.BulkInsert for every dialect (spec §4.C step 5:
// "invokes the bulk migrate primitive with batch_size_in read-side and
// batch_size_out write-side").
func BatchedInsert(ctx context.Context, db *sql.DB, style PlaceholderStyle, table string, columns []string, in <-chan []any, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	var total int64
	batch := make([][]any, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		stmt, args := buildMultiInsert(style, table, columns, batch)
		res, err := db.ExecContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("bulk_insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
		batch = batch[:0]
		return nil
	}

	for row := range in {
		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func buildMultiInsert(style PlaceholderStyle, table string, columns []string, rows [][]any) (string, []any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	args := make([]any, 0, len(rows)*len(columns))
	n := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, v := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(Placeholder(style, n))
			n++
			args = append(args, v)
		}
		sb.WriteString(")")
	}
	return sb.String(), args
}
