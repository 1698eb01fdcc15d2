package dialectutil

import (
	"fmt"

	"github.com/thewisecoder/dbrief/internal/rdbms"
)

// RequiresOrderByForPagination reports whether d's row-windowing syntax
// mandates a preceding ORDER BY. MySQL's LIMIT/OFFSET and PostgreSQL's
// LIMIT/OFFSET tolerate an unordered result set (non-deterministic, but
// not a syntax error); Oracle's and SQL Server's standard OFFSET ...
// FETCH NEXT form rejects an OFFSET/FETCH with no ORDER BY outright.
func RequiresOrderByForPagination(d rdbms.Dialect) bool {
	return d == rdbms.DialectOracle || d == rdbms.DialectSQLServer
}

// PaginationClause returns the dialect-specific SQL suffix windowing a
// query already terminated by ORDER BY (when RequiresOrderByForPagination
// is true for d) to [offset, offset+limit) rows, or to every row from
// offset onward when limit is 0 (spec §4.C step 4 / §4.D step 1: worker
// partitions are offset/limit windows).
//
// MySQL has no bare OFFSET: an unlimited window is spelled with the
// driver's documented "no limit" sentinel, LIMIT 18446744073709551615.
// PostgreSQL accepts a bare OFFSET. Oracle (12c+) and SQL Server both
// use the standard OFFSET n ROWS [FETCH NEXT m ROWS ONLY] form.
func PaginationClause(d rdbms.Dialect, limit, offset int64) string {
	switch d {
	case rdbms.DialectOracle, rdbms.DialectSQLServer:
		if limit > 0 {
			return fmt.Sprintf(" OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, limit)
		}
		return fmt.Sprintf(" OFFSET %d ROWS", offset)
	case rdbms.DialectMySQL:
		if limit > 0 {
			return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
		}
		return fmt.Sprintf(" LIMIT 18446744073709551615 OFFSET %d", offset)
	default: // PostgreSQL
		if limit > 0 {
			return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
		}
		return fmt.Sprintf(" OFFSET %d", offset)
	}
}

// OrderByOrdinal returns an ORDER BY clause ordering by the query's first
// selected column by ordinal position ("ORDER BY 1"), standard SQL
// supported by all four dialects — used as the pagination order when a
// query has no natural key to order by (e.g. no primary key) but targets
// a dialect where RequiresOrderByForPagination is true.
func OrderByOrdinal() string {
	return " ORDER BY 1"
}

// CountWithOffsetQuery builds a "how many rows remain from offset
// onward" count query, windowing an inner SELECT * the same way
// PaginationClause windows a data query, so the count matches what the
// paginated SELECT will actually return for every dialect.
func CountWithOffsetQuery(d rdbms.Dialect, table string, offset int64) string {
	if offset <= 0 {
		return fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	}
	orderBy := ""
	if RequiresOrderByForPagination(d) {
		orderBy = OrderByOrdinal()
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM (SELECT * FROM %s%s%s) t", table, orderBy, PaginationClause(d, 0, offset))
}
