package dialectutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thewisecoder/dbrief/internal/rdbms"
)

func TestRequiresOrderByForPagination(t *testing.T) {
	cases := map[rdbms.Dialect]bool{
		rdbms.DialectMySQL:     false,
		rdbms.DialectPostgres:  false,
		rdbms.DialectOracle:    true,
		rdbms.DialectSQLServer: true,
	}
	for dialect, want := range cases {
		assert.Equal(t, want, RequiresOrderByForPagination(dialect), "dialect %s", dialect)
	}
}

func TestPaginationClause_MySQL(t *testing.T) {
	assert.Equal(t, " LIMIT 50 OFFSET 100", PaginationClause(rdbms.DialectMySQL, 50, 100))
	assert.Equal(t, " LIMIT 18446744073709551615 OFFSET 100", PaginationClause(rdbms.DialectMySQL, 0, 100))
}

func TestPaginationClause_Postgres(t *testing.T) {
	assert.Equal(t, " LIMIT 50 OFFSET 100", PaginationClause(rdbms.DialectPostgres, 50, 100))
	assert.Equal(t, " OFFSET 100", PaginationClause(rdbms.DialectPostgres, 0, 100))
}

func TestPaginationClause_Oracle(t *testing.T) {
	assert.Equal(t, " OFFSET 100 ROWS FETCH NEXT 50 ROWS ONLY", PaginationClause(rdbms.DialectOracle, 50, 100))
	assert.Equal(t, " OFFSET 100 ROWS", PaginationClause(rdbms.DialectOracle, 0, 100))
}

func TestPaginationClause_SQLServer(t *testing.T) {
	assert.Equal(t, " OFFSET 100 ROWS FETCH NEXT 50 ROWS ONLY", PaginationClause(rdbms.DialectSQLServer, 50, 100))
	assert.Equal(t, " OFFSET 100 ROWS", PaginationClause(rdbms.DialectSQLServer, 0, 100))
}

func TestOrderByOrdinal(t *testing.T) {
	assert.Equal(t, " ORDER BY 1", OrderByOrdinal())
}

func TestCountWithOffsetQuery_ZeroOffsetIsBareCount(t *testing.T) {
	assert.Equal(t, "SELECT COUNT(*) FROM emp", CountWithOffsetQuery(rdbms.DialectOracle, "emp", 0))
}

func TestCountWithOffsetQuery_OracleOrdersBeforeOffset(t *testing.T) {
	q := CountWithOffsetQuery(rdbms.DialectOracle, "emp", 100)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT * FROM emp ORDER BY 1 OFFSET 100 ROWS) t", q)
}

func TestCountWithOffsetQuery_PostgresNoOrderByNeeded(t *testing.T) {
	q := CountWithOffsetQuery(rdbms.DialectPostgres, "emp", 100)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT * FROM emp OFFSET 100) t", q)
}

func TestCountWithOffsetQuery_MySQLUsesNoLimitSentinel(t *testing.T) {
	q := CountWithOffsetQuery(rdbms.DialectMySQL, "emp", 100)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT * FROM emp LIMIT 18446744073709551615 OFFSET 100) t", q)
}
