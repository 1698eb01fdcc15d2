package metadata

import (
	"fmt"
	"strings"

	"github.com/thewisecoder/dbrief/internal/rdbms"
	"github.com/thewisecoder/dbrief/internal/typeequiv"
)

// reservedWords is a conservative set of SQL reserved words the plaindata
// transfer step must quote when they appear as column names (spec §4.C
// step 3: "escaping reserved words in the target").
var reservedWords = map[string]bool{
	"user": true, "order": true, "group": true, "table": true, "select": true,
	"where": true, "level": true, "date": true, "comment": true, "number": true,
	"index": true, "primary": true, "key": true, "column": true, "unique": true,
}

// QuoteIdent quotes name for dialect if it collides with a reserved word,
// otherwise returns it unchanged.
func QuoteIdent(dialect rdbms.Dialect, name string) string {
	if !reservedWords[strings.ToLower(name)] {
		return name
	}
	switch dialect {
	case rdbms.DialectMySQL:
		return "`" + name + "`"
	case rdbms.DialectSQLServer:
		return "[" + name + "]"
	default:
		return `"` + name + `"`
	}
}

// renderColumnType spells out stem plus its length/precision/scale
// suffix, e.g. "varchar(255)", "decimal(10,2)".
func renderColumnType(r typeequiv.Resolved) string {
	stem := string(r.Stem)
	switch {
	case r.LengthSet && r.Length > 0 && !strings.Contains(stem, "("):
		return fmt.Sprintf("%s(%d)", stem, r.Length)
	case r.PrecisionSet && r.ScaleSet:
		return fmt.Sprintf("%s(%d,%d)", stem, r.Precision, r.Scale)
	case r.PrecisionSet:
		return fmt.Sprintf("%s(%d)", stem, r.Precision)
	default:
		return stem
	}
}

// renderCreateTable builds a CREATE TABLE statement for dialect from the
// resolved column set, with inline PRIMARY KEY/NOT NULL clauses and a
// Postgres/Oracle-appropriate IDENTITY clause.
func renderCreateTable(dialect rdbms.Dialect, schemaName, tableName string, cols []ResolvedColumn) string {
	var lines []string
	var pkCols []string
	for _, c := range cols {
		line := fmt.Sprintf("%s %s", QuoteIdent(dialect, c.Name), renderColumnType(c.Resolved))
		if !c.Resolved.Nullable {
			line += " NOT NULL"
		}
		if c.Source.Identity.IsIdentity {
			line += identityClause(dialect, c.Resolved)
		}
		lines = append(lines, line)
		if c.Source.PrimaryKey {
			pkCols = append(pkCols, QuoteIdent(dialect, c.Name))
		}
	}
	if len(pkCols) > 0 {
		lines = append(lines, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pkCols, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE %s.%s (\n  %s\n)", schemaName, tableName, strings.Join(lines, ",\n  "))
}

// renderCreateIndex builds a CREATE [UNIQUE] INDEX statement for one
// reflected index (spec_full §6: "process_indexes ... reflected and
// recreated"). Index and column names are quoted the same way
// renderCreateTable quotes column names.
func renderCreateIndex(dialect rdbms.Dialect, schemaName, tableName string, idx rdbms.Index) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = QuoteIdent(dialect, c)
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s.%s (%s)",
		unique, QuoteIdent(dialect, idx.Name), schemaName, tableName, strings.Join(cols, ", "))
}

func identityClause(dialect rdbms.Dialect, r typeequiv.Resolved) string {
	switch dialect {
	case rdbms.DialectPostgres:
		cache := r.IdentityCache
		if !r.IdentityCacheSet || cache == 0 {
			cache = 1
		}
		return fmt.Sprintf(" GENERATED BY DEFAULT AS IDENTITY (CACHE %d)", cache)
	case rdbms.DialectMySQL:
		return " AUTO_INCREMENT"
	case rdbms.DialectSQLServer:
		return " IDENTITY(1,1)"
	case rdbms.DialectOracle:
		return " GENERATED BY DEFAULT AS IDENTITY"
	default:
		return ""
	}
}

// renderDropTable builds the dialect-appropriate DROP TABLE for the
// drop-and-recreate step (spec §4.B step 4): Oracle needs CASCADE
// CONSTRAINTS plus an exception-swallowing PL/SQL block since it has no
// DROP TABLE IF EXISTS; Postgres uses CASCADE; everyone else uses IF
// EXISTS.
func renderDropTable(dialect rdbms.Dialect, schemaName, tableName string) string {
	qualified := schemaName + "." + tableName
	switch dialect {
	case rdbms.DialectOracle:
		return fmt.Sprintf(`BEGIN
  EXECUTE IMMEDIATE 'DROP TABLE %s CASCADE CONSTRAINTS';
EXCEPTION
  WHEN OTHERS THEN
    IF SQLCODE != -942 THEN
      RAISE;
    END IF;
END;`, qualified)
	case rdbms.DialectPostgres:
		return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", qualified)
	default:
		return fmt.Sprintf("DROP TABLE IF EXISTS %s", qualified)
	}
}

// renderEnsureSchema builds the dialect-appropriate statement to ensure
// the target schema/user exists (spec §4.B step 4: Oracle "CREATE USER
// ... IDENTIFIED BY ..."; others "CREATE SCHEMA ... AUTHORIZATION
// <user>").
func renderEnsureSchema(dialect rdbms.Dialect, schemaName, owner, password string) string {
	switch dialect {
	case rdbms.DialectOracle:
		return fmt.Sprintf("CREATE USER %s IDENTIFIED BY %s", schemaName, password)
	default:
		return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s AUTHORIZATION %s", schemaName, owner)
	}
}
