package dialectutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/thewisecoder/dbrief/internal/rdbms"
)

// ReflectInformationSchema reflects schemaName using the ANSI
// information_schema views, shared by MySQL, Postgres and SQL Server
// (component B step 1, spec §4.B). Oracle reflects through its own
// ALL_TAB_COLUMNS/ALL_CONSTRAINTS catalog views instead (see the oracle
// package) since it has no information_schema.
func ReflectInformationSchema(ctx context.Context, db *sql.DB, dialect rdbms.Dialect, schemaName string, flags rdbms.ReflectFlags) (*rdbms.Schema, error) {
	style := PlaceholderQuestion
	if dialect == rdbms.DialectPostgres {
		style = PlaceholderDollar
	}

	tableNames, err := listTables(ctx, db, style, schemaName)
	if err != nil {
		return nil, fmt.Errorf("reflect %s: list tables: %w", schemaName, err)
	}

	pkCols, err := primaryKeyColumns(ctx, db, style, schemaName)
	if err != nil {
		return nil, fmt.Errorf("reflect %s: primary keys: %w", schemaName, err)
	}
	fkCols, err := foreignKeyColumns(ctx, db, style, schemaName)
	if err != nil {
		return nil, fmt.Errorf("reflect %s: foreign keys: %w", schemaName, err)
	}

	schema := &rdbms.Schema{Name: schemaName}
	for _, tableName := range tableNames {
		cols, err := tableColumns(ctx, db, style, dialect, schemaName, tableName, pkCols[tableName], fkCols[tableName])
		if err != nil {
			return nil, fmt.Errorf("reflect %s.%s: columns: %w", schemaName, tableName, err)
		}
		table := rdbms.Table{Name: tableName, Columns: cols}

		if flags.ProcessIndexes {
			idx, err := tableIndexes(ctx, db, style, schemaName, tableName)
			if err != nil {
				if flags.RelaxReflection {
					schema.Warning = fmt.Sprintf("indexes for %s.%s unavailable: %v", schemaName, tableName, err)
				} else {
					return nil, fmt.Errorf("reflect %s.%s: indexes: %w", schemaName, tableName, err)
				}
			} else {
				table.Indexes = idx
			}
		}

		schema.Tables = append(schema.Tables, table)
	}

	if flags.ProcessViews {
		views, err := listViews(ctx, db, style, schemaName)
		if err != nil {
			if flags.RelaxReflection {
				schema.Warning = fmt.Sprintf("views for %s unavailable: %v", schemaName, err)
			} else {
				return nil, fmt.Errorf("reflect %s: views: %w", schemaName, err)
			}
		} else {
			schema.Views = views
		}
	}

	return schema, nil
}

func listTables(ctx context.Context, db *sql.DB, style PlaceholderStyle, schemaName string) ([]string, error) {
	return queryNames(ctx, db, style, schemaName, "BASE TABLE")
}

func listViews(ctx context.Context, db *sql.DB, style PlaceholderStyle, schemaName string) ([]string, error) {
	return queryNames(ctx, db, style, schemaName, "VIEW")
}

func queryNames(ctx context.Context, db *sql.DB, style PlaceholderStyle, schemaName, tableType string) ([]string, error) {
	q := fmt.Sprintf(`
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = %s AND table_type = '%s'
		ORDER BY table_name`, Placeholder(style, 1), tableType)
	rows, err := db.QueryContext(ctx, q, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func primaryKeyColumns(ctx context.Context, db *sql.DB, style PlaceholderStyle, schemaName string) (map[string]map[string]bool, error) {
	q := fmt.Sprintf(`
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = %s AND tc.constraint_type = 'PRIMARY KEY'`, Placeholder(style, 1))
	rows, err := db.QueryContext(ctx, q, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]map[string]bool)
	for rows.Next() {
		var table, col string
		if err := rows.Scan(&table, &col); err != nil {
			return nil, err
		}
		if out[table] == nil {
			out[table] = make(map[string]bool)
		}
		out[table][col] = true
	}
	return out, rows.Err()
}

type fkTarget struct {
	table, column string
}

func foreignKeyColumns(ctx context.Context, db *sql.DB, style PlaceholderStyle, schemaName string) (map[string]map[string]fkTarget, error) {
	q := fmt.Sprintf(`
		SELECT kcu.table_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.table_schema = %s AND tc.constraint_type = 'FOREIGN KEY'`, Placeholder(style, 1))
	rows, err := db.QueryContext(ctx, q, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]map[string]fkTarget)
	for rows.Next() {
		var table, col, refTable, refCol string
		if err := rows.Scan(&table, &col, &refTable, &refCol); err != nil {
			return nil, err
		}
		if out[table] == nil {
			out[table] = make(map[string]fkTarget)
		}
		out[table][col] = fkTarget{table: refTable, column: refCol}
	}
	return out, rows.Err()
}

func tableColumns(ctx context.Context, db *sql.DB, style PlaceholderStyle, dialect rdbms.Dialect, schemaName, tableName string, pk map[string]bool, fk map[string]fkTarget) ([]rdbms.Column, error) {
	q := fmt.Sprintf(`
		SELECT column_name, data_type, is_nullable,
		       character_maximum_length, numeric_precision, numeric_scale
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position`, Placeholder(style, 1), Placeholder(style, 2))
	rows, err := db.QueryContext(ctx, q, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []rdbms.Column
	for rows.Next() {
		var name, dataType, isNullable string
		var charLen, numPrecision, numScale sql.NullInt64
		if err := rows.Scan(&name, &dataType, &isNullable, &charLen, &numPrecision, &numScale); err != nil {
			return nil, err
		}
		native := strings.ToLower(dataType)
		col := rdbms.Column{
			Name:       name,
			NativeType: native,
			TypeClass:  classifyNativeType(dialect, native),
			Nullable:   strings.EqualFold(isNullable, "YES"),
			PrimaryKey: pk[name],
		}
		if charLen.Valid {
			col.Length = charLen.Int64
			col.LengthSet = true
		}
		if numPrecision.Valid {
			col.Precision = int(numPrecision.Int64)
			col.PrecisionSet = true
			col.AsDecimal = true
		}
		if numScale.Valid {
			col.Scale = int(numScale.Int64)
			col.ScaleSet = true
		}
		if ref, ok := fk[name]; ok {
			col.ForeignKey = &rdbms.ForeignKeyRef{Table: ref.table, Column: ref.column}
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func tableIndexes(ctx context.Context, db *sql.DB, style PlaceholderStyle, schemaName, tableName string) ([]rdbms.Index, error) {
	q := fmt.Sprintf(`
		SELECT tc.constraint_name, kcu.column_name, tc.constraint_type
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = %s AND tc.table_name = %s AND tc.constraint_type = 'UNIQUE'
		ORDER BY tc.constraint_name, kcu.ordinal_position`, Placeholder(style, 1), Placeholder(style, 2))
	rows, err := db.QueryContext(ctx, q, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]*rdbms.Index)
	var order []string
	for rows.Next() {
		var name, col, kind string
		if err := rows.Scan(&name, &col, &kind); err != nil {
			return nil, err
		}
		idx, ok := byName[name]
		if !ok {
			idx = &rdbms.Index{Name: name, Unique: kind == "UNIQUE"}
			byName[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]rdbms.Index, 0, len(order))
	for _, n := range order {
		out = append(out, *byName[n])
	}
	return out, nil
}

// classifyNativeType maps a dialect's raw information_schema data_type into
// the engine's generic TypeClass, used as the REF-matrix fallback key when
// the type-equivalence resolver's native matrix has no entry (spec §4.A
// step 3).
func classifyNativeType(dialect rdbms.Dialect, native string) rdbms.TypeClass {
	if rdbms.IsLOBTypeName(dialect, native) {
		switch {
		case strings.Contains(native, "blob") || strings.Contains(native, "bytea") ||
			strings.Contains(native, "binary") || strings.Contains(native, "raw") ||
			strings.Contains(native, "image"):
			return rdbms.ClassRefBlob
		default:
			return rdbms.ClassRefClob
		}
	}
	switch {
	case strings.Contains(native, "char"):
		return rdbms.ClassRefString
	case strings.Contains(native, "text"):
		return rdbms.ClassRefText
	case native == "bigint" || native == "int8":
		return rdbms.ClassRefBigint
	case strings.Contains(native, "int"):
		return rdbms.ClassRefInteger
	case strings.Contains(native, "numeric") || strings.Contains(native, "decimal") || native == "number":
		return rdbms.ClassRefNumeric
	case strings.Contains(native, "float") || strings.Contains(native, "double") || strings.Contains(native, "real"):
		return rdbms.ClassRefFloat
	case strings.Contains(native, "bool"):
		return rdbms.ClassRefBoolean
	case native == "date":
		return rdbms.ClassRefDate
	case strings.Contains(native, "timestamp") || strings.Contains(native, "datetime"):
		return rdbms.ClassRefDatetime
	case strings.Contains(native, "time"):
		return rdbms.ClassRefTime
	case strings.Contains(native, "binary") || strings.Contains(native, "bytea"):
		return rdbms.ClassRefBinary
	default:
		return rdbms.ClassRefUnknown
	}
}
