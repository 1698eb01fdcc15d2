// Package typeequiv implements the type-equivalence resolver (spec.md
// §4.A, component A): mapping a (source dialect, source type, column
// features) tuple to a target type instance across the four supported
// RDBMS dialects, honoring operator overrides and identity-range
// tightening.
package typeequiv

import (
	"strings"

	"github.com/thewisecoder/dbrief/internal/rdbms"
)

// Stem is a canonical, dialect-local type name with no dialect prefix
// (e.g. "varchar", "number", "bigint"). A fully-qualified type name, as
// used in override_columns and API responses, is "<prefix>_<stem>" per
// spec.md §6 ("Type names ... use a prefix corresponding to the target
// dialect ... plus a canonical type stem").
type Stem string

var dialectPrefix = map[rdbms.Dialect]string{
	rdbms.DialectMySQL:    "msql",
	rdbms.DialectOracle:   "orcl",
	rdbms.DialectPostgres: "pg",
	rdbms.DialectSQLServer: "sqls",
}

// QualifiedName returns the "<prefix>_<stem>" spelling for (d, s).
func QualifiedName(d rdbms.Dialect, s Stem) string {
	return dialectPrefix[d] + "_" + string(s)
}

// ParseQualifiedName splits a "<prefix>_<stem>" name (or a "ref_<stem>"
// generic name) back into a dialect and stem. ok is false for malformed
// input or an unrecognized prefix.
func ParseQualifiedName(name string) (d rdbms.Dialect, s Stem, ok bool) {
	for dialect, prefix := range dialectPrefix {
		if rest, found := strings.CutPrefix(name, prefix+"_"); found {
			return dialect, Stem(rest), true
		}
	}
	if rest, found := strings.CutPrefix(name, "ref_"); found {
		return "", Stem(rest), true
	}
	return "", "", false
}

// row is one native-matrix or REF-matrix entry: the equivalent stem in
// each of the three OTHER dialects (native matrices) or in all four
// dialects (REF matrix).
type row map[rdbms.Dialect]Stem

// nativeMatrices[sourceDialect][sourceStem] gives the equivalent stem for
// each target dialect, when the source dialect has a direct native-to-
// native mapping (spec §3: "MSQL, ORCL, PG, SQLS" matrices).
var nativeMatrices = map[rdbms.Dialect]map[Stem]row{
	rdbms.DialectMySQL: {
		"tinyint":    {rdbms.DialectOracle: "number", rdbms.DialectPostgres: "smallint", rdbms.DialectSQLServer: "tinyint"},
		"smallint":   {rdbms.DialectOracle: "number", rdbms.DialectPostgres: "smallint", rdbms.DialectSQLServer: "smallint"},
		"mediumint":  {rdbms.DialectOracle: "number", rdbms.DialectPostgres: "integer", rdbms.DialectSQLServer: "int"},
		"int":        {rdbms.DialectOracle: "number", rdbms.DialectPostgres: "integer", rdbms.DialectSQLServer: "int"},
		"bigint":     {rdbms.DialectOracle: "number", rdbms.DialectPostgres: "bigint", rdbms.DialectSQLServer: "bigint"},
		"decimal":    {rdbms.DialectOracle: "number", rdbms.DialectPostgres: "numeric", rdbms.DialectSQLServer: "decimal"},
		"float":      {rdbms.DialectOracle: "binary_float", rdbms.DialectPostgres: "real", rdbms.DialectSQLServer: "real"},
		"double":     {rdbms.DialectOracle: "binary_double", rdbms.DialectPostgres: "double precision", rdbms.DialectSQLServer: "float"},
		"varchar":    {rdbms.DialectOracle: "varchar2", rdbms.DialectPostgres: "varchar", rdbms.DialectSQLServer: "varchar"},
		"char":       {rdbms.DialectOracle: "char", rdbms.DialectPostgres: "char", rdbms.DialectSQLServer: "char"},
		"text":       {rdbms.DialectOracle: "clob", rdbms.DialectPostgres: "text", rdbms.DialectSQLServer: "varchar(max)"},
		"longtext":   {rdbms.DialectOracle: "clob", rdbms.DialectPostgres: "text", rdbms.DialectSQLServer: "varchar(max)"},
		"blob":       {rdbms.DialectOracle: "blob", rdbms.DialectPostgres: "bytea", rdbms.DialectSQLServer: "varbinary(max)"},
		"longblob":   {rdbms.DialectOracle: "blob", rdbms.DialectPostgres: "bytea", rdbms.DialectSQLServer: "varbinary(max)"},
		"datetime":   {rdbms.DialectOracle: "date", rdbms.DialectPostgres: "timestamp", rdbms.DialectSQLServer: "datetime2"},
		"date":       {rdbms.DialectOracle: "date", rdbms.DialectPostgres: "date", rdbms.DialectSQLServer: "date"},
		"timestamp":  {rdbms.DialectOracle: "timestamp", rdbms.DialectPostgres: "timestamptz", rdbms.DialectSQLServer: "datetimeoffset"},
		"bit":        {rdbms.DialectOracle: "number", rdbms.DialectPostgres: "boolean", rdbms.DialectSQLServer: "bit"},
		"json":       {rdbms.DialectOracle: "clob", rdbms.DialectPostgres: "jsonb", rdbms.DialectSQLServer: "nvarchar(max)"},
	},
	rdbms.DialectOracle: {
		"number":        {rdbms.DialectMySQL: "decimal", rdbms.DialectPostgres: "numeric", rdbms.DialectSQLServer: "decimal"},
		"binary_float":  {rdbms.DialectMySQL: "float", rdbms.DialectPostgres: "real", rdbms.DialectSQLServer: "real"},
		"binary_double": {rdbms.DialectMySQL: "double", rdbms.DialectPostgres: "double precision", rdbms.DialectSQLServer: "float"},
		"varchar2":      {rdbms.DialectMySQL: "varchar", rdbms.DialectPostgres: "varchar", rdbms.DialectSQLServer: "varchar"},
		"nvarchar2":     {rdbms.DialectMySQL: "varchar", rdbms.DialectPostgres: "varchar", rdbms.DialectSQLServer: "nvarchar"},
		"char":          {rdbms.DialectMySQL: "char", rdbms.DialectPostgres: "char", rdbms.DialectSQLServer: "char"},
		"clob":          {rdbms.DialectMySQL: "longtext", rdbms.DialectPostgres: "text", rdbms.DialectSQLServer: "varchar(max)"},
		"nclob":         {rdbms.DialectMySQL: "longtext", rdbms.DialectPostgres: "text", rdbms.DialectSQLServer: "nvarchar(max)"},
		"blob":          {rdbms.DialectMySQL: "longblob", rdbms.DialectPostgres: "bytea", rdbms.DialectSQLServer: "varbinary(max)"},
		"long":          {rdbms.DialectMySQL: "longtext", rdbms.DialectPostgres: "text", rdbms.DialectSQLServer: "varchar(max)"},
		"long raw":      {rdbms.DialectMySQL: "longblob", rdbms.DialectPostgres: "bytea", rdbms.DialectSQLServer: "varbinary(max)"},
		"raw":           {rdbms.DialectMySQL: "varbinary", rdbms.DialectPostgres: "bytea", rdbms.DialectSQLServer: "varbinary"},
		"date":          {rdbms.DialectMySQL: "datetime", rdbms.DialectPostgres: "timestamp", rdbms.DialectSQLServer: "datetime2"},
		"timestamp":     {rdbms.DialectMySQL: "timestamp", rdbms.DialectPostgres: "timestamptz", rdbms.DialectSQLServer: "datetimeoffset"},
		"bfile":         {rdbms.DialectMySQL: "varchar", rdbms.DialectPostgres: "varchar", rdbms.DialectSQLServer: "varchar"},
	},
	rdbms.DialectPostgres: {
		"smallint":         {rdbms.DialectMySQL: "smallint", rdbms.DialectOracle: "number", rdbms.DialectSQLServer: "smallint"},
		"integer":          {rdbms.DialectMySQL: "int", rdbms.DialectOracle: "number", rdbms.DialectSQLServer: "int"},
		"bigint":           {rdbms.DialectMySQL: "bigint", rdbms.DialectOracle: "number", rdbms.DialectSQLServer: "bigint"},
		"numeric":          {rdbms.DialectMySQL: "decimal", rdbms.DialectOracle: "number", rdbms.DialectSQLServer: "decimal"},
		"real":             {rdbms.DialectMySQL: "float", rdbms.DialectOracle: "binary_float", rdbms.DialectSQLServer: "real"},
		"double precision": {rdbms.DialectMySQL: "double", rdbms.DialectOracle: "binary_double", rdbms.DialectSQLServer: "float"},
		"varchar":          {rdbms.DialectMySQL: "varchar", rdbms.DialectOracle: "varchar2", rdbms.DialectSQLServer: "varchar"},
		"char":             {rdbms.DialectMySQL: "char", rdbms.DialectOracle: "char", rdbms.DialectSQLServer: "char"},
		"text":             {rdbms.DialectMySQL: "longtext", rdbms.DialectOracle: "clob", rdbms.DialectSQLServer: "varchar(max)"},
		"bytea":            {rdbms.DialectMySQL: "longblob", rdbms.DialectOracle: "blob", rdbms.DialectSQLServer: "varbinary(max)"},
		"boolean":          {rdbms.DialectMySQL: "tinyint", rdbms.DialectOracle: "number", rdbms.DialectSQLServer: "bit"},
		"date":             {rdbms.DialectMySQL: "date", rdbms.DialectOracle: "date", rdbms.DialectSQLServer: "date"},
		"timestamp":        {rdbms.DialectMySQL: "datetime", rdbms.DialectOracle: "date", rdbms.DialectSQLServer: "datetime2"},
		"timestamptz":      {rdbms.DialectMySQL: "timestamp", rdbms.DialectOracle: "timestamp", rdbms.DialectSQLServer: "datetimeoffset"},
		"jsonb":            {rdbms.DialectMySQL: "json", rdbms.DialectOracle: "clob", rdbms.DialectSQLServer: "nvarchar(max)"},
		"json":             {rdbms.DialectMySQL: "json", rdbms.DialectOracle: "clob", rdbms.DialectSQLServer: "nvarchar(max)"},
	},
	rdbms.DialectSQLServer: {
		"tinyint":        {rdbms.DialectMySQL: "tinyint", rdbms.DialectOracle: "number", rdbms.DialectPostgres: "smallint"},
		"smallint":       {rdbms.DialectMySQL: "smallint", rdbms.DialectOracle: "number", rdbms.DialectPostgres: "smallint"},
		"int":            {rdbms.DialectMySQL: "int", rdbms.DialectOracle: "number", rdbms.DialectPostgres: "integer"},
		"bigint":         {rdbms.DialectMySQL: "bigint", rdbms.DialectOracle: "number", rdbms.DialectPostgres: "bigint"},
		"decimal":        {rdbms.DialectMySQL: "decimal", rdbms.DialectOracle: "number", rdbms.DialectPostgres: "numeric"},
		"real":           {rdbms.DialectMySQL: "float", rdbms.DialectOracle: "binary_float", rdbms.DialectPostgres: "real"},
		"float":          {rdbms.DialectMySQL: "double", rdbms.DialectOracle: "binary_double", rdbms.DialectPostgres: "double precision"},
		"varchar":        {rdbms.DialectMySQL: "varchar", rdbms.DialectOracle: "varchar2", rdbms.DialectPostgres: "varchar"},
		"nvarchar":       {rdbms.DialectMySQL: "varchar", rdbms.DialectOracle: "nvarchar2", rdbms.DialectPostgres: "varchar"},
		"char":           {rdbms.DialectMySQL: "char", rdbms.DialectOracle: "char", rdbms.DialectPostgres: "char"},
		"varchar(max)":   {rdbms.DialectMySQL: "longtext", rdbms.DialectOracle: "clob", rdbms.DialectPostgres: "text"},
		"nvarchar(max)":  {rdbms.DialectMySQL: "longtext", rdbms.DialectOracle: "nclob", rdbms.DialectPostgres: "text"},
		"text":           {rdbms.DialectMySQL: "longtext", rdbms.DialectOracle: "clob", rdbms.DialectPostgres: "text"},
		"ntext":          {rdbms.DialectMySQL: "longtext", rdbms.DialectOracle: "nclob", rdbms.DialectPostgres: "text"},
		"varbinary(max)": {rdbms.DialectMySQL: "longblob", rdbms.DialectOracle: "blob", rdbms.DialectPostgres: "bytea"},
		"varbinary":      {rdbms.DialectMySQL: "varbinary", rdbms.DialectOracle: "raw", rdbms.DialectPostgres: "bytea"},
		"image":          {rdbms.DialectMySQL: "longblob", rdbms.DialectOracle: "blob", rdbms.DialectPostgres: "bytea"},
		"bit":            {rdbms.DialectMySQL: "tinyint", rdbms.DialectOracle: "number", rdbms.DialectPostgres: "boolean"},
		"date":           {rdbms.DialectMySQL: "date", rdbms.DialectOracle: "date", rdbms.DialectPostgres: "date"},
		"datetime2":      {rdbms.DialectMySQL: "datetime", rdbms.DialectOracle: "timestamp", rdbms.DialectPostgres: "timestamp"},
		"datetimeoffset": {rdbms.DialectMySQL: "timestamp", rdbms.DialectOracle: "timestamp", rdbms.DialectPostgres: "timestamptz"},
	},
}

// refMatrix maps a dialect-agnostic generic type class to its stem in
// each of the four dialects (spec §3: "REF (dialect-agnostic generic
// types mapped to each of the four dialect columns)"). Used as the
// fallback when a source dialect's native matrix has no row for the
// column's native type.
var refMatrix = map[rdbms.TypeClass]row{
	rdbms.ClassRefString: {
		rdbms.DialectMySQL: "varchar", rdbms.DialectOracle: "varchar2",
		rdbms.DialectPostgres: "varchar", rdbms.DialectSQLServer: "varchar",
	},
	rdbms.ClassRefText: {
		rdbms.DialectMySQL: "longtext", rdbms.DialectOracle: "clob",
		rdbms.DialectPostgres: "text", rdbms.DialectSQLServer: "varchar(max)",
	},
	rdbms.ClassRefInteger: {
		rdbms.DialectMySQL: "int", rdbms.DialectOracle: "number",
		rdbms.DialectPostgres: "integer", rdbms.DialectSQLServer: "int",
	},
	rdbms.ClassRefBigint: {
		rdbms.DialectMySQL: "bigint", rdbms.DialectOracle: "number",
		rdbms.DialectPostgres: "bigint", rdbms.DialectSQLServer: "bigint",
	},
	rdbms.ClassRefNumeric: {
		rdbms.DialectMySQL: "decimal", rdbms.DialectOracle: "number",
		rdbms.DialectPostgres: "numeric", rdbms.DialectSQLServer: "decimal",
	},
	rdbms.ClassRefFloat: {
		rdbms.DialectMySQL: "double", rdbms.DialectOracle: "binary_double",
		rdbms.DialectPostgres: "double precision", rdbms.DialectSQLServer: "float",
	},
	rdbms.ClassRefBoolean: {
		rdbms.DialectMySQL: "tinyint", rdbms.DialectOracle: "number",
		rdbms.DialectPostgres: "boolean", rdbms.DialectSQLServer: "bit",
	},
	rdbms.ClassRefDate: {
		rdbms.DialectMySQL: "date", rdbms.DialectOracle: "date",
		rdbms.DialectPostgres: "date", rdbms.DialectSQLServer: "date",
	},
	rdbms.ClassRefTime: {
		rdbms.DialectMySQL: "time", rdbms.DialectOracle: "varchar2",
		rdbms.DialectPostgres: "time", rdbms.DialectSQLServer: "time",
	},
	rdbms.ClassRefDatetime: {
		rdbms.DialectMySQL: "datetime", rdbms.DialectOracle: "date",
		rdbms.DialectPostgres: "timestamp", rdbms.DialectSQLServer: "datetime2",
	},
	rdbms.ClassRefBinary: {
		rdbms.DialectMySQL: "varbinary", rdbms.DialectOracle: "raw",
		rdbms.DialectPostgres: "bytea", rdbms.DialectSQLServer: "varbinary",
	},
	rdbms.ClassRefBlob: {
		rdbms.DialectMySQL: "longblob", rdbms.DialectOracle: "blob",
		rdbms.DialectPostgres: "bytea", rdbms.DialectSQLServer: "varbinary(max)",
	},
	rdbms.ClassRefClob: {
		rdbms.DialectMySQL: "longtext", rdbms.DialectOracle: "clob",
		rdbms.DialectPostgres: "text", rdbms.DialectSQLServer: "nvarchar(max)",
	},
}

// lookupNative returns the resolved stem for (sourceDialect, sourceStem,
// targetDialect) from the native-to-native matrix, if present.
func lookupNative(sourceDialect rdbms.Dialect, sourceStem Stem, targetDialect rdbms.Dialect) (Stem, bool) {
	sourceRow, ok := nativeMatrices[sourceDialect][sourceStem]
	if !ok {
		return "", false
	}
	stem, ok := sourceRow[targetDialect]
	return stem, ok
}

// lookupRef returns the resolved stem for (class, targetDialect) from the
// REF matrix, if present.
func lookupRef(class rdbms.TypeClass, targetDialect rdbms.Dialect) (Stem, bool) {
	r, ok := refMatrix[class]
	if !ok {
		return "", false
	}
	stem, ok := r[targetDialect]
	return stem, ok
}
