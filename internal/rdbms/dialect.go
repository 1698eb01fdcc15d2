// Package rdbms defines the narrow client interface the migration engine
// uses to talk to a source or target RDBMS, and the dialect-tagged type
// model that the type-equivalence resolver and metadata reflector operate
// over. Concrete dialects live in the mysql, oracle, postgres and
// sqlserver subpackages.
package rdbms

import "fmt"

// Dialect tags one of the four supported RDBMS kinds.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectOracle   Dialect = "oracle"
	DialectPostgres Dialect = "postgres"
	DialectSQLServer Dialect = "sqlserver"
)

// Valid reports whether d is one of the four supported dialects.
func (d Dialect) Valid() bool {
	switch d {
	case DialectMySQL, DialectOracle, DialectPostgres, DialectSQLServer:
		return true
	}
	return false
}

// ParseDialect validates and normalizes a dialect string from request input.
func ParseDialect(s string) (Dialect, error) {
	d := Dialect(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown RDBMS engine %q", s)
	}
	return d, nil
}

// TypeClass is a canonical, dialect-agnostic type family (e.g. "varchar",
// "numeric", "blob"). The type-equivalence matrices are keyed by TypeClass
// on one axis and Dialect on the other.
type TypeClass string

// Generic (REF matrix) type classes. These are dialect-agnostic fallbacks
// used when a source dialect's native matrix has no entry for a type.
const (
	ClassRefString   TypeClass = "ref_string"
	ClassRefText     TypeClass = "ref_text"
	ClassRefInteger  TypeClass = "ref_integer"
	ClassRefBigint   TypeClass = "ref_bigint"
	ClassRefNumeric  TypeClass = "ref_numeric"
	ClassRefFloat    TypeClass = "ref_float"
	ClassRefBoolean  TypeClass = "ref_boolean"
	ClassRefDate     TypeClass = "ref_date"
	ClassRefTime     TypeClass = "ref_time"
	ClassRefDatetime TypeClass = "ref_datetime"
	ClassRefBinary   TypeClass = "ref_binary"
	ClassRefBlob     TypeClass = "ref_blob"
	ClassRefClob     TypeClass = "ref_clob"
	ClassRefUnknown  TypeClass = "ref_unknown"
)

// lobClasses is the closed enumeration driving LOB detection (spec
// GLOSSARY: "LOB"). A type whose TypeClass is in this set is treated as a
// large object regardless of source dialect.
var lobClasses = map[TypeClass]bool{
	ClassRefBlob: true,
	ClassRefClob: true,
	ClassRefText: true,
	ClassRefBinary: true,
}

// IsLOBClass reports whether a generic type class denotes a large object.
func IsLOBClass(c TypeClass) bool {
	return lobClasses[c]
}

// dialectLOBTypeNames enumerates the native type names, per dialect, that
// are LOBs. Used by reflection to classify a raw source column before any
// type-equivalence resolution has happened.
var dialectLOBTypeNames = map[Dialect]map[string]bool{
	DialectMySQL: {
		"tinyblob": true, "blob": true, "mediumblob": true, "longblob": true,
		"tinytext": true, "text": true, "mediumtext": true, "longtext": true,
	},
	DialectOracle: {
		"blob": true, "clob": true, "nclob": true, "long": true, "long raw": true,
		"bfile": true, "raw": true,
	},
	DialectPostgres: {
		"bytea": true, "text": true,
	},
	DialectSQLServer: {
		"image": true, "text": true, "ntext": true, "varbinary": true,
		"varbinary(max)": true, "varchar(max)": true, "nvarchar(max)": true,
	},
}

// IsLOBTypeName reports whether a dialect-native type name is a LOB type.
func IsLOBTypeName(d Dialect, nativeName string) bool {
	set, ok := dialectLOBTypeNames[d]
	if !ok {
		return false
	}
	return set[nativeName]
}
