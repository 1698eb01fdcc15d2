package typeequiv

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/thewisecoder/dbrief/internal/rdbms"
)

// OverrideMap is the spec's "override_columns (fully-qualified column ->
// target type name)" (spec §3 Specs). Keys are "schema.table.column";
// Resolve also accepts "table.column", the form of /migrate's
// override-columns entries.
type OverrideMap map[string]string

// ColumnRef resolves a table.column to its reflected rdbms.Column, used by
// the resolver to recurse through foreign keys (spec §4.A step 2).
type ColumnRef func(table, column string) (rdbms.Column, bool)

// Resolved is the type-equivalence resolver's output: a target type
// instance carrying the attributes preserved from the source column
// (spec §4.A: "Output: a target type instance carrying preserved
// attributes").
type Resolved struct {
	Dialect      rdbms.Dialect
	Stem         Stem
	Length       int64
	LengthSet    bool
	Precision    int
	PrecisionSet bool
	Scale        int
	ScaleSet     bool
	AsDecimal    bool
	Timezone     bool
	Nullable     bool
	IdentityCache int64
	IdentityCacheSet bool
}

// QualifiedName returns this resolved type's "<prefix>_<stem>" spelling.
func (r Resolved) QualifiedName() string {
	return QualifiedName(r.Dialect, r.Stem)
}

// Resolver implements the type-equivalence algorithm of spec.md §4.A.
type Resolver struct {
	SourceDialect rdbms.Dialect
	TargetDialect rdbms.Dialect
	Overrides     OverrideMap
	Logger        *slog.Logger
}

// NewResolver constructs a Resolver. A nil logger falls back to slog's
// default logger.
func NewResolver(source, target rdbms.Dialect, overrides OverrideMap, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if overrides == nil {
		overrides = OverrideMap{}
	}
	return &Resolver{SourceDialect: source, TargetDialect: target, Overrides: overrides, Logger: logger}
}

// Resolve maps col (a column of the table named table, in schema) to its
// target-dialect equivalent, following the five-step algorithm of
// spec.md §4.A. lookupRef is used only when col is a foreign key (step 2).
func (r *Resolver) Resolve(schema, table string, col rdbms.Column, lookupRef ColumnRef) Resolved {
	fq := schema + "." + table + "." + col.Name

	// Step 1: override map short-circuits everything except attribute
	// propagation.
	overrideName, ok := r.Overrides[fq]
	if !ok {
		overrideName, ok = r.Overrides[table+"."+col.Name]
	}
	if ok {
		if d, stem, ok := ParseQualifiedName(overrideName); ok && (d == "" || d == r.TargetDialect) {
			out := Resolved{Dialect: r.TargetDialect, Stem: stem}
			r.propagateAttributes(&out, col)
			return out
		}
		r.Logger.Warn("override type name could not be parsed, ignoring",
			slog.String("column", fq), slog.String("override", overrideName))
	}

	// Step 2: foreign keys adopt the referenced column's resolved class.
	if col.ForeignKey != nil && lookupRef != nil {
		if refCol, ok := lookupRef(col.ForeignKey.Table, col.ForeignKey.Column); ok {
			resolved := r.Resolve(schema, col.ForeignKey.Table, refCol, lookupRef)
			out := Resolved{Dialect: r.TargetDialect, Stem: resolved.Stem}
			r.propagateAttributes(&out, col)
			return out
		}
	}

	// Step 3: native-to-native, falling back to the REF matrix.
	sourceStem := Stem(strings.ToLower(col.NativeType))
	stem, found := lookupNative(r.SourceDialect, sourceStem, r.TargetDialect)
	if !found {
		stem, found = lookupRef(col.TypeClass, r.TargetDialect)
	}
	if !found {
		r.Logger.Warn("no type-equivalence match found, falling back to source type unchanged",
			slog.String("column", fq), slog.String("source_type", col.NativeType))
		out := Resolved{Dialect: r.SourceDialect, Stem: sourceStem}
		r.propagateAttributes(&out, col)
		return out
	}

	out := Resolved{Dialect: r.TargetDialect, Stem: stem}

	// Step 4: fine-tune integers.
	r.tightenIntegers(&out, col)

	// Step 5: propagate attributes, force nullable for LOB targets, and
	// rewrite Postgres identity cache=0 to cache=1.
	r.propagateAttributes(&out, col)
	return out
}

// tightenIntegers implements spec §4.A step 4's identity-range and
// primary-key-precision tightening.
func (r *Resolver) tightenIntegers(out *Resolved, col rdbms.Column) {
	isIntegerish := out.Stem == "number" || out.Stem == "decimal" || out.Stem == "numeric" ||
		out.Stem == "int" || out.Stem == "integer" || out.Stem == "bigint"
	if !isIntegerish {
		return
	}

	const maxInt32 = (1 << 31) - 1

	if col.Identity.IsIdentity && (col.Identity.MaxValueSet || col.Identity.ExceedsInt64) {
		switch {
		case col.Identity.ExceedsInt64:
			// maxvalue > 2^63-1: Oracle NUMBER can hold it; everyone else
			// falls back to the largest native integer, BIGINT.
			out.Stem = bigintStemFor(out.Dialect)
		case col.Identity.MaxValue <= maxInt32:
			out.Stem = integerStemFor(out.Dialect)
		default:
			out.Stem = bigintStemFor(out.Dialect)
		}
		return
	}

	// NUMERIC-class primary keys downgrade based on declared precision.
	if col.PrimaryKey && (out.Stem == "number" || out.Stem == "decimal" || out.Stem == "numeric") {
		if col.PrecisionSet && col.Precision <= 9 {
			out.Stem = integerStemFor(out.Dialect)
		} else if col.PrecisionSet {
			out.Stem = bigintStemFor(out.Dialect)
		}
	}
}

func integerStemFor(d rdbms.Dialect) Stem {
	switch d {
	case rdbms.DialectOracle:
		return "number"
	case rdbms.DialectMySQL:
		return "int"
	case rdbms.DialectSQLServer:
		return "int"
	default:
		return "integer"
	}
}

func bigintStemFor(d rdbms.Dialect) Stem {
	if d == rdbms.DialectOracle {
		return "number"
	}
	return "bigint"
}

// propagateAttributes implements spec §4.A step 5: preserve length,
// precision, scale, asdecimal, timezone; force nullable=true for LOB
// targets; rewrite Postgres identity cache=0 to cache=1.
func (r *Resolver) propagateAttributes(out *Resolved, col rdbms.Column) {
	out.Length, out.LengthSet = col.Length, col.LengthSet
	out.Precision, out.PrecisionSet = col.Precision, col.PrecisionSet
	out.Scale, out.ScaleSet = col.Scale, col.ScaleSet
	out.AsDecimal = col.AsDecimal
	out.Timezone = col.Timezone
	out.Nullable = col.Nullable

	if isLOBStem(out.Stem) {
		out.Nullable = true
	}

	if out.Dialect == rdbms.DialectPostgres && col.Identity.IsIdentity {
		cache := col.Identity.Cache
		if cache == 0 {
			cache = 1
		}
		out.IdentityCache, out.IdentityCacheSet = cache, true
	}
}

var lobStems = map[Stem]bool{
	"blob": true, "clob": true, "nclob": true, "bytea": true, "text": true,
	"longtext": true, "longblob": true, "long": true, "long raw": true,
	"varchar(max)": true, "nvarchar(max)": true, "varbinary(max)": true,
	"image": true, "ntext": true,
}

func isLOBStem(s Stem) bool {
	return lobStems[s]
}

// ValidationError reports an override value that is not a recognized
// qualified type name. No function in this package returns it: Resolve
// logs such an override and ignores it.
type ValidationError struct {
	Override string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("override column type %q is not a recognized qualified type name", e.Override)
}
