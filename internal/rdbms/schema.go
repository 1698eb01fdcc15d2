package rdbms

// Feature is a boolean attribute attached to a reflected column (spec §3,
// table descriptor: "features ⊆ {identity, primary_key, unique, nullable,
// foreign_key}").
type Feature string

const (
	FeatureIdentity    Feature = "identity"
	FeaturePrimaryKey  Feature = "primary_key"
	FeatureUnique      Feature = "unique"
	FeatureNullable    Feature = "nullable"
	FeatureForeignKey  Feature = "foreign_key"
)

// ForeignKeyRef describes the table.column a foreign-key column points at.
type ForeignKeyRef struct {
	Table  string
	Column string
}

// IdentityInfo carries identity/auto-increment metadata used by the
// resolver's integer fine-tuning step (spec §4.A step 4).
type IdentityInfo struct {
	IsIdentity bool
	MaxValue   int64 // meaningful only when MaxValueSet && !ExceedsInt64
	MaxValueSet bool
	// ExceedsInt64 is set when the source reports a maxvalue beyond what
	// an int64 can hold (e.g. an Oracle NUMBER identity with more than 19
	// digits of precision) — spec §4.A step 4's "maxvalue > 2^63-1" case.
	ExceedsInt64 bool
	Cache      int64 // Postgres IDENTITY cache size; 0 triggers the cache=1 rewrite
}

// Column is a reflected (or constructed) column. It is a plain product
// type: the resolver inspects fields directly rather than probing runtime
// attributes, per DESIGN NOTES in spec.md §9.
type Column struct {
	Name       string
	TypeClass  TypeClass // generic class this column's native type maps to
	NativeType string    // the raw dialect-specific type name as reflected
	Length     int64
	LengthSet  bool
	Precision  int
	PrecisionSet bool
	Scale      int
	ScaleSet   bool
	AsDecimal  bool
	Timezone   bool
	Nullable   bool
	Identity   IdentityInfo
	PrimaryKey bool
	Unique     bool
	ForeignKey *ForeignKeyRef // nil unless this column is a foreign key
}

// Features returns the feature set implied by this column's flags,
// matching the spec's "features ⊆ {...}" table descriptor shape.
func (c Column) Features() []Feature {
	var fs []Feature
	if c.Identity.IsIdentity {
		fs = append(fs, FeatureIdentity)
	}
	if c.PrimaryKey {
		fs = append(fs, FeaturePrimaryKey)
	}
	if c.Unique {
		fs = append(fs, FeatureUnique)
	}
	if c.Nullable {
		fs = append(fs, FeatureNullable)
	}
	if c.ForeignKey != nil {
		fs = append(fs, FeatureForeignKey)
	}
	return fs
}

// IsLOB reports whether this column's generic type class is a LOB type.
func (c Column) IsLOB() bool {
	return IsLOBClass(c.TypeClass)
}

// Table is a reflected (or to-be-constructed) table definition.
type Table struct {
	Name    string
	Columns []Column
	Indexes []Index // non-PK indexes, reflected/recreated only if ProcessIndexes
}

// Index is a secondary index definition (supplemental feature, spec_full §6).
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// PrimaryKeyColumns returns the ordered primary-key columns of t.
func (t Table) PrimaryKeyColumns() []Column {
	var pk []Column
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pk = append(pk, c)
		}
	}
	return pk
}

// IdentityColumn returns the identity column of t, if any.
func (t Table) IdentityColumn() (Column, bool) {
	for _, c := range t.Columns {
		if c.Identity.IsIdentity {
			return c, true
		}
	}
	return Column{}, false
}

// LOBColumns returns the columns of t whose type class is a LOB type.
func (t Table) LOBColumns() []Column {
	var lobs []Column
	for _, c := range t.Columns {
		if c.IsLOB() {
			lobs = append(lobs, c)
		}
	}
	return lobs
}

// PlainColumns returns the non-LOB columns of t, in declared order.
func (t Table) PlainColumns() []Column {
	var plain []Column
	for _, c := range t.Columns {
		if !c.IsLOB() {
			plain = append(plain, c)
		}
	}
	return plain
}

// Schema is a reflected source (or constructed target) schema: an ordered
// list of tables plus a warning flag set when reflection was incomplete
// (spec §4.B step 1: "if reflection warns ... fail the migration").
type Schema struct {
	Name    string
	Tables  []Table
	Views   []string // view names, reflected only if ProcessViews (spec_full §6)
	Warning string   // non-empty means reflection was incomplete
}

// TableByName returns the table named name, if present.
func (s Schema) TableByName(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
