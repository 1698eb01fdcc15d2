package typeequiv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewisecoder/dbrief/internal/rdbms"
)

func noFK(_, _ string) (rdbms.Column, bool) { return rdbms.Column{}, false }

// Scenario 1: Oracle -> Postgres, HR.EMP(ID NUMBER(10) PK, NAME VARCHAR2(50)).
func TestResolve_OracleToPostgres_Basic(t *testing.T) {
	r := NewResolver(rdbms.DialectOracle, rdbms.DialectPostgres, nil, nil)

	id := rdbms.Column{
		Name: "id", NativeType: "number", TypeClass: rdbms.ClassRefNumeric,
		PrimaryKey: true, Precision: 10, PrecisionSet: true,
	}
	got := r.Resolve("hr", "emp", id, noFK)
	assert.Equal(t, Stem("integer"), got.Stem)
	assert.Equal(t, "pg_integer", got.QualifiedName())

	name := rdbms.Column{
		Name: "name", NativeType: "varchar2", TypeClass: rdbms.ClassRefString,
		Length: 50, LengthSet: true, Nullable: true,
	}
	got = r.Resolve("hr", "emp", name, noFK)
	assert.Equal(t, Stem("varchar"), got.Stem)
	require.True(t, got.LengthSet)
	assert.Equal(t, int64(50), got.Length)
}

// Scenario 2: identity maxvalue=10000000000 (> 2^31-1, within int64) -> BIGINT.
func TestResolve_IdentityRangeTightening_Bigint(t *testing.T) {
	r := NewResolver(rdbms.DialectOracle, rdbms.DialectPostgres, nil, nil)
	col := rdbms.Column{
		Name: "id", NativeType: "number", TypeClass: rdbms.ClassRefNumeric,
		Identity: rdbms.IdentityInfo{IsIdentity: true, MaxValue: 10_000_000_000, MaxValueSet: true},
	}
	got := r.Resolve("hr", "emp", col, noFK)
	assert.Equal(t, Stem("bigint"), got.Stem)
}

// Scenario 3: override wins over the identity range computation.
func TestResolve_OverrideWinsOverIdentityTightening(t *testing.T) {
	overrides := OverrideMap{"hr.emp.id": "pg_bigint"}
	r := NewResolver(rdbms.DialectOracle, rdbms.DialectPostgres, overrides, nil)
	col := rdbms.Column{
		Name: "id", NativeType: "number", TypeClass: rdbms.ClassRefNumeric,
		Identity: rdbms.IdentityInfo{IsIdentity: true, MaxValue: 5, MaxValueSet: true},
	}
	got := r.Resolve("hr", "emp", col, noFK)
	assert.Equal(t, Stem("bigint"), got.Stem)
	assert.Equal(t, rdbms.DialectPostgres, got.Dialect)
}

func TestResolve_ForeignKeyAdoptsReferencedClass(t *testing.T) {
	r := NewResolver(rdbms.DialectOracle, rdbms.DialectPostgres, nil, nil)
	lookup := func(table, column string) (rdbms.Column, bool) {
		if table == "hr.dept" && column == "id" {
			return rdbms.Column{Name: "id", NativeType: "number", TypeClass: rdbms.ClassRefNumeric, PrimaryKey: true, Precision: 4, PrecisionSet: true}, true
		}
		return rdbms.Column{}, false
	}
	col := rdbms.Column{
		Name: "dept_id", NativeType: "number", TypeClass: rdbms.ClassRefNumeric,
		ForeignKey: &rdbms.ForeignKeyRef{Table: "hr.dept", Column: "id"},
	}
	got := r.Resolve("hr", "emp", col, lookup)
	assert.Equal(t, Stem("integer"), got.Stem)
}

func TestResolve_LOBTargetForcedNullable(t *testing.T) {
	r := NewResolver(rdbms.DialectMySQL, rdbms.DialectOracle, nil, nil)
	col := rdbms.Column{Name: "body", NativeType: "longtext", TypeClass: rdbms.ClassRefText, Nullable: false}
	got := r.Resolve("app", "doc", col, noFK)
	assert.Equal(t, Stem("clob"), got.Stem)
	assert.True(t, got.Nullable)
}

func TestResolve_PostgresIdentityCacheZeroRewrittenToOne(t *testing.T) {
	r := NewResolver(rdbms.DialectMySQL, rdbms.DialectPostgres, nil, nil)
	col := rdbms.Column{
		Name: "id", NativeType: "bigint", TypeClass: rdbms.ClassRefBigint,
		Identity: rdbms.IdentityInfo{IsIdentity: true, MaxValue: 1000, MaxValueSet: true, Cache: 0},
	}
	got := r.Resolve("app", "doc", col, noFK)
	require.True(t, got.IdentityCacheSet)
	assert.Equal(t, int64(1), got.IdentityCache)
}

func TestResolve_NoMatchFallsBackToSourceTypeWithWarning(t *testing.T) {
	r := NewResolver(rdbms.DialectOracle, rdbms.DialectPostgres, nil, nil)
	col := rdbms.Column{Name: "weird", NativeType: "urowid", TypeClass: rdbms.ClassRefUnknown}
	got := r.Resolve("hr", "emp", col, noFK)
	assert.Equal(t, rdbms.DialectOracle, got.Dialect)
	assert.Equal(t, Stem("urowid"), got.Stem)
}
