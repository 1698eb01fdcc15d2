package migrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thewisecoder/dbrief/internal/metadata"
	"github.com/thewisecoder/dbrief/internal/rdbms"
)

func TestRestoreStatement_PerDialect(t *testing.T) {
	assert.Contains(t, restoreStatement(rdbms.DialectPostgres), "origin")
	assert.Contains(t, restoreStatement(rdbms.DialectMySQL), "DISABLE_TRIGGERS = 0")
	assert.Empty(t, restoreStatement(rdbms.DialectOracle))
	assert.Empty(t, restoreStatement(rdbms.DialectSQLServer))
}

func TestContains(t *testing.T) {
	assert.True(t, contains([]string{"a", "b"}, "b"))
	assert.False(t, contains([]string{"a", "b"}, "c"))
	assert.False(t, contains(nil, "c"))
}

func sampleDescriptor() metadata.TableDescriptor {
	return metadata.TableDescriptor{
		Name: "emp",
		Columns: []metadata.ResolvedColumn{
			{Name: "id", Source: rdbms.Column{Name: "id", PrimaryKey: true, Identity: rdbms.IdentityInfo{IsIdentity: true}}},
			{Name: "name", Source: rdbms.Column{Name: "name"}},
			{Name: "photo", Source: rdbms.Column{Name: "photo", TypeClass: rdbms.ClassRefBlob}},
		},
	}
}

func TestPrimaryKeyNames(t *testing.T) {
	assert.Equal(t, []string{"id"}, primaryKeyNames(sampleDescriptor()))
}

func TestHasIdentity(t *testing.T) {
	col, ok := hasIdentity(sampleDescriptor())
	assert.True(t, ok)
	assert.Equal(t, "id", col)
}

func TestTableReport_Throughput(t *testing.T) {
	tr := TableReport{Duration: 0}
	assert.Equal(t, float64(0), tr.Throughput())
}
