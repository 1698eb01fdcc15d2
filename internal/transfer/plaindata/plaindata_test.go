package plaindata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thewisecoder/dbrief/internal/rdbms"
)

func TestComputePartitions_LastIsUnbounded(t *testing.T) {
	parts := ComputePartitions(0, 3, 1000)
	assert.Len(t, parts, 3)
	assert.Equal(t, rdbms.Partition{Offset: 0, Limit: 1000}, parts[0])
	assert.Equal(t, rdbms.Partition{Offset: 1000, Limit: 1000}, parts[1])
	assert.Equal(t, rdbms.Partition{Offset: 2000, Limit: 0}, parts[2])
}

func TestComputePartitions_HonorsStartingOffset(t *testing.T) {
	parts := ComputePartitions(500, 2, 100)
	assert.Equal(t, int64(500), parts[0].Offset)
	assert.Equal(t, int64(600), parts[1].Offset)
	assert.Equal(t, int64(0), parts[1].Limit)
}

func TestComputePartitions_DefaultsWhenUnset(t *testing.T) {
	parts := ComputePartitions(0, 0, 0)
	assert.Len(t, parts, 1)
	assert.Equal(t, int64(0), parts[0].Limit)
}

func TestSessionSetupStatement_PerDialect(t *testing.T) {
	assert.Contains(t, SessionSetupStatement(rdbms.DialectPostgres), "session_replication_role")
	assert.Contains(t, SessionSetupStatement(rdbms.DialectOracle), "NLS_SORT")
	assert.Contains(t, SessionSetupStatement(rdbms.DialectMySQL), "DISABLE_TRIGGERS")
	assert.Empty(t, SessionSetupStatement(rdbms.DialectSQLServer))
}

func TestStripNULs_RemovesEmbeddedNulBytes(t *testing.T) {
	vals := []any{"a\x00b", []byte("c\x00d"), 42}
	stripNULs(vals)
	assert.Equal(t, "ab", vals[0])
	assert.Equal(t, []byte("cd"), vals[1])
	assert.Equal(t, 42, vals[2])
}

func TestIsNULError_MatchesSignatureCaseInsensitively(t *testing.T) {
	assert.True(t, isNULError(errors.New("pq: invalid byte sequence: string contains NUL")))
	assert.False(t, isNULError(errors.New("connection refused")))
	assert.False(t, isNULError(nil))
}
