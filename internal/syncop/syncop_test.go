package syncop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeDiff_FindsMissingAndOrphaned(t *testing.T) {
	db := []string{"a", "b", "c", "e"}
	s3 := []string{"b", "c", "d"}

	missing, orphaned := mergeDiff(db, s3)
	assert.Equal(t, []string{"a", "e"}, missing)
	assert.Equal(t, []string{"d"}, orphaned)
}

func TestMergeDiff_IdenticalSetsYieldNothing(t *testing.T) {
	same := []string{"x", "y", "z"}
	missing, orphaned := mergeDiff(same, same)
	assert.Empty(t, missing)
	assert.Empty(t, orphaned)
}

func TestMergeDiff_EmptyDBMeansAllOrphaned(t *testing.T) {
	missing, orphaned := mergeDiff(nil, []string{"a", "b"})
	assert.Empty(t, missing)
	assert.Equal(t, []string{"a", "b"}, orphaned)
}

func TestMergeDiff_EmptyS3MeansAllMissing(t *testing.T) {
	missing, orphaned := mergeDiff([]string{"a", "b"}, nil)
	assert.Equal(t, []string{"a", "b"}, missing)
	assert.Empty(t, orphaned)
}

func TestRefFromKey_StripsPrefixAndExt(t *testing.T) {
	assert.Equal(t, "invoice-7", refFromKey("batch7/hr/doc/content/invoice-7.pdf", "batch7/hr/doc/content", "pdf"))
}

func TestRefFromKey_NoExtConfigured(t *testing.T) {
	assert.Equal(t, "invoice-7", refFromKey("batch7/hr/doc/content/invoice-7", "batch7/hr/doc/content", ""))
}
