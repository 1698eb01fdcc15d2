package lobdata

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewisecoder/dbrief/internal/rdbms"
)

func TestBuildS3Prefix(t *testing.T) {
	assert.Equal(t, "batch7/hr/emp/photo", BuildS3Prefix("batch7", "hr", "emp", "photo"))
}

func TestBuildObjectKey_WithPrefixAndExt(t *testing.T) {
	key := BuildObjectKey("batch7/hr/doc/content", "invoice-7", "pdf", false)
	assert.Equal(t, "batch7/hr/doc/content/invoice-7.pdf", key)
}

func TestBuildObjectKey_FlattenedDropsPrefix(t *testing.T) {
	key := BuildObjectKey("batch7/hr/doc/content", "invoice-7", "pdf", true)
	assert.Equal(t, "invoice-7.pdf", key)
}

func TestBuildObjectKey_NoExt(t *testing.T) {
	key := BuildObjectKey("batch7/hr/doc/content", "invoice-7", "", false)
	assert.Equal(t, "batch7/hr/doc/content/invoice-7", key)
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "text/plain", MimeType(true))
	assert.Equal(t, "application/octet-stream", MimeType(false))
}

func TestResolveReference_SkipsWhenNoRefAndNoPKTargetingS3(t *testing.T) {
	ok, warning := resolveReference(Spec{Table: "doc", Column: "content"}, true)
	assert.False(t, ok)
	assert.Contains(t, warning, "no reference column and no primary key")
}

func TestResolveReference_OKWhenPrimaryKeyPresent(t *testing.T) {
	ok, _ := resolveReference(Spec{Table: "doc", Column: "content", HasPrimaryKey: true}, true)
	assert.True(t, ok)
}

func TestResolveReference_OKWhenReferenceConfigured(t *testing.T) {
	ok, _ := resolveReference(Spec{Table: "doc", Column: "content", Ref: rdbms.RefSpec{Column: "ref"}}, true)
	assert.True(t, ok)
}

func TestResolveReference_RDBMSTargetNeverSkips(t *testing.T) {
	ok, _ := resolveReference(Spec{Table: "doc", Column: "content"}, false)
	assert.True(t, ok)
}

func TestNewChunkedReader_ReadsAllBytesInChunks(t *testing.T) {
	payload := []byte("0123456789")
	r := newChunkedReader(payload, 3)
	buf := make([]byte, 0, 16)
	chunk := make([]byte, 3)
	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, payload, buf)
}

func TestEscapeLiteral(t *testing.T) {
	assert.Equal(t, "O''Brien", escapeLiteral("O'Brien"))
}
