package mergesvc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freyrlabs/mimir/pkg/btreeio"
	"github.com/freyrlabs/mimir/pkg/term"
)

func TestOpenTargetCreatesFileWhenAbsent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lost+found")
	require.NoError(t, os.MkdirAll(dir, 0750))
	path := filepath.Join(dir, "db.couch")

	tgt, err := OpenTarget(path)
	require.NoError(t, err)
	defer tgt.Close()
	assert.Equal(t, 0, tgt.Len())
}

func TestCommitWritesRetrievableDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.couch")
	tgt, err := OpenTarget(path)
	require.NoError(t, err)
	defer tgt.Close()

	doc := Doc{Revisions: []Revision{{Pos: 1, Hash: [16]byte{7}}}, Body: []byte("hello")}
	tgt.Put([]byte("doc-a"), EncodeDocValue(doc))
	require.NoError(t, tgt.Commit())

	h, _, err := tgt.f.ReadTrailingHeader()
	require.NoError(t, err)
	require.NotZero(t, h.ByIDRoot.Offset)

	tree, err := btreeio.OpenAt(tgt.f, h.ByIDRoot.Offset, nil)
	require.NoError(t, err)
	lastKey, err := tree.LastKey()
	require.NoError(t, err)
	assert.Equal(t, []byte("doc-a"), lastKey)
}

func TestReopenTargetPreloadsPreviousDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.couch")
	tgt, err := OpenTarget(path)
	require.NoError(t, err)
	tgt.Put([]byte("doc-a"), EncodeDocValue(Doc{Revisions: []Revision{{Pos: 1}}}))
	require.NoError(t, tgt.Commit())
	require.NoError(t, tgt.Close())

	reopened, err := OpenTarget(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, 1, reopened.Len())
}

func TestCommitSplitsAcrossMultipleLeavesBeyondMax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.couch")
	tgt, err := OpenTarget(path)
	require.NoError(t, err)
	defer tgt.Close()

	total := maxLeafEntries + 10
	for i := 0; i < total; i++ {
		tgt.Put([]byte(paddedID(i)), EncodeDocValue(Doc{Revisions: []Revision{{Pos: 1}}}))
	}
	require.NoError(t, tgt.Commit())

	h, _, err := tgt.f.ReadTrailingHeader()
	require.NoError(t, err)
	tree, err := btreeio.OpenAt(tgt.f, h.ByIDRoot.Offset, nil)
	require.NoError(t, err)

	var count int
	err = tree.Fold(btreeio.Forward, func(k term.Term, v []byte) (bool, error) {
		count++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, total, count)
}

func paddedID(i int) string {
	const digits = "0123456789"
	b := make([]byte, 6)
	for p := len(b) - 1; p >= 0; p-- {
		b[p] = digits[i%10]
		i /= 10
	}
	return string(b)
}
