package repair

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freyrlabs/mimir/pkg/blockfile"
	"github.com/freyrlabs/mimir/pkg/term"
)

func newRepairTestFile(t *testing.T) *blockfile.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mimir")
	f, err := blockfile.Create(path, blockfile.SyncEveryWrite)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestProbeRootClassifiesByIDLeaf(t *testing.T) {
	f := newRepairTestFile(t)
	off, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("apple"), Value: []byte("v")},
		{Key: []byte("mango"), Value: []byte("v")},
	}})
	require.NoError(t, err)

	result, err := ProbeRoot(f, off)
	require.NoError(t, err)
	assert.Equal(t, ByID, result.Kind)
	assert.Equal(t, []byte("mango"), result.LastKey)
}

func TestProbeRootClassifiesBySeqLeaf(t *testing.T) {
	f := newRepairTestFile(t)
	off, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: int64(1), Value: []byte("v")},
		{Key: int64(99), Value: []byte("v")},
	}})
	require.NoError(t, err)

	result, err := ProbeRoot(f, off)
	require.NoError(t, err)
	assert.Equal(t, BySeq, result.Kind)
	assert.Equal(t, int64(99), result.LastKey)
}

func TestProbeRootFailsOnNonNodeOffset(t *testing.T) {
	f := newRepairTestFile(t)
	off, err := f.Append([]byte("just some bytes"))
	require.NoError(t, err)

	_, err = ProbeRoot(f, off)
	assert.Error(t, err)
}

func TestProbeRootFailsOnEmptyLeaf(t *testing.T) {
	f := newRepairTestFile(t)
	off, err := f.AppendNode(&term.KVNode{})
	require.NoError(t, err)

	_, err = ProbeRoot(f, off)
	assert.Error(t, err)
}
