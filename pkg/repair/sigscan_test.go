package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freyrlabs/mimir/pkg/blockfile"
	"github.com/freyrlabs/mimir/pkg/term"
)

func TestFindKVNodeOffsetsOnEmptyFile(t *testing.T) {
	f := newRepairTestFile(t)
	offsets, err := FindKVNodeOffsets(f)
	require.NoError(t, err)
	assert.Empty(t, offsets)
}

func TestFindKVNodeOffsetsFindsSingleLeaf(t *testing.T) {
	f := newRepairTestFile(t)
	off, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("doc-1"), Value: []byte("v1")},
	}})
	require.NoError(t, err)

	offsets, err := FindKVNodeOffsets(f)
	require.NoError(t, err)
	assert.Contains(t, offsets, off)
}

func TestFindKVNodeOffsetsExcludesLocalDocs(t *testing.T) {
	f := newRepairTestFile(t)
	off, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("_local/checkpoint"), Value: []byte("v")},
	}})
	require.NoError(t, err)

	offsets, err := FindKVNodeOffsets(f)
	require.NoError(t, err)
	assert.NotContains(t, offsets, off)
}

func TestFindKVNodeOffsetsIgnoresInteriorNodes(t *testing.T) {
	f := newRepairTestFile(t)
	leaf, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("a"), Value: []byte("v")},
	}})
	require.NoError(t, err)
	kpOff, err := f.AppendNode(&term.KPNode{Entries: []term.KPEntry{
		{Key: []byte("a"), ChildOff: leaf, Reduction: []byte{}},
	}})
	require.NoError(t, err)

	offsets, err := FindKVNodeOffsets(f)
	require.NoError(t, err)
	assert.Contains(t, offsets, leaf)
	assert.NotContains(t, offsets, kpOff)
}

func TestFindKVNodeOffsetsAcrossBlockBoundaryStraddle(t *testing.T) {
	f := newRepairTestFile(t)
	// Pad the file out near a boundary so the next node's signature
	// bytes straddle a 4096 block edge, exercising the scanner's
	// truncated-prefix matching.
	distanceToBoundary := int64(6)
	fillerOverhead := int64(lengthPrefixSize + len(term.EncodeKVNode(&term.KVNode{
		Entries: []term.KVEntry{{Key: []byte("filler")}},
	})))
	fillLen := int(nextTestBoundary(f.Size()+1) - distanceToBoundary - f.Size() - fillerOverhead)
	_, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("filler"), Value: make([]byte, fillLen)},
	}})
	require.NoError(t, err)

	off, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("straddling-doc"), Value: []byte("v")},
	}})
	require.NoError(t, err)

	offsets, err := FindKVNodeOffsets(f)
	require.NoError(t, err)
	assert.Contains(t, offsets, off)
}

func TestFindKVNodeOffsetsRejectsFalsePositiveInPayload(t *testing.T) {
	f := newRepairTestFile(t)
	// Embed the literal signature bytes inside a document body so they
	// don't land on a real term boundary; the node acceptor's decode
	// (and its single retry) must fail and reject it.
	payload := append([]byte("user-payload-"), term.KVNodeSignature...)
	payload = append(payload, []byte("-trailer")...)
	_, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("doc-with-embedded-signature"), Value: payload},
	}})
	require.NoError(t, err)

	offsets, err := FindKVNodeOffsets(f)
	require.NoError(t, err)
	// Only the real leaf's own offset should ever be accepted, never an
	// offset derived from the embedded bytes.
	for _, o := range offsets {
		node, _, err := f.DecodeTermAt(o)
		require.NoError(t, err)
		kv, ok := node.(*term.KVNode)
		require.True(t, ok)
		require.NotEmpty(t, kv.Entries)
	}
}

func nextTestBoundary(off int64) int64 {
	if off%blockfile.BlockSize == 0 {
		return off
	}
	return off + (blockfile.BlockSize - off%blockfile.BlockSize)
}
