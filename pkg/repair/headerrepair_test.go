package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freyrlabs/mimir/pkg/blockfile"
	"github.com/freyrlabs/mimir/pkg/term"
)

func TestRepairOnFileWithNoHeaderReportsNoHeader(t *testing.T) {
	f := newRepairTestFile(t)
	result, err := Repair(f)
	require.NoError(t, err)
	assert.Equal(t, StatusNoHeader, result.Status)
}

func TestRepairOnUpToDateHeaderReportsOKAndLeavesFileUnchanged(t *testing.T) {
	f := newRepairTestFile(t)
	byID, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("doc-1"), Value: []byte("v")},
	}})
	require.NoError(t, err)
	bySeq, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: int64(1), Value: []byte("v")},
	}})
	require.NoError(t, err)
	headerOff, err := f.WriteHeader(blockfile.Header{
		UpdateSeq: 1,
		ByIDRoot:  blockfile.Pointer{Offset: byID},
		BySeqRoot: blockfile.Pointer{Offset: bySeq},
	})
	require.NoError(t, err)
	sizeBefore := f.Size()

	result, err := Repair(f)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, headerOff, result.HeaderOffset)
	assert.Equal(t, sizeBefore, f.Size())
}

func TestRepairWithFreshBySeqButNoByIDReportsOK(t *testing.T) {
	f := newRepairTestFile(t)
	// The file holds by-seq leaves only: the tail scan for a by-id root
	// must come back empty.
	bySeq, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: int64(1), Value: []byte("v")},
	}})
	require.NoError(t, err)
	_, err = f.WriteHeader(blockfile.Header{
		UpdateSeq: 1,
		BySeqRoot: blockfile.Pointer{Offset: bySeq},
	})
	require.NoError(t, err)

	// A new by-seq leaf appended past the header, but no matching by-id
	// leaf: a complete header can't be built from this alone.
	_, err = f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: int64(2), Value: []byte("v2")},
	}})
	require.NoError(t, err)

	result, err := Repair(f)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
}

func TestRepairWithFreshByIDAndBySeqReportsRepaired(t *testing.T) {
	f := newRepairTestFile(t)
	byID1, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("doc-1"), Value: []byte("v")},
	}})
	require.NoError(t, err)
	bySeq1, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: int64(1), Value: []byte("v")},
	}})
	require.NoError(t, err)
	oldHeaderOff, err := f.WriteHeader(blockfile.Header{
		UpdateSeq: 1,
		ByIDRoot:  blockfile.Pointer{Offset: byID1, Reduction: []byte("r-id")},
		BySeqRoot: blockfile.Pointer{Offset: bySeq1, Reduction: []byte("r-seq")},
		Opaque:    []byte("carried-forward"),
	})
	require.NoError(t, err)

	byID2, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("doc-2"), Value: []byte("v2")},
	}})
	require.NoError(t, err)
	bySeq2, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: int64(2), Value: []byte("v2")},
	}})
	require.NoError(t, err)

	result, err := Repair(f)
	require.NoError(t, err)
	require.Equal(t, StatusRepaired, result.Status)
	assert.Greater(t, result.HeaderOffset, oldHeaderOff)
	assert.Equal(t, int64(2), result.UpdateSeq)
	assert.Equal(t, byID2, result.ByIDRoot.Offset)
	assert.Equal(t, bySeq2, result.BySeqRoot.Offset)
	assert.Equal(t, []byte("r-id"), result.ByIDRoot.Reduction)
	assert.Equal(t, []byte("r-seq"), result.BySeqRoot.Reduction)

	persisted, _, err := f.ReadTrailingHeader()
	require.NoError(t, err)
	assert.Equal(t, []byte("carried-forward"), persisted.Opaque)
	assert.Equal(t, int64(2), persisted.UpdateSeq)
}

func TestRepairIsIdempotentAfterRepairing(t *testing.T) {
	f := newRepairTestFile(t)
	byID1, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("doc-1"), Value: []byte("v")},
	}})
	require.NoError(t, err)
	bySeq1, err := f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: int64(1), Value: []byte("v")},
	}})
	require.NoError(t, err)
	_, err = f.WriteHeader(blockfile.Header{
		UpdateSeq: 1,
		ByIDRoot:  blockfile.Pointer{Offset: byID1},
		BySeqRoot: blockfile.Pointer{Offset: bySeq1},
	})
	require.NoError(t, err)
	_, err = f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("doc-2"), Value: []byte("v2")},
	}})
	require.NoError(t, err)
	_, err = f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: int64(2), Value: []byte("v2")},
	}})
	require.NoError(t, err)

	first, err := Repair(f)
	require.NoError(t, err)
	require.Equal(t, StatusRepaired, first.Status)

	second, err := Repair(f)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, second.Status)
	assert.Equal(t, first.HeaderOffset, second.HeaderOffset)
}
