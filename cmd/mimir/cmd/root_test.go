package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freyrlabs/mimir/pkg/blockfile"
	"github.com/freyrlabs/mimir/pkg/term"
)

func newTestCouchFile(t *testing.T, dbDir, name string) {
	t.Helper()
	path := filepath.Join(dbDir, name+".couch")
	f, err := blockfile.Create(path, blockfile.SyncEveryWrite)
	require.NoError(t, err)
	_, err = f.AppendNode(&term.KVNode{Entries: []term.KVEntry{
		{Key: []byte("doc-1"), Value: []byte("v")},
	}})
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRepairCommandReportsNoHeaderOnFreshFile(t *testing.T) {
	dir := t.TempDir()
	newTestCouchFile(t, dir, "db1")

	out, err := runRoot(t, "--database-dir", dir, "repair", "db1")
	require.NoError(t, err)
	assert.Contains(t, out, "no valid header found")
}

func TestFindNodesCommandListsCandidateOffsets(t *testing.T) {
	dir := t.TempDir()
	newTestCouchFile(t, dir, "db1")

	out, err := runRoot(t, "--database-dir", dir, "find-nodes", "db1")
	require.NoError(t, err)
	// The only node in the file is the first entry after the super-block.
	assert.Contains(t, out, "\n4096\n")
}

func TestLostAndFoundCommandReportsMergedCount(t *testing.T) {
	dir := t.TempDir()
	newTestCouchFile(t, dir, "db1")

	out, err := runRoot(t, "--database-dir", dir, "lost-and-found", "db1")
	require.NoError(t, err)
	assert.Contains(t, out, "merged")
}

func TestRepairCommandRequiresExactlyOneArg(t *testing.T) {
	_, err := runRoot(t, "repair")
	assert.Error(t, err)
}
