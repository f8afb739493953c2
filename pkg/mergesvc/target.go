package mergesvc

import (
	"errors"
	"os"
	"sort"

	"github.com/freyrlabs/mimir/pkg/blockfile"
	"github.com/freyrlabs/mimir/pkg/btreeio"
	"github.com/freyrlabs/mimir/pkg/term"
)

// maxLeafEntries bounds how many documents a single target by-id leaf
// holds before Commit splits the accumulated set across multiple leaves
// under an interior node, mirroring the batches-of-1000 granularity the
// merge fold itself uses.
const maxLeafEntries = 1000

// Target is the lost-and-found destination database. It accumulates
// winning documents in memory as they're merged in, and Commit appends a
// fresh snapshot of the full by-id tree plus a new header — never
// rewriting or truncating what's already on disk, so a crash mid-merge
// leaves the file at its last committed snapshot, not a half-written one.
type Target struct {
	f         *blockfile.File
	updateSeq int64
	byID      map[string][]byte // doc id -> encoded Doc value
}

// OpenTarget opens the target database at path, creating it if absent,
// and preloads any documents it already holds (so re-running
// make_lost_and_found against the same target is cumulative, not
// destructive).
func OpenTarget(path string) (*Target, error) {
	var f *blockfile.File
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f, err = blockfile.Create(path, blockfile.SyncBeforeHeader)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		f, err = blockfile.Open(path, blockfile.SyncBeforeHeader)
		if err != nil {
			return nil, err
		}
	}

	t := &Target{f: f, byID: make(map[string][]byte)}
	if err := t.preload(); err != nil {
		f.Close()
		return nil, err
	}
	return t, nil
}

func (t *Target) preload() error {
	h, _, err := t.f.ReadTrailingHeader()
	if errors.Is(err, blockfile.ErrNoHeader) || errors.Is(err, blockfile.ErrCorruptHeader) {
		return nil
	}
	if err != nil {
		return err
	}
	t.updateSeq = h.UpdateSeq
	if h.ByIDRoot.Offset == 0 {
		return nil
	}
	tree, err := btreeio.OpenAt(t.f, h.ByIDRoot.Offset, h.ByIDRoot.Reduction)
	if err != nil {
		return err
	}
	return tree.Fold(btreeio.Forward, func(k term.Term, v []byte) (bool, error) {
		id, ok := k.([]byte)
		if !ok {
			return true, nil
		}
		t.byID[string(id)] = v
		return true, nil
	})
}

// Put stages id's merged value for the next Commit, unconditionally
// overwriting whatever value (if any) id already carried — the caller
// (the merge fold, via the staging dedup store) is responsible for only
// calling Put with a value it has already determined is the winner.
func (t *Target) Put(id []byte, value []byte) {
	t.byID[string(id)] = value
}

// Len reports how many distinct document ids are currently staged.
func (t *Target) Len() int { return len(t.byID) }

// Commit appends the full accumulated document set as one or more by-id
// leaves (splitting across an interior node if needed), advances
// update_seq, and writes and syncs a new header pointing at the result.
// The by-seq tree is left untouched (a zero Pointer) — lost-and-found
// recovery never salvages by-seq, only by-id.
func (t *Target) Commit() error {
	if len(t.byID) == 0 {
		return nil
	}

	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var leafOffsets []int64
	var leafLastKeys [][]byte
	for start := 0; start < len(ids); start += maxLeafEntries {
		end := start + maxLeafEntries
		if end > len(ids) {
			end = len(ids)
		}
		entries := make([]term.KVEntry, 0, end-start)
		for _, id := range ids[start:end] {
			entries = append(entries, term.KVEntry{Key: []byte(id), Value: t.byID[id]})
		}
		off, err := t.f.AppendNode(&term.KVNode{Entries: entries})
		if err != nil {
			return err
		}
		leafOffsets = append(leafOffsets, off)
		leafLastKeys = append(leafLastKeys, []byte(ids[end-1]))
	}

	rootOffset := leafOffsets[0]
	if len(leafOffsets) > 1 {
		kpEntries := make([]term.KPEntry, len(leafOffsets))
		for i, off := range leafOffsets {
			kpEntries[i] = term.KPEntry{Key: leafLastKeys[i], ChildOff: off, Reduction: []byte{}}
		}
		off, err := t.f.AppendNode(&term.KPNode{Entries: kpEntries})
		if err != nil {
			return err
		}
		rootOffset = off
	}

	t.updateSeq++
	_, err := t.f.WriteHeader(blockfile.Header{
		UpdateSeq: t.updateSeq,
		ByIDRoot:  blockfile.Pointer{Offset: rootOffset},
		BySeqRoot: blockfile.Pointer{},
	})
	return err
}

// Close releases the target's file handle.
func (t *Target) Close() error {
	return t.f.Close()
}
