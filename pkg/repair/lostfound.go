package repair

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/freyrlabs/mimir/pkg/blockfile"
	"github.com/freyrlabs/mimir/pkg/btreeio"
	"github.com/freyrlabs/mimir/pkg/mergesvc"
)

// RootOutcome records what happened when the driver tried to merge one
// candidate root.
type RootOutcome struct {
	Offset int64
	Err    error
}

// LostAndFoundResult summarizes a full make_lost_and_found run.
type LostAndFoundResult struct {
	CandidateRoots []int64
	Merged         []int64
	Failed         []RootOutcome
}

// MakeLostAndFound is the Lost-and-Found Driver: it signature-scans the
// source file for every surviving by-id kv_node root, then merges each
// one independently into the target database. A failure merging one root
// is recorded and does not stop the rest, so a single corrupt root can't
// prevent recovery of the others.
func MakeLostAndFound(sourcePath, targetPath string) (*LostAndFoundResult, error) {
	src, err := blockfile.Open(sourcePath, blockfile.SyncEveryWrite)
	if err != nil {
		return nil, fmt.Errorf("repair: open source %s: %w", sourcePath, err)
	}
	defer src.Close()

	roots, err := FindKVNodeOffsets(src)
	if err != nil {
		return nil, fmt.Errorf("repair: scan %s for by_id roots: %w", sourcePath, err)
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0750); err != nil {
		return nil, fmt.Errorf("repair: create target directory: %w", err)
	}
	target, err := mergesvc.OpenTarget(targetPath)
	if err != nil {
		return nil, fmt.Errorf("repair: open target %s: %w", targetPath, err)
	}
	defer target.Close()

	stagingDir, err := os.MkdirTemp("", "mimir-merge-")
	if err != nil {
		return nil, fmt.Errorf("repair: create merge staging dir: %w", err)
	}
	svc, err := mergesvc.NewDefaultMergeService(stagingDir)
	if err != nil {
		return nil, fmt.Errorf("repair: open merge service: %w", err)
	}
	defer svc.Close()

	result := &LostAndFoundResult{CandidateRoots: roots}
	for _, offset := range roots {
		view, err := btreeio.OpenAt(src, offset, nil)
		if err != nil {
			result.Failed = append(result.Failed, RootOutcome{Offset: offset, Err: err})
			continue
		}
		if err := svc.MergeInto(view, target); err != nil {
			result.Failed = append(result.Failed, RootOutcome{Offset: offset, Err: err})
			continue
		}
		result.Merged = append(result.Merged, offset)
	}
	return result, nil
}
