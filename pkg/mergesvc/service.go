package mergesvc

import (
	"fmt"
	"os"

	"github.com/freyrlabs/mimir/pkg/btreeio"
	"github.com/freyrlabs/mimir/pkg/term"
)

// batchSize is how many documents the fold collects before staging and
// writing them forward, matching the batching merge_to_file is specified
// to use.
const batchSize = 1000

// MergeService streams documents from a source by-id tree view into a
// target database, applying replicated-changes, highest-revision-wins
// semantics across every root a lost-and-found run discovers.
type MergeService interface {
	MergeInto(view *btreeio.Tree, target *Target) error
	Close() error
}

// DefaultMergeService is the pebble-backed MergeService. One instance is
// shared across every candidate root a lost-and-found run processes, so
// its staging store sees every document id that surfaces under any root
// and can resolve cross-root duplicates, not just within a single fold.
type DefaultMergeService struct {
	stage *stage
}

// NewDefaultMergeService opens a fresh dedup staging area under
// stagingDir (created if absent) for the lifetime of one merge run.
func NewDefaultMergeService(stagingDir string) (*DefaultMergeService, error) {
	if err := os.MkdirAll(stagingDir, 0750); err != nil {
		return nil, fmt.Errorf("mergesvc: create staging dir: %w", err)
	}
	st, err := openStage(stagingDir)
	if err != nil {
		return nil, fmt.Errorf("mergesvc: open staging store: %w", err)
	}
	return &DefaultMergeService{stage: st}, nil
}

// MergeInto folds view's by-id tree in batches, staging each document
// against the run-wide dedup store and forwarding only the winners to
// target, then commits target once per batch so progress survives a
// crash between batches.
func (s *DefaultMergeService) MergeInto(view *btreeio.Tree, target *Target) error {
	type staged struct {
		id    []byte
		value []byte
	}
	batch := make([]staged, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		for _, item := range batch {
			doc, err := DecodeDocValue(item.value)
			if err != nil {
				continue // malformed document record: skip, don't abort the run
			}
			won, err := s.stage.offer(item.id, doc)
			if err != nil {
				return fmt.Errorf("mergesvc: stage %q: %w", item.id, err)
			}
			if won {
				target.Put(item.id, item.value)
			}
		}
		batch = batch[:0]
		return target.Commit()
	}

	err := view.Fold(btreeio.Forward, func(k term.Term, v []byte) (bool, error) {
		id, ok := k.([]byte)
		if !ok {
			return true, nil // not a by-id key: skip defensively, keep folding
		}
		batch = append(batch, staged{id: id, value: v})
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	return flush()
}

// Close releases the dedup staging store.
func (s *DefaultMergeService) Close() error {
	return s.stage.close()
}
