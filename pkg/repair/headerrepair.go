package repair

import (
	"errors"
	"fmt"

	"github.com/freyrlabs/mimir/pkg/blockfile"
	"github.com/freyrlabs/mimir/pkg/term"
)

// RepairStatus discriminates the outcomes Header Repair can report.
type RepairStatus string

const (
	// StatusNoHeader means the file carries no valid trailing header;
	// the caller may escalate to lost-and-found.
	StatusNoHeader RepairStatus = "no_header"
	// StatusOK means no repair was necessary and the file is untouched.
	StatusOK RepairStatus = "ok"
	// StatusRepaired means a new header was written.
	StatusRepaired RepairStatus = "repaired"
)

// RepairResult is the outcome of running Header Repair against a file.
type RepairResult struct {
	Status       RepairStatus
	HeaderOffset int64
	ByIDRoot     blockfile.Pointer
	BySeqRoot    blockfile.Pointer
	UpdateSeq    int64
	ByIDLastKey  term.Term
	BySeqLastKey term.Term
}

// Repair implements Header Repair: it reads the trailing header, tail
// scans from end of file for the newest by-seq and by-id roots, and —
// only if the by-seq root lies strictly past the existing header and a
// by-id root is found at all (it may lie before the header) — writes and
// syncs a new header that advances update_seq and both root pointers
// while preserving every other field from the previous header verbatim.
func Repair(f *blockfile.File) (*RepairResult, error) {
	prev, headerOffset, err := f.ReadTrailingHeader()
	if errors.Is(err, blockfile.ErrNoHeader) || errors.Is(err, blockfile.ErrCorruptHeader) {
		return &RepairResult{Status: StatusNoHeader}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repair: read trailing header: %w", err)
	}

	scanStart := f.Size() - 1
	if scanStart < int64(blockfile.SuperBlockSize) {
		return &RepairResult{Status: StatusOK, HeaderOffset: headerOffset}, nil
	}

	bySeq, err := TailScan(f, BySeq, scanStart)
	if err != nil {
		return nil, fmt.Errorf("repair: tail scan for by_seq root: %w", err)
	}
	if bySeq == nil || bySeq.Offset <= headerOffset {
		// No new by-seq root past the existing header: nothing to do.
		return &RepairResult{Status: StatusOK, HeaderOffset: headerOffset}, nil
	}

	byID, err := TailScan(f, ByID, scanStart)
	if err != nil {
		return nil, fmt.Errorf("repair: tail scan for by_id root: %w", err)
	}
	if byID == nil {
		// A fresh by-seq root with no matching by-id root: a complete
		// header can't be built, so leave the file alone rather than
		// guess at the other tree.
		return &RepairResult{Status: StatusOK, HeaderOffset: headerOffset}, nil
	}

	updateSeq, ok := bySeq.LastKey.(int64)
	if !ok {
		return nil, fmt.Errorf("repair: by_seq root's last key is %T, not an integer", bySeq.LastKey)
	}

	newHeader := blockfile.Header{
		UpdateSeq: updateSeq,
		ByIDRoot:  blockfile.Pointer{Offset: byID.Offset, Reduction: prev.ByIDRoot.Reduction},
		BySeqRoot: blockfile.Pointer{Offset: bySeq.Offset, Reduction: prev.BySeqRoot.Reduction},
		Opaque:    prev.Opaque,
	}
	newOffset, err := f.WriteHeader(newHeader)
	if err != nil {
		return nil, fmt.Errorf("repair: write repaired header: %w", err)
	}

	return &RepairResult{
		Status:       StatusRepaired,
		HeaderOffset: newOffset,
		ByIDRoot:     newHeader.ByIDRoot,
		BySeqRoot:    newHeader.BySeqRoot,
		UpdateSeq:    newHeader.UpdateSeq,
		ByIDLastKey:  byID.LastKey,
		BySeqLastKey: bySeq.LastKey,
	}, nil
}
