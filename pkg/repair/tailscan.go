package repair

import (
	"github.com/freyrlabs/mimir/pkg/blockfile"
	"github.com/freyrlabs/mimir/pkg/term"
)

// TailScanResult is the nearest root of the requested kind found by
// walking backward from end of file.
type TailScanResult struct {
	Offset  int64
	Kind    TreeKind
	LastKey term.Term
}

// TailScan walks offsets downward from start, one byte at a time,
// attempting a term decode at each. Whenever a decode succeeds, the Root
// Prober is asked whether that offset is a root of kind want; the first
// one that is wins. Decode failures and "not a root" outcomes are both
// silently skipped — this is a byte-granularity search over a
// length-prefixed format, so most positions are expected to fail.
//
// A nil, nil result means no matching root was found down to the start of
// the appendable region; TailScan never returns an error for that case,
// only for a genuine I/O failure reading the file.
func TailScan(f *blockfile.File, want TreeKind, start int64) (*TailScanResult, error) {
	floor := int64(blockfile.SuperBlockSize)
	for p := start; p >= floor; p-- {
		if _, _, err := f.DecodeTermAt(p); err != nil {
			continue
		}
		probe, err := ProbeRoot(f, p)
		if err != nil {
			continue
		}
		if probe.Kind != want {
			continue
		}
		return &TailScanResult{Offset: p, Kind: probe.Kind, LastKey: probe.LastKey}, nil
	}
	return nil, nil
}
