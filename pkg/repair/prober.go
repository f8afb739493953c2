package repair

import (
	"fmt"

	"github.com/freyrlabs/mimir/pkg/blockfile"
	"github.com/freyrlabs/mimir/pkg/btreeio"
	"github.com/freyrlabs/mimir/pkg/term"
)

// ProbeResult is what the Root Prober reports for a candidate that does
// open as a tree: which kind of tree it is, and its greatest key.
type ProbeResult struct {
	Kind    TreeKind
	LastKey term.Term
}

// ProbeRoot asks the B-tree reader to open a tree rooted at offset, folds
// it in reverse to the first entry, and classifies that key. Any failure
// along the way — the offset not decoding to a node term, an empty tree,
// or a key of an unexpected type — is reported as "not a root", never a
// panic, since candidate offsets are guesses by construction.
func ProbeRoot(f *blockfile.File, offset int64) (*ProbeResult, error) {
	tree, err := btreeio.OpenAt(f, offset, nil)
	if err != nil {
		return nil, fmt.Errorf("repair: probe %d: %w", offset, err)
	}
	lastKey, err := tree.LastKey()
	if err != nil {
		return nil, fmt.Errorf("repair: probe %d: %w", offset, err)
	}
	kind, err := Classify(lastKey)
	if err != nil {
		return nil, fmt.Errorf("repair: probe %d: %w", offset, err)
	}
	return &ProbeResult{Kind: kind, LastKey: lastKey}, nil
}
