// Package repair is the salvage engine: it recovers a usable header from a
// database file whose trailing header is stale or missing, and it can
// enumerate every surviving by-id document root for a full lost-and-found
// recovery. It never trusts a header going in — every entry point is
// prepared to find one absent, corrupt, or simply behind the newest
// appended tree nodes.
package repair

import (
	"fmt"

	"github.com/freyrlabs/mimir/pkg/term"
)

// TreeKind distinguishes the two B-trees a database header anchors.
type TreeKind int

const (
	// ByID is the tree keyed by document id (binary keys).
	ByID TreeKind = iota
	// BySeq is the tree keyed by update sequence (integer keys).
	BySeq
)

func (k TreeKind) String() string {
	switch k {
	case ByID:
		return "by_id"
	case BySeq:
		return "by_seq"
	default:
		return fmt.Sprintf("TreeKind(%d)", int(k))
	}
}

// Classify inspects a decoded key and reports which tree it belongs to.
// Any type other than []byte or int64 is not a key a valid node term can
// produce and is an error.
func Classify(key term.Term) (TreeKind, error) {
	switch key.(type) {
	case []byte:
		return ByID, nil
	case int64:
		return BySeq, nil
	default:
		return 0, fmt.Errorf("repair: key of type %T is neither an integer nor a byte string", key)
	}
}
