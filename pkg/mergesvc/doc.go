// Package mergesvc is the document/revision model and the document-level
// merge service the repair core treats as an external collaborator: given
// a view of a surviving by-id tree, it streams documents into a target
// database, applying replicated-changes semantics so that the newest
// revision for a given document id always wins regardless of which
// candidate root it was discovered under.
package mergesvc

import (
	"fmt"

	"github.com/freyrlabs/mimir/pkg/term"
)

// Revision identifies one entry in a document's revision history: its
// generation number and the hash of its content. Revisions is kept
// newest-first, mirroring how a by-id leaf's value stores them.
type Revision struct {
	Pos  int
	Hash [16]byte
}

// Doc is the decoded form of a by-id leaf entry's value: everything the
// merge service needs to decide whether one copy of a document wins over
// another, plus the opaque body to carry forward.
type Doc struct {
	Revisions []Revision
	Deleted   bool
	Body      []byte
}

// Winning returns the document's current winning revision: by convention
// the first (newest) entry in Revisions.
func (d Doc) Winning() (Revision, bool) {
	if len(d.Revisions) == 0 {
		return Revision{}, false
	}
	return d.Revisions[0], true
}

// Wins reports whether d is a replacement for existing under the
// "highest revision wins" rule: a strictly higher winning generation
// wins outright; on a tie, the lexicographically greater hash wins, so
// the comparison is total and merge order never matters.
func (d Doc) Wins(existing Doc) bool {
	dw, dok := d.Winning()
	ew, eok := existing.Winning()
	if !eok {
		return true
	}
	if !dok {
		return false
	}
	if dw.Pos != ew.Pos {
		return dw.Pos > ew.Pos
	}
	for i := 0; i < 16; i++ {
		if dw.Hash[i] != ew.Hash[i] {
			return dw.Hash[i] > ew.Hash[i]
		}
	}
	return false
}

// EncodeDocValue serializes d as the ETF term a by-id leaf stores as its
// entry value: {[{Pos, Hash}, ...], DeletedFlag, Body}.
func EncodeDocValue(d Doc) []byte {
	revs := make(term.List, 0, len(d.Revisions))
	for _, r := range d.Revisions {
		hash := make([]byte, 16)
		copy(hash, r.Hash[:])
		revs = append(revs, term.Tuple{int64(r.Pos), hash})
	}
	deleted := int64(0)
	if d.Deleted {
		deleted = 1
	}
	return term.Encode(term.Tuple{revs, deleted, d.Body})
}

// DecodeDocValue parses a by-id leaf entry's value back into a Doc.
func DecodeDocValue(data []byte) (Doc, error) {
	v, _, err := term.Decode(data)
	if err != nil {
		return Doc{}, fmt.Errorf("mergesvc: decode doc value: %w", err)
	}
	tup, ok := v.(term.Tuple)
	if !ok || len(tup) != 3 {
		return Doc{}, fmt.Errorf("mergesvc: doc value is not a 3-tuple")
	}

	revList, ok := tup[0].(term.List)
	if !ok {
		return Doc{}, fmt.Errorf("mergesvc: doc value revisions is not a list")
	}
	revs := make([]Revision, 0, len(revList))
	for _, raw := range revList {
		rt, ok := raw.(term.Tuple)
		if !ok || len(rt) != 2 {
			return Doc{}, fmt.Errorf("mergesvc: revision entry is not a 2-tuple")
		}
		pos, ok := rt[0].(int64)
		if !ok {
			return Doc{}, fmt.Errorf("mergesvc: revision pos is not an integer")
		}
		hashBytes, ok := rt[1].([]byte)
		if !ok || len(hashBytes) != 16 {
			return Doc{}, fmt.Errorf("mergesvc: revision hash is not 16 bytes")
		}
		var hash [16]byte
		copy(hash[:], hashBytes)
		revs = append(revs, Revision{Pos: int(pos), Hash: hash})
	}

	deletedInt, ok := tup[1].(int64)
	if !ok {
		return Doc{}, fmt.Errorf("mergesvc: doc value deleted flag is not an integer")
	}
	body, ok := tup[2].([]byte)
	if !ok {
		return Doc{}, fmt.Errorf("mergesvc: doc value body is not a binary")
	}

	return Doc{Revisions: revs, Deleted: deletedInt != 0, Body: body}, nil
}
