// Package btreeio is the read-only B-tree reader the repair core treats as
// an external collaborator: open a tree rooted at a given file offset and
// fold its entries in either direction. It never mutates a tree — repair
// and lost-and-found only ever discover and read existing roots, never
// rebalance or rewrite one.
package btreeio

import (
	"errors"
	"fmt"

	"github.com/freyrlabs/mimir/pkg/blockfile"
	"github.com/freyrlabs/mimir/pkg/term"
)

// ErrEmptyTree is returned by LastKey when a tree's root is a kv_node with
// no entries at all.
var ErrEmptyTree = errors.New("btreeio: tree is empty")

// Direction controls the order Fold visits sibling entries in.
type Direction int

const (
	// Forward visits entries in ascending key order.
	Forward Direction = iota
	// Reverse visits entries in descending key order.
	Reverse
)

// VisitFunc is called once per leaf entry during a Fold. Returning
// cont=false stops the fold early without error.
type VisitFunc func(key term.Term, value []byte) (cont bool, err error)

// Tree is a view of a B-tree rooted at a fixed file offset. It holds no
// tree-wide state beyond the root pointer: every Fold call re-reads nodes
// from the underlying file, which is exactly what lets the same source
// file be opened at many different roots (one per surviving candidate)
// without any of them interfering with each other.
type Tree struct {
	f    *blockfile.File
	root int64
	red  []byte
}

// OpenAt opens a tree whose root node is the term at rootOffset. The
// offset's bytes must decode to a kv_node or kp_node; any other outcome is
// "not a root" and returned as an error, never panics, so the Root Prober
// can treat it as a signal rather than a crash.
func OpenAt(f *blockfile.File, rootOffset int64, reduction []byte) (*Tree, error) {
	node, _, err := f.DecodeTermAt(rootOffset)
	if err != nil {
		return nil, fmt.Errorf("btreeio: open at %d: %w", rootOffset, err)
	}
	switch node.(type) {
	case *term.KVNode, *term.KPNode:
		return &Tree{f: f, root: rootOffset, red: reduction}, nil
	default:
		return nil, fmt.Errorf("btreeio: open at %d: not a node term (%T)", rootOffset, node)
	}
}

// Fold walks every leaf entry reachable from the root in dir order,
// calling visit for each. A visit error, or a decode/open failure on any
// node along the way, aborts the fold and is returned.
func (t *Tree) Fold(dir Direction, visit VisitFunc) error {
	_, err := t.foldNode(t.root, dir, visit)
	return err
}

// foldNode returns (keepGoing, error). keepGoing is false once visit has
// asked to stop, so callers higher in the recursion stop issuing further
// calls without treating it as an error.
func (t *Tree) foldNode(offset int64, dir Direction, visit VisitFunc) (bool, error) {
	node, _, err := t.f.DecodeTermAt(offset)
	if err != nil {
		return false, fmt.Errorf("btreeio: decode node at %d: %w", offset, err)
	}
	switch n := node.(type) {
	case *term.KVNode:
		for _, i := range orderedIndexes(len(n.Entries), dir) {
			e := n.Entries[i]
			cont, err := visit(e.Key, e.Value)
			if err != nil {
				return false, err
			}
			if !cont {
				return false, nil
			}
		}
		return true, nil

	case *term.KPNode:
		for _, i := range orderedIndexes(len(n.Entries), dir) {
			keepGoing, err := t.foldNode(n.Entries[i].ChildOff, dir, visit)
			if err != nil {
				return false, err
			}
			if !keepGoing {
				return false, nil
			}
		}
		return true, nil

	default:
		return false, fmt.Errorf("btreeio: unrecognized node type %T at %d", node, offset)
	}
}

func orderedIndexes(n int, dir Direction) []int {
	idxs := make([]int, n)
	if dir == Forward {
		for i := range idxs {
			idxs[i] = i
		}
		return idxs
	}
	for i := range idxs {
		idxs[i] = n - 1 - i
	}
	return idxs
}

// LastKey folds the tree in reverse and stops at the first entry,
// returning its key. This is exactly the Root Prober's probing step: the
// greatest key of a candidate root, used to classify the tree kind and,
// for a by-seq root, to seed the repaired header's update_seq.
func (t *Tree) LastKey() (term.Term, error) {
	var key term.Term
	found := false
	err := t.Fold(Reverse, func(k term.Term, v []byte) (bool, error) {
		key = k
		found = true
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrEmptyTree
	}
	return key, nil
}
