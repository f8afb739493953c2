package term

import "fmt"

// Tags for the two node kinds a B-tree term can carry.
const (
	KVNodeAtom Atom = "kv_node"
	KPNodeAtom Atom = "kp_node"
)

// KVNodeSignature is the fixed 13-byte on-disk prefix of every kv_node
// (leaf) term: version byte, 2-tuple header, and the "kv_node" atom.
var KVNodeSignature = Encode(Tuple{KVNodeAtom, List{}})[:13]

// KPNodeSignature is the sibling prefix for interior nodes.
var KPNodeSignature = Encode(Tuple{KPNodeAtom, List{}})[:13]

// KVEntry is one leaf entry: a key and its opaque value bytes. Key is
// either a []byte (a by-id tree's document id) or an int64 (a by-seq
// tree's update sequence) — whichever the on-disk term actually encodes.
type KVEntry struct {
	Key   Term
	Value []byte
}

// KPEntry is one interior entry: a separator key plus a pointer to the
// child subtree and its cached reduction. Key has the same by-id/by-seq
// duality as KVEntry.Key.
type KPEntry struct {
	Key       Term
	ChildOff  int64
	Reduction []byte
}

// KVNode is a decoded leaf node term: {kv_node, [{Key, Value}, ...]}.
type KVNode struct {
	Entries []KVEntry
}

// KPNode is a decoded interior node term: {kp_node, [{Key, Off, Reduction}, ...]}.
type KPNode struct {
	Entries []KPEntry
}

// Node is either a *KVNode or a *KPNode, as returned by DecodeNode.
type Node interface{}

// EncodeKVNode serializes a leaf node term.
func EncodeKVNode(n *KVNode) []byte {
	entries := make(List, 0, len(n.Entries))
	for _, e := range n.Entries {
		entries = append(entries, Tuple{e.Key, []byte(e.Value)})
	}
	return Encode(Tuple{KVNodeAtom, entries})
}

// EncodeKPNode serializes an interior node term.
func EncodeKPNode(n *KPNode) []byte {
	entries := make(List, 0, len(n.Entries))
	for _, e := range n.Entries {
		entries = append(entries, Tuple{e.Key, int64(e.ChildOff), []byte(e.Reduction)})
	}
	return Encode(Tuple{KPNodeAtom, entries})
}

// DecodeNode parses data as a node term and returns a *KVNode or *KPNode.
// Any other well-formed term, or malformed data, is a decode error.
func DecodeNode(data []byte) (Node, error) {
	v, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	tup, ok := v.(Tuple)
	if !ok || len(tup) != 2 {
		return nil, fmt.Errorf("term: not a 2-tuple node term")
	}
	tag, ok := tup[0].(Atom)
	if !ok {
		return nil, fmt.Errorf("term: node tag is not an atom")
	}
	entries, ok := tup[1].(List)
	if !ok {
		return nil, fmt.Errorf("term: node entries is not a list")
	}

	switch tag {
	case KVNodeAtom:
		out := &KVNode{Entries: make([]KVEntry, 0, len(entries))}
		for _, raw := range entries {
			etup, ok := raw.(Tuple)
			if !ok || len(etup) != 2 {
				return nil, fmt.Errorf("term: kv_node entry is not a 2-tuple")
			}
			val, ok := etup[1].([]byte)
			if !ok {
				return nil, fmt.Errorf("term: kv_node entry value is not a binary")
			}
			out.Entries = append(out.Entries, KVEntry{Key: etup[0], Value: val})
		}
		return out, nil

	case KPNodeAtom:
		out := &KPNode{Entries: make([]KPEntry, 0, len(entries))}
		for _, raw := range entries {
			etup, ok := raw.(Tuple)
			if !ok || len(etup) != 3 {
				return nil, fmt.Errorf("term: kp_node entry is not a 3-tuple")
			}
			off, ok := etup[1].(int64)
			if !ok {
				return nil, fmt.Errorf("term: kp_node entry offset is not an integer")
			}
			red, ok := etup[2].([]byte)
			if !ok {
				return nil, fmt.Errorf("term: kp_node entry reduction is not a binary")
			}
			out.Entries = append(out.Entries, KPEntry{Key: etup[0], ChildOff: off, Reduction: red})
		}
		return out, nil

	default:
		return nil, fmt.Errorf("term: unknown node tag %q", tag)
	}
}
