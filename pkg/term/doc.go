// Package term implements a minimal subset of the Erlang External Term
// Format (ETF), just enough to encode and decode the B-tree node terms a
// mimir database file is built from.
//
// # Why ETF
//
// The on-disk database file this module repairs stores every node as a
// tagged tuple term: {kv_node, Entries} for leaves or {kp_node, Entries}
// for interior nodes. The signature the repair core searches for —
//
//	0x83 0x68 0x02 0x64 0x00 0x07 'k' 'v' '_' 'n' 'o' 'd' 'e'
//
// is exactly the ETF encoding of the tuple header for {kv_node, _}: a
// version byte (0x83), a small-tuple-of-arity-2 tag (0x68 0x02), and an
// atom of length 7 (0x64 0x00 0x07) spelling "kv_node". This package
// produces and parses exactly that encoding, plus the handful of other ETF
// tags a node term needs: lists, binaries, and integers.
//
// # Supported subset
//
// Only the tags a node term can contain are implemented:
//
//	0x83      version (always the first byte of a top-level term)
//	0x68 N    small tuple, arity N (1 byte)
//	0x64 L B  atom, 2-byte big-endian length L, L bytes B
//	0x6c N .. list, 4-byte big-endian length N, N elements, then a tail
//	0x6a      nil (empty list / proper-list terminator)
//	0x6d L B  binary, 4-byte big-endian length L, L bytes B
//	0x61 B    small integer, 1 unsigned byte B (0..255)
//	0x62 N    integer, 4-byte big-endian signed N
//
// Anything else is a decode error; this is a repair tool, not a general
// ETF library.
package term
