package repair

import (
	"bytes"

	"github.com/freyrlabs/mimir/pkg/blockfile"
	"github.com/freyrlabs/mimir/pkg/term"
)

// ScanChunkSize is the size of each backward read the Signature Scanner
// performs.
const ScanChunkSize = 1 << 20 // 1 MiB

// localDocPrefix marks a document id as a local (non-replicated) document;
// the Node Acceptor never salvages these.
var localDocPrefix = []byte("_local/")

// FindKVNodeOffsets is the Signature Scanner: it reads the file backward
// in ScanChunkSize chunks, recognizes every byte position whose
// subsequent bytes match the on-disk kv_node signature (or one of its
// twelve block-boundary-truncated forms), runs each match through the
// Node Acceptor, and returns the accepted candidate offsets. Order is
// newest-first (the chunk nearest EOF is scanned first); callers that
// don't care about order may treat the result as an unordered set.
func FindKVNodeOffsets(f *blockfile.File) ([]int64, error) {
	size := f.Size()
	floor := int64(blockfile.SuperBlockSize)

	var candidates []int64
	end := size
	for end > floor {
		start := end - ScanChunkSize
		if start < floor {
			start = floor
		}
		// Extend the read a little past this chunk's upper edge so a
		// signature whose bytes start near the boundary isn't cut off
		// mid-match; those extra bytes were already scanned as part of
		// the previous (higher) chunk and are not re-tested here.
		readEnd := end + int64(len(term.KVNodeSignature))
		if readEnd > size {
			readEnd = size
		}
		buf, err := f.ReadRaw(start, readEnd-start)
		if err != nil {
			return nil, err
		}

		scanLen := int(end - start)
		for i := 0; i < scanLen; i++ {
			p := start + int64(i)
			if _, ok := matchSignature(buf[i:], p); !ok {
				continue
			}
			candidate := p - int64(lengthPrefixSize)
			if accepted, ok := acceptCandidate(f, candidate); ok {
				candidates = append(candidates, accepted)
			}
		}
		end = start
	}
	return candidates, nil
}

const lengthPrefixSize = 4

// matchSignature tests whether avail (the file's bytes starting at
// absolute offset p) begins with the full kv_node signature or one of its
// truncated alternatives valid at p's position within a block.
func matchSignature(avail []byte, p int64) (int, bool) {
	sig := term.KVNodeSignature
	if len(avail) >= len(sig) && bytes.Equal(avail[:len(sig)], sig) {
		return len(sig), true
	}
	for l := len(sig) - 1; l >= 1; l-- {
		if len(avail) < l {
			continue
		}
		if !bytes.Equal(avail[:l], sig[:l]) {
			continue
		}
		if p%blockfile.BlockSize == int64(blockfile.BlockSize-l) {
			return l, true
		}
	}
	return 0, false
}

// acceptCandidate is the Node Acceptor. It attempts a term decode at
// candidate; only a decode failure triggers the single retry at
// candidate-1 (recovering from the one-byte offset a block-boundary pad
// can introduce between the length prefix and the term itself). A
// successful decode that isn't an acceptable kv_node is rejected outright
// — no retry. It returns the offset actually accepted (candidate or
// candidate-1) and whether acceptance happened at all.
func acceptCandidate(f *blockfile.File, candidate int64) (int64, bool) {
	node, _, err := f.DecodeTermAt(candidate)
	if err == nil {
		return evaluateDecoded(node, candidate)
	}
	if candidate-1 < 0 {
		return 0, false
	}
	node, _, err = f.DecodeTermAt(candidate - 1)
	if err != nil {
		return 0, false
	}
	return evaluateDecoded(node, candidate-1)
}

func evaluateDecoded(node term.Node, offset int64) (int64, bool) {
	kv, ok := node.(*term.KVNode)
	if !ok || len(kv.Entries) == 0 {
		return 0, false
	}
	key, ok := kv.Entries[0].Key.([]byte)
	if !ok {
		return 0, false
	}
	if bytes.HasPrefix(key, localDocPrefix) {
		return 0, false
	}
	return offset, true
}
