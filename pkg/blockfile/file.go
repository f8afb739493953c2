package blockfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/freyrlabs/mimir/pkg/term"
)

// File is a single mimir database file: block 0 is the super-block
// pointer, followed by an append-only stream of length-prefixed node
// terms interleaved with whole-block header records.
//
// File is safe for concurrent reads but callers must serialize Append and
// WriteHeader with any concurrent read of the region being written; the
// repair core never does this concurrently (see the single-threaded
// concurrency model its operations are specified under), so the lock here
// exists only to make File itself misuse-resistant, not to implement a
// concurrent writer.
type File struct {
	mu     sync.Mutex
	f      *os.File
	size   int64
	policy SyncPolicy
	dirty  bool
}

// Create makes a new, empty database file at path and initializes its
// super-block pointer to "no header". It fails if path already exists.
func Create(path string, policy SyncPolicy) (*File, error) {
	osf, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockfile: create %s: %w", path, err)
	}
	sb := encodeSuperBlock(0)
	if _, err := osf.WriteAt(sb, 0); err != nil {
		osf.Close()
		return nil, fmt.Errorf("blockfile: init super-block: %w", err)
	}
	if err := osf.Sync(); err != nil {
		osf.Close()
		return nil, fmt.Errorf("blockfile: sync super-block: %w", err)
	}
	return &File{f: osf, size: SuperBlockSize, policy: policy}, nil
}

// Open opens an existing database file for reading and repair.
func Open(path string, policy SyncPolicy) (*File, error) {
	osf, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockfile: open %s: %w", path, err)
	}
	info, err := osf.Stat()
	if err != nil {
		osf.Close()
		return nil, fmt.Errorf("blockfile: stat %s: %w", path, err)
	}
	return &File{f: osf, size: info.Size(), policy: policy}, nil
}

// Close releases the underlying file handle.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.Close()
}

// Size returns the current size of the file, including the reserved
// super-block and any padding bytes written so far.
func (f *File) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// ReadRaw returns the literal on-disk bytes in [off, off+length), with no
// padding interpretation. The Signature Scanner reads this way: it is
// hunting for byte patterns in the physical stream, padding bytes
// included, not for logically decoded content.
func (f *File) ReadRaw(off, length int64) ([]byte, error) {
	if length <= 0 {
		return nil, nil
	}
	buf := make([]byte, length)
	f.mu.Lock()
	n, err := f.f.ReadAt(buf, off)
	f.mu.Unlock()
	if err != nil && n < len(buf) {
		return buf[:n], err
	}
	return buf, nil
}

// Append writes payload as a new length-prefixed term at the current end
// of file, splicing in block-boundary padding as needed, and returns the
// entry's offset: the start of its 4-byte length prefix, exactly the
// offset a node pointer or candidate refers to.
func (f *File) Append(payload []byte) (int64, error) {
	raw := make([]byte, 0, lengthPrefixSize+len(payload))
	var lenBuf [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	raw = append(raw, lenBuf[:]...)
	raw = append(raw, payload...)

	f.mu.Lock()
	defer f.mu.Unlock()

	entryOffset := f.size
	physical := padEncode(raw, entryOffset)
	if _, err := f.f.WriteAt(physical, entryOffset); err != nil {
		return 0, fmt.Errorf("blockfile: append at %d: %w", entryOffset, err)
	}
	f.size += int64(len(physical))
	f.dirty = true

	if f.policy == SyncEveryWrite {
		if err := f.f.Sync(); err != nil {
			return 0, fmt.Errorf("blockfile: sync after append: %w", err)
		}
		f.dirty = false
	}
	return entryOffset, nil
}

// AppendNode encodes n as an ETF node term and appends it.
func (f *File) AppendNode(n term.Node) (int64, error) {
	var payload []byte
	switch v := n.(type) {
	case *term.KVNode:
		payload = term.EncodeKVNode(v)
	case *term.KPNode:
		payload = term.EncodeKPNode(v)
	default:
		return 0, fmt.Errorf("blockfile: unsupported node type %T", n)
	}
	return f.Append(payload)
}

// DecodeTermAt reads and decodes the length-prefixed term whose entry
// starts at entryOffset, undoing block-boundary padding, and returns the
// decoded node together with the entry offset immediately following it.
func (f *File) DecodeTermAt(entryOffset int64) (term.Node, int64, error) {
	f.mu.Lock()
	size := f.size
	f.mu.Unlock()
	if entryOffset < SuperBlockSize || entryOffset >= size {
		return nil, 0, fmt.Errorf("blockfile: entry offset %d out of range", entryOffset)
	}

	prefixSpan := padSpan(entryOffset, lengthPrefixSize)
	prefixPhys, err := f.ReadRaw(entryOffset, prefixSpan)
	if err != nil {
		return nil, 0, fmt.Errorf("blockfile: read length prefix at %d: %w", entryOffset, err)
	}
	prefix := padDecode(prefixPhys, entryOffset, lengthPrefixSize)
	payloadLen := int(binary.BigEndian.Uint32(prefix))
	if payloadLen < 0 || int64(payloadLen) > size {
		return nil, 0, fmt.Errorf("blockfile: implausible payload length %d at %d", payloadLen, entryOffset)
	}

	payloadStart := entryOffset + prefixSpan
	if payloadStart%BlockSize == 0 {
		// The prefix ended exactly on a boundary: Append padded the whole
		// entry as one write, so the byte at the boundary is a pad.
		payloadStart++
	}
	payloadSpan := padSpan(payloadStart, payloadLen)
	payloadPhys, err := f.ReadRaw(payloadStart, payloadSpan)
	if err != nil {
		return nil, 0, fmt.Errorf("blockfile: read payload at %d: %w", payloadStart, err)
	}
	payload := padDecode(payloadPhys, payloadStart, payloadLen)

	node, err := term.DecodeNode(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("blockfile: decode term at %d: %w", entryOffset, err)
	}
	return node, payloadStart + payloadSpan, nil
}

// nextBlockBoundary returns the smallest multiple of BlockSize that is >= off.
func nextBlockBoundary(off int64) int64 {
	if off%BlockSize == 0 {
		return off
	}
	return off + (BlockSize - off%BlockSize)
}

// WriteHeader commits h as a new header, occupying one whole block at the
// next block-aligned offset at or after the current end of file, fsyncs
// it, then overwrites and fsyncs the super-block pointer to reference it.
// It returns the header's block offset.
func (f *File) WriteHeader(h Header) (int64, error) {
	buf, err := encodeHeader(h)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	offset := nextBlockBoundary(f.size)
	if offset > f.size {
		if err := f.f.Truncate(offset); err != nil {
			return 0, fmt.Errorf("blockfile: align to block boundary: %w", err)
		}
		f.size = offset
	}

	if _, err := f.f.WriteAt(buf, offset); err != nil {
		return 0, fmt.Errorf("blockfile: write header at %d: %w", offset, err)
	}
	if err := f.f.Sync(); err != nil {
		return 0, fmt.Errorf("blockfile: sync header: %w", err)
	}
	f.size = offset + BlockSize
	f.dirty = false

	sb := encodeSuperBlock(offset)
	if _, err := f.f.WriteAt(sb, 0); err != nil {
		return 0, fmt.Errorf("blockfile: write super-block: %w", err)
	}
	if err := f.f.Sync(); err != nil {
		return 0, fmt.Errorf("blockfile: sync super-block: %w", err)
	}
	return offset, nil
}

// ReadHeaderAt reads and validates the header block at the given offset.
// A block cut short by end of file is reported as ErrCorruptHeader.
func (f *File) ReadHeaderAt(offset int64) (Header, error) {
	buf, err := f.ReadRaw(offset, BlockSize)
	if errors.Is(err, io.EOF) {
		return Header{}, ErrCorruptHeader
	}
	if err != nil {
		return Header{}, fmt.Errorf("blockfile: read header at %d: %w", offset, err)
	}
	return decodeHeader(buf)
}

// TrailingHeaderOffset returns the offset the super-block pointer records
// as the last committed header, without validating the header itself.
// It returns ErrNoHeader if the pointer has never been set, or
// ErrCorruptHeader if the pointer block itself fails its checksum.
func (f *File) TrailingHeaderOffset() (int64, error) {
	buf, err := f.ReadRaw(0, SuperBlockSize)
	if err != nil {
		return 0, fmt.Errorf("blockfile: read super-block: %w", err)
	}
	offset, err := decodeSuperBlock(buf)
	if err != nil {
		return 0, err
	}
	if offset == 0 {
		// Block 0 is the super-block itself; a header can never live
		// there, so a recorded offset of 0 means the pointer was
		// initialized but no header has ever been committed.
		return 0, ErrNoHeader
	}
	return offset, nil
}

// ReadTrailingHeader resolves the super-block pointer and reads the
// header it references in one step.
func (f *File) ReadTrailingHeader() (Header, int64, error) {
	offset, err := f.TrailingHeaderOffset()
	if err != nil {
		return Header{}, 0, err
	}
	h, err := f.ReadHeaderAt(offset)
	if err != nil {
		return Header{}, offset, err
	}
	return h, offset, nil
}
