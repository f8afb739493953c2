// Package blockfile implements the append-only, 4096-byte-block file
// abstraction a mimir database lives in: random reads, length-prefixed
// term append with block-boundary padding, and a header slot with
// fsync-on-write. The repair core in pkg/repair treats this package as an
// opaque collaborator and only ever calls the methods declared here.
package blockfile

import "errors"

// BlockSize is the fixed block size the file format is divided into. Every
// absolute file offset that is a multiple of BlockSize is a block boundary;
// a term or header that would straddle one has a single padding byte
// spliced in at the boundary.
const BlockSize = 4096

// SuperBlockSize is the size of the reserved block 0 that holds the
// super-block pointer. It occupies one whole block so that the first real
// node or header always starts at a block boundary.
const SuperBlockSize = BlockSize

// lengthPrefixSize is the width of the on-disk length prefix that precedes
// every appended term.
const lengthPrefixSize = 4

// ErrNoHeader is returned by TrailingHeaderOffset and ReadTrailingHeader
// when the super-block records no header (a new file) or lacks its magic
// marker. A super-block that fails its checksum gives ErrCorruptHeader.
var ErrNoHeader = errors.New("blockfile: no header")

// ErrCorruptHeader is returned when a header is read at a known offset but
// fails its magic/length sanity check.
var ErrCorruptHeader = errors.New("blockfile: corrupt header")

// Pointer locates a B-tree root: its on-disk offset and its cached
// reduction value, preserved verbatim across repair.
type Pointer struct {
	Offset    int64
	Reduction []byte
}

// Header is the record a mimir database anchors its two B-trees from.
// Repair treats Opaque as opaque bytes it never interprets, copying it
// forward unchanged from the previous header.
type Header struct {
	UpdateSeq int64
	ByIDRoot  Pointer
	BySeqRoot Pointer
	Opaque    []byte
}

// SyncPolicy controls when Append and WriteHeader force data to stable
// storage. The lost-and-found target database uses SyncBeforeHeader so
// every document write lands on disk before the header that points at it
// is made durable, keeping incremental progress crash-safe.
type SyncPolicy int

const (
	// SyncEveryWrite fsyncs after every Append and WriteHeader call.
	SyncEveryWrite SyncPolicy = iota
	// SyncBeforeHeader batches Append fsyncs and only forces a sync
	// immediately before WriteHeader durably commits a new header.
	SyncBeforeHeader
)
