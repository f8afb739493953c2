package blockfile

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Block 0 of every database file is reserved as a super-block pointer: it
// never holds document data, only the offset of the most recently
// committed header. Overwriting it in place (rather than appending a new
// pointer each time) is what lets TrailingHeaderOffset find "the last
// header" in one read; it is also exactly the thing a crash between the
// header fsync and the pointer fsync leaves stale, which is the premise
// Header Repair exists to recover from.
const (
	superMagic       = 0x6d6d7362 // "mmsb"
	superMagicOff    = 0
	superHeaderOff   = 4
	superCRCOff      = 12
	superBlockFilled = 16
)

func encodeSuperBlock(headerOffset int64) []byte {
	buf := make([]byte, SuperBlockSize)
	binary.BigEndian.PutUint32(buf[superMagicOff:], superMagic)
	binary.BigEndian.PutUint64(buf[superHeaderOff:], uint64(headerOffset))
	crc := crc32.ChecksumIEEE(buf[superHeaderOff : superHeaderOff+8])
	binary.BigEndian.PutUint32(buf[superCRCOff:], crc)
	return buf
}

func decodeSuperBlock(buf []byte) (int64, error) {
	if len(buf) < superBlockFilled {
		return 0, ErrCorruptHeader
	}
	if binary.BigEndian.Uint32(buf[superMagicOff:]) != superMagic {
		return 0, ErrNoHeader
	}
	off := int64(binary.BigEndian.Uint64(buf[superHeaderOff:]))
	want := binary.BigEndian.Uint32(buf[superCRCOff:])
	got := crc32.ChecksumIEEE(buf[superHeaderOff : superHeaderOff+8])
	if want != got {
		return 0, ErrCorruptHeader
	}
	return off, nil
}

// Header block layout, within a single BlockSize-sized block:
//
//	magic        4 bytes  "mmhd"
//	crc32        4 bytes  of everything from updateSeq onward
//	updateSeq    8 bytes
//	byIDOffset   8 bytes
//	byIDRedLen   4 bytes
//	byIDRed      N bytes
//	bySeqOffset  8 bytes
//	bySeqRedLen  4 bytes
//	bySeqRed     N bytes
//	opaqueLen    4 bytes
//	opaque       N bytes
//	...          zero padding out to BlockSize
const headerMagic = 0x6d6d6864 // "mmhd"

func encodeHeader(h Header) ([]byte, error) {
	body := make([]byte, 0, 32+len(h.ByIDRoot.Reduction)+len(h.BySeqRoot.Reduction)+len(h.Opaque))
	var tmp8 [8]byte
	var tmp4 [4]byte

	binary.BigEndian.PutUint64(tmp8[:], uint64(h.UpdateSeq))
	body = append(body, tmp8[:]...)

	binary.BigEndian.PutUint64(tmp8[:], uint64(h.ByIDRoot.Offset))
	body = append(body, tmp8[:]...)
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(h.ByIDRoot.Reduction)))
	body = append(body, tmp4[:]...)
	body = append(body, h.ByIDRoot.Reduction...)

	binary.BigEndian.PutUint64(tmp8[:], uint64(h.BySeqRoot.Offset))
	body = append(body, tmp8[:]...)
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(h.BySeqRoot.Reduction)))
	body = append(body, tmp4[:]...)
	body = append(body, h.BySeqRoot.Reduction...)

	binary.BigEndian.PutUint32(tmp4[:], uint32(len(h.Opaque)))
	body = append(body, tmp4[:]...)
	body = append(body, h.Opaque...)

	if len(body)+8 > BlockSize {
		return nil, fmt.Errorf("blockfile: header body of %d bytes exceeds block size", len(body))
	}

	buf := make([]byte, BlockSize)
	binary.BigEndian.PutUint32(buf[0:4], headerMagic)
	copy(buf[8:], body)
	crc := crc32.ChecksumIEEE(buf[8 : 8+len(body)])
	binary.BigEndian.PutUint32(buf[4:8], crc)
	return buf, nil
}

func decodeHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < 8 {
		return h, ErrCorruptHeader
	}
	if binary.BigEndian.Uint32(buf[0:4]) != headerMagic {
		return h, ErrCorruptHeader
	}
	wantCRC := binary.BigEndian.Uint32(buf[4:8])

	r := buf[8:]
	readU64 := func() (int64, error) {
		if len(r) < 8 {
			return 0, ErrCorruptHeader
		}
		v := int64(binary.BigEndian.Uint64(r[:8]))
		r = r[8:]
		return v, nil
	}
	readBytes := func() ([]byte, error) {
		if len(r) < 4 {
			return nil, ErrCorruptHeader
		}
		l := int(binary.BigEndian.Uint32(r[:4]))
		r = r[4:]
		if l < 0 || len(r) < l {
			return nil, ErrCorruptHeader
		}
		out := make([]byte, l)
		copy(out, r[:l])
		r = r[l:]
		return out, nil
	}

	var err error
	if h.UpdateSeq, err = readU64(); err != nil {
		return Header{}, err
	}
	if h.ByIDRoot.Offset, err = readU64(); err != nil {
		return Header{}, err
	}
	if h.ByIDRoot.Reduction, err = readBytes(); err != nil {
		return Header{}, err
	}
	if h.BySeqRoot.Offset, err = readU64(); err != nil {
		return Header{}, err
	}
	if h.BySeqRoot.Reduction, err = readBytes(); err != nil {
		return Header{}, err
	}
	if h.Opaque, err = readBytes(); err != nil {
		return Header{}, err
	}

	consumed := len(buf) - 8 - len(r)
	got := crc32.ChecksumIEEE(buf[8 : 8+consumed])
	if got != wantCRC {
		return Header{}, ErrCorruptHeader
	}
	return h, nil
}
