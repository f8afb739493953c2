package term

import (
	"encoding/binary"
	"fmt"
)

// ETF tags this package understands.
const (
	tagVersion    = 0x83
	tagSmallTuple = 0x68
	tagAtom       = 0x64
	tagList       = 0x6c
	tagNil        = 0x6a
	tagBinary     = 0x6d
	tagSmallInt   = 0x61
	tagInt        = 0x62
)

// Term is any decoded ETF value this package produces: Atom, Tuple, List,
// []byte (binary), or int64 (small/large integer).
type Term interface{}

// Atom is an ETF atom, e.g. the "kv_node" tag of a node term.
type Atom string

// Tuple is an ordered, fixed-arity ETF tuple.
type Tuple []Term

// List is an ETF proper list (NIL-terminated).
type List []Term

// Encode serializes t as a complete top-level ETF term, including the
// leading version byte.
func Encode(t Term) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, tagVersion)
	return encodeValue(buf, t)
}

func encodeValue(buf []byte, t Term) []byte {
	switch v := t.(type) {
	case Atom:
		buf = append(buf, tagAtom)
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(v)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, v...)
	case Tuple:
		if len(v) > 255 {
			panic("term: tuple arity exceeds small-tuple limit")
		}
		buf = append(buf, tagSmallTuple, byte(len(v)))
		for _, elem := range v {
			buf = encodeValue(buf, elem)
		}
	case List:
		if len(v) == 0 {
			buf = append(buf, tagNil)
			break
		}
		buf = append(buf, tagList)
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf = append(buf, lenBuf[:]...)
		for _, elem := range v {
			buf = encodeValue(buf, elem)
		}
		buf = append(buf, tagNil)
	case []byte:
		buf = append(buf, tagBinary)
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, v...)
	case int64:
		if v >= 0 && v <= 255 {
			buf = append(buf, tagSmallInt, byte(v))
		} else {
			buf = append(buf, tagInt)
			var ibuf [4]byte
			binary.BigEndian.PutUint32(ibuf[:], uint32(v))
			buf = append(buf, ibuf[:]...)
		}
	case int:
		buf = encodeValue(buf, int64(v))
	default:
		panic(fmt.Sprintf("term: unsupported value type %T", t))
	}
	return buf
}

// Decode parses a complete top-level ETF term from data, returning the
// decoded value and the number of bytes consumed.
func Decode(data []byte) (Term, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("term: empty input")
	}
	if data[0] != tagVersion {
		return nil, 0, fmt.Errorf("term: bad version byte 0x%02x", data[0])
	}
	v, n, err := decodeValue(data[1:])
	if err != nil {
		return nil, 0, err
	}
	return v, n + 1, nil
}

func decodeValue(data []byte) (Term, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("term: truncated input")
	}
	switch data[0] {
	case tagAtom:
		if len(data) < 3 {
			return nil, 0, fmt.Errorf("term: truncated atom header")
		}
		l := int(binary.BigEndian.Uint16(data[1:3]))
		if len(data) < 3+l {
			return nil, 0, fmt.Errorf("term: truncated atom body")
		}
		return Atom(data[3 : 3+l]), 3 + l, nil

	case tagSmallTuple:
		if len(data) < 2 {
			return nil, 0, fmt.Errorf("term: truncated tuple header")
		}
		arity := int(data[1])
		off := 2
		out := make(Tuple, 0, arity)
		for i := 0; i < arity; i++ {
			v, n, err := decodeValue(data[off:])
			if err != nil {
				return nil, 0, err
			}
			out = append(out, v)
			off += n
		}
		return out, off, nil

	case tagNil:
		return List{}, 1, nil

	case tagList:
		if len(data) < 5 {
			return nil, 0, fmt.Errorf("term: truncated list header")
		}
		count := int(binary.BigEndian.Uint32(data[1:5]))
		off := 5
		out := make(List, 0, count)
		for i := 0; i < count; i++ {
			v, n, err := decodeValue(data[off:])
			if err != nil {
				return nil, 0, err
			}
			out = append(out, v)
			off += n
		}
		// proper-list tail must be NIL
		if off >= len(data) || data[off] != tagNil {
			return nil, 0, fmt.Errorf("term: list missing nil tail")
		}
		off++
		return out, off, nil

	case tagBinary:
		if len(data) < 5 {
			return nil, 0, fmt.Errorf("term: truncated binary header")
		}
		l := int(binary.BigEndian.Uint32(data[1:5]))
		if len(data) < 5+l {
			return nil, 0, fmt.Errorf("term: truncated binary body")
		}
		out := make([]byte, l)
		copy(out, data[5:5+l])
		return out, 5 + l, nil

	case tagSmallInt:
		if len(data) < 2 {
			return nil, 0, fmt.Errorf("term: truncated small integer")
		}
		return int64(data[1]), 2, nil

	case tagInt:
		if len(data) < 5 {
			return nil, 0, fmt.Errorf("term: truncated integer")
		}
		return int64(int32(binary.BigEndian.Uint32(data[1:5]))), 5, nil

	default:
		return nil, 0, fmt.Errorf("term: unsupported tag 0x%02x", data[0])
	}
}
