package wire

import (
	"encoding/binary"
	"fmt"
)

// EncodeCompactSize encodes n using the Bitcoin "varint" (compactsize)
// encoding: values below 0xfd are a single byte; larger values are
// prefixed with 0xfd/0xfe/0xff followed by a fixed-width little-endian
// integer of the smallest width that can hold n.
func EncodeCompactSize(n uint64) []byte {
	switch {
	case n < 0xfd:
		return []byte{byte(n)}
	case n <= 0xffff:
		out := make([]byte, 3)
		out[0] = 0xfd
		binary.LittleEndian.PutUint16(out[1:], uint16(n))
		return out
	case n <= 0xffffffff:
		out := make([]byte, 5)
		out[0] = 0xfe
		binary.LittleEndian.PutUint32(out[1:], uint32(n))
		return out
	default:
		out := make([]byte, 9)
		out[0] = 0xff
		binary.LittleEndian.PutUint64(out[1:], n)
		return out
	}
}

// DecodeCompactSize decodes a compactsize integer from the front of b,
// returning the value, the number of bytes consumed, and any error. It
// rejects non-minimal encodings, matching consensus-critical varint rules.
func DecodeCompactSize(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("wire: compactsize: empty input")
	}
	switch b[0] {
	case 0xff:
		if len(b) < 9 {
			return 0, 0, fmt.Errorf("wire: compactsize: truncated 8-byte form")
		}
		v := binary.LittleEndian.Uint64(b[1:9])
		if v <= 0xffffffff {
			return 0, 0, fmt.Errorf("wire: compactsize: non-minimal encoding")
		}
		return v, 9, nil
	case 0xfe:
		if len(b) < 5 {
			return 0, 0, fmt.Errorf("wire: compactsize: truncated 4-byte form")
		}
		v := binary.LittleEndian.Uint32(b[1:5])
		if uint64(v) <= 0xffff {
			return 0, 0, fmt.Errorf("wire: compactsize: non-minimal encoding")
		}
		return uint64(v), 5, nil
	case 0xfd:
		if len(b) < 3 {
			return 0, 0, fmt.Errorf("wire: compactsize: truncated 2-byte form")
		}
		v := binary.LittleEndian.Uint16(b[1:3])
		if v < 0xfd {
			return 0, 0, fmt.Errorf("wire: compactsize: non-minimal encoding")
		}
		return uint64(v), 3, nil
	default:
		return uint64(b[0]), 1, nil
	}
}
