package wire

import (
	"encoding/binary"
	"fmt"
)

// BIP37 filter limits.
const (
	MaxFilterBytes = 36_000
	MaxFilterHashFuncs = 50
	MaxFilterAddDataBytes = 520
)

const (
	BloomUpdateNone      uint8 = 0
	BloomUpdateAll       uint8 = 1
	BloomUpdateP2PubkeyOnly uint8 = 2
)

type FilterLoad struct {
	Data       []byte
	HashFuncs  uint32
	Tweak      uint32
	UpdateFlag uint8
}

func EncodeFilterLoad(f FilterLoad) ([]byte, error) {
	if len(f.Data) > MaxFilterBytes {
		return nil, fmt.Errorf("wire: filterload: filter too large")
	}
	if f.HashFuncs > MaxFilterHashFuncs {
		return nil, fmt.Errorf("wire: filterload: too many hash funcs")
	}
	out := make([]byte, 0, 9+len(f.Data)+4+4+1)
	out = append(out, EncodeCompactSize(uint64(len(f.Data)))...)
	out = append(out, f.Data...)
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], f.HashFuncs)
	out = append(out, tmp4[:]...)
	binary.LittleEndian.PutUint32(tmp4[:], f.Tweak)
	out = append(out, tmp4[:]...)
	out = append(out, f.UpdateFlag)
	return out, nil
}

func DecodeFilterLoad(b []byte) (*FilterLoad, error) {
	n, used, err := DecodeCompactSize(b)
	if err != nil {
		return nil, err
	}
	off := used
	if len(b) < off+int(n)+4+4+1 {
		return nil, fmt.Errorf("wire: filterload: truncated")
	}
	data := append([]byte(nil), b[off:off+int(n)]...)
	off += int(n)
	hashFuncs := binary.LittleEndian.Uint32(b[off : off+4])
	off += 4
	tweak := binary.LittleEndian.Uint32(b[off : off+4])
	off += 4
	flag := b[off]
	off++
	if off != len(b) {
		return nil, fmt.Errorf("wire: filterload: trailing bytes")
	}
	if len(data) > MaxFilterBytes {
		return nil, fmt.Errorf("wire: filterload: filter too large")
	}
	if hashFuncs > MaxFilterHashFuncs {
		return nil, fmt.Errorf("wire: filterload: too many hash funcs")
	}
	return &FilterLoad{Data: data, HashFuncs: hashFuncs, Tweak: tweak, UpdateFlag: flag}, nil
}

func EncodeFilterAdd(data []byte) ([]byte, error) {
	if len(data) > MaxFilterAddDataBytes {
		return nil, fmt.Errorf("wire: filteradd: data too large")
	}
	out := make([]byte, 0, 9+len(data))
	out = append(out, EncodeCompactSize(uint64(len(data)))...)
	out = append(out, data...)
	return out, nil
}

func DecodeFilterAdd(b []byte) ([]byte, error) {
	n, used, err := DecodeCompactSize(b)
	if err != nil {
		return nil, err
	}
	if len(b) != used+int(n) {
		return nil, fmt.Errorf("wire: filteradd: length mismatch")
	}
	if n > MaxFilterAddDataBytes {
		return nil, fmt.Errorf("wire: filteradd: data too large")
	}
	return append([]byte(nil), b[used:]...), nil
}

type FeeFilter struct {
	FeeRate int64 // satoshis per kilobyte
}

func EncodeFeeFilter(f FeeFilter) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, uint64(f.FeeRate))
	return out
}

func DecodeFeeFilter(b []byte) (*FeeFilter, error) {
	if len(b) != 8 {
		return nil, fmt.Errorf("wire: feefilter: invalid length")
	}
	return &FeeFilter{FeeRate: int64(binary.LittleEndian.Uint64(b))}, nil
}

type SendCmpct struct {
	Announce uint8
	Version  uint64
}

func EncodeSendCmpct(s SendCmpct) []byte {
	out := make([]byte, 9)
	out[0] = s.Announce
	binary.LittleEndian.PutUint64(out[1:], s.Version)
	return out
}

func DecodeSendCmpct(b []byte) (*SendCmpct, error) {
	if len(b) != 9 {
		return nil, fmt.Errorf("wire: sendcmpct: invalid length")
	}
	return &SendCmpct{Announce: b[0], Version: binary.LittleEndian.Uint64(b[1:])}, nil
}
