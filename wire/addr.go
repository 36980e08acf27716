package wire

import (
	"encoding/binary"
	"fmt"
)

const MaxAddrEntries = 1_000

type TimedAddress struct {
	Time uint32
	Addr NetAddress
}

func EncodeAddr(addrs []TimedAddress) ([]byte, error) {
	if len(addrs) > MaxAddrEntries {
		return nil, fmt.Errorf("wire: addr: too many entries")
	}
	out := make([]byte, 0, 9+len(addrs)*30)
	out = append(out, EncodeCompactSize(uint64(len(addrs)))...)
	var tmp [4]byte
	for _, a := range addrs {
		binary.LittleEndian.PutUint32(tmp[:], a.Time)
		out = append(out, tmp[:]...)
		out = append(out, encodeNetAddress(a.Addr)...)
	}
	return out, nil
}

func DecodeAddr(b []byte) ([]TimedAddress, error) {
	count, used, err := DecodeCompactSize(b)
	if err != nil {
		return nil, err
	}
	if count > MaxAddrEntries {
		return nil, fmt.Errorf("wire: addr: count exceeds max")
	}
	off := used
	out := make([]TimedAddress, 0, count)
	for i := 0; i < int(count); i++ {
		if len(b) < off+4+26 {
			return nil, fmt.Errorf("wire: addr: truncated entry")
		}
		t := binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
		a, err := decodeNetAddress(b[off : off+26])
		if err != nil {
			return nil, err
		}
		off += 26
		out = append(out, TimedAddress{Time: t, Addr: a})
	}
	if off != len(b) {
		return nil, fmt.Errorf("wire: addr: trailing bytes")
	}
	return out, nil
}
