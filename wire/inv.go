package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxInvEntries bounds both outbound batching (spec §4.4: chunked at
// 50,000 per inv packet) and inbound acceptance (spec §8: >50,000 items
// on an inbound inv is a ban-scored protocol violation).
const MaxInvEntries = 50_000

// ErrTooManyInvEntries is returned by DecodeInv when the count exceeds
// MaxInvEntries, distinct from a generic malformed-payload error so
// callers can apply spec §8's 100-point ban score instead of the
// generic 10-point malformed-parse score.
var ErrTooManyInvEntries = errors.New("wire: inv: count exceeds max")

type InvItem struct {
	Type uint32
	Hash Hash256
}

func EncodeInv(items []InvItem) ([]byte, error) {
	if len(items) > MaxInvEntries {
		return nil, fmt.Errorf("wire: inv: too many entries")
	}
	out := make([]byte, 0, 9+len(items)*36)
	out = append(out, EncodeCompactSize(uint64(len(items)))...)
	var tmp [4]byte
	for _, it := range items {
		binary.LittleEndian.PutUint32(tmp[:], it.Type)
		out = append(out, tmp[:]...)
		out = append(out, it.Hash[:]...)
	}
	return out, nil
}

func DecodeInv(b []byte) ([]InvItem, error) {
	count, used, err := DecodeCompactSize(b)
	if err != nil {
		return nil, err
	}
	if count > MaxInvEntries {
		return nil, ErrTooManyInvEntries
	}
	need := used + int(count)*36
	if len(b) != need {
		return nil, fmt.Errorf("wire: inv: length mismatch")
	}
	off := used
	out := make([]InvItem, 0, count)
	for i := 0; i < int(count); i++ {
		tp := binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
		var h Hash256
		copy(h[:], b[off:off+32])
		off += 32
		out = append(out, InvItem{Type: tp, Hash: h})
	}
	return out, nil
}
