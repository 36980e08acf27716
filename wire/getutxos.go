package wire

import (
	"encoding/binary"
	"fmt"
)

// MaxUTXOPrevouts bounds a single getutxos request (spec §4.7/§8:
// requests above this many prevouts are ignored with no response).
const MaxUTXOPrevouts = 15

type OutPoint struct {
	Hash Hash256
	Idx  uint32
}

type GetUTXOs struct {
	CheckMempool bool
	Prevouts     []OutPoint
}

func EncodeGetUTXOs(p GetUTXOs) ([]byte, error) {
	if len(p.Prevouts) > MaxUTXOPrevouts {
		return nil, fmt.Errorf("wire: getutxos: too many prevouts")
	}
	out := make([]byte, 0, 1+9+len(p.Prevouts)*36)
	if p.CheckMempool {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, EncodeCompactSize(uint64(len(p.Prevouts)))...)
	var tmp4 [4]byte
	for _, o := range p.Prevouts {
		out = append(out, o.Hash[:]...)
		binary.LittleEndian.PutUint32(tmp4[:], o.Idx)
		out = append(out, tmp4[:]...)
	}
	return out, nil
}

func DecodeGetUTXOs(b []byte) (*GetUTXOs, error) {
	if len(b) < 1+1 {
		return nil, fmt.Errorf("wire: getutxos: short payload")
	}
	checkMempool := b[0] != 0
	count, used, err := DecodeCompactSize(b[1:])
	if err != nil {
		return nil, err
	}
	// The >MaxUTXOPrevouts cap is a peer-level policy decision (spec
	// §8: an oversized request is silently ignored, not a malformed
	// wire error), so it is enforced by the peer package, not here.
	// The length check below still bounds the allocation below against
	// any count a real payload could not possibly back.
	off := 1 + used
	// Bound count by division rather than off+count*36 so a huge
	// attacker-supplied count cannot overflow into a small value that
	// slips past a length check.
	if count > uint64(len(b)-off)/36 {
		return nil, fmt.Errorf("wire: getutxos: length mismatch")
	}
	if len(b) != off+int(count)*36 {
		return nil, fmt.Errorf("wire: getutxos: length mismatch")
	}
	out := make([]OutPoint, 0, count)
	for i := 0; i < int(count); i++ {
		var h Hash256
		copy(h[:], b[off:off+32])
		off += 32
		idx := binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
		out = append(out, OutPoint{Hash: h, Idx: idx})
	}
	return &GetUTXOs{CheckMempool: checkMempool, Prevouts: out}, nil
}

// Coin is a single unspent output as reported by a chain/mempool store.
type Coin struct {
	Version      uint32
	Height       uint32
	Value        uint64
	ScriptPubKey []byte
}

type UTXOsResponse struct {
	ChainHeight uint32
	ChainTip    Hash256
	HitMap      []bool // one bool per requested prevout
	Coins       []Coin // only the hits, in request order
}

func EncodeUTXOs(r UTXOsResponse) ([]byte, error) {
	out := make([]byte, 0, 4+32+9+len(r.HitMap)+9)
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], r.ChainHeight)
	out = append(out, tmp4[:]...)
	out = append(out, r.ChainTip[:]...)

	hitBytes := (len(r.HitMap) + 7) / 8
	out = append(out, EncodeCompactSize(uint64(hitBytes))...)
	bitmap := make([]byte, hitBytes)
	for i, hit := range r.HitMap {
		if hit {
			bitmap[i/8] |= 1 << uint(i%8)
		}
	}
	out = append(out, bitmap...)

	out = append(out, EncodeCompactSize(uint64(len(r.Coins)))...)
	for _, c := range r.Coins {
		binary.LittleEndian.PutUint32(tmp4[:], c.Version)
		out = append(out, tmp4[:]...)
		binary.LittleEndian.PutUint32(tmp4[:], c.Height)
		out = append(out, tmp4[:]...)
		var tmp8 [8]byte
		binary.LittleEndian.PutUint64(tmp8[:], c.Value)
		out = append(out, tmp8[:]...)
		out = append(out, EncodeCompactSize(uint64(len(c.ScriptPubKey)))...)
		out = append(out, c.ScriptPubKey...)
	}
	return out, nil
}

func DecodeUTXOs(b []byte, numRequested int) (*UTXOsResponse, error) {
	if len(b) < 4+32+1 {
		return nil, fmt.Errorf("wire: utxos: short payload")
	}
	off := 0
	height := binary.LittleEndian.Uint32(b[off : off+4])
	off += 4
	var tip Hash256
	copy(tip[:], b[off:off+32])
	off += 32

	hitBytesLen, used, err := DecodeCompactSize(b[off:])
	if err != nil {
		return nil, err
	}
	off += used
	if len(b) < off+int(hitBytesLen) {
		return nil, fmt.Errorf("wire: utxos: truncated hit bitmap")
	}
	hitBytes := b[off : off+int(hitBytesLen)]
	off += int(hitBytesLen)
	hits := make([]bool, numRequested)
	for i := 0; i < numRequested; i++ {
		if i/8 < len(hitBytes) {
			hits[i] = hitBytes[i/8]&(1<<uint(i%8)) != 0
		}
	}

	coinCount, used, err := DecodeCompactSize(b[off:])
	if err != nil {
		return nil, err
	}
	off += used
	coins := make([]Coin, 0, coinCount)
	for i := 0; i < int(coinCount); i++ {
		if len(b) < off+4+4+8+1 {
			return nil, fmt.Errorf("wire: utxos: truncated coin")
		}
		var c Coin
		c.Version = binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
		c.Height = binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
		c.Value = binary.LittleEndian.Uint64(b[off : off+8])
		off += 8
		n, u, err := DecodeCompactSize(b[off:])
		if err != nil {
			return nil, err
		}
		off += u
		if len(b) < off+int(n) {
			return nil, fmt.Errorf("wire: utxos: truncated script")
		}
		c.ScriptPubKey = append([]byte(nil), b[off:off+int(n)]...)
		off += int(n)
		coins = append(coins, c)
	}
	if off != len(b) {
		return nil, fmt.Errorf("wire: utxos: trailing bytes")
	}
	return &UTXOsResponse{ChainHeight: height, ChainTip: tip, HitMap: hits, Coins: coins}, nil
}
