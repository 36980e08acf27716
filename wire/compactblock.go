package wire

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

const ShortIDBytes = 6

type PrefilledTx struct {
	Index uint64
	Raw   []byte
}

// CmpctBlock is the BIP152 "compact block" encoding: a header plus a
// nonce (for short-ID derivation), the short IDs of the transactions the
// sender expects the receiver to already have in its mempool, and any
// transactions prefilled outright (the coinbase is always prefilled).
type CmpctBlock struct {
	Header    BlockHeader
	Nonce     uint64
	ShortIDs  [][ShortIDBytes]byte
	Prefilled []PrefilledTx
}

func EncodeCmpctBlock(c CmpctBlock) ([]byte, error) {
	out := make([]byte, 0, BlockHeaderBytes+8+9+len(c.ShortIDs)*ShortIDBytes+9)
	out = append(out, EncodeBlockHeader(c.Header)...)
	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], c.Nonce)
	out = append(out, tmp8[:]...)
	out = append(out, EncodeCompactSize(uint64(len(c.ShortIDs)))...)
	for _, sid := range c.ShortIDs {
		out = append(out, sid[:]...)
	}
	out = append(out, EncodeCompactSize(uint64(len(c.Prefilled)))...)
	var prevIdx uint64
	for i, pf := range c.Prefilled {
		if i == 0 {
			out = append(out, EncodeCompactSize(pf.Index)...)
		} else {
			if pf.Index <= prevIdx {
				return nil, fmt.Errorf("wire: cmpctblock: prefilled indices not increasing")
			}
			out = append(out, EncodeCompactSize(pf.Index-prevIdx-1)...)
		}
		prevIdx = pf.Index
		out = append(out, pf.Raw...)
	}
	return out, nil
}

// DecodeCmpctBlock decodes everything but the prefilled transaction
// bytes, which require a transaction-aware parser the peer does not
// own (spec §1: tx/block parsing belongs to the chain/mempool stores).
// It returns the raw tail so the caller can hand it to that parser.
func DecodeCmpctBlock(b []byte) (*CmpctBlock, []byte, error) {
	if len(b) < BlockHeaderBytes+8+1 {
		return nil, nil, fmt.Errorf("wire: cmpctblock: short payload")
	}
	h, err := DecodeBlockHeader(b[:BlockHeaderBytes])
	if err != nil {
		return nil, nil, err
	}
	off := BlockHeaderBytes
	nonce := binary.LittleEndian.Uint64(b[off : off+8])
	off += 8

	shortIDCount, used, err := DecodeCompactSize(b[off:])
	if err != nil {
		return nil, nil, err
	}
	off += used
	need := int(shortIDCount) * ShortIDBytes
	if len(b) < off+need {
		return nil, nil, fmt.Errorf("wire: cmpctblock: short IDs truncated")
	}
	shortIDs := make([][ShortIDBytes]byte, 0, shortIDCount)
	for i := 0; i < int(shortIDCount); i++ {
		var sid [ShortIDBytes]byte
		copy(sid[:], b[off:off+ShortIDBytes])
		shortIDs = append(shortIDs, sid)
		off += ShortIDBytes
	}

	return &CmpctBlock{Header: h, Nonce: nonce, ShortIDs: shortIDs}, b[off:], nil
}

type GetBlockTxn struct {
	BlockHash Hash256
	Indices   []uint64
}

func EncodeGetBlockTxn(p GetBlockTxn) ([]byte, error) {
	if len(p.Indices) == 0 {
		return nil, fmt.Errorf("wire: getblocktxn: empty indices")
	}
	out := make([]byte, 0, 32+9+len(p.Indices)*3)
	out = append(out, p.BlockHash[:]...)
	out = append(out, EncodeCompactSize(uint64(len(p.Indices)))...)
	var prev uint64
	for i, idx := range p.Indices {
		if i == 0 {
			out = append(out, EncodeCompactSize(idx)...)
		} else {
			if idx <= prev {
				return nil, fmt.Errorf("wire: getblocktxn: indices not increasing")
			}
			out = append(out, EncodeCompactSize(idx-prev-1)...)
		}
		prev = idx
	}
	return out, nil
}

func DecodeGetBlockTxn(b []byte) (*GetBlockTxn, error) {
	if len(b) < 32+1 {
		return nil, fmt.Errorf("wire: getblocktxn: short payload")
	}
	var h Hash256
	copy(h[:], b[:32])
	off := 32
	n, used, err := DecodeCompactSize(b[off:])
	if err != nil {
		return nil, err
	}
	off += used
	indices := make([]uint64, 0, n)
	var prev uint64
	for i := 0; i < int(n); i++ {
		delta, u, err := DecodeCompactSize(b[off:])
		if err != nil {
			return nil, err
		}
		off += u
		var idx uint64
		if i == 0 {
			idx = delta
		} else {
			idx = prev + 1 + delta
		}
		if i > 0 && idx <= prev {
			return nil, fmt.Errorf("wire: getblocktxn: indices not increasing")
		}
		prev = idx
		indices = append(indices, idx)
	}
	if off != len(b) {
		return nil, fmt.Errorf("wire: getblocktxn: trailing bytes")
	}
	return &GetBlockTxn{BlockHash: h, Indices: indices}, nil
}

// BlockTxn carries the caller's concern (block hash) plus the raw,
// caller-parsed transaction bytes; like CmpctBlock, tx parsing itself
// belongs to the chain/mempool layer.
type BlockTxn struct {
	BlockHash Hash256
	Txs       [][]byte
}

func EncodeBlockTxn(p BlockTxn) []byte {
	out := make([]byte, 0, 32+9)
	out = append(out, p.BlockHash[:]...)
	out = append(out, EncodeCompactSize(uint64(len(p.Txs)))...)
	for _, tx := range p.Txs {
		out = append(out, tx...)
	}
	return out
}

func DecodeBlockTxnHeader(b []byte) (Hash256, int, uint64, error) {
	if len(b) < 32+1 {
		return Hash256{}, 0, 0, fmt.Errorf("wire: blocktxn: short payload")
	}
	var h Hash256
	copy(h[:], b[:32])
	n, used, err := DecodeCompactSize(b[32:])
	if err != nil {
		return Hash256{}, 0, 0, err
	}
	return h, 32 + used, n, nil
}

// shortIDKeys derives the SipHash k0/k1 keys per BIP152 §"Short
// transaction IDs": SHA256(header || nonce), taking the first two
// little-endian uint64s of the digest.
func shortIDKeys(header BlockHeader, nonce uint64) (uint64, uint64) {
	hb := EncodeBlockHeader(header)
	var nonce8 [8]byte
	binary.LittleEndian.PutUint64(nonce8[:], nonce)
	buf := append(append([]byte(nil), hb...), nonce8[:]...)
	digest := sha256.Sum256(buf)
	k0 := binary.LittleEndian.Uint64(digest[0:8])
	k1 := binary.LittleEndian.Uint64(digest[8:16])
	return k0, k1
}

// ShortID computes the 6-byte BIP152 short transaction ID for wtxid
// under the given block header/nonce.
func ShortID(header BlockHeader, nonce uint64, wtxid Hash256) [ShortIDBytes]byte {
	k0, k1 := shortIDKeys(header, nonce)
	s := sipHash24(k0, k1, wtxid[:])
	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], s)
	var out [ShortIDBytes]byte
	copy(out[:], tmp8[:ShortIDBytes])
	return out
}
