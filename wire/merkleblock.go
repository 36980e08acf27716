package wire

import (
	"fmt"
)

// MerkleBlock is a BIP37 partial merkle tree: a block header plus the
// minimal set of hashes/flag bits needed to prove which transactions
// matched a peer's bloom filter, without shipping the whole block.
type MerkleBlock struct {
	Header    BlockHeader
	TxCount   uint32
	Hashes    []Hash256
	Flags     []byte
}

func EncodeMerkleBlock(m MerkleBlock) ([]byte, error) {
	out := make([]byte, 0, BlockHeaderBytes+4+9+len(m.Hashes)*32+9+len(m.Flags))
	out = append(out, EncodeBlockHeader(m.Header)...)
	var tmp4 [4]byte
	tmp4[0] = byte(m.TxCount)
	tmp4[1] = byte(m.TxCount >> 8)
	tmp4[2] = byte(m.TxCount >> 16)
	tmp4[3] = byte(m.TxCount >> 24)
	out = append(out, tmp4[:]...)
	out = append(out, EncodeCompactSize(uint64(len(m.Hashes)))...)
	for _, h := range m.Hashes {
		out = append(out, h[:]...)
	}
	out = append(out, EncodeCompactSize(uint64(len(m.Flags)))...)
	out = append(out, m.Flags...)
	return out, nil
}

func DecodeMerkleBlock(b []byte) (*MerkleBlock, error) {
	if len(b) < BlockHeaderBytes+4+1 {
		return nil, fmt.Errorf("wire: merkleblock: short payload")
	}
	h, err := DecodeBlockHeader(b[:BlockHeaderBytes])
	if err != nil {
		return nil, err
	}
	off := BlockHeaderBytes
	txCount := uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
	off += 4

	hashCount, used, err := DecodeCompactSize(b[off:])
	if err != nil {
		return nil, err
	}
	off += used
	hashes := make([]Hash256, 0, hashCount)
	for i := 0; i < int(hashCount); i++ {
		if len(b) < off+32 {
			return nil, fmt.Errorf("wire: merkleblock: truncated hash list")
		}
		var hh Hash256
		copy(hh[:], b[off:off+32])
		hashes = append(hashes, hh)
		off += 32
	}

	flagLen, used, err := DecodeCompactSize(b[off:])
	if err != nil {
		return nil, err
	}
	off += used
	if len(b) < off+int(flagLen) {
		return nil, fmt.Errorf("wire: merkleblock: truncated flags")
	}
	flags := append([]byte(nil), b[off:off+int(flagLen)]...)
	off += int(flagLen)
	if off != len(b) {
		return nil, fmt.Errorf("wire: merkleblock: trailing bytes")
	}

	return &MerkleBlock{Header: h, TxCount: txCount, Hashes: hashes, Flags: flags}, nil
}

// treeWidth returns the number of tree nodes at the given height, where
// height 0 is the leaves (one per transaction) and height increases
// toward the root. Matches Bitcoin Core's CalcTreeWidth.
func treeWidth(txCount uint32, height uint) uint32 {
	return (txCount + (1 << height) - 1) >> height
}

// treeHeight returns the height of the root (leaves are height 0).
func treeHeight(txCount uint32) uint {
	h := uint(0)
	for treeWidth(txCount, h) > 1 {
		h++
	}
	return h
}

// ExtractMatches walks the partial merkle tree per BIP37's
// CPartialMerkleTree::TraverseAndExtract and returns the leaf hashes
// flagged as matched, in tree (left-to-right) order. It verifies the
// branch hashes up to the header's MerkleRoot. This is the peer-side
// counterpart used to validate an inbound merkleblock before trusting
// its match set (spec §4.9).
func ExtractMatches(m MerkleBlock) ([]Hash256, error) {
	if m.TxCount == 0 {
		return nil, fmt.Errorf("wire: merkleblock: zero tx_count")
	}
	root := treeHeight(m.TxCount)

	br := &bitReader{flags: m.Flags}
	hashIdx := 0
	var matches []Hash256

	var walk func(height uint, pos uint32) (Hash256, error)
	walk = func(height uint, pos uint32) (Hash256, error) {
		flag, err := br.next()
		if err != nil {
			return Hash256{}, err
		}
		if height == 0 || !flag {
			if hashIdx >= len(m.Hashes) {
				return Hash256{}, fmt.Errorf("wire: merkleblock: hash list exhausted")
			}
			h := m.Hashes[hashIdx]
			hashIdx++
			if height == 0 && flag {
				matches = append(matches, h)
			}
			return h, nil
		}
		left, err := walk(height-1, pos*2)
		if err != nil {
			return Hash256{}, err
		}
		var right Hash256
		if pos*2+1 < treeWidth(m.TxCount, height-1) {
			right, err = walk(height-1, pos*2+1)
			if err != nil {
				return Hash256{}, err
			}
		} else {
			right = left
		}
		return merkleParent(left, right), nil
	}

	rootHash, err := walk(root, 0)
	if err != nil {
		return nil, err
	}
	if rootHash != m.Header.MerkleRoot {
		return nil, fmt.Errorf("wire: merkleblock: merkle root mismatch")
	}
	return matches, nil
}

func merkleParent(left, right Hash256) Hash256 {
	return doubleSHA(append(append([]byte(nil), left[:]...), right[:]...))
}

// BuildMerkleBlock constructs the partial merkle tree for a block given
// every transaction's txid and a parallel boolean slice marking which of
// them matched the peer's bloom filter, mirroring
// CPartialMerkleTree::TraverseAndBuild. The serve-side getdata handler
// calls this after testing each transaction against the requester's
// bloom.Filter.
func BuildMerkleBlock(header BlockHeader, txids []Hash256, matches []bool) (MerkleBlock, error) {
	if len(txids) != len(matches) {
		return MerkleBlock{}, fmt.Errorf("wire: build merkleblock: txids/matches length mismatch")
	}
	if len(txids) == 0 {
		return MerkleBlock{}, fmt.Errorf("wire: build merkleblock: empty block")
	}
	txCount := uint32(len(txids))
	root := treeHeight(txCount)

	bw := &bitWriter{}
	var hashes []Hash256

	var anyMatch func(height uint, pos uint32) bool
	anyMatch = func(height uint, pos uint32) bool {
		if height == 0 {
			return matches[pos]
		}
		left := pos * 2
		if anyMatch(height-1, left) {
			return true
		}
		right := left + 1
		if right < treeWidth(txCount, height-1) {
			return anyMatch(height-1, right)
		}
		return false
	}

	var calcHash func(height uint, pos uint32) Hash256
	calcHash = func(height uint, pos uint32) Hash256 {
		if height == 0 {
			return txids[pos]
		}
		left := calcHash(height-1, pos*2)
		right := left
		if pos*2+1 < treeWidth(txCount, height-1) {
			right = calcHash(height-1, pos*2+1)
		}
		return merkleParent(left, right)
	}

	var build func(height uint, pos uint32)
	build = func(height uint, pos uint32) {
		match := anyMatch(height, pos)
		bw.writeBit(match)
		if height == 0 || !match {
			hashes = append(hashes, calcHash(height, pos))
			return
		}
		build(height-1, pos*2)
		if pos*2+1 < treeWidth(txCount, height-1) {
			build(height-1, pos*2+1)
		}
	}
	build(root, 0)

	return MerkleBlock{
		Header:  header,
		TxCount: txCount,
		Hashes:  hashes,
		Flags:   bw.flags,
	}, nil
}
