package wire

import (
	"bytes"
	"testing"
)

func TestCmpctBlockRoundTrip(t *testing.T) {
	header := sampleHeader(9)
	cb := CmpctBlock{
		Header: header,
		Nonce:  0x1122334455667788,
		ShortIDs: [][ShortIDBytes]byte{
			ShortID(header, 0x1122334455667788, txid(1)),
			ShortID(header, 0x1122334455667788, txid(2)),
		},
		Prefilled: []PrefilledTx{
			{Index: 0, Raw: []byte{0xde, 0xad}},
			{Index: 3, Raw: []byte{0xbe, 0xef}},
		},
	}
	enc, err := EncodeCmpctBlock(cb)
	if err != nil {
		t.Fatal(err)
	}
	decoded, tail, err := DecodeCmpctBlock(enc)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Nonce != cb.Nonce || len(decoded.ShortIDs) != len(cb.ShortIDs) {
		t.Fatalf("mismatch: %+v", decoded)
	}
	for i := range cb.ShortIDs {
		if decoded.ShortIDs[i] != cb.ShortIDs[i] {
			t.Fatalf("short id %d mismatch", i)
		}
	}
	if len(tail) == 0 {
		t.Fatal("expected non-empty prefilled tail")
	}
}

func TestCmpctBlockRejectsNonIncreasingPrefilledIndices(t *testing.T) {
	cb := CmpctBlock{
		Header: sampleHeader(1),
		Prefilled: []PrefilledTx{
			{Index: 2, Raw: []byte{1}},
			{Index: 1, Raw: []byte{2}},
		},
	}
	if _, err := EncodeCmpctBlock(cb); err == nil {
		t.Fatal("expected error for non-increasing prefilled indices")
	}
}

func TestGetBlockTxnRoundTrip(t *testing.T) {
	p := GetBlockTxn{BlockHash: txid(1), Indices: []uint64{0, 2, 5, 100}}
	enc, err := EncodeGetBlockTxn(p)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeGetBlockTxn(enc)
	if err != nil {
		t.Fatal(err)
	}
	if got.BlockHash != p.BlockHash || len(got.Indices) != len(p.Indices) {
		t.Fatalf("mismatch: %+v", got)
	}
	for i := range p.Indices {
		if got.Indices[i] != p.Indices[i] {
			t.Fatalf("index %d mismatch: %d != %d", i, got.Indices[i], p.Indices[i])
		}
	}
}

func TestGetBlockTxnRejectsEmpty(t *testing.T) {
	if _, err := EncodeGetBlockTxn(GetBlockTxn{BlockHash: txid(1)}); err == nil {
		t.Fatal("expected error for empty indices")
	}
}

func TestBlockTxnHeaderDecode(t *testing.T) {
	p := BlockTxn{BlockHash: txid(7), Txs: [][]byte{{1, 2}, {3, 4, 5}}}
	enc := EncodeBlockTxn(p)
	hash, off, count, err := DecodeBlockTxnHeader(enc)
	if err != nil {
		t.Fatal(err)
	}
	if hash != p.BlockHash || count != uint64(len(p.Txs)) {
		t.Fatalf("mismatch: hash=%x count=%d", hash, count)
	}
	if !bytes.Equal(enc[off:], bytes.Join(p.Txs, nil)) {
		t.Fatal("tail does not match concatenated tx bytes")
	}
}

func TestShortIDDeterministicAndDistinct(t *testing.T) {
	header := sampleHeader(1)
	a := ShortID(header, 42, txid(1))
	b := ShortID(header, 42, txid(1))
	if a != b {
		t.Fatal("ShortID not deterministic")
	}
	c := ShortID(header, 42, txid(2))
	if a == c {
		t.Fatal("different wtxids produced the same short id")
	}
	d := ShortID(header, 43, txid(1))
	if a == d {
		t.Fatal("different nonces produced the same short id")
	}
}
