package wire

import "testing"

func TestInvRoundTrip(t *testing.T) {
	items := []InvItem{
		{Type: InvTx, Hash: Hash256{1}},
		{Type: InvBlock, Hash: Hash256{2}},
		{Type: InvWitnessTx, Hash: Hash256{3}},
	}
	enc, err := EncodeInv(items)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeInv(enc)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(items) {
		t.Fatalf("expected %d items, got %d", len(items), len(got))
	}
	for i := range items {
		if got[i] != items[i] {
			t.Fatalf("item %d mismatch: %+v != %+v", i, got[i], items[i])
		}
	}
}

func TestInvRejectsOversizeOnEncode(t *testing.T) {
	items := make([]InvItem, MaxInvEntries+1)
	if _, err := EncodeInv(items); err == nil {
		t.Fatal("expected error for too many inv entries")
	}
}

func TestInvRejectsTrailingBytes(t *testing.T) {
	enc, err := EncodeInv([]InvItem{{Type: InvTx, Hash: Hash256{1}}})
	if err != nil {
		t.Fatal(err)
	}
	enc = append(enc, 0x00)
	if _, err := DecodeInv(enc); err == nil {
		t.Fatal("expected error for trailing bytes")
	}
}
