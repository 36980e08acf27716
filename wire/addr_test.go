package wire

import "testing"

func TestAddrRoundTrip(t *testing.T) {
	addrs := []TimedAddress{
		{Time: 1700000000, Addr: NetAddress{Services: ServiceNetwork, Port: 8333}},
		{Time: 1700000001, Addr: NetAddress{Services: ServiceNetwork | ServiceBloom, Port: 18333}},
	}
	enc, err := EncodeAddr(addrs)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeAddr(enc)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(addrs) {
		t.Fatalf("expected %d entries, got %d", len(addrs), len(got))
	}
	for i := range addrs {
		if got[i] != addrs[i] {
			t.Fatalf("entry %d mismatch: %+v != %+v", i, got[i], addrs[i])
		}
	}
}

func TestAddrRejectsOversize(t *testing.T) {
	addrs := make([]TimedAddress, MaxAddrEntries+1)
	if _, err := EncodeAddr(addrs); err == nil {
		t.Fatal("expected error for too many addr entries")
	}
}
