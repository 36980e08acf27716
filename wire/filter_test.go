package wire

import "testing"

func TestFilterLoadRoundTrip(t *testing.T) {
	f := FilterLoad{
		Data:       []byte{0xaa, 0xbb, 0xcc},
		HashFuncs:  11,
		Tweak:      0x12345678,
		UpdateFlag: BloomUpdateAll,
	}
	enc, err := EncodeFilterLoad(f)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeFilterLoad(enc)
	if err != nil {
		t.Fatal(err)
	}
	if got.HashFuncs != f.HashFuncs || got.Tweak != f.Tweak || got.UpdateFlag != f.UpdateFlag || string(got.Data) != string(f.Data) {
		t.Fatalf("mismatch: %+v != %+v", *got, f)
	}
}

func TestFilterLoadRejectsOversizeFilter(t *testing.T) {
	f := FilterLoad{Data: make([]byte, MaxFilterBytes+1)}
	if _, err := EncodeFilterLoad(f); err == nil {
		t.Fatal("expected error for oversize filter")
	}
}

func TestFilterLoadRejectsTooManyHashFuncs(t *testing.T) {
	f := FilterLoad{HashFuncs: MaxFilterHashFuncs + 1}
	if _, err := EncodeFilterLoad(f); err == nil {
		t.Fatal("expected error for too many hash funcs")
	}
}

func TestFilterAddRoundTrip(t *testing.T) {
	data := []byte{1, 2, 3}
	enc, err := EncodeFilterAdd(data)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeFilterAdd(enc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Fatalf("mismatch: %v != %v", got, data)
	}
}

func TestFilterAddRejectsOversizeData(t *testing.T) {
	if _, err := EncodeFilterAdd(make([]byte, MaxFilterAddDataBytes+1)); err == nil {
		t.Fatal("expected error for oversize filteradd data")
	}
}

func TestFeeFilterRoundTrip(t *testing.T) {
	f := FeeFilter{FeeRate: 1000}
	enc := EncodeFeeFilter(f)
	got, err := DecodeFeeFilter(enc)
	if err != nil {
		t.Fatal(err)
	}
	if *got != f {
		t.Fatalf("mismatch: %+v != %+v", *got, f)
	}
}

func TestSendCmpctRoundTrip(t *testing.T) {
	s := SendCmpct{Announce: 1, Version: 1}
	enc := EncodeSendCmpct(s)
	got, err := DecodeSendCmpct(enc)
	if err != nil {
		t.Fatal(err)
	}
	if *got != s {
		t.Fatalf("mismatch: %+v != %+v", *got, s)
	}
}
