package bloom

import "testing"

func TestFilterAddTest(t *testing.T) {
	f, err := NewFilter(100, 0.001, 12345)
	if err != nil {
		t.Fatal(err)
	}
	f.Add([]byte("hello"))
	if !f.Test([]byte("hello")) {
		t.Fatal("expected added element to test positive")
	}
	if f.Test([]byte("absent-element-xyz")) {
		t.Log("false positive on untested element (probabilistically possible, not necessarily a bug)")
	}
}

func TestFilterClear(t *testing.T) {
	f, err := NewFilter(10, 0.01, 1)
	if err != nil {
		t.Fatal(err)
	}
	f.Add([]byte("a"))
	f.Clear()
	if f.Test([]byte("a")) {
		t.Fatal("expected cleared filter to test negative")
	}
}

func TestNewFilterFromBytesRejectsOversize(t *testing.T) {
	_, err := NewFilterFromBytes(make([]byte, MaxFilterBytes+1), 1, 0)
	if err == nil {
		t.Fatal("expected error for oversize filter data")
	}
}

func TestNewFilterFromBytesRejectsTooManyHashFuncs(t *testing.T) {
	_, err := NewFilterFromBytes(make([]byte, 8), MaxFilterHashFuncs+1, 0)
	if err == nil {
		t.Fatal("expected error for too many hash funcs")
	}
}

func TestMatchesTx(t *testing.T) {
	f, err := NewFilter(10, 0.01, 7)
	if err != nil {
		t.Fatal(err)
	}
	f.Add([]byte("scriptdata"))
	tx := TxEntity{
		TxID:         []byte("txid-not-matched"),
		OutpointRefs: [][]byte{[]byte("outpoint-not-matched")},
		ScriptData:   [][]byte{[]byte("scriptdata")},
	}
	if !f.MatchesTx(tx) {
		t.Fatal("expected tx to match via script data")
	}

	noMatch := TxEntity{TxID: []byte("nope"), OutpointRefs: [][]byte{[]byte("nope2")}, ScriptData: [][]byte{[]byte("nope3")}}
	if f.MatchesTx(noMatch) {
		t.Fatal("did not expect unrelated tx to match")
	}
}
