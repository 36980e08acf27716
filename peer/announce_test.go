package peer

import (
	"testing"

	"go.nodewire.dev/peer/wire"
)

func TestSendInvDedupesAgainstInvFilter(t *testing.T) {
	s, tr := newSendTestSession()
	item := wire.InvItem{Type: wire.InvTx, Hash: hashWithFirstByte(1)}

	if err := s.sendInv([]wire.InvItem{item}); err != nil {
		t.Fatal(err)
	}
	if len(tr.frames) != 1 {
		t.Fatalf("expected 1 packet sent, got %d", len(tr.frames))
	}

	// sendInv itself doesn't consult invFilter before sending (the
	// caller, announce, is what skips already-seen items) but it does
	// mark every item as seen, so a subsequent announce() call for the
	// same hash must be filtered out.
	other := AnnounceItem{InvType: wire.InvTx, Hash: item.Hash}
	if err := s.announce([]AnnounceItem{other}); err != nil {
		t.Fatal(err)
	}
	if len(tr.frames) != 1 {
		t.Fatalf("expected announce to skip an already-seen hash, got %d frames", len(tr.frames))
	}
}

func TestAnnounceDropsTxWhenRelayDisabled(t *testing.T) {
	s, tr := newSendTestSession()
	s.relay = false
	item := AnnounceItem{InvType: wire.InvTx, Hash: hashWithFirstByte(1)}

	if err := s.announce([]AnnounceItem{item}); err != nil {
		t.Fatal(err)
	}
	if len(tr.frames) != 0 {
		t.Fatal("expected no inv sent for a tx item while relay is disabled")
	}
}

func TestAnnouncePrefersHeadersWhenNegotiated(t *testing.T) {
	s, tr := newSendTestSession()
	s.preferHeaders = true
	header := wire.BlockHeader{Version: 1}
	item := AnnounceItem{InvType: wire.InvBlock, Hash: hashWithFirstByte(2), Header: &header}

	if err := s.announce([]AnnounceItem{item}); err != nil {
		t.Fatal(err)
	}
	pkts := tr.packets(wire.Codec{Magic: 0xD9B4BEF9})
	if len(pkts) != 1 || pkts[0].Command != wire.CmdHeaders {
		t.Fatalf("expected one headers packet, got %v", pkts)
	}
}

func TestAnnounceFallsBackToInvWithoutHeaderPreference(t *testing.T) {
	s, tr := newSendTestSession()
	header := wire.BlockHeader{Version: 1}
	item := AnnounceItem{InvType: wire.InvBlock, Hash: hashWithFirstByte(3), Header: &header}

	if err := s.announce([]AnnounceItem{item}); err != nil {
		t.Fatal(err)
	}
	pkts := tr.packets(wire.Codec{Magic: 0xD9B4BEF9})
	if len(pkts) != 1 || pkts[0].Command != wire.CmdInv {
		t.Fatalf("expected one inv packet, got %v", pkts)
	}
}

func TestAnnounceDropsBelowFeeRate(t *testing.T) {
	s, tr := newSendTestSession()
	mp := &fakeMempoolRates{rates: map[wire.Hash256]int64{hashWithFirstByte(4): 100}}
	s.mempool = mp
	s.feeRate = 500

	item := AnnounceItem{InvType: wire.InvTx, Hash: hashWithFirstByte(4)}
	if err := s.announce([]AnnounceItem{item}); err != nil {
		t.Fatal(err)
	}
	if len(tr.frames) != 0 {
		t.Fatal("expected tx below the negotiated fee rate to be dropped")
	}
}

func TestSendAddrDedupesAgainstAddrFilter(t *testing.T) {
	s, tr := newSendTestSession()
	addr := wire.TimedAddress{Addr: wire.NetAddress{Port: 8333}}

	if err := s.sendAddr([]wire.TimedAddress{addr}); err != nil {
		t.Fatal(err)
	}
	if err := s.sendAddr([]wire.TimedAddress{addr}); err != nil {
		t.Fatal(err)
	}
	if len(tr.frames) != 1 {
		t.Fatalf("expected the second identical addr to be filtered, got %d frames", len(tr.frames))
	}
}

// fakeMempoolRates is a minimal chainiface.Mempool stub for fee-rate
// gating tests; every other method is unused by announce().
type fakeMempoolRates struct {
	rates map[wire.Hash256]int64
}

func (m *fakeMempoolRates) GetTx(wire.Hash256) ([]byte, bool)    { return nil, false }
func (m *fakeMempoolRates) HasTx(wire.Hash256) bool              { return false }
func (m *fakeMempoolRates) Snapshot() []wire.Hash256             { return nil }
func (m *fakeMempoolRates) Rate(txid wire.Hash256) (int64, bool) {
	r, ok := m.rates[txid]
	return r, ok
}
func (m *fakeMempoolRates) Coin(wire.OutPoint) (wire.Coin, bool, bool) { return wire.Coin{}, false, false }
