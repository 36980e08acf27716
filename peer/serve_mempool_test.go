package peer

import (
	"testing"

	"go.nodewire.dev/peer/wire"
)

type fakeMempoolSnapshot struct {
	ids []wire.Hash256
}

func (m *fakeMempoolSnapshot) GetTx(wire.Hash256) ([]byte, bool)       { return nil, false }
func (m *fakeMempoolSnapshot) HasTx(wire.Hash256) bool                 { return false }
func (m *fakeMempoolSnapshot) Snapshot() []wire.Hash256                { return m.ids }
func (m *fakeMempoolSnapshot) Rate(wire.Hash256) (int64, bool)         { return 0, false }
func (m *fakeMempoolSnapshot) Coin(wire.OutPoint) (wire.Coin, bool, bool) {
	return wire.Coin{}, false, false
}

// TestHandleMempoolIgnoresRelayFlag covers the maintainer-flagged bug:
// spec.md §4.7 gates `mempool` on not-selfish and chain-synced only,
// with no relay-flag precondition.
func TestHandleMempoolIgnoresRelayFlag(t *testing.T) {
	s, tr := newSendTestSession()
	s.relay = false
	s.chain = newFakeChain(hashWithFirstByte(1))
	s.mempool = &fakeMempoolSnapshot{ids: []wire.Hash256{hashWithFirstByte(7)}}

	if err := s.handleMempool(); err != nil {
		t.Fatal(err)
	}
	pkts := tr.packets(wire.Codec{Magic: 0xD9B4BEF9})
	if len(pkts) != 1 || pkts[0].Command != wire.CmdInv {
		t.Fatalf("expected one inv packet despite relay=false, got %v", pkts)
	}
}

func TestHandleMempoolSelfishSuppressesReply(t *testing.T) {
	s, tr := newSendTestSession()
	s.cfg = &Config{Magic: 0xD9B4BEF9, Selfish: true}
	s.chain = newFakeChain(hashWithFirstByte(1))
	s.mempool = &fakeMempoolSnapshot{ids: []wire.Hash256{hashWithFirstByte(7)}}

	if err := s.handleMempool(); err != nil {
		t.Fatal(err)
	}
	if len(tr.frames) != 0 {
		t.Fatal("expected no reply when selfish")
	}
}
