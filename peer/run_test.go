package peer

import (
	"testing"

	"go.nodewire.dev/peer/wire"
)

// fakePool is a minimal chainiface.Pool stub for onReady/sync tests.
type fakePool struct {
	feeRate  int64
	filter   wire.FilterLoad
	hasFilter bool
}

func (p *fakePool) Services() uint64                         { return 0 }
func (p *fakePool) LocalNonce() uint64                       { return 1 }
func (p *fakePool) FeeRate() int64                           { return p.feeRate }
func (p *fakePool) SetMisbehavior(sessionID uint64, score int) {}
func (p *fakePool) Ignore(sessionID uint64)                  {}
func (p *fakePool) IsMisbehaving(host string) bool           { return false }
func (p *fakePool) IsIgnored(host string) bool               { return false }
func (p *fakePool) BroadcastInventory() []wire.InvItem       { return nil }
func (p *fakePool) KnownAddresses(max int) []wire.TimedAddress {
	return nil
}
func (p *fakePool) SPVFilter() (wire.FilterLoad, bool) { return p.filter, p.hasFilter }

func TestOnReadyPushesSPVFilterInSPVMode(t *testing.T) {
	s, tr := newSendTestSession()
	pool := &fakePool{hasFilter: true, filter: wire.FilterLoad{Data: []byte{0x01}, HashFuncs: 1, Tweak: 0}}
	s.cfg = &Config{Magic: 0xD9B4BEF9, SPV: true, Selfish: true, Pool: pool}
	s.chain = newFakeChain(hashWithFirstByte(1))
	s.remoteVersion = &wire.VersionPayload{ProtocolVersion: wire.ShortIDProtocolVersion}

	s.onReady()

	pkts := tr.packets(wire.Codec{Magic: 0xD9B4BEF9})
	var sawFilterLoad bool
	for _, p := range pkts {
		if p.Command == wire.CmdFilterLoad {
			sawFilterLoad = true
		}
	}
	if !sawFilterLoad {
		t.Fatalf("expected a filterload packet in SPV mode, got %v", pkts)
	}
}

func TestSyncSendsGetBlocksWithoutHeadersFirst(t *testing.T) {
	s, tr := newSendTestSession()
	s.cfg = &Config{Magic: 0xD9B4BEF9}
	s.chain = newFakeChain(hashWithFirstByte(1))

	if err := s.sync(); err != nil {
		t.Fatal(err)
	}
	pkts := tr.packets(wire.Codec{Magic: 0xD9B4BEF9})
	if len(pkts) != 1 || pkts[0].Command != wire.CmdGetBlocks {
		t.Fatalf("expected one getblocks packet, got %v", pkts)
	}
}

func TestSyncSendsGetHeadersWhenHeadersFirstSent(t *testing.T) {
	s, tr := newSendTestSession()
	s.cfg = &Config{Magic: 0xD9B4BEF9}
	s.chain = newFakeChain(hashWithFirstByte(1))
	s.sentHeaders = true

	if err := s.sync(); err != nil {
		t.Fatal(err)
	}
	pkts := tr.packets(wire.Codec{Magic: 0xD9B4BEF9})
	if len(pkts) != 1 || pkts[0].Command != wire.CmdGetHeaders {
		t.Fatalf("expected one getheaders packet, got %v", pkts)
	}
}
