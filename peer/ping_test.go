package peer

import (
	"testing"
	"time"

	"go.nodewire.dev/peer/wire"
)

func TestSendPingSuppressedWhileOutstanding(t *testing.T) {
	s, tr := newSendTestSession()
	s.remoteVersion = &wire.VersionPayload{ProtocolVersion: wire.ShortIDProtocolVersion}
	s.pingOutstanding = true

	if err := s.sendPing(); err != nil {
		t.Fatal(err)
	}
	if len(tr.frames) != 0 {
		t.Fatal("expected no ping sent while one is already outstanding")
	}
}

func TestSendPingLegacyPeerUsesNoNonce(t *testing.T) {
	s, tr := newSendTestSession()
	s.remoteVersion = &wire.VersionPayload{ProtocolVersion: legacyPingVersion}

	if err := s.sendPing(); err != nil {
		t.Fatal(err)
	}
	pkts := tr.packets(wire.Codec{Magic: 0xD9B4BEF9})
	if len(pkts) != 1 || len(pkts[0].Payload) != 0 {
		t.Fatalf("expected one empty-payload ping, got %v", pkts)
	}
}

func TestHandlePingEchoesNonceAsPong(t *testing.T) {
	s, tr := newSendTestSession()
	payload := wire.EncodePing(wire.Ping{Nonce: 42})

	if err := s.handlePing(payload); err != nil {
		t.Fatal(err)
	}
	pkts := tr.packets(wire.Codec{Magic: 0xD9B4BEF9})
	if len(pkts) != 1 || pkts[0].Command != wire.CmdPong {
		t.Fatalf("expected one pong packet, got %v", pkts)
	}
	pong, err := wire.DecodePong(pkts[0].Payload)
	if err != nil {
		t.Fatal(err)
	}
	if pong.Nonce != 42 {
		t.Fatalf("expected echoed nonce 42, got %d", pong.Nonce)
	}
}

func TestHandlePongMatchingNonceUpdatesMinPing(t *testing.T) {
	s, _ := newSendTestSession()
	s.pingNonce = 7
	s.pingOutstanding = true
	s.lastPing = time.Now().Add(-50 * time.Millisecond)

	if err := s.handlePong(wire.EncodePong(wire.Pong{Nonce: 7})); err != nil {
		t.Fatal(err)
	}
	if s.pingOutstanding {
		t.Fatal("expected challenge to be resolved")
	}
	if !s.hasMinPing || s.minPing <= 0 {
		t.Fatal("expected minPing to be set to a positive sample")
	}
}

func TestHandlePongMismatchedNonceLeavesChallengeOutstanding(t *testing.T) {
	s, _ := newSendTestSession()
	s.pingNonce = 7
	s.pingOutstanding = true

	if err := s.handlePong(wire.EncodePong(wire.Pong{Nonce: 99})); err != nil {
		t.Fatal(err)
	}
	if !s.pingOutstanding {
		t.Fatal("expected a mismatched nonce to leave the challenge outstanding")
	}
	if s.hasMinPing {
		t.Fatal("expected minPing not to be touched by a mismatched pong")
	}
}

func TestHandlePongZeroNonceClearsSilently(t *testing.T) {
	s, _ := newSendTestSession()
	s.pingOutstanding = true

	if err := s.handlePong(wire.EncodePong(wire.Pong{Nonce: 0})); err != nil {
		t.Fatal(err)
	}
	if s.pingOutstanding {
		t.Fatal("expected zero-nonce pong to clear the outstanding flag")
	}
}
