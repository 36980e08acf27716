package peer

import (
	"time"

	"go.nodewire.dev/peer/wire"
)

// legacyPingVersion is the protocol version at and below which a peer
// speaks the no-nonce ping (spec.md §4.6).
const legacyPingVersion = 60000

// sendPing issues a keep-alive ping, or does nothing if one is already
// outstanding (spec.md §3 invariant: at most one active challenge).
func (s *Session) sendPing() error {
	s.mu.Lock()
	remoteVersion := uint32(0)
	if s.remoteVersion != nil {
		remoteVersion = s.remoteVersion.ProtocolVersion
	}
	if remoteVersion <= legacyPingVersion {
		s.mu.Unlock()
		return s.send(wire.CmdPing, nil, nil)
	}
	if s.pingOutstanding {
		s.mu.Unlock()
		s.log.Debug("ping suppressed: challenge already outstanding")
		return nil
	}
	nonce, err := randNonce()
	if err != nil {
		s.mu.Unlock()
		return errInternal("ping", err)
	}
	s.pingNonce = nonce
	s.pingOutstanding = true
	s.lastPing = time.Now()
	s.mu.Unlock()

	return s.send(wire.CmdPing, wire.EncodePing(wire.Ping{Nonce: nonce}), nil)
}

// handlePing echoes any nonce back as a pong, including the empty
// legacy form.
func (s *Session) handlePing(payload []byte) error {
	if len(payload) == 0 {
		s.fire(wire.CmdPing, EventPing, nil)
		return s.send(wire.CmdPong, nil, nil)
	}
	p, err := wire.DecodePing(payload)
	if err != nil {
		return errProtocol("ping", err, 10)
	}
	s.fire(wire.CmdPing, EventPing, *p)
	return s.send(wire.CmdPong, wire.EncodePong(wire.Pong{Nonce: p.Nonce}), nil)
}

// handlePong resolves an outstanding ping challenge. A zero nonce
// clears the challenge silently; a mismatched nonzero nonce is a soft
// anomaly (logged, not fatal) and leaves the challenge outstanding; a
// matching nonce computes round-trip latency and updates minPing
// (spec.md §4.6, §9: minPing = min(current, sample), treating unset as
// +infinity; a clock that appears to run backwards reports but does
// not update minPing).
func (s *Session) handlePong(payload []byte) error {
	p, err := wire.DecodePong(payload)
	if err != nil {
		return errProtocol("pong", err, 10)
	}

	s.mu.Lock()
	if p.Nonce == 0 {
		s.pingOutstanding = false
		s.mu.Unlock()
		return nil
	}
	if !s.pingOutstanding || p.Nonce != s.pingNonce {
		s.mu.Unlock()
		s.log.Debug("pong nonce mismatch", "got", p.Nonce, "want", s.pingNonce)
		return nil
	}

	now := time.Now()
	s.lastPong = now
	s.pingOutstanding = false
	if now.Before(s.lastPing) {
		s.mu.Unlock()
		s.log.Debug("pong: clock moved backwards since ping, not updating minPing")
		s.events.emit(EventPong, *p)
		return nil
	}
	sample := now.Sub(s.lastPing)
	if !s.hasMinPing || sample < s.minPing {
		s.minPing = sample
		s.hasMinPing = true
	}
	s.mu.Unlock()

	s.rec.PingRTT(sample)
	s.events.emit(EventPong, sample)
	return nil
}
