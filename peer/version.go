package peer

import (
	"fmt"
	"time"

	"go.nodewire.dev/peer/wire"
)

// sendVersion frames and sends this side's local version payload,
// built from the session's configuration.
func (s *Session) sendVersion(localNonce uint64) error {
	payload, err := wire.EncodeVersion(wire.VersionPayload{
		ProtocolVersion: wire.ShortIDProtocolVersion,
		Services:        s.cfg.LocalServices,
		Timestamp:       time.Now().Unix(),
		Nonce:           localNonce,
		UserAgent:       s.cfg.UserAgent,
		StartHeight:     s.cfg.StartHeight,
		Relay:           s.cfg.Relay,
	})
	if err != nil {
		return errInternal("version", err)
	}
	return s.send(wire.CmdVersion, payload, nil)
}

// handleVersion validates an inbound version payload per spec.md §4.5
// and, on success, replies with verack and fires the version event.
func (s *Session) handleVersion(payload []byte, localNonce uint64) error {
	v, err := wire.DecodeVersion(payload)
	if err != nil {
		return errProtocol("version", err, 10)
	}

	if v.Nonce == localNonce && s.cfg.Outbound {
		if s.pool != nil {
			s.pool.Ignore(s.id)
		}
		return errHandshake("version", fmt.Errorf("self-connect detected"))
	}
	if v.ProtocolVersion < wire.MinProtocolVersion {
		if s.pool != nil {
			s.pool.Ignore(s.id)
		}
		return errHandshake("version", fmt.Errorf("protocol version %d below minimum %d", v.ProtocolVersion, wire.MinProtocolVersion))
	}
	if s.cfg.Outbound && v.Services&wire.ServiceNetwork == 0 {
		if s.pool != nil {
			s.pool.Ignore(s.id)
		}
		return errHandshake("version", fmt.Errorf("peer does not advertise NETWORK service"))
	}
	if s.cfg.Headers && v.ProtocolVersion < wire.SendHeadersVersion {
		if s.pool != nil {
			s.pool.Ignore(s.id)
		}
		return errHandshake("version", fmt.Errorf("peer protocol version too old for headers-first sync"))
	}
	if s.cfg.SPV && v.Services&wire.ServiceBloom == 0 {
		if s.pool != nil {
			s.pool.Ignore(s.id)
		}
		return errHandshake("version", fmt.Errorf("peer does not advertise BLOOM service required for SPV"))
	}

	haveWitness := v.Services&wire.ServiceWitness != 0

	s.mu.Lock()
	s.remoteVersion = v
	s.services = v.Services
	s.haveWitness = haveWitness
	s.relay = v.Relay
	s.mu.Unlock()

	if err := s.send(wire.CmdVerack, nil, nil); err != nil {
		return err
	}
	s.fire(wire.CmdVersion, EventVersion, v)
	s.maybeReady()
	return nil
}

// handleVerack records that the peer acknowledged our version. If our
// own version has not yet been confirmed by the peer, this only marks
// the verack side; maybeReady gates entry to Ready on both being true.
func (s *Session) handleVerack() error {
	s.mu.Lock()
	alreadyAcked := s.ack
	s.gotVerack = true
	s.mu.Unlock()
	if alreadyAcked {
		return nil // duplicate verack: harmless, ignore.
	}
	s.fire(wire.CmdVerack, EventVerack, nil)
	s.maybeReady()
	return nil
}

// handleHaveWitness upgrades haveWitness after the legacy fallback
// request sent from onReady succeeds.
func (s *Session) handleHaveWitness() error {
	s.mu.Lock()
	s.haveWitness = true
	s.mu.Unlock()
	s.fire(wire.CmdHaveWitness, EventHaveWitness, nil)
	return nil
}

// maybeReady sets ack once both our verack-sent/received bookkeeping
// and the remote version are present, then transitions to Ready
// (spec.md §3 invariant: "ack = true ⇒ both version sent and verack
// received, and remote version present").
func (s *Session) maybeReady() {
	s.mu.Lock()
	if s.state != stateVersionExchange {
		s.mu.Unlock()
		return
	}
	if s.remoteVersion == nil || s.verackPending() {
		s.mu.Unlock()
		return
	}
	s.ack = true
	s.state = stateReady
	s.mu.Unlock()

	s.fire(wire.CmdVerack, EventAck, nil)
	s.onReady()
}

// verackPending reports whether this side is still waiting on the
// peer's verack. Must be called with s.mu held.
func (s *Session) verackPending() bool {
	return !s.gotVerack
}
