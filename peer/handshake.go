package peer

import (
	"crypto/sha256"
	"fmt"
	"time"

	"go.nodewire.dev/peer/bip150"
	"go.nodewire.dev/peer/bip151"
	"go.nodewire.dev/peer/wire"
)

// beginEncHandshake sends our encinit and arms the 3-second wait for
// the BIP151 object to complete (spec.md §4.1).
func (s *Session) beginEncHandshake() error {
	enc, err := bip151.New(s.cfg.Outbound)
	if err != nil {
		return errHandshake("enc_handshake", err)
	}
	s.enc = enc
	s.setState(stateEncHandshake)

	payload := enc.ToEncinit(enc.LocalPublicKey(), bip151.CipherChaCha20Poly1305)
	if err := s.send(wire.CmdEncinit, payload, nil); err != nil {
		return err
	}

	enc.Wait(EncHandshakeTimeout, func(err error) {
		s.onEncHandshakeDone(err)
	})
	return nil
}

// onEncHandshakeDone advances past the encryption phase. Failure is
// tolerated only when encryption is optional; BIP151 is always
// configured as an opportunistic upgrade in this module, so a failed
// handshake logs and continues rather than destroying the session,
// matching spec.md §4.1 ("proceeds only if encryption was optional").
func (s *Session) onEncHandshakeDone(err error) {
	if s.getState() != stateEncHandshake {
		return
	}
	if err != nil {
		s.log.Warn("bip151 handshake did not complete", "err", err)
		s.enc = nil
	}
	s.advanceToAuthOrVersion()
}

func (s *Session) advanceToAuthOrVersion() {
	if s.cfg.BIP150 && s.enc != nil && s.enc.Completed() {
		if err := s.beginAuthHandshake(); err != nil {
			s.log.Warn("bip150 handshake failed to start", "err", err)
			s.beginVersionExchange()
		}
		return
	}
	s.beginVersionExchange()
}

// beginAuthHandshake sends an authchallenge if this side dialed out
// and already has a known remote identity, then arms the 3-second
// wait (spec.md §4.1).
func (s *Session) beginAuthHandshake() error {
	sessionID := s.bip151SessionID()
	auth := bip150.New(sessionID, s.cfg.IdentityKey, s.cfg.RemoteIdentityKey, s.cfg.Outbound)
	s.auth = auth
	s.setState(stateAuthHandshake)

	if s.cfg.Outbound && s.cfg.RemoteIdentityKey != nil {
		challenge := auth.ToChallenge()
		if err := s.send(wire.CmdAuthChallenge, challenge, nil); err != nil {
			return err
		}
	}
	time.AfterFunc(AuthHandshakeTimeout, func() {
		if s.getState() == stateAuthHandshake {
			s.destroy("bip150 handshake timed out")
		}
	})
	return nil
}

// bip151SessionID derives a transcript binding for BIP150 challenges
// by hashing this side's BIP151 ephemeral public key, which is fresh
// per connection; without BIP151 it hashes the host string instead.
func (s *Session) bip151SessionID() []byte {
	if s.enc == nil {
		sum := sha256.Sum256([]byte(s.host))
		return sum[:]
	}
	sum := sha256.Sum256(s.enc.LocalPublicKey())
	return sum[:]
}

func (s *Session) handleAuthChallenge(payload []byte) error {
	if s.auth == nil {
		return errHandshake("authchallenge", fmt.Errorf("authchallenge received without bip150 configured"))
	}
	reply, err := s.auth.Challenge(payload)
	if err != nil {
		return errHandshake("authchallenge", err)
	}
	if err := s.send(wire.CmdAuthReply, reply, nil); err != nil {
		return err
	}
	s.fire(wire.CmdAuthChallenge, EventAuthChallenge, nil)
	return nil
}

func (s *Session) handleAuthReply(payload []byte) error {
	if s.auth == nil {
		return errHandshake("authreply", fmt.Errorf("authreply received without bip150 configured"))
	}
	if err := s.auth.Reply(payload); err != nil {
		return errHandshake("authreply", err)
	}
	s.fire(wire.CmdAuthReply, EventAuthReply, nil)
	s.beginVersionExchange()
	return nil
}

func (s *Session) handleAuthPropose(payload []byte) error {
	if s.auth == nil {
		return errHandshake("authpropose", fmt.Errorf("authpropose received without bip150 configured"))
	}
	if err := s.auth.Propose(payload); err != nil {
		return errHandshake("authpropose", err)
	}
	challenge := s.auth.ToChallenge()
	if err := s.send(wire.CmdAuthChallenge, challenge, nil); err != nil {
		return err
	}
	s.fire(wire.CmdAuthPropose, EventAuthPropose, nil)
	return nil
}

// handleEncinit drives the responder side of BIP151: reply with our
// own encack. Our encinit is always sent up front by
// beginEncHandshake, on inbound and outbound connections alike.
func (s *Session) handleEncinit(payload []byte) error {
	if s.enc == nil {
		return errHandshake("encinit", fmt.Errorf("encinit received without bip151 configured"))
	}
	if len(payload) < 2 {
		return errProtocol("encinit", fmt.Errorf("encinit: short payload"), 10)
	}
	pubkey := payload[:len(payload)-1]
	cipherSuite := payload[len(payload)-1]
	if err := s.enc.Encinit(pubkey, cipherSuite); err != nil {
		return errHandshake("encinit", err)
	}
	ack := s.enc.ToEncack()
	if err := s.send(wire.CmdEncack, ack, nil); err != nil {
		return err
	}
	s.fire(wire.CmdEncinit, EventEncinit, nil)
	return nil
}

func (s *Session) handleEncack(payload []byte) error {
	if s.enc == nil {
		return errHandshake("encack", fmt.Errorf("encack received without bip151 configured"))
	}
	if err := s.enc.Encack(payload); err != nil {
		return errHandshake("encack", err)
	}
	s.fire(wire.CmdEncack, EventEncack, nil)
	return nil
}

// beginVersionExchange sends our version and registers the pending
// verack wait, per spec.md §4.1.
func (s *Session) beginVersionExchange() {
	s.setState(stateVersionExchange)
	if err := s.sendVersion(s.cfg.LocalNonce); err != nil {
		s.destroy("version send failed")
	}
}
