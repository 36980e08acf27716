package peer

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"go.nodewire.dev/peer/wire"
)

// maxSealedEnvelope bounds the length prefix read ahead of a BIP151
// sealed frame, mirroring wire.MaxPayloadBytes plus header and AEAD
// tag overhead so a corrupted length cannot force an unbounded read.
const maxSealedEnvelope = wire.MaxPayloadBytes + wire.HeaderBytes + 64

// Run drives the session to completion: it starts the handshake
// appropriate to configuration, then blocks reading packets off r
// until the connection closes or ctx is cancelled (spec.md §5: one
// goroutine per session, cooperative dispatch, no internal
// concurrency). transport (supplied to New) is only ever written to;
// r is the matching read half of the same connection.
func (s *Session) Run(ctx context.Context, r io.Reader) error {
	s.mu.Lock()
	s.connectedAt = time.Now()
	s.connected = true
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.destroy("context cancelled")
	}()

	if err := s.startHandshake(); err != nil {
		s.destroy(err.Error())
		return err
	}

	pingTicker := time.NewTicker(PingInterval)
	defer pingTicker.Stop()
	go s.pingLoop(pingTicker)

	err := s.readLoop(r)
	s.destroy(readLoopCloseReason(err))
	return err
}

func readLoopCloseReason(err error) string {
	if err == nil {
		return "connection closed"
	}
	return err.Error()
}

func (s *Session) pingLoop(ticker *time.Ticker) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.sendPing(); err != nil {
				s.log.Debug("ping failed", "err", err)
			}
		}
	}
}

// startHandshake kicks off whichever phase sequence configuration
// calls for: BIP151 first if enabled, otherwise straight to version
// exchange (spec.md §4.1).
func (s *Session) startHandshake() error {
	if s.cfg.BIP151 {
		return s.beginEncHandshake()
	}
	s.beginVersionExchange()
	return nil
}

// readLoop is the single blocking read per spec.md §5: each iteration
// pulls one logical packet (decrypting first if BIP151 is active) and
// dispatches it before reading again.
func (s *Session) readLoop(r io.Reader) error {
	for {
		select {
		case <-s.ctx.Done():
			return nil
		default:
		}

		pkt, rerr := s.readPacket(r)
		if rerr != nil {
			if rerr.BanScoreDelta > 0 {
				s.addBanScore(rerr.BanScoreDelta, "decode_failure")
			}
			if rerr.Disconnect {
				return rerr.Err
			}
			continue
		}

		s.mu.Lock()
		s.lastRecv = time.Now()
		s.mu.Unlock()
		s.rec.MessageReceived(string(pkt.Command))

		if err := s.dispatch(pkt); err != nil {
			if perr, ok := err.(*Error); ok {
				if perr.BanScore > 0 {
					s.addBanScore(perr.BanScore, perr.Op)
				}
				if perr.Disconnect {
					return perr
				}
				s.events.emit(EventError, perr)
				continue
			}
			return err
		}
	}
}

// readPacket returns the next logical wire.Packet, transparently
// unsealing a BIP151 envelope first when encryption is active.
func (s *Session) readPacket(r io.Reader) (*wire.Packet, *wire.ReadError) {
	s.mu.Lock()
	sealed := s.enc != nil && s.enc.Completed()
	s.mu.Unlock()

	if !sealed {
		return s.parser.ReadPacket(r)
	}

	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return nil, &wire.ReadError{Err: err, Disconnect: true}
	}
	n := binary.LittleEndian.Uint32(lenPrefix[:])
	if n > maxSealedEnvelope {
		return nil, &wire.ReadError{Err: fmt.Errorf("peer: sealed envelope too large: %d", n), Disconnect: true}
	}
	ciphertext := make([]byte, n)
	if _, err := io.ReadFull(r, ciphertext); err != nil {
		return nil, &wire.ReadError{Err: err, Disconnect: true}
	}
	plaintext, err := s.enc.Open(ciphertext)
	if err != nil {
		return nil, &wire.ReadError{Err: fmt.Errorf("peer: bip151 open: %w", err), BanScoreDelta: 20, Disconnect: true}
	}
	return s.parser.ReadPacket(bytes.NewReader(plaintext))
}

// onReady runs the initial post-handshake actions exactly once, per
// spec.md §4.1: announce extended features to the peer, request its
// address book, and seed relay/sync state.
func (s *Session) onReady() {
	s.mu.Lock()
	remoteVersion := s.remoteVersion
	s.mu.Unlock()
	if remoteVersion == nil {
		return
	}

	if s.cfg.Headers && remoteVersion.ProtocolVersion >= wire.SendHeadersVersion {
		if err := s.send(wire.CmdSendHeaders, nil, nil); err == nil {
			s.mu.Lock()
			s.sentHeaders = true
			s.mu.Unlock()
		}
	}

	if s.cfg.Witness {
		s.mu.Lock()
		haveWitness := s.haveWitness
		s.mu.Unlock()
		if !haveWitness {
			// Legacy fallback: ask the peer for an explicit havewitness
			// reply instead of failing the handshake outright.
			_ = s.send(wire.CmdHaveWitness, nil, nil)
		}
	}

	if s.cfg.Compact && remoteVersion.ProtocolVersion >= wire.ShortIDProtocolVersion {
		payload := wire.SendCmpct{Announce: 0, Version: 1}
		_ = s.send(wire.CmdSendCmpct, wire.EncodeSendCmpct(payload), nil)
	}

	if !s.cfg.Selfish {
		_ = s.send(wire.CmdGetAddr, nil, nil)
		s.mu.Lock()
		s.sentGetAddr = true
		s.mu.Unlock()
	}

	if s.cfg.Pool != nil {
		if rate := s.cfg.Pool.FeeRate(); rate > 0 {
			_ = s.send(wire.CmdFeeFilter, wire.EncodeFeeFilter(wire.FeeFilter{FeeRate: rate}), nil)
		}
	}

	if s.cfg.SPV && s.cfg.Pool != nil {
		if fl, ok := s.cfg.Pool.SPVFilter(); ok {
			if payload, err := wire.EncodeFilterLoad(fl); err == nil {
				_ = s.send(wire.CmdFilterLoad, payload, nil)
			}
		}
	}

	if s.cfg.Pool != nil {
		if items := s.cfg.Pool.BroadcastInventory(); len(items) > 0 {
			announceItems := make([]AnnounceItem, 0, len(items))
			for _, it := range items {
				announceItems = append(announceItems, AnnounceItem{InvType: it.Type, Hash: it.Hash})
			}
			_ = s.announce(announceItems)
		}
	}

	if err := s.sync(); err != nil {
		s.log.Debug("sync failed", "err", err)
	}
	s.rec.HandshakePhase("ready", "success", time.Since(s.connectedAt))
}

// sync issues the initial chain-download request once a session
// reaches Ready: a headers-first getheaders when headers-first sync
// was negotiated, otherwise an inv-based getblocks (spec.md §4.1, §4.7).
func (s *Session) sync() error {
	if s.chain == nil {
		return nil
	}
	locator := s.chain.GetLocator()
	s.mu.Lock()
	s.syncSent = true
	s.mu.Unlock()
	if s.sentHeaders {
		return s.sendGetHeaders(locator, wire.Hash256{})
	}
	return s.sendGetBlocks(locator, wire.Hash256{})
}
