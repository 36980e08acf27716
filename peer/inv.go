package peer

import (
	"errors"

	"go.nodewire.dev/peer/wire"
)

// invBanScore distinguishes spec.md §8's two inbound-inv failure
// scores: an oversized announcement (>50,000 items) scores 100, any
// other malformed payload scores the generic 10.
func invBanScore(err error) int {
	if errors.Is(err, wire.ErrTooManyInvEntries) {
		return 100
	}
	return 10
}

// handleInv processes an inbound inventory announcement. This module
// does not decide sync policy (spec.md §1 Non-goals); it only decodes
// and reports what the peer claims to have, leaving the decision of
// what to request up to the owning pool.
func (s *Session) handleInv(payload []byte) error {
	items, err := wire.DecodeInv(payload)
	if err != nil {
		return errProtocol("inv", err, invBanScore(err))
	}
	s.fire(wire.CmdInv, EventInv, items)
	return nil
}

// handleNotFound processes the server's admission that it could not
// produce one or more previously requested items.
func (s *Session) handleNotFound(payload []byte) error {
	items, err := wire.DecodeInv(payload)
	if err != nil {
		return errProtocol("notfound", err, 10)
	}
	s.fire(wire.CmdNotFound, EventNotFound, items)
	return nil
}

// handleAddr processes an inbound address announcement, capped at
// MaxAddrEntries by the decoder itself.
func (s *Session) handleAddr(payload []byte) error {
	addrs, err := wire.DecodeAddr(payload)
	if err != nil {
		return errProtocol("addr", err, 10)
	}
	s.fire(wire.CmdAddr, EventAddr, addrs)
	return nil
}

// handleGetAddr replies with this side's known address book, unless
// configured selfish or already answered once for this connection
// (spec.md §4.7: addr is a one-shot reply per peer to limit amplification).
func (s *Session) handleGetAddr() error {
	if s.cfg.Selfish || s.pool == nil {
		return nil
	}
	s.mu.Lock()
	already := s.sentAddr
	s.sentAddr = true
	s.mu.Unlock()
	if already {
		return nil
	}
	addrs := s.pool.KnownAddresses(wire.MaxAddrEntries)
	if len(addrs) == 0 {
		return nil
	}
	return s.sendAddr(addrs)
}

// handleReject processes the peer's rejection of something this side
// sent it.
func (s *Session) handleReject(payload []byte) error {
	r, err := wire.DecodeReject(payload)
	if err != nil {
		return errProtocol("reject", err, 10)
	}
	s.fire(wire.CmdReject, EventReject, RejectEvent{Message: r.Message, Code: r.Code, Reason: r.Reason})
	return nil
}

// handleAlert accepts but otherwise ignores the deprecated alert
// system message: no modern client acts on it, but rejecting it
// outright would needlessly disconnect legacy peers that still send one.
func (s *Session) handleAlert(payload []byte) error {
	s.fire(wire.CmdAlert, EventAlert, payload)
	return nil
}

// handleTx processes an inbound transaction: first offering it to any
// active merkleblock reassembly, then reporting it upward regardless.
// The identifier used here is a direct hash of the wire bytes, which
// coincides with a legacy transaction's txid but not a SegWit
// transaction's; this module does not parse transactions and so cannot
// distinguish txid from wtxid on its own (spec.md §1 Non-goals).
func (s *Session) handleTx(payload []byte) error {
	id := wire.TxHash(payload)
	s.handleTxForMerkle(id, payload)
	s.fire(wire.CmdTx, EventTx, payload)
	return nil
}

// handleBlock processes an inbound full block pushed directly (as
// opposed to reassembled from a compact block).
func (s *Session) handleBlock(payload []byte) error {
	s.fire(wire.CmdBlock, EventBlock, payload)
	return nil
}
