package peer

import (
	"fmt"

	"go.nodewire.dev/peer/bloom"
	"go.nodewire.dev/peer/wire"
)

// handleFilterLoad installs the peer's declared SPV filter and forces
// relay on, or scores misbehavior if the filter exceeds BIP37 limits
// (spec.md §4.8).
func (s *Session) handleFilterLoad(payload []byte) error {
	fl, err := wire.DecodeFilterLoad(payload)
	if err != nil {
		return errProtocol("filterload", err, 10)
	}
	f, err := bloom.NewFilterFromBytes(fl.Data, fl.HashFuncs, fl.Tweak)
	if err != nil {
		return errProtocol("filterload", fmt.Errorf("filterload: %w", err), 100)
	}
	s.mu.Lock()
	s.spvFilter = f
	s.relay = true
	s.mu.Unlock()
	return nil
}

// handleFilterAdd appends one element to the installed filter, or
// scores misbehavior if the pushed data exceeds BIP37's push limit.
func (s *Session) handleFilterAdd(payload []byte) error {
	data, err := wire.DecodeFilterAdd(payload)
	if err != nil {
		return errProtocol("filteradd", err, 100)
	}
	s.mu.Lock()
	f := s.spvFilter
	s.mu.Unlock()
	if f == nil {
		return nil // no filter installed: nothing to add to.
	}
	f.Add(data)
	return nil
}

// handleFilterClear drops the installed filter and re-enables
// unfiltered relay (spec.md §4.8).
func (s *Session) handleFilterClear() error {
	s.mu.Lock()
	s.spvFilter = nil
	s.relay = true
	s.mu.Unlock()
	return nil
}

// handleFeeFilter records the peer's minimum relay fee rate, used by
// announce to drop low-fee tx inv items (spec.md §4.4).
func (s *Session) handleFeeFilter(payload []byte) error {
	ff, err := wire.DecodeFeeFilter(payload)
	if err != nil {
		return errProtocol("feefilter", err, 10)
	}
	s.mu.Lock()
	s.feeRate = ff.FeeRate
	s.mu.Unlock()
	s.fire(wire.CmdFeeFilter, EventFeeFilter, *ff)
	return nil
}

// handleSendCmpct records the peer's requested compact-block mode.
// Mode-0 (the only mode this module speaks) negotiates with
// Announce=0 — the very payload onReady itself sends — so compact
// mode is enabled on any version-1-or-later sendcmpct, not gated on
// the high-bandwidth announce flag (spec.md §4.1/§4.10).
func (s *Session) handleSendCmpct(payload []byte) error {
	sc, err := wire.DecodeSendCmpct(payload)
	if err != nil {
		return errProtocol("sendcmpct", err, 10)
	}
	if sc.Version >= 1 {
		s.mu.Lock()
		s.compactMode = 1
		s.mu.Unlock()
	}
	s.fire(wire.CmdSendCmpct, EventSendCmpct, *sc)
	return nil
}
