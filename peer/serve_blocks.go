package peer

import "go.nodewire.dev/peer/wire"

// sendGetBlocks issues an inv-based sync request built from the local
// chain's locator, used when headers-first sync was not negotiated
// (spec.md §4.1/§4.7).
func (s *Session) sendGetBlocks(locator []wire.Hash256, hashStop wire.Hash256) error {
	payload, err := wire.EncodeGetBlocks(wire.GetBlocks{
		Version:  wire.ShortIDProtocolVersion,
		Locator:  locator,
		HashStop: hashStop,
	})
	if err != nil {
		return errInternal("getblocks", err)
	}
	return s.send(wire.CmdGetBlocks, payload, nil)
}

// handleGetBlocks serves an inbound inv-based sync sweep: up to
// MaxGetBlocksResults block hashes starting after the requester's
// locator. A sweep truncated by the cap leaves hashContinue set so a
// later getdata naming that hash triggers one trailing inv carrying the
// chain tip (see continueHashContinue; spec.md §4.7).
func (s *Session) handleGetBlocks(payload []byte) error {
	if !s.serveChainAllowed() {
		return nil
	}
	req, err := wire.DecodeGetBlocks(payload)
	if err != nil {
		return errProtocol("getblocks", err, 10)
	}

	start, found, err := s.chain.FindLocator(req.Locator)
	if err != nil {
		return errInternal("getblocks", err)
	}
	if !found {
		return nil
	}

	items, truncated, err := s.sweepBlocks(start, req.HashStop)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	if truncated {
		last := items[len(items)-1].Hash
		s.hashContinue = &last
	} else {
		s.hashContinue = nil
	}
	s.mu.Unlock()

	return s.sendInv(items)
}

// sweepBlocks walks the chain forward from after, stopping at hashStop,
// MaxGetBlocksResults entries, or the chain tip, whichever comes first.
func (s *Session) sweepBlocks(after, hashStop wire.Hash256) ([]wire.InvItem, bool, error) {
	items := make([]wire.InvItem, 0, MaxGetBlocksResults)
	cur := after
	for len(items) < MaxGetBlocksResults {
		next, ok, err := s.chain.GetNextHash(cur)
		if err != nil {
			return nil, false, errInternal("getblocks", err)
		}
		if !ok {
			return items, false, nil
		}
		items = append(items, wire.InvItem{Type: wire.InvBlock, Hash: next})
		cur = next
		if next == hashStop {
			return items, false, nil
		}
	}
	return items, true, nil
}

// continueHashContinue fires the one trailing inv owed once the
// requester's getdata names the pending continuation hash: a single
// inv carrying the current chain tip, not a resumed sweep (spec.md
// §4.7/§8).
func (s *Session) continueHashContinue(hash wire.Hash256) error {
	s.mu.Lock()
	hc := s.hashContinue
	if hc != nil && *hc == hash {
		s.hashContinue = nil
	}
	s.mu.Unlock()
	if hc == nil || *hc != hash {
		return nil
	}
	return s.sendInv([]wire.InvItem{{Type: wire.InvBlock, Hash: s.chain.TipHash()}})
}
