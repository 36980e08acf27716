package peer

import "go.nodewire.dev/peer/wire"

// handleMempool answers an inbound `mempool` request with an inv
// listing every transaction currently held, gated on not-selfish and
// chain-synced per spec.md §4.7 (no relay-flag precondition there).
func (s *Session) handleMempool() error {
	if s.cfg.Selfish || s.mempool == nil || !s.chain.Synced() {
		return nil
	}
	ids := s.mempool.Snapshot()
	if len(ids) == 0 {
		return nil
	}
	items := make([]wire.InvItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, wire.InvItem{Type: wire.InvTx, Hash: id})
	}
	return s.sendInv(items)
}
