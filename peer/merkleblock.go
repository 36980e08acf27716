package peer

import "go.nodewire.dev/peer/wire"

// merkleSlot holds at most one in-flight merkleblock reassembly
// (spec.md §3/§4.9): the validated partial tree plus the ordered set
// of transaction hashes it still expects before it can be flushed
// upward as one complete event.
type merkleSlot struct {
	active  bool
	block   wire.MerkleBlock
	want    map[wire.Hash256]bool
	order   []wire.Hash256
	got     map[wire.Hash256][]byte
	waiting int
}

// handleMerkleBlock verifies the partial merkle tree and either
// flushes immediately (no matches) or opens the slot to collect the
// transactions that follow.
func (s *Session) handleMerkleBlock(payload []byte) error {
	s.flushMerkleIfActive()

	mb, err := wire.DecodeMerkleBlock(payload)
	if err != nil {
		return errProtocol("merkleblock", err, 10)
	}
	matches, err := wire.ExtractMatches(*mb)
	if err != nil {
		s.rec.MerkleBlockReassembled("root_mismatch")
		return errProtocol("merkleblock", err, 10)
	}

	s.merkle = &merkleSlot{
		active:  true,
		block:   *mb,
		want:    make(map[wire.Hash256]bool, len(matches)),
		order:   matches,
		got:     make(map[wire.Hash256][]byte, len(matches)),
		waiting: len(matches),
	}
	for _, h := range matches {
		s.merkle.want[h] = true
	}
	if len(matches) == 0 {
		s.flushMerkleIfActive()
	}
	return nil
}

// handleTxForMerkle attaches an inbound tx to the active merkle slot
// if it is one of the slot's expected matches, flushing once every
// match has arrived. It is a no-op when no merkle slot is active.
func (s *Session) handleTxForMerkle(txid wire.Hash256, raw []byte) bool {
	m := s.merkle
	if !m.active || !m.want[txid] {
		return false
	}
	if _, already := m.got[txid]; !already {
		m.got[txid] = raw
		m.waiting--
	}
	if m.waiting <= 0 {
		s.flushMerkleIfActive()
	}
	return true
}

// flushMerkleIfActive emits whatever the slot has collected so far and
// clears it. Called both on natural completion and when a non-TX
// packet arrives mid-collection (spec.md §4.2 step 4, §4.9).
func (s *Session) flushMerkleIfActive() {
	m := s.merkle
	if !m.active {
		return
	}
	txs := make([][]byte, 0, len(m.order))
	for _, h := range m.order {
		if raw, ok := m.got[h]; ok {
			txs = append(txs, raw)
		}
	}
	outcome := "complete"
	if len(txs) < len(m.order) {
		outcome = "truncated"
	}
	s.rec.MerkleBlockReassembled(outcome)
	s.events.emit(EventMerkleBlock, MerkleBlockEvent{Block: m.block, Txs: txs})
	s.merkle = &merkleSlot{}
}
