package peer

import (
	"fmt"
	"sync"
	"time"

	"go.nodewire.dev/peer/wire"
)

// compactSlot is a partially reconstructed compact block (spec.md
// §3/§4.10), keyed by block hash in its owning compactTable. filled
// holds every transaction index this side has resolved so far, either
// from a prefilled entry or a mempool short-ID match; once it covers
// every index the slot is complete.
type compactSlot struct {
	blockHash wire.Hash256
	header    wire.BlockHeader
	nonce     uint64
	shortIDs  [][wire.ShortIDBytes]byte
	total     int
	filled    map[int][]byte
	timer     *time.Timer
}

type compactTable struct {
	mu    sync.Mutex
	slots map[wire.Hash256]*compactSlot
}

func newCompactTable() *compactTable {
	return &compactTable{slots: make(map[wire.Hash256]*compactSlot)}
}

func (t *compactTable) get(hash wire.Hash256) (*compactSlot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[hash]
	return s, ok
}

func (t *compactTable) put(slot *compactSlot) {
	t.mu.Lock()
	t.slots[slot.blockHash] = slot
	t.mu.Unlock()
}

func (t *compactTable) delete(hash wire.Hash256) {
	t.mu.Lock()
	if s, ok := t.slots[hash]; ok {
		s.timer.Stop()
		delete(t.slots, hash)
	}
	t.mu.Unlock()
}

func (t *compactTable) stopAll() {
	t.mu.Lock()
	for _, s := range t.slots {
		s.timer.Stop()
	}
	t.slots = make(map[wire.Hash256]*compactSlot)
	t.mu.Unlock()
}

// handleCmpctBlock processes an inbound compact block announcement:
// attempts to fill it entirely from the mempool, and if that fails,
// requests the missing transactions via getblocktxn with a 10-second
// eviction timer (spec.md §4.10).
func (s *Session) handleCmpctBlock(payload []byte) error {
	s.flushMerkleIfActive()

	if s.compactMode == 0 {
		return nil // not in compact mode: ignore (spec.md §4.10).
	}
	if s.mempool == nil {
		return nil // no mempool to fill against: ignore.
	}

	cb, tail, err := wire.DecodeCmpctBlock(payload)
	if err != nil {
		return errProtocol("cmpctblock", err, 10)
	}
	hash := wire.HeaderHash(cb.Header)
	if _, dup := s.compact.get(hash); dup {
		return nil // reject duplicate announcements silently.
	}

	prefilled, err := s.decodePrefilled(tail)
	if err != nil {
		return errProtocol("cmpctblock", fmt.Errorf("prefilled section: %w", err), 10)
	}

	total := len(cb.ShortIDs) + len(prefilled)
	filled := make(map[int][]byte, total)
	for idx, raw := range prefilled {
		filled[idx] = raw
	}

	s.fillFromMempool(cb.Header, cb.Nonce, cb.ShortIDs, filled, len(prefilled))

	if len(filled) == total {
		s.rec.CompactBlockFill("mempool_complete")
		s.events.emit(EventBlock, completedCompactBlock(cb.Header, total, filled))
		return nil
	}

	slot := &compactSlot{
		blockHash: hash,
		header:    cb.Header,
		nonce:     cb.Nonce,
		shortIDs:  cb.ShortIDs,
		total:     total,
		filled:    filled,
	}
	slot.timer = time.AfterFunc(CompactBlockTimeout, func() {
		s.compact.delete(hash)
		s.rec.CompactBlockFill("evicted")
	})
	s.compact.put(slot)

	missing := missingIndices(cb.ShortIDs, prefilled, filled, len(prefilled))
	payloadOut, err := wire.EncodeGetBlockTxn(wire.GetBlockTxn{BlockHash: hash, Indices: missing})
	if err != nil {
		s.compact.delete(hash)
		return errInternal("cmpctblock", err)
	}
	return s.send(wire.CmdGetBlockTxn, payloadOut, nil)
}

// handleBlockTxn fills a previously-opened compactSlot with the
// requested transactions, completing or permanently failing it.
func (s *Session) handleBlockTxn(payload []byte) error {
	hash, off, n, err := wire.DecodeBlockTxnHeader(payload)
	if err != nil {
		return errProtocol("blocktxn", err, 10)
	}
	slot, ok := s.compact.get(hash)
	if !ok {
		s.log.Debug("blocktxn for unknown slot", "hash", hash)
		return nil
	}
	s.compact.delete(hash)

	txs, err := s.splitTxs(payload[off:], int(n))
	if err != nil {
		s.rec.CompactBlockFill("failed")
		return errProtocol("blocktxn", err, 100)
	}

	missing := missingIndicesFromSlot(slot)
	if len(txs) != len(missing) {
		s.rec.CompactBlockFill("failed")
		return errProtocol("blocktxn", fmt.Errorf("blocktxn: expected %d txs, got %d", len(missing), len(txs)), 100)
	}
	for i, idx := range missing {
		slot.filled[idx] = txs[i]
	}
	s.rec.CompactBlockFill("getblocktxn_complete")
	s.events.emit(EventBlock, completedCompactBlock(slot.header, slot.total, slot.filled))
	return nil
}

// serveGetBlockTxn answers an inbound getblocktxn by building a
// blocktxn response from the block the requester identified, subject
// to the same selfish/SPV/prune/depth gates as other serve handlers
// (spec.md §4.10).
func (s *Session) serveGetBlockTxn(payload []byte) error {
	if s.cfg.Selfish || s.cfg.SPV || s.chain.Pruned() {
		return nil
	}
	req, err := wire.DecodeGetBlockTxn(payload)
	if err != nil {
		return errProtocol("getblocktxn", err, 10)
	}
	view, ok, err := s.chain.GetBlock(req.BlockHash)
	if err != nil {
		return errInternal("getblocktxn", err)
	}
	if !ok {
		return errProtocol("getblocktxn", fmt.Errorf("getblocktxn: unknown block"), 100)
	}
	if height, known := s.chain.GetHeight(req.BlockHash); known && int(s.chain.Height())-int(height) > GetBlockTxnServeDepth {
		return nil // too deep: silently dropped (spec.md §4.10/§8).
	}
	raws := make([][]byte, 0, len(req.Indices))
	for _, idx := range req.Indices {
		if int(idx) >= view.TxCount() {
			return nil // silently dropped per spec.md §4.10/§8.
		}
		raws = append(raws, view.RawTx(int(idx)))
	}
	out := wire.EncodeBlockTxn(wire.BlockTxn{BlockHash: req.BlockHash, Txs: raws})
	return s.send(wire.CmdBlockTxn, out, nil)
}

func (s *Session) fillFromMempool(header wire.BlockHeader, nonce uint64, shortIDs [][wire.ShortIDBytes]byte, filled map[int][]byte, prefilledCount int) {
	want := make(map[[wire.ShortIDBytes]byte]int, len(shortIDs))
	for i, sid := range shortIDs {
		want[sid] = prefilledCount + i
	}
	for _, txid := range s.mempool.Snapshot() {
		raw, ok := s.mempool.GetTx(txid)
		if !ok {
			continue
		}
		sid := wire.ShortID(header, nonce, txid)
		if idx, match := want[sid]; match {
			filled[idx] = raw
		}
	}
}

func (s *Session) decodePrefilled(tail []byte) (map[int][]byte, error) {
	out := make(map[int][]byte)
	if len(tail) == 0 {
		return out, nil
	}
	count, used, err := wire.DecodeCompactSize(tail)
	if err != nil {
		return nil, err
	}
	off := used
	var idx uint64
	for i := 0; i < int(count); i++ {
		delta, u, err := wire.DecodeCompactSize(tail[off:])
		if err != nil {
			return nil, err
		}
		off += u
		if i == 0 {
			idx = delta
		} else {
			idx = idx + 1 + delta
		}
		raw, consumed, err := s.splitOneTx(tail[off:])
		if err != nil {
			return nil, err
		}
		out[int(idx)] = raw
		off += consumed
	}
	return out, nil
}

func (s *Session) splitOneTx(b []byte) ([]byte, int, error) {
	if s.txCodec == nil {
		return nil, 0, fmt.Errorf("peer: no tx codec configured to split prefilled transactions")
	}
	return s.txCodec.SplitTx(b)
}

func (s *Session) splitTxs(b []byte, n int) ([][]byte, error) {
	out := make([][]byte, 0, n)
	off := 0
	for i := 0; i < n; i++ {
		raw, consumed, err := s.splitOneTx(b[off:])
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
		off += consumed
	}
	return out, nil
}

func missingIndices(shortIDs [][wire.ShortIDBytes]byte, prefilled map[int][]byte, filled map[int][]byte, prefilledCount int) []uint64 {
	out := make([]uint64, 0, len(shortIDs))
	for i := range shortIDs {
		idx := prefilledCount + i
		if _, ok := filled[idx]; !ok {
			out = append(out, uint64(idx))
		}
	}
	return out
}

func missingIndicesFromSlot(slot *compactSlot) []int {
	out := make([]int, 0)
	for i := 0; i < slot.total; i++ {
		if _, ok := slot.filled[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

// completedCompactBlock assembles the final ordered transaction list
// for a fully-filled compact block, for the upward full-block event.
func completedCompactBlock(header wire.BlockHeader, total int, filled map[int][]byte) BlockEvent {
	txs := make([][]byte, total)
	for i := 0; i < total; i++ {
		txs[i] = filled[i]
	}
	return BlockEvent{Header: header, Txs: txs}
}

// BlockEvent is the payload for EventBlock when it originates from a
// reconstructed compact block (as opposed to a directly-served full
// block, which a caller may emit with its own raw bytes upstream).
type BlockEvent struct {
	Header wire.BlockHeader
	Txs    [][]byte
}
