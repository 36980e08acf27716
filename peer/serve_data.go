package peer

import (
	"errors"
	"fmt"

	"go.nodewire.dev/peer/wire"
)

// baseInvType strips the witness bit so callers can switch on the
// underlying inventory kind regardless of whether it was requested in
// its witness-serialized form.
func baseInvType(t uint32) uint32 {
	return t &^ (1 << 30)
}

// handleGetData serves a batch of requested items, one item at a time,
// folding anything this side cannot produce into a trailing notfound
// (spec.md §4.7). Only one getdata is served at a time per peer
// (serveLock); a getdata arriving mid-serve is dropped, matching the
// requester's own retry behavior.
func (s *Session) handleGetData(payload []byte) error {
	items, err := wire.DecodeInv(payload)
	if err != nil {
		if errors.Is(err, wire.ErrTooManyInvEntries) {
			return errProtocol("getdata", err, 20)
		}
		return errProtocol("getdata", err, 10)
	}
	if len(items) > MaxGetDataItems {
		return errProtocol("getdata", fmt.Errorf("getdata: too many items"), 20)
	}
	if !s.serveLock.acquire() {
		return nil
	}
	defer s.serveLock.release()

	var notFound []wire.InvItem
	var continuation *wire.Hash256
	for _, it := range items {
		served, err := s.serveOneItem(it)
		if err != nil {
			return err
		}
		if !served {
			notFound = append(notFound, it)
		}
		if baseInvType(it.Type) == wire.InvBlock {
			h := it.Hash
			continuation = &h
		}
	}

	if len(notFound) > 0 {
		out, err := wire.EncodeInv(notFound)
		if err != nil {
			return errInternal("getdata", err)
		}
		if err := s.send(wire.CmdNotFound, out, nil); err != nil {
			return err
		}
	}
	if continuation != nil {
		if err := s.continueHashContinue(*continuation); err != nil {
			return err
		}
	}
	return nil
}

// serveOneItem produces one requested inventory item, reporting
// whether it was found and served.
func (s *Session) serveOneItem(it wire.InvItem) (bool, error) {
	switch baseInvType(it.Type) {
	case wire.InvTx:
		return s.serveTx(it)
	case wire.InvBlock:
		return s.serveBlockItem(it)
	case wire.InvFilteredBlock:
		return s.serveFilteredBlock(it)
	case wire.InvCmpctBlock:
		return s.serveCmpctBlockItem(it)
	default:
		return false, nil
	}
}

func (s *Session) serveTx(it wire.InvItem) (bool, error) {
	if s.cfg.Selfish || s.mempool == nil {
		return false, nil
	}
	raw, ok := s.mempool.GetTx(it.Hash)
	if !ok {
		return false, nil
	}
	if err := s.send(wire.CmdTx, raw, nil); err != nil {
		return false, err
	}
	return true, nil
}

// serveBlockItem answers a plain `block`/`WITNESS_BLOCK` getdata
// request, always with the full block (spec.md §4.7).
func (s *Session) serveBlockItem(it wire.InvItem) (bool, error) {
	if s.cfg.Selfish {
		return false, nil
	}
	view, ok, err := s.chain.GetBlock(it.Hash)
	if err != nil {
		return false, errInternal("getdata", err)
	}
	if !ok {
		return false, nil
	}
	return true, s.sendFullBlock(view)
}

// serveCmpctBlockItem answers a `CMPCT_BLOCK` getdata request with a
// compact block when the block is within CompactBlockServeDepth of the
// chain tip, falling back to a full block otherwise (spec.md §4.10).
func (s *Session) serveCmpctBlockItem(it wire.InvItem) (bool, error) {
	if s.cfg.Selfish {
		return false, nil
	}
	view, ok, err := s.chain.GetBlock(it.Hash)
	if err != nil {
		return false, errInternal("getdata", err)
	}
	if !ok {
		return false, nil
	}
	if height, known := s.chain.GetHeight(it.Hash); known && int(s.chain.Height())-int(height) <= CompactBlockServeDepth {
		return true, s.sendCmpctBlockFor(view)
	}
	return true, s.sendFullBlock(view)
}

// serveFilteredBlock answers a filtered-block getdata request with a
// BIP37 partial merkle tree built from the requester's own previously
// installed filter (spec.md §4.8/§4.9).
func (s *Session) serveFilteredBlock(it wire.InvItem) (bool, error) {
	if s.cfg.Selfish {
		return false, nil
	}
	s.mu.Lock()
	filter := s.spvFilter
	s.mu.Unlock()
	if filter == nil {
		return false, nil
	}
	view, ok, err := s.chain.GetBlock(it.Hash)
	if err != nil {
		return false, errInternal("getdata", err)
	}
	if !ok {
		return false, nil
	}

	n := view.TxCount()
	txids := make([]wire.Hash256, n)
	matches := make([]bool, n)
	var matchedRaw [][]byte
	for i := 0; i < n; i++ {
		txids[i] = view.TxID(i)
		// Only the txid itself is tested here: matching a filter against
		// a transaction's spent outpoints or pushed script data requires
		// parsing its body, which this module deliberately does not own
		// (spec.md §1 Non-goals). A filter that only ever adds txids —
		// the common case for address-watching SPV clients — still
		// matches correctly.
		if filter.Test(txids[i][:]) {
			matches[i] = true
			matchedRaw = append(matchedRaw, view.RawTx(i))
		}
	}

	mb, err := wire.BuildMerkleBlock(view.Header(), txids, matches)
	if err != nil {
		return false, errInternal("getdata", err)
	}
	out, err := wire.EncodeMerkleBlock(mb)
	if err != nil {
		return false, errInternal("getdata", err)
	}
	if err := s.send(wire.CmdMerkleBlock, out, nil); err != nil {
		return false, err
	}
	for _, raw := range matchedRaw {
		if err := s.send(wire.CmdTx, raw, nil); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *Session) sendFullBlock(view interface {
	Header() wire.BlockHeader
	TxCount() int
	RawTx(i int) []byte
}) error {
	n := view.TxCount()
	out := wire.EncodeBlockHeader(view.Header())
	out = append(out, wire.EncodeCompactSize(uint64(n))...)
	for i := 0; i < n; i++ {
		out = append(out, view.RawTx(i)...)
	}
	return s.send(wire.CmdBlock, out, nil)
}

func (s *Session) sendCmpctBlockFor(view interface {
	Header() wire.BlockHeader
	TxCount() int
	WTxID(i int) wire.Hash256
	RawTx(i int) []byte
	IsCoinbase(i int) bool
}) error {
	header := view.Header()
	n := view.TxCount()

	// spec.md §9 (open question): the source retries short-ID
	// construction on a SipHash collision among the block's own
	// transactions by drawing a fresh nonce; an unbounded retry loop
	// risks spinning forever on a non-collision failure, so this is
	// bounded at MaxGetBlockTxnRetries attempts.
	var nonce uint64
	var shortIDs [][wire.ShortIDBytes]byte
	var prefilled []wire.PrefilledTx
	collided := true
	for attempt := 0; attempt < MaxGetBlockTxnRetries && collided; attempt++ {
		if attempt > 0 {
			s.rec.CompactBlockShortIDRetry()
		}
		var err error
		nonce, err = randNonce()
		if err != nil {
			return errInternal("cmpctblock", err)
		}
		shortIDs = shortIDs[:0]
		prefilled = prefilled[:0]
		seen := make(map[[wire.ShortIDBytes]byte]struct{}, n)
		collided = false
		for i := 0; i < n; i++ {
			if view.IsCoinbase(i) {
				prefilled = append(prefilled, wire.PrefilledTx{Index: uint64(i), Raw: view.RawTx(i)})
				continue
			}
			sid := wire.ShortID(header, nonce, view.WTxID(i))
			if _, dup := seen[sid]; dup {
				collided = true
				break
			}
			seen[sid] = struct{}{}
			shortIDs = append(shortIDs, sid)
		}
	}
	if collided {
		return errInternal("cmpctblock", fmt.Errorf("cmpctblock: short-id collision persisted after %d nonce retries", MaxGetBlockTxnRetries))
	}

	cb := wire.CmpctBlock{Header: header, Nonce: nonce, ShortIDs: shortIDs, Prefilled: prefilled}
	out, err := wire.EncodeCmpctBlock(cb)
	if err != nil {
		return errInternal("cmpctblock", err)
	}
	return s.send(wire.CmdCmpctBlock, out, nil)
}
