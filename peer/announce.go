package peer

import (
	"go.nodewire.dev/peer/bloom"
	"go.nodewire.dev/peer/wire"
)

// AnnounceItem is one candidate for outbound relay: a block or
// transaction the pool wants this peer to learn about. Header is set
// when the item is a block that can be converted to a headers entry;
// Tx is set when the item is a transaction, carrying what bloom
// matching needs against the peer's SPV filter.
type AnnounceItem struct {
	InvType uint32
	Hash    wire.Hash256
	Header  *wire.BlockHeader
	Tx      *bloom.TxEntity
}

func isTxInvType(t uint32) bool {
	return t == wire.InvTx || t == wire.InvWitnessTx
}

// announce filters items per the peer's negotiated preferences
// (SPV filter, header preference, relay flag, fee filter, and the
// inventory de-dup filter) and sends whatever survives, matching
// spec.md §4.4 exactly.
func (s *Session) announce(items []AnnounceItem) error {
	s.mu.Lock()
	spv := s.spvFilter
	preferHeaders := s.preferHeaders
	relay := s.relay
	feeRate := s.feeRate
	s.mu.Unlock()

	var headers []wire.BlockHeader
	var invs []wire.InvItem

	for _, it := range items {
		if spv != nil && it.Tx != nil && !spv.MatchesTx(*it.Tx) {
			continue
		}
		if preferHeaders && it.Header != nil {
			if s.invFilter.Test(it.Hash[:]) {
				continue
			}
			headers = append(headers, *it.Header)
			s.invFilter.Add(it.Hash[:])
			continue
		}
		if !relay && isTxInvType(it.InvType) {
			continue
		}
		if feeRate != -1 && isTxInvType(it.InvType) && s.mempool != nil {
			if rate, ok := s.mempool.Rate(it.Hash); ok && rate < feeRate {
				continue
			}
		}
		if s.invFilter.Test(it.Hash[:]) {
			continue
		}
		invs = append(invs, wire.InvItem{Type: it.InvType, Hash: it.Hash})
	}

	if len(headers) > 0 {
		if err := s.sendHeadersBatch(headers); err != nil {
			return err
		}
	}
	if len(invs) > 0 {
		if err := s.sendInv(invs); err != nil {
			return err
		}
	}
	return nil
}

// sendInv marks each item in the inventory filter and chunks them into
// 50,000-entry inv packets.
func (s *Session) sendInv(items []wire.InvItem) error {
	for _, it := range items {
		s.invFilter.Add(it.Hash[:])
	}
	const chunk = wire.MaxInvEntries
	for start := 0; start < len(items); start += chunk {
		end := start + chunk
		if end > len(items) {
			end = len(items)
		}
		payload, err := wire.EncodeInv(items[start:end])
		if err != nil {
			return errInternal("announce", err)
		}
		if err := s.send(wire.CmdInv, payload, nil); err != nil {
			return err
		}
	}
	return nil
}

// sendHeadersBatch chunks headers at 2,000 entries per `headers`
// packet (spec.md §4.4).
func (s *Session) sendHeadersBatch(headers []wire.BlockHeader) error {
	const chunk = wire.MaxHeadersPerMsg
	for start := 0; start < len(headers); start += chunk {
		end := start + chunk
		if end > len(headers) {
			end = len(headers)
		}
		payload, err := wire.EncodeHeaders(headers[start:end])
		if err != nil {
			return errInternal("announce", err)
		}
		if err := s.send(wire.CmdHeaders, payload, nil); err != nil {
			return err
		}
	}
	return nil
}

// sendAddr announces up to MaxAddrEntries known addresses, deduped
// against the address filter.
func (s *Session) sendAddr(addrs []wire.TimedAddress) error {
	fresh := make([]wire.TimedAddress, 0, len(addrs))
	for _, a := range addrs {
		key := addrKey(a.Addr)
		if s.addrFilter.Test(key) {
			continue
		}
		s.addrFilter.Add(key)
		fresh = append(fresh, a)
	}
	if len(fresh) == 0 {
		return nil
	}
	if len(fresh) > wire.MaxAddrEntries {
		fresh = fresh[:wire.MaxAddrEntries]
	}
	payload, err := wire.EncodeAddr(fresh)
	if err != nil {
		return errInternal("addr", err)
	}
	return s.send(wire.CmdAddr, payload, nil)
}

func addrKey(a wire.NetAddress) []byte {
	key := make([]byte, 18)
	copy(key, a.IP[:])
	key[16] = byte(a.Port)
	key[17] = byte(a.Port >> 8)
	return key
}
