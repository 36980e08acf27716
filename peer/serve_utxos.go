package peer

import (
	"go.nodewire.dev/peer/wire"
)

// handleGetUTXOs answers a BIP64-style getutxos request by checking
// the mempool first (only if the requester asked for it) and falling
// back to the chain store, reporting a hit bitmap alongside the
// current chain tip (spec.md §4.7).
func (s *Session) handleGetUTXOs(payload []byte) error {
	if s.cfg.Selfish {
		return nil
	}
	req, err := wire.DecodeGetUTXOs(payload)
	if err != nil {
		return errProtocol("getutxos", err, 10)
	}
	if len(req.Prevouts) > wire.MaxUTXOPrevouts {
		// spec.md §8: over the 15-prevout cap is silently ignored, no
		// response and no ban score — unlike the oversized-inv/headers
		// cases, which do score misbehavior.
		return nil
	}

	hits := make([]bool, len(req.Prevouts))
	coins := make([]wire.Coin, 0, len(req.Prevouts))
	for i, op := range req.Prevouts {
		if req.CheckMempool && s.mempool != nil {
			if coin, spent, ok := s.mempool.Coin(op); ok {
				if !spent {
					hits[i] = true
					coins = append(coins, coin)
				}
				continue
			}
		}
		coin, ok, err := s.chain.GetCoin(op)
		if err != nil {
			return errInternal("getutxos", err)
		}
		if ok {
			hits[i] = true
			coins = append(coins, coin)
		}
	}

	resp := wire.UTXOsResponse{
		ChainHeight: s.chain.Height(),
		ChainTip:    s.chain.TipHash(),
		HitMap:      hits,
		Coins:       coins,
	}
	out, err := wire.EncodeUTXOs(resp)
	if err != nil {
		return errInternal("getutxos", err)
	}
	return s.send(wire.CmdUTXOs, out, nil)
}

// sendGetUTXOs issues an outbound getutxos request for up to
// MaxUTXOPrevouts prevouts and registers the pending reply. The
// wire.UTXOs encoding does not repeat the request count, so the
// decode step is bound into the callback here rather than handled
// generically by dispatch (spec.md §4.3).
func (s *Session) sendGetUTXOs(checkMempool bool, prevouts []wire.OutPoint, cb RequestCallback) error {
	payload, err := wire.EncodeGetUTXOs(wire.GetUTXOs{CheckMempool: checkMempool, Prevouts: prevouts})
	if err != nil {
		return errInternal("getutxos", err)
	}
	s.reqs.request(wire.CmdUTXOs, RequestTimeout, func(raw any, err error) bool {
		if err != nil {
			cb(nil, err)
			return false
		}
		resp, derr := wire.DecodeUTXOs(raw.([]byte), len(prevouts))
		if derr != nil {
			cb(nil, derr)
			return false
		}
		return cb(*resp, nil)
	})
	return s.send(wire.CmdGetUTXOs, payload, nil)
}
