package peer

import (
	"errors"

	"go.nodewire.dev/peer/wire"
)

// sendGetHeaders issues a headers-first sync request built from the
// local chain's locator (spec.md §4.7).
func (s *Session) sendGetHeaders(locator []wire.Hash256, hashStop wire.Hash256) error {
	payload, err := wire.EncodeGetHeaders(wire.GetHeaders{
		Version:  wire.ShortIDProtocolVersion,
		Locator:  locator,
		HashStop: hashStop,
	})
	if err != nil {
		return errInternal("getheaders", err)
	}
	return s.send(wire.CmdGetHeaders, payload, nil)
}

// handleGetHeaders serves an inbound headers request: resolve the best
// known ancestor from the requester's locator, then walk forward up to
// MaxHeadersPerMsg entries or the requested stop hash (spec.md §4.7).
func (s *Session) handleGetHeaders(payload []byte) error {
	if !s.serveChainAllowed() {
		return nil
	}
	req, err := wire.DecodeGetHeaders(payload)
	if err != nil {
		return errProtocol("getheaders", err, 10)
	}

	start, found, err := s.chain.FindLocator(req.Locator)
	if err != nil {
		return errInternal("getheaders", err)
	}
	if !found {
		return nil
	}

	headers := make([]wire.BlockHeader, 0, wire.MaxHeadersPerMsg)
	cur := start
	for len(headers) < wire.MaxHeadersPerMsg {
		next, ok, err := s.chain.GetNextHash(cur)
		if err != nil {
			return errInternal("getheaders", err)
		}
		if !ok {
			break
		}
		h, ok, err := s.chain.GetHeader(next)
		if err != nil {
			return errInternal("getheaders", err)
		}
		if !ok {
			break
		}
		headers = append(headers, h)
		cur = next
		if next == req.HashStop {
			break
		}
	}
	if len(headers) == 0 {
		return nil
	}
	return s.sendHeadersBatch(headers)
}

// handleHeaders processes an inbound headers batch (the client side of
// a headers-first sync): fires the event and, if the batch was full,
// immediately requests the next one chained off its last entry.
func (s *Session) handleHeaders(payload []byte) error {
	headers, err := wire.DecodeHeaders(payload)
	if err != nil {
		if errors.Is(err, wire.ErrTooManyHeaders) {
			return errProtocol("headers", err, 100)
		}
		return errProtocol("headers", err, 10)
	}
	s.fire(wire.CmdHeaders, EventHeaders, headers)
	if len(headers) == wire.MaxHeadersPerMsg {
		last := wire.HeaderHash(headers[len(headers)-1])
		return s.sendGetHeaders([]wire.Hash256{last}, wire.Hash256{})
	}
	return nil
}

// handleSendHeaders records that the peer wants future block
// announcements delivered as headers rather than inv (spec.md §4.4).
func (s *Session) handleSendHeaders() error {
	s.mu.Lock()
	s.preferHeaders = true
	s.mu.Unlock()
	s.fire(wire.CmdSendHeaders, EventSendHeaders, nil)
	return nil
}
