package peer

import (
	"fmt"

	"go.nodewire.dev/peer/wire"
)

// allowedInPhase reports whether cmd may be dispatched in the
// session's current handshake phase (spec.md §4.2): each phase only
// accepts the packets that drive it forward, plus ping/pong so a slow
// peer does not get mistaken for a dead one mid-handshake.
func allowedInPhase(st state, cmd wire.Command) bool {
	switch st {
	case stateEncHandshake:
		switch cmd {
		case wire.CmdEncinit, wire.CmdEncack, wire.CmdPing, wire.CmdPong:
			return true
		}
		return false
	case stateAuthHandshake:
		switch cmd {
		case wire.CmdAuthChallenge, wire.CmdAuthReply, wire.CmdAuthPropose, wire.CmdPing, wire.CmdPong:
			return true
		}
		return false
	case stateVersionExchange:
		switch cmd {
		case wire.CmdVersion, wire.CmdVerack, wire.CmdHaveWitness, wire.CmdPing, wire.CmdPong, wire.CmdReject:
			return true
		}
		return false
	case stateReady:
		return true
	default:
		return false
	}
}

// dispatch routes one decoded packet to its handler, applying the
// handshake-phase gate and the merkle-slot flush rule before doing so
// (spec.md §4.2).
func (s *Session) dispatch(pkt *wire.Packet) error {
	st := s.getState()
	if !allowedInPhase(st, pkt.Command) {
		return errHandshake("dispatch", fmt.Errorf("%s not allowed in phase %s", pkt.Command, st))
	}

	if pkt.Command != wire.CmdTx {
		s.flushMerkleIfActive()
	}

	switch pkt.Command {
	case wire.CmdEncinit:
		return s.handleEncinit(pkt.Payload)
	case wire.CmdEncack:
		return s.handleEncack(pkt.Payload)
	case wire.CmdAuthChallenge:
		return s.handleAuthChallenge(pkt.Payload)
	case wire.CmdAuthReply:
		return s.handleAuthReply(pkt.Payload)
	case wire.CmdAuthPropose:
		return s.handleAuthPropose(pkt.Payload)

	case wire.CmdVersion:
		return s.handleVersion(pkt.Payload, s.cfg.LocalNonce)
	case wire.CmdVerack:
		return s.handleVerack()
	case wire.CmdHaveWitness:
		return s.handleHaveWitness()

	case wire.CmdPing:
		return s.handlePing(pkt.Payload)
	case wire.CmdPong:
		return s.handlePong(pkt.Payload)

	case wire.CmdAddr:
		return s.handleAddr(pkt.Payload)
	case wire.CmdGetAddr:
		return s.handleGetAddr()

	case wire.CmdInv:
		return s.handleInv(pkt.Payload)
	case wire.CmdNotFound:
		return s.handleNotFound(pkt.Payload)
	case wire.CmdGetData:
		return s.handleGetData(pkt.Payload)

	case wire.CmdGetHeaders:
		return s.handleGetHeaders(pkt.Payload)
	case wire.CmdHeaders:
		return s.handleHeaders(pkt.Payload)
	case wire.CmdGetBlocks:
		return s.handleGetBlocks(pkt.Payload)
	case wire.CmdSendHeaders:
		return s.handleSendHeaders()

	case wire.CmdBlock:
		return s.handleBlock(pkt.Payload)
	case wire.CmdTx:
		return s.handleTx(pkt.Payload)
	case wire.CmdMerkleBlock:
		return s.handleMerkleBlock(pkt.Payload)

	case wire.CmdFilterLoad:
		return s.handleFilterLoad(pkt.Payload)
	case wire.CmdFilterAdd:
		return s.handleFilterAdd(pkt.Payload)
	case wire.CmdFilterClear:
		return s.handleFilterClear()
	case wire.CmdFeeFilter:
		return s.handleFeeFilter(pkt.Payload)

	case wire.CmdSendCmpct:
		return s.handleSendCmpct(pkt.Payload)
	case wire.CmdCmpctBlock:
		return s.handleCmpctBlock(pkt.Payload)
	case wire.CmdGetBlockTxn:
		return s.serveGetBlockTxn(pkt.Payload)
	case wire.CmdBlockTxn:
		return s.handleBlockTxn(pkt.Payload)

	case wire.CmdGetUTXOs:
		return s.handleGetUTXOs(pkt.Payload)
	case wire.CmdUTXOs:
		s.reqs.response(wire.CmdUTXOs, pkt.Payload)
		return nil
	case wire.CmdMempool:
		return s.handleMempool()

	case wire.CmdReject:
		return s.handleReject(pkt.Payload)
	case wire.CmdAlert:
		return s.handleAlert(pkt.Payload)

	default:
		s.fire(pkt.Command, EventUnknown, pkt.Payload)
		return nil
	}
}
