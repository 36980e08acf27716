package peer

import "go.nodewire.dev/peer/wire"

// EventKind enumerates every observable event a Session emits upward,
// per spec.md §6's event list. It replaces a string-keyed emitter with
// an exhaustive tagged variant so the pool's dispatch over events is
// itself exhaustive-checkable.
type EventKind int

const (
	EventConnect EventKind = iota
	EventAck
	EventClose
	EventError
	EventVersion
	EventVerack
	EventPing
	EventPong
	EventAddr
	EventInv
	EventBlocks
	EventTxs
	EventBlock
	EventTx
	EventHeaders
	EventSendHeaders
	EventMerkleBlock
	EventFeeFilter
	EventReject
	EventAlert
	EventNotFound
	EventUTXOs
	EventHaveWitness
	EventEncinit
	EventEncack
	EventAuthChallenge
	EventAuthReply
	EventAuthPropose
	EventSendCmpct
	EventGetBlockTxn
	EventUnknown
)

// Event is one occurrence the session reports to its subscriber. Data
// carries the kind-specific payload (e.g. *wire.VersionPayload for
// EventVersion, a *Error for EventError); subscribers type-assert on
// the kind they already know to expect.
type Event struct {
	Kind EventKind
	Data any
}

// Subscriber is the narrow contract a pool implements to observe one
// Session's events. Handle must not block for long: it runs on the
// session's own dispatch goroutine.
type Subscriber interface {
	Handle(sessionID uint64, ev Event)
}

// eventSink is what Session actually holds — composition, not
// inheritance, from an emitter. A nil Subscriber is valid and simply
// discards every event.
type eventSink struct {
	sessionID  uint64
	subscriber Subscriber
}

func (s *eventSink) emit(kind EventKind, data any) {
	if s.subscriber == nil {
		return
	}
	s.subscriber.Handle(s.sessionID, Event{Kind: kind, Data: data})
}

// MerkleBlockEvent is the payload for EventMerkleBlock: the validated
// partial merkle tree plus the matched transactions collected for it
// (spec.md §4.9).
type MerkleBlockEvent struct {
	Block wire.MerkleBlock
	Txs   [][]byte
}

// RejectEvent mirrors wire.Reject for subscribers that want typed
// access without re-decoding the payload.
type RejectEvent struct {
	Message wire.Command
	Code    byte
	Reason  string
}
