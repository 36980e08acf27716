// Package peer implements the core peer-session object of a
// Bitcoin-style P2P client: one long-lived state machine over one
// transport connection, covering the optional BIP151/BIP150 handshake,
// version negotiation, keep-alive, inventory relay, block/transaction
// serving, compact-block reconstruction, SPV filtering, and
// misbehavior scoring. Everything outside that — the wire codec, chain
// and mempool stores, the owning pool, and the logging/metrics sinks —
// is an external collaborator reached only through a narrow interface.
package peer

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.nodewire.dev/peer/bip150"
	"go.nodewire.dev/peer/bip151"
	"go.nodewire.dev/peer/bloom"
	"go.nodewire.dev/peer/chainiface"
	"go.nodewire.dev/peer/metrics"
	"go.nodewire.dev/peer/wire"
)

// Session is one Bitcoin P2P connection. All mutable state here is
// exclusively owned by this session's Run goroutine (spec.md §5): no
// field is safe to touch from outside it except through the thread-safe
// accessors this file exposes for use by the owning pool.
type Session struct {
	id   uint64
	host string

	cfg       *Config
	log       *slog.Logger
	rec       *metrics.Recorder
	transport chainiface.Transport
	parser    wire.Parser
	framer    wire.Framer
	chain     chainiface.Chain
	mempool   chainiface.Mempool
	pool      chainiface.Pool
	txCodec   chainiface.TxCodec

	events eventSink

	ctx    context.Context
	cancel context.CancelFunc

	state state

	enc  *bip151.Handshake
	auth *bip150.Handshake

	reqs    *requestTable
	compact *compactTable
	merkle  *merkleSlot

	addrFilter *bloom.RollingFilter
	invFilter  *bloom.RollingFilter
	spvFilter  *bloom.Filter

	remoteVersion *wire.VersionPayload
	services      uint64
	haveWitness   bool
	preferHeaders bool
	sentHeaders   bool
	relay         bool
	feeRate       int64
	compactMode   int
	sentAddr      bool
	sentGetAddr   bool

	connectedAt time.Time
	lastSend    time.Time
	lastRecv    time.Time
	lastPing    time.Time
	lastPong    time.Time
	minPing     time.Duration
	hasMinPing  bool
	pingNonce   uint64
	pingOutstanding bool

	syncSent     bool
	hashContinue *wire.Hash256

	ban banScore

	ack       bool
	gotVerack bool
	connected bool
	destroyed bool

	serveLock tryLock

	mu sync.Mutex
}

// New constructs a Session bound to transport, ready to run once Run
// is called. sessionID is assigned by the pool's own id generator
// (spec.md §9: no module-level mutable counter).
func New(sessionID uint64, host string, transport chainiface.Transport, parser wire.Parser, framer wire.Framer, cfg *Config, subscriber Subscriber) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        sessionID,
		host:      host,
		cfg:       cfg,
		log:       cfg.logger().With("peer_id", sessionID, "host", host),
		rec:       cfg.recorder(),
		transport: transport,
		parser:    parser,
		framer:    framer,
		chain:     cfg.Chain,
		mempool:   cfg.Mempool,
		pool:      cfg.Pool,
		txCodec:   cfg.TxCodec,
		events:    eventSink{sessionID: sessionID, subscriber: subscriber},
		ctx:       ctx,
		cancel:    cancel,
		state:     stateConnecting,
		reqs:      newRequestTable(),
		compact:   newCompactTable(),
		merkle:    &merkleSlot{},
		feeRate:   -1,
		relay:     cfg.Relay,
		serveLock: newTryLock(),
	}
	s.addrFilter = bloom.NewRollingFilter(AddrFilterSize, AddrFilterFPR)
	s.invFilter = bloom.NewRollingFilter(InvFilterSize, InvFilterFPR)
	s.rec.SessionCreated()
	return s
}

// ID returns the session's pool-assigned identity.
func (s *Session) ID() uint64 { return s.id }

// Host returns the remote host/port string used for operator triage
// (spec.md §7: "user-visible messages include hostname suffixes").
func (s *Session) Host() string { return s.host }

// Ready reports whether the session has completed its handshake and
// is in full duplex operation.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateReady
}

// BanScore returns the current, decayed ban score.
func (s *Session) BanScore() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ban.Score(time.Now())
}

func (s *Session) addBanScore(delta int, reason string) {
	s.mu.Lock()
	score := s.ban.Add(time.Now(), delta)
	s.mu.Unlock()
	s.rec.Misbehavior(reason)
	if s.pool != nil {
		s.pool.SetMisbehavior(s.id, score)
	}
	if score >= BanThreshold {
		s.log.Warn("ban threshold reached", "score", score, "reason", reason)
	}
}

// send frames payload under cmd and writes it to the transport,
// encrypting first if a completed BIP151 channel is active. checksum,
// when non-nil, lets a caller pass a pre-computed tx hash instead of
// re-hashing a large payload (wire.Framer contract, spec.md §6).
func (s *Session) send(cmd wire.Command, payload []byte, checksum *[4]byte) error {
	framed, err := s.framer.Frame(cmd, payload, checksum)
	if err != nil {
		return errProtocol("send", fmt.Errorf("frame %s: %w", cmd, err), 0)
	}
	if s.enc != nil && s.enc.Completed() {
		sealed, err := s.enc.Seal(framed)
		if err != nil {
			return errTransport("send", fmt.Errorf("seal %s: %w", cmd, err))
		}
		var lenPrefix [4]byte
		binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(sealed)))
		framed = append(lenPrefix[:], sealed...)
	}
	if _, err := s.transport.Write(framed); err != nil {
		return errTransport("send", err)
	}
	s.mu.Lock()
	s.lastSend = time.Now()
	s.mu.Unlock()
	s.rec.MessageSent(string(cmd))
	return nil
}

// destroy tears the session down. Idempotent (spec.md §4.11): a second
// call observes destroyed already true and is a no-op.
func (s *Session) destroy(reason string) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.state = stateClosed
	s.mu.Unlock()

	s.cancel()
	_ = s.transport.Close()
	if s.enc != nil {
		s.enc.Destroy()
	}
	if s.auth != nil {
		s.auth.Destroy()
	}
	s.reqs.destroyAll(fmt.Errorf("peer: session destroyed"))
	s.compact.stopAll()
	s.rec.SessionClosed(reason)
	s.rec.BanScoreFinal(s.BanScore())
	s.events.emit(EventClose, reason)
	s.log.Info("session closed", "reason", reason)
}

// randNonce draws a cryptographically random 64-bit value, used for
// both the local handshake nonce and ping challenge nonces.
func randNonce() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
