// Package chainiface declares the narrow interfaces the peer session
// uses to reach its external collaborators: the transport, the chain
// and mempool stores, and the owning pool. None of these are
// implemented here — the peer drives only the contract, never the
// internals of a real chain database, mempool, or address manager.
package chainiface

import (
	"time"

	"go.nodewire.dev/peer/wire"
)

// Transport is a duplex byte stream. The peer writes framed packets
// to it and receives raw chunks back through the onData/onError/
// onClose hooks it supplies at construction time; Transport itself
// never parses wire packets.
type Transport interface {
	Write(b []byte) (bool, error)
	Close() error
	RemoteAddr() string
}

// Chain is the narrow view of a block/header store the peer needs to
// answer getheaders/getblocks/getdata and to decide compact-block
// eligibility (recent-tip gates) and sync state.
type Chain interface {
	Height() uint32
	TipHash() wire.Hash256
	Synced() bool
	Network() string

	// Pruned reports whether this store has discarded historical
	// block bodies, the local counterpart of the "prune" option flag
	// spec.md §6 lists on the Chain contract; getheaders/getblocks
	// decline to serve a sweep a pruned store cannot answer in full.
	Pruned() bool

	GetBlock(hash wire.Hash256) (BlockView, bool, error)
	GetHeader(hash wire.Hash256) (wire.BlockHeader, bool, error)
	GetNextHash(hash wire.Hash256) (wire.Hash256, bool, error)

	// GetHeight resolves a block hash to its chain height, used to
	// gate compact-block serving depth (spec.md §4.7/§4.10: within 10
	// of tip for cmpctblock, within 15 for getblocktxn).
	GetHeight(hash wire.Hash256) (height uint32, ok bool)

	// FindLocator resolves an inbound getheaders/getblocks locator to
	// the best known ancestor already present in this chain.
	FindLocator(locator []wire.Hash256) (wire.Hash256, bool, error)

	// GetLocator builds an outbound locator representing this chain's
	// current view, for sync requests the peer issues.
	GetLocator() []wire.Hash256

	// GetCoin answers the chain-store half of a getutxos lookup
	// (spec.md §4.7) once the mempool has been checked (or was not
	// asked to be).
	GetCoin(op wire.OutPoint) (coin wire.Coin, ok bool, err error)
}

// BlockView is everything the peer needs out of a full block without
// owning a transaction type of its own: the header, an ordered list of
// (txid, wtxid, raw bytes) triples, and helpers for merkle and compact
// block construction.
type BlockView interface {
	Header() wire.BlockHeader
	TxCount() int
	TxID(i int) wire.Hash256
	WTxID(i int) wire.Hash256
	RawTx(i int) []byte
	IsCoinbase(i int) bool
}

// Mempool is the narrow view of the shared mempool the peer needs to
// serve tx getdata requests, fill compact blocks, answer getutxos, and
// serve a mempool snapshot.
type Mempool interface {
	GetTx(txid wire.Hash256) ([]byte, bool)
	HasTx(txid wire.Hash256) bool

	// Snapshot lists every txid currently held, for the `mempool`
	// command (spec.md §4.7) and for compact-block short-ID fill,
	// which must search the mempool by short ID rather than by txid.
	Snapshot() []wire.Hash256

	// Rate reports a transaction's fee rate (sat/kB) for the peer's
	// feeFilter announce-time check (spec.md §4.4); ok is false if the
	// mempool does not know the transaction.
	Rate(txid wire.Hash256) (rate int64, ok bool)

	// Coin reports an unspent mempool output for getutxos when the
	// caller requested mempool coverage (spec.md §4.7); spent
	// distinguishes "known but already spent" from "unknown".
	Coin(op wire.OutPoint) (coin wire.Coin, spent bool, ok bool)
}

// Pool is the owning collection of peers: it holds cross-peer state
// (host reputation, address book, broadcast inventory, the pool-wide
// SPV filter) that a single Session never owns directly.
type Pool interface {
	Services() uint64
	LocalNonce() uint64
	FeeRate() int64

	SetMisbehavior(sessionID uint64, score int)
	Ignore(sessionID uint64)
	IsMisbehaving(host string) bool
	IsIgnored(host string) bool

	BroadcastInventory() []wire.InvItem
	KnownAddresses(max int) []wire.TimedAddress

	// SPVFilter returns the local node's own BIP37 filter to push to a
	// remote peer via filterload when this session is running in SPV
	// mode (spec.md §4.1, §6 Pool contract); ok is false if no filter
	// has been configured yet.
	SPVFilter() (fl wire.FilterLoad, ok bool)
}

// TxCodec splits one serialized transaction off the front of a byte
// buffer without validating it — the minimal seam the peer needs to
// walk a compact block's prefilled-transaction section (spec.md
// §4.10), since the wire package deliberately does not parse
// transaction bytes itself (spec.md §1 Non-goals: no block/tx
// validation lives in this module).
type TxCodec interface {
	SplitTx(b []byte) (txBytes []byte, consumed int, err error)
}

// RequestTimeout is the standard wait for an outstanding request
// before it is considered failed (spec.md §4.3).
const RequestTimeout = 10 * time.Second
