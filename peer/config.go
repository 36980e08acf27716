package peer

import (
	"log/slog"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"go.nodewire.dev/peer/chainiface"
	"go.nodewire.dev/peer/metrics"
	"go.nodewire.dev/peer/wire"
)

// Timing constants fixed by the protocol (spec.md §5).
const (
	ConnectTimeout      = 10 * time.Second
	EncHandshakeTimeout = 3 * time.Second
	AuthHandshakeTimeout = 3 * time.Second
	RequestTimeout      = chainiface.RequestTimeout
	CompactBlockTimeout = 10 * time.Second
	PingInterval        = 120 * time.Second

	MaxGetDataItems     = 50_000
	MaxGetBlocksResults = 500
	MaxGetBlockTxnRetries = 16

	CompactBlockServeDepth = 10
	GetBlockTxnServeDepth  = 15

	AddrFilterSize = 5_000
	AddrFilterFPR  = 1e-3
	InvFilterSize  = 50_000
	InvFilterFPR   = 1e-6
)

// Config is the set of options the owning pool supplies when
// constructing a Session, mirroring the teacher's PeerConfig plus the
// fields spec.md §6 lists under "Configuration options the peer
// consumes".
type Config struct {
	// Outbound is true for a connection this side dialed, false for
	// one accepted from a listener. Self-connect detection and a
	// handful of service-bit checks apply only to outbound peers.
	Outbound bool

	// Network identifies the wire codec's magic/checksum profile; it
	// is surfaced to Chain.Network() callers and logging only.
	Network string
	Magic   uint32

	BIP151  bool
	BIP150  bool
	Compact bool
	Witness bool
	Headers bool
	SPV     bool
	Selfish bool
	Relay   bool

	LocalServices uint64
	LocalNonce    uint64
	UserAgent     string
	StartHeight   uint32

	// IdentityKey and RemoteIdentityKey are used only when BIP150 is
	// enabled: the local signing key and, if already known from a
	// prior connection, the remote peer's expected identity.
	IdentityKey       *secp256k1.PrivateKey
	RemoteIdentityKey *secp256k1.PublicKey

	Logger  *slog.Logger
	Metrics *metrics.Recorder

	Chain   chainiface.Chain
	Mempool chainiface.Mempool
	Pool    chainiface.Pool
	TxCodec chainiface.TxCodec
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Config) recorder() *metrics.Recorder {
	return c.Metrics
}

func (c *Config) codec() wire.Codec {
	return wire.Codec{Magic: c.Magic}
}
