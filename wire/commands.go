// Package wire implements the Bitcoin P2P wire encoding: message framing,
// checksums, and the logical payload types the peer session dispatches on.
//
// The core peer session (package peer) treats this package as an external
// collaborator: it depends only on the Parser/Framer interfaces in
// message.go, never on the concrete codec, so a caller may swap in a
// different checksum/framing scheme for an alternate network.
package wire

// Command identifies a logical packet type on the wire. The wire format
// encodes it as a 12-byte, NUL-right-padded ASCII string.
type Command string

const (
	CmdVersion Command = "version"
	CmdVerack  Command = "verack"
	CmdReject  Command = "reject"
	CmdPing    Command = "ping"
	CmdPong    Command = "pong"

	CmdAddr   Command = "addr"
	CmdGetAddr Command = "getaddr"

	CmdInv         Command = "inv"
	CmdGetData     Command = "getdata"
	CmdNotFound    Command = "notfound"
	CmdGetHeaders  Command = "getheaders"
	CmdHeaders     Command = "headers"
	CmdGetBlocks   Command = "getblocks"
	CmdBlock       Command = "block"
	CmdTx          Command = "tx"
	CmdSendHeaders Command = "sendheaders"
	CmdHaveWitness Command = "havewitness"

	CmdMerkleBlock Command = "merkleblock"
	CmdFilterLoad  Command = "filterload"
	CmdFilterAdd   Command = "filteradd"
	CmdFilterClear Command = "filterclear"
	CmdFeeFilter   Command = "feefilter"

	CmdSendCmpct   Command = "sendcmpct"
	CmdCmpctBlock  Command = "cmpctblock"
	CmdGetBlockTxn Command = "getblocktxn"
	CmdBlockTxn    Command = "blocktxn"

	CmdGetUTXOs Command = "getutxos"
	CmdUTXOs    Command = "utxos"
	CmdMempool  Command = "mempool"

	CmdEncinit Command = "encinit"
	CmdEncack  Command = "encack"

	CmdAuthChallenge Command = "authchallenge"
	CmdAuthReply     Command = "authreply"
	CmdAuthPropose   Command = "authpropose"

	CmdAlert Command = "alert"
)

// Reject codes (BIP61).
const (
	RejectMalformed       byte = 0x01
	RejectInvalid         byte = 0x10
	RejectObsolete        byte = 0x11
	RejectDuplicate       byte = 0x12
	RejectNonstandard     byte = 0x40
	RejectDust            byte = 0x41
	RejectInsufficientFee byte = 0x42
	RejectCheckpoint      byte = 0x43
)

// Inventory vector types.
const (
	InvErr                uint32 = 0
	InvTx                 uint32 = 1
	InvBlock              uint32 = 2
	InvFilteredBlock      uint32 = 3
	InvCmpctBlock         uint32 = 4
	InvWitnessTx          uint32 = 1 | 1<<30
	InvWitnessBlock       uint32 = 2 | 1<<30
	InvFilteredWitnessBlk uint32 = 3 | 1<<30
)

// Protocol version gates used by the session state machine.
const (
	MinProtocolVersion      uint32 = 31800
	SendHeadersVersion      uint32 = 70012
	CompactFiltersVersion   uint32 = 70014
	ShortIDProtocolVersion  uint32 = 70015
)

// Service bits.
const (
	ServiceNetwork    uint64 = 1 << 0
	ServiceGetUTXO    uint64 = 1 << 1
	ServiceBloom      uint64 = 1 << 2
	ServiceWitness    uint64 = 1 << 3
	ServiceNetworkLimited uint64 = 1 << 10
)
