package peer

import (
	"bytes"
	"io"
	"log/slog"
	"sync"

	"go.nodewire.dev/peer/bloom"
	"go.nodewire.dev/peer/chainiface"
	"go.nodewire.dev/peer/wire"
)

// fakeTransport is an in-memory chainiface.Transport: every frame
// handed to Write is appended to frames for the test to inspect.
type fakeTransport struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (t *fakeTransport) Write(b []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := append([]byte(nil), b...)
	t.frames = append(t.frames, cp)
	return true, nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) RemoteAddr() string { return "127.0.0.1:0" }

func (t *fakeTransport) packets(codec wire.Codec) []*wire.Packet {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*wire.Packet
	for _, f := range t.frames {
		pkt, rerr := codec.ReadPacket(bytes.NewReader(f))
		if rerr != nil {
			panic(rerr)
		}
		out = append(out, pkt)
	}
	return out
}

// newSendTestSession builds a Session with enough wiring to exercise
// send()-based handlers (announce, inv, headers, addr) without a real
// network connection.
func newSendTestSession() (*Session, *fakeTransport) {
	tr := &fakeTransport{}
	s := &Session{
		cfg:        &Config{Magic: 0xD9B4BEF9},
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		rec:        nil,
		transport:  tr,
		framer:     wire.Codec{Magic: 0xD9B4BEF9},
		parser:     wire.Codec{Magic: 0xD9B4BEF9},
		merkle:     &merkleSlot{},
		reqs:       newRequestTable(),
		addrFilter: bloom.NewRollingFilter(AddrFilterSize, AddrFilterFPR),
		invFilter:  bloom.NewRollingFilter(InvFilterSize, InvFilterFPR),
		relay:      true,
		feeRate:    -1,
	}
	return s, tr
}

// fakeChain implements chainiface.Chain over a plain forward-linked
// chain of hashes, enough to drive sweepBlocks/continueHashContinue.
type fakeChain struct {
	order   []wire.Hash256
	next    map[wire.Hash256]wire.Hash256
	blocks  map[wire.Hash256]chainiface.BlockView
	heights map[wire.Hash256]uint32
	height  uint32
}

func newFakeChain(hashes ...wire.Hash256) *fakeChain {
	c := &fakeChain{order: hashes, next: make(map[wire.Hash256]wire.Hash256)}
	for i := 0; i+1 < len(hashes); i++ {
		c.next[hashes[i]] = hashes[i+1]
	}
	return c
}

func (c *fakeChain) Height() uint32 {
	if c.height != 0 {
		return c.height
	}
	return uint32(len(c.order))
}
func (c *fakeChain) TipHash() wire.Hash256 { return c.order[len(c.order)-1] }
func (c *fakeChain) Synced() bool          { return true }
func (c *fakeChain) Network() string       { return "test" }
func (c *fakeChain) Pruned() bool          { return false }
func (c *fakeChain) GetBlock(h wire.Hash256) (chainiface.BlockView, bool, error) {
	if c.blocks != nil {
		if v, ok := c.blocks[h]; ok {
			return v, true, nil
		}
	}
	return nil, false, nil
}
func (c *fakeChain) GetHeader(h wire.Hash256) (wire.BlockHeader, bool, error) {
	return wire.BlockHeader{}, false, nil
}
func (c *fakeChain) GetNextHash(h wire.Hash256) (wire.Hash256, bool, error) {
	n, ok := c.next[h]
	return n, ok, nil
}
func (c *fakeChain) GetHeight(h wire.Hash256) (uint32, bool) {
	if c.heights != nil {
		height, ok := c.heights[h]
		return height, ok
	}
	return 0, false
}
func (c *fakeChain) FindLocator(locator []wire.Hash256) (wire.Hash256, bool, error) {
	if len(locator) == 0 {
		return wire.Hash256{}, false, nil
	}
	return locator[0], true, nil
}
func (c *fakeChain) GetLocator() []wire.Hash256 { return nil }
func (c *fakeChain) GetCoin(op wire.OutPoint) (wire.Coin, bool, error) {
	return wire.Coin{}, false, nil
}

func hashWithFirstByte(b byte) wire.Hash256 {
	var h wire.Hash256
	h[0] = b
	return h
}

// fakeBlockView is a minimal chainiface.BlockView backing serve-side
// block tests: one coinbase followed by n-1 plain transactions.
type fakeBlockView struct {
	header wire.BlockHeader
	txs    int
}

func (v *fakeBlockView) Header() wire.BlockHeader  { return v.header }
func (v *fakeBlockView) TxCount() int              { return v.txs }
func (v *fakeBlockView) TxID(i int) wire.Hash256    { return hashWithFirstByte(byte(i + 1)) }
func (v *fakeBlockView) WTxID(i int) wire.Hash256   { return hashWithFirstByte(byte(i + 1)) }
func (v *fakeBlockView) RawTx(i int) []byte         { return []byte{byte(i)} }
func (v *fakeBlockView) IsCoinbase(i int) bool      { return i == 0 }
