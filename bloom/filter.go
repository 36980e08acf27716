// Package bloom implements the two probabilistic filters a peer
// session uses: a BIP37 filter representing a remote peer's declared
// SPV filter, and a fixed-capacity rolling filter used for
// announcement de-duplication.
package bloom

import (
	"fmt"
	"math"
)

// BIP37 constraints, mirrored from wire so callers constructing a
// filter directly from user input get the same bounds enforced at the
// session boundary (spec.md §4.8).
const (
	MaxFilterBytes     = 36_000
	MaxFilterHashFuncs = 50
)

const seedConstant uint32 = 0xfba4c795

// Filter is a BIP37 bloom filter: a bit array tested by k independent
// murmur3 hash functions seeded by the filter's tweak. It represents a
// remote peer's declared SPV filter and decides which transactions get
// relayed to it.
type Filter struct {
	bits      []byte
	hashFuncs uint32
	tweak     uint32
}

// NewFilter builds an empty filter sized for n elements at the given
// false-positive rate, using the standard BIP37 sizing formulas.
func NewFilter(n int, fpRate float64, tweak uint32) (*Filter, error) {
	if n <= 0 {
		return nil, fmt.Errorf("bloom: filter: n must be positive")
	}
	size := bestFilterSize(n, fpRate)
	funcs := bestHashFuncCount(size, n)
	return NewFilterFromBytes(make([]byte, size), funcs, tweak)
}

// NewFilterFromBytes wraps caller-supplied filter bytes (as received in
// a filterload packet) after validating them against BIP37 limits.
func NewFilterFromBytes(data []byte, hashFuncs uint32, tweak uint32) (*Filter, error) {
	if len(data) > MaxFilterBytes {
		return nil, fmt.Errorf("bloom: filter: data exceeds %d bytes", MaxFilterBytes)
	}
	if hashFuncs > MaxFilterHashFuncs {
		return nil, fmt.Errorf("bloom: filter: hash func count exceeds %d", MaxFilterHashFuncs)
	}
	return &Filter{bits: append([]byte(nil), data...), hashFuncs: hashFuncs, tweak: tweak}, nil
}

func bestFilterSize(n int, fpRate float64) int {
	// -1/ln(2)^2 * n * ln(p), bytes, capped to the BIP37 ceiling.
	const lnSq2 = 0.4804530139182014
	size := int(-1.0 / lnSq2 * float64(n) * math.Log(fpRate) / 8)
	if size < 1 {
		size = 1
	}
	if size > MaxFilterBytes {
		size = MaxFilterBytes
	}
	return size
}

func bestHashFuncCount(filterBytes, n int) uint32 {
	k := float64(filterBytes*8) / float64(n) * math.Ln2
	if k < 1 {
		k = 1
	}
	if k > MaxFilterHashFuncs {
		k = MaxFilterHashFuncs
	}
	return uint32(k)
}

// Add inserts data into the filter under all k hash functions.
func (f *Filter) Add(data []byte) {
	if len(f.bits) == 0 {
		return
	}
	for i := uint32(0); i < f.hashFuncs; i++ {
		idx := f.hash(i, data)
		f.bits[idx/8] |= 1 << (idx % 8)
	}
}

// Test reports whether data may be a member of the filter (false
// positives are possible by construction; false negatives are not).
func (f *Filter) Test(data []byte) bool {
	if len(f.bits) == 0 {
		return false
	}
	for i := uint32(0); i < f.hashFuncs; i++ {
		idx := f.hash(i, data)
		if f.bits[idx/8]&(1<<(idx%8)) == 0 {
			return false
		}
	}
	return true
}

func (f *Filter) hash(i uint32, data []byte) uint32 {
	seed := i*seedConstant + f.tweak
	return murmurHash3(seed, data) % uint32(len(f.bits)*8)
}

// TxEntity is anything a matched filter entry can identify within a
// transaction: its own hash, an outpoint it spends, or data pushed in
// one of its output scripts. The peer session supplies these from the
// transaction object it holds (owned by the external chain/mempool
// store, out of scope here); bloom only needs byte identity.
type TxEntity struct {
	TxID         []byte
	OutpointRefs [][]byte // 36-byte (hash||index) outpoints this tx spends
	ScriptData   [][]byte // candidate data pushes from output scripts
}

// MatchesTx reports whether any element of the transaction — its own
// id, any prevout it spends, or any data pushed in its outputs —
// matches the filter, per BIP37's matching rules.
func (f *Filter) MatchesTx(tx TxEntity) bool {
	if f.Test(tx.TxID) {
		return true
	}
	for _, op := range tx.OutpointRefs {
		if f.Test(op) {
			return true
		}
	}
	for _, d := range tx.ScriptData {
		if f.Test(d) {
			return true
		}
	}
	return false
}

// Clear empties the filter in place without changing its size/k,
// matching the effect of an inbound filterclear followed by the
// session continuing to relay unfiltered (spec.md §4.8: relay=true,
// filter reference dropped by the caller, not reused here).
func (f *Filter) Clear() {
	for i := range f.bits {
		f.bits[i] = 0
	}
}
