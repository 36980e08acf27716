// Package bip150 implements the BIP150 peer identity authentication
// handshake: a challenge/reply/propose exchange layered over an
// already-completed BIP151 encrypted channel, using secp256k1 ECDSA
// signatures over a per-session challenge hash. It never substitutes
// for BIP151 encryption; it only proves which identity key is on the
// other end of an already-private channel.
package bip150

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

var (
	ErrNotKnownPeer      = errors.New("bip150: peer identity not recognized")
	ErrSignatureMismatch = errors.New("bip150: challenge signature verification failed")
	ErrNoChallengeSent   = errors.New("bip150: reply received with no outstanding challenge")
	ErrAlreadyCompleted  = errors.New("bip150: handshake already completed")
)

// Handshake authenticates the remote peer's identity over a completed
// BIP151 transport. sessionID is the BIP151 transcript binding (e.g. a
// hash of both ephemeral public keys) so a challenge signed in one
// session cannot be replayed in another.
type Handshake struct {
	mu sync.Mutex

	sessionID  []byte
	identity   *secp256k1.PrivateKey
	remoteKey  *secp256k1.PublicKey // known/expected remote identity, nil if unknown
	outbound   bool

	sentChallenge []byte
	completed     bool
}

// New builds a handshake for one direction of a BIP150 exchange.
// remoteKey may be nil when the local side does not yet have a known
// identity for the peer (it will still be able to answer an inbound
// authchallenge with Challenge, but cannot itself verify a Reply).
func New(sessionID []byte, identity *secp256k1.PrivateKey, remoteKey *secp256k1.PublicKey, outbound bool) *Handshake {
	return &Handshake{sessionID: append([]byte(nil), sessionID...), identity: identity, remoteKey: remoteKey, outbound: outbound}
}

func (h *Handshake) Completed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completed
}

func (h *Handshake) challengeHash(direction byte) []byte {
	buf := make([]byte, 0, len(h.sessionID)+1)
	buf = append(buf, h.sessionID...)
	buf = append(buf, direction)
	sum := sha256.Sum256(buf)
	return sum[:]
}

// ToChallenge builds the authchallenge payload this side sends to ask
// the peer to prove its identity: a hash binding the current BIP151
// session so the resulting signature cannot be replayed elsewhere.
func (h *Handshake) ToChallenge() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	dir := byte('I')
	if !h.outbound {
		dir = byte('R')
	}
	challenge := h.challengeHash(dir)
	h.sentChallenge = challenge
	return challenge
}

// Challenge processes an inbound authchallenge and signs it with the
// local identity key, returning the authreply payload to send back.
func (h *Handshake) Challenge(data []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.identity == nil {
		return nil, ErrNotKnownPeer
	}
	sig := ecdsa.Sign(h.identity, data)
	return sig.Serialize(), nil
}

// Reply verifies an inbound authreply's signature against the
// previously sent challenge and the peer's known identity key.
func (h *Handshake) Reply(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sentChallenge == nil {
		return ErrNoChallengeSent
	}
	if h.remoteKey == nil {
		return ErrNotKnownPeer
	}
	sig, err := ecdsa.ParseDERSignature(data)
	if err != nil {
		return fmt.Errorf("bip150: parse reply signature: %w", err)
	}
	if !sig.Verify(h.sentChallenge, h.remoteKey) {
		return ErrSignatureMismatch
	}
	h.completed = true
	return nil
}

// ToPropose builds the authpropose payload announcing this side's
// willingness to authenticate under the given identity key hash,
// inviting the peer to issue its own authchallenge in return.
func (h *Handshake) ToPropose(identityKeyHash []byte) []byte {
	return append([]byte(nil), identityKeyHash...)
}

// Propose processes an inbound authpropose. It succeeds if the
// proposed identity hash matches the remote key this side already
// expects (if any); a peer with no prior known identity accepts any
// proposal and defers the actual trust decision to the pool.
func (h *Handshake) Propose(identityKeyHash []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.remoteKey == nil {
		return nil
	}
	expected := sha256.Sum256(h.remoteKey.SerializeCompressed())
	if !bytes.Equal(expected[:], identityKeyHash) {
		return ErrNotKnownPeer
	}
	return nil
}

// Destroy releases identity key material. Idempotent.
func (h *Handshake) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.identity = nil
	h.remoteKey = nil
	h.sentChallenge = nil
	h.completed = false
}
