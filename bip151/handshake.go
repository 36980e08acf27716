// Package bip151 implements the BIP151 peer-to-peer transport
// encryption handshake object: an ephemeral ECDH key exchange over
// secp256k1 followed by HKDF key derivation feeding a pair of
// ChaCha20-Poly1305 AEAD streams, one per direction. The peer session
// drives this object through encinit/encack packets; it never touches
// the cryptography directly.
package bip151

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// CipherChaCha20Poly1305 is the only cipher suite this handshake
// negotiates. BIP151 originally allowed a second, AES-GCM-based suite;
// this implementation supports only the ChaCha20-Poly1305 suite (see
// DESIGN.md for the open-question resolution).
const CipherChaCha20Poly1305 uint8 = 1

var (
	ErrUnsupportedCipher = errors.New("bip151: unsupported cipher suite")
	ErrAlreadyCompleted  = errors.New("bip151: handshake already completed")
	ErrBadPeerPublicKey  = errors.New("bip151: invalid peer public key")
	ErrNotReady          = errors.New("bip151: session keys not yet derived")
)

// Handshake drives one peer connection's BIP151 encryption state. A
// single instance is created per Session at connect time and discarded
// (Destroy) when the session closes.
type Handshake struct {
	mu sync.Mutex

	initiator bool
	priv      *secp256k1.PrivateKey
	pub       *secp256k1.PublicKey

	remotePub    *secp256k1.PublicKey
	cipherSuite  uint8
	sentEncinit  bool
	sentEncack   bool
	recvEncinit  bool
	recvEncack   bool

	sendAEAD  cipher.AEAD
	recvAEAD  cipher.AEAD
	sendNonce uint64
	recvNonce uint64

	completed bool
	err       error
	waiters   []func(error)
}

// New creates a handshake object for one connection. initiator must be
// true for the side that dialed out, so key derivation assigns
// send/recv roles consistently with the peer that accepted.
func New(initiator bool) (*Handshake, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("bip151: generate ephemeral key: %w", err)
	}
	return &Handshake{initiator: initiator, priv: priv, pub: priv.PubKey()}, nil
}

// Completed reports whether both directions' session keys are derived
// and ready for use.
func (h *Handshake) Completed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completed
}

// LocalPublicKey returns this side's compressed ephemeral public key,
// the value carried in our own encinit/encack payloads.
func (h *Handshake) LocalPublicKey() []byte {
	return h.pub.SerializeCompressed()
}

// ToEncinit encodes an encinit payload (pubkey || cipher suite id) for
// the given public key and cipher. It is a pure encoder so callers can
// use it both for the initial handshake and for a later rekey.
func (h *Handshake) ToEncinit(pubkey []byte, cipherSuite uint8) []byte {
	out := make([]byte, 0, len(pubkey)+1)
	out = append(out, pubkey...)
	out = append(out, cipherSuite)
	return out
}

// Encinit processes an inbound encinit: the peer's ephemeral public
// key and its chosen cipher suite. Only CipherChaCha20Poly1305 is
// accepted.
func (h *Handshake) Encinit(pubkey []byte, cipherSuite uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.completed {
		return ErrAlreadyCompleted
	}
	if cipherSuite != CipherChaCha20Poly1305 {
		return ErrUnsupportedCipher
	}
	remote, err := secp256k1.ParsePubKey(pubkey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPeerPublicKey, err)
	}
	h.remotePub = remote
	h.cipherSuite = cipherSuite
	h.recvEncinit = true
	return h.deriveIfReady()
}

// ToEncack encodes the local encack payload: our own ephemeral public
// key, acknowledging the peer's encinit.
func (h *Handshake) ToEncack() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sentEncack = true
	return h.pub.SerializeCompressed()
}

// Encack processes an inbound encack carrying the peer's public key.
// Combined with a locally-generated keypair and a received encinit,
// this completes key derivation for the connection's initiator.
func (h *Handshake) Encack(pubkey []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.completed {
		return ErrAlreadyCompleted
	}
	remote, err := secp256k1.ParsePubKey(pubkey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPeerPublicKey, err)
	}
	if h.remotePub == nil {
		h.remotePub = remote
	}
	h.recvEncack = true
	return h.deriveIfReady()
}

// deriveIfReady derives session keys once we hold both our own
// ephemeral keypair and the peer's ephemeral public key, and marks the
// handshake completed once both sides have also exchanged an ack.
func (h *Handshake) deriveIfReady() error {
	if h.remotePub == nil {
		return nil
	}
	if h.sendAEAD == nil {
		if err := h.deriveKeys(); err != nil {
			return err
		}
	}
	if h.recvEncinit && h.recvEncack {
		h.completed = true
		h.notify(nil)
	}
	return nil
}

// deriveKeys computes the ECDH shared secret and expands it via HKDF
// into two independent 32-byte keys, one per direction, so that what
// one side calls "send" the other calls "recv".
func (h *Handshake) deriveKeys() error {
	shared := ecdh(h.priv, h.remotePub)

	initToResp := []byte("bip151-initiator-to-responder")
	respToInit := []byte("bip151-responder-to-initiator")

	sendInfo, recvInfo := initToResp, respToInit
	if !h.initiator {
		sendInfo, recvInfo = respToInit, initToResp
	}

	sendKey, err := hkdfExpand(shared, sendInfo)
	if err != nil {
		return err
	}
	recvKey, err := hkdfExpand(shared, recvInfo)
	if err != nil {
		return err
	}

	sendAEAD, err := chacha20poly1305.New(sendKey)
	if err != nil {
		return fmt.Errorf("bip151: build send cipher: %w", err)
	}
	recvAEAD, err := chacha20poly1305.New(recvKey)
	if err != nil {
		return fmt.Errorf("bip151: build recv cipher: %w", err)
	}
	h.sendAEAD = sendAEAD
	h.recvAEAD = recvAEAD
	return nil
}

func ecdh(priv *secp256k1.PrivateKey, pub *secp256k1.PublicKey) []byte {
	var point secp256k1.JacobianPoint
	pub.AsJacobian(&point)

	scalar := priv.Key
	var result secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&scalar, &point, &result)
	result.ToAffine()

	x := result.X.Bytes()
	return x[:]
}

func hkdfExpand(secret, info []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, info)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("bip151: hkdf expand: %w", err)
	}
	return key, nil
}

// Seal encrypts one message payload under the current send key,
// advancing the per-direction nonce counter as BIP151 requires.
func (h *Handshake) Seal(plaintext []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sendAEAD == nil {
		return nil, ErrNotReady
	}
	nonce := nonceFromCounter(h.sendNonce)
	h.sendNonce++
	return h.sendAEAD.Seal(nil, nonce, plaintext, nil), nil
}

// Open decrypts one message payload under the current recv key.
func (h *Handshake) Open(ciphertext []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.recvAEAD == nil {
		return nil, ErrNotReady
	}
	nonce := nonceFromCounter(h.recvNonce)
	h.recvNonce++
	return h.recvAEAD.Open(nil, nonce, ciphertext, nil)
}

func nonceFromCounter(counter uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.LittleEndian.PutUint64(nonce[4:], counter)
	return nonce
}

// Rekey generates a fresh ephemeral keypair and returns the encinit
// payload to announce it, per BIP151's rekey provision. The existing
// session keys are discarded immediately: Seal and Open return
// ErrNotReady until a subsequent Encinit/Encack exchange derives new
// ones.
func (h *Handshake) Rekey() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		// Only fails on exhausted entropy; keep the old key rather than
		// panic, the caller can retry the rekey later.
		return h.pub.SerializeCompressed()
	}
	h.priv = priv
	h.pub = priv.PubKey()
	h.remotePub = nil
	h.sendAEAD = nil
	h.recvAEAD = nil
	h.recvEncinit = false
	h.recvEncack = false
	h.completed = false
	pubBytes := h.pub.SerializeCompressed()
	out := make([]byte, 0, len(pubBytes)+1)
	out = append(out, pubBytes...)
	out = append(out, h.cipherSuite)
	return out
}

// Wait registers cb to be invoked (possibly immediately) once the
// handshake completes or times out, whichever comes first. Complete is
// idempotent, so a timer that fires after the handshake has already
// resolved elsewhere is a harmless no-op.
func (h *Handshake) Wait(timeout time.Duration, cb func(error)) {
	h.mu.Lock()
	if h.completed || h.err != nil {
		err := h.err
		h.mu.Unlock()
		cb(err)
		return
	}
	h.waiters = append(h.waiters, cb)
	h.mu.Unlock()

	time.AfterFunc(timeout, func() {
		h.Complete(fmt.Errorf("bip151: handshake timed out after %s", timeout))
	})
}

// Complete forcibly resolves the handshake with err (nil for success),
// notifying every registered waiter exactly once.
func (h *Handshake) Complete(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.completed || h.err != nil {
		return
	}
	if err == nil {
		h.completed = true
	} else {
		h.err = err
	}
	h.notify(err)
}

func (h *Handshake) notify(err error) {
	waiters := h.waiters
	h.waiters = nil
	for _, cb := range waiters {
		cb(err)
	}
}

// Destroy releases key material. Idempotent.
func (h *Handshake) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.priv = nil
	h.remotePub = nil
	h.sendAEAD = nil
	h.recvAEAD = nil
	h.completed = false
	h.waiters = nil
}
