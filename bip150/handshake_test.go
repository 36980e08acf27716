package bip150

import (
	"crypto/sha256"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestChallengeReplyRoundTrip(t *testing.T) {
	identityA, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	identityB, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	sessionID := []byte("shared-bip151-session-binding")

	// A is outbound and already knows B's identity key.
	a := New(sessionID, identityA, identityB.PubKey(), true)
	// B is inbound, has its own identity key, doesn't need to know A's
	// to answer a challenge.
	b := New(sessionID, identityB, nil, false)

	challenge := a.ToChallenge()
	reply, err := b.Challenge(challenge)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Reply(reply); err != nil {
		t.Fatal(err)
	}
	if !a.Completed() {
		t.Fatal("expected initiating side to complete after verifying reply")
	}
}

func TestReplyRejectsWrongSigner(t *testing.T) {
	identityA, _ := secp256k1.GeneratePrivateKey()
	identityB, _ := secp256k1.GeneratePrivateKey()
	impostor, _ := secp256k1.GeneratePrivateKey()
	sessionID := []byte("session")

	a := New(sessionID, identityA, identityB.PubKey(), true)
	wrongSigner := New(sessionID, impostor, nil, false)

	challenge := a.ToChallenge()
	reply, err := wrongSigner.Challenge(challenge)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Reply(reply); err == nil {
		t.Fatal("expected signature verification to fail for wrong signer")
	}
}

func TestReplyWithoutChallengeFails(t *testing.T) {
	identityA, _ := secp256k1.GeneratePrivateKey()
	a := New([]byte("s"), identityA, identityA.PubKey(), true)
	if err := a.Reply([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error when no challenge was sent")
	}
}

func TestProposeAcceptsMatchingIdentity(t *testing.T) {
	identityB, _ := secp256k1.GeneratePrivateKey()
	a := New([]byte("s"), nil, identityB.PubKey(), true)
	hash := sha256.Sum256(identityB.PubKey().SerializeCompressed())
	if err := a.Propose(hash[:]); err != nil {
		t.Fatal(err)
	}
}

func TestProposeRejectsMismatchedIdentity(t *testing.T) {
	identityB, _ := secp256k1.GeneratePrivateKey()
	other, _ := secp256k1.GeneratePrivateKey()
	a := New([]byte("s"), nil, identityB.PubKey(), true)
	hash := sha256.Sum256(other.PubKey().SerializeCompressed())
	if err := a.Propose(hash[:]); err == nil {
		t.Fatal("expected error for mismatched identity proposal")
	}
}
