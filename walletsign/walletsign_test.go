package walletsign

import (
	"crypto/ed25519"
	"testing"
)

func TestDeriveDevKeypairIsDeterministic(t *testing.T) {
	a, err := DeriveDevKeypair([]byte("fixture-seed"))
	if err != nil {
		t.Fatalf("deriving keypair: %v", err)
	}
	b, err := DeriveDevKeypair([]byte("fixture-seed"))
	if err != nil {
		t.Fatalf("deriving keypair: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected the same seed to derive the same keypair")
	}
}

func TestDeriveDevKeypairDependsOnSeed(t *testing.T) {
	a, _ := DeriveDevKeypair([]byte("seed-one"))
	b, _ := DeriveDevKeypair([]byte("seed-two"))
	if string(a) == string(b) {
		t.Fatalf("expected different seeds to derive different keypairs")
	}
}

func TestStaticSignVerifies(t *testing.T) {
	priv, err := DeriveDevKeypair([]byte("sign-test"))
	if err != nil {
		t.Fatalf("deriving keypair: %v", err)
	}
	signer := NewStatic(priv)

	msg := []byte("message to sign")
	sig, err := signer.Sign(msg)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	pub := signer.Pubkey()
	if !ed25519.Verify(pub[:], msg, sig[:]) {
		t.Fatalf("expected signature to verify")
	}
}
