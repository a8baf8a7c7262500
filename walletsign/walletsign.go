// Package walletsign defines the narrow signer contract the batch engine needs. It is
// deliberately not a keypair loader: callers construct their own Signer (from a hardware
// wallet, a keystore file, an HSM, whatever) and hand it to the upload coordinator, whose
// transaction builders sign with it.
package walletsign

import (
	"crypto/ed25519"

	"golang.org/x/crypto/sha3"
)

// Signer can produce ed25519 signatures over arbitrary messages and report the public
// key those signatures verify against.
type Signer interface {
	// Pubkey returns the 32-byte public key this signer signs for.
	Pubkey() [32]byte
	// Sign returns a 64-byte ed25519 signature over message.
	Sign(message []byte) ([64]byte, error)
}

// Static wraps a raw ed25519 keypair as a Signer. It exists for tests and local
// development; production callers are expected to supply their own Signer backed by
// whatever key-custody mechanism they use.
type Static struct {
	priv ed25519.PrivateKey
	pub  [32]byte
}

// NewStatic builds a Static signer from a 64-byte ed25519 private key (the standard
// seed||pubkey encoding).
func NewStatic(priv ed25519.PrivateKey) Static {
	var pub [32]byte
	copy(pub[:], priv.Public().(ed25519.PublicKey))
	return Static{priv: priv, pub: pub}
}

func (s Static) Pubkey() [32]byte { return s.pub }

func (s Static) Sign(message []byte) ([64]byte, error) {
	var out [64]byte
	copy(out[:], ed25519.Sign(s.priv, message))
	return out, nil
}

// DeriveDevKeypair expands an arbitrary-length seed into a deterministic ed25519 keypair
// via SHA3-256. It exists for tests and local fixtures that need the same keypair across
// runs without checking a raw private key into source control; it is not a substitute for
// real key custody and must never be used to derive a production signing key.
func DeriveDevKeypair(seed []byte) (ed25519.PrivateKey, error) {
	h := sha3.New256()
	_, _ = h.Write(seed)
	expanded := h.Sum(nil)
	return ed25519.NewKeyFromSeed(expanded), nil
}
