package ledger

import (
	"crypto/sha256"
)

// ContainerID identifies a container account on the ledger: either a raw pubkey, or a
// (caller, namespace) pair that derives one deterministically via DeriveContainerAddress.
type ContainerID struct {
	Pubkey    [32]byte
	Caller    [32]byte
	Namespace string
	Derived   bool
}

// containerSeed is the well-known domain-separation seed used when deriving a container
// address from a (caller, namespace) pair, so the same caller can own distinct
// containers in distinct namespaces without an address collision.
var containerSeed = []byte("dablob-container")

// DeriveContainerAddress derives a deterministic container address for the given caller
// and namespace. This is a address-derivation helper, not a full PDA/bump-seed search —
// program deployment and on-chain address validation are out of this library's scope.
func DeriveContainerAddress(caller [32]byte, namespace string) [32]byte {
	h := sha256.New()
	h.Write(containerSeed)
	h.Write(caller[:])
	h.Write([]byte(namespace))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Resolve returns the container's on-chain address, deriving it if necessary.
func (c ContainerID) Resolve() [32]byte {
	if !c.Derived {
		return c.Pubkey
	}
	return DeriveContainerAddress(c.Caller, c.Namespace)
}

// FromPubkey wraps a raw container address.
func FromPubkey(pubkey [32]byte) ContainerID {
	return ContainerID{Pubkey: pubkey}
}

// FromNamespace builds a ContainerID that derives its address from a caller/namespace
// pair.
func FromNamespace(caller [32]byte, namespace string) ContainerID {
	return ContainerID{Caller: caller, Namespace: namespace, Derived: true}
}
