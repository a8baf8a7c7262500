package proof

import (
	"github.com/dablob/client-go/accountlayout"
	"github.com/dablob/client-go/digest"
)

// AccumulatorProof proves the state of a container's running accumulator at a specific
// slot: that the accumulator is exactly the store-hash fold, in ascending slot order, of
// the listed per-slot blob commitments (each a blob-staging pubkey plus the digest/size
// the program hashes at finalize time).
type AccumulatorProof struct {
	Container [32]byte
	Slot      uint64
	Groups    []digest.SlotCommitments // ascending slot order
}

// NewAccumulatorProof builds an AccumulatorProof for a container at a given slot.
func NewAccumulatorProof(container [32]byte, slot uint64, groups []digest.SlotCommitments) AccumulatorProof {
	return AccumulatorProof{Container: container, Slot: slot, Groups: append([]digest.SlotCommitments(nil), groups...)}
}

// Verify checks containerAccountData against the proof: the discriminator must match a
// container account, the slot must match, and replaying the store-hash rule over Groups
// must reproduce the account's recorded accumulator.
func (p AccumulatorProof) Verify(containerAccountData []byte) error {
	decoded, err := accountlayout.DecodeContainer(containerAccountData)
	if err != nil {
		return &ErrDiscriminatorMismatch{}
	}
	if decoded.Slot != p.Slot {
		return &ErrSlotMismatch{Expected: p.Slot, Found: decoded.Slot}
	}

	got := digest.Accumulate(p.Groups)
	if got != digest.Hash(decoded.Accumulator) {
		return &ErrAccumulatorMismatch{Expected: decoded.Accumulator, Found: [32]byte(got)}
	}
	return nil
}

// includes reports whether the proof's claimed commitment set contains an entry whose
// leaf matches c's — the check a compound proof uses to tie a verified blob's bytes back
// to this accumulator's history.
func (p AccumulatorProof) includes(c digest.BlobCommitment) bool {
	want := c.Leaf()
	for _, g := range p.Groups {
		for _, existing := range g.Commitments {
			if existing.Leaf() == want {
				return true
			}
		}
	}
	return false
}
