// Package proof implements the three proof types this library verifies: per-blob
// inclusion proofs, container-accumulator proofs, and compound proofs that compose both.
package proof

import "fmt"

// ErrChunkStructure means a BlobProof's chunk_order does not index into the blob bytes
// it is being verified against (e.g. an index implies a slice past the end of the data).
type ErrChunkStructure struct {
	Index int
	Len   int
}

func (e *ErrChunkStructure) Error() string {
	return fmt.Sprintf("proof: chunk order index %d out of range for blob of length %d", e.Index, e.Len)
}

// ErrBlobDigestMismatch means a recomputed blob digest does not match the proof's
// claimed digest.
type ErrBlobDigestMismatch struct {
	Expected, Found [32]byte
}

func (e *ErrBlobDigestMismatch) Error() string {
	return fmt.Sprintf("proof: blob digest mismatch: expected %x, found %x", e.Expected, e.Found)
}

// ErrDiscriminatorMismatch means the account bytes being verified do not carry the
// expected account-type discriminator.
type ErrDiscriminatorMismatch struct{}

func (e *ErrDiscriminatorMismatch) Error() string {
	return "proof: account discriminator mismatch"
}

// ErrSlotMismatch means the proof's claimed slot does not match the on-chain account's
// recorded slot.
type ErrSlotMismatch struct {
	Expected, Found uint64
}

func (e *ErrSlotMismatch) Error() string {
	return fmt.Sprintf("proof: slot mismatch: expected %d, found %d", e.Expected, e.Found)
}

// ErrAccumulatorMismatch means a recomputed container accumulator does not match the
// on-chain account's recorded accumulator.
type ErrAccumulatorMismatch struct {
	Expected, Found [32]byte
}

func (e *ErrAccumulatorMismatch) Error() string {
	return fmt.Sprintf("proof: accumulator mismatch: expected %x, found %x", e.Expected, e.Found)
}

// ErrContainerMismatch means a compound proof's embedded accumulator proof was built for
// a different container than the one it's being verified against.
type ErrContainerMismatch struct{}

func (e *ErrContainerMismatch) Error() string {
	return "proof: compound proof's accumulator proof is for a different container"
}

// ErrBlobCountMismatch means a compound proof's blob proofs and supplied raw blob bytes
// are not in 1:1 correspondence.
type ErrBlobCountMismatch struct {
	ProofCount, DataCount int
}

func (e *ErrBlobCountMismatch) Error() string {
	return fmt.Sprintf("proof: %d blob proofs but %d blobs supplied for verification", e.ProofCount, e.DataCount)
}

// ErrCommitmentNotIncluded means a proven blob's commitment (its staging pubkey, digest
// and size, compared as one leaf) does not appear among the accumulator proof's claimed
// commitment set, so the blob cannot be shown to have been finalized into this container
// even though its own bytes check out.
type ErrCommitmentNotIncluded struct {
	BlobDigest [32]byte
}

func (e *ErrCommitmentNotIncluded) Error() string {
	return fmt.Sprintf("proof: commitment for blob digest %x is not among the accumulator's claimed commitments", e.BlobDigest)
}
