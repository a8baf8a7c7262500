// Package digest implements the content-addressed hashing primitives shared by the
// upload coordinator and the proof package: a chunk-order-sensitive blob digest and a
// container accumulator "store-hash" merge rule.
package digest

import (
	"crypto/sha256"
	"encoding/binary"
)

// Size is the width, in bytes, of every digest produced by this package.
const Size = 32

// Hash is a 32-byte SHA-256 digest.
type Hash [Size]byte

// zeroHash is the digest a container starts from before any blob has been stored into it,
// and the seed every blob's leaf-fold chain starts from.
var zeroHash = Hash(sha256.Sum256(nil))

// Zero returns the canonical starting digest (SHA-256 of the empty input).
func Zero() Hash { return zeroHash }

// FoldChunk extends a running blob digest with the next chunk in upload order. The fold
// is order-sensitive: H(prev || index_le_u16 || chunk). Re-ordering chunks, or feeding the
// same chunk set through in a different sequence, produces a different final digest.
func FoldChunk(prev Hash, index uint16, chunk []byte) Hash {
	buf := make([]byte, 0, Size+2+len(chunk))
	buf = append(buf, prev[:]...)
	buf = append(buf, byte(index), byte(index>>8))
	buf = append(buf, chunk...)
	return Hash(sha256.Sum256(buf))
}

// BlobDigest folds every chunk, in the given order, into a single digest starting from
// Zero. The caller controls ordering: passing chunks out of upload order yields a digest
// that will not match a blob reconstructed with the canonical order.
func BlobDigest(chunks [][]byte) Hash {
	h := zeroHash
	for i, c := range chunks {
		h = FoldChunk(h, uint16(i), c)
	}
	return h
}

// StoreHash implements the container accumulator's merge rule: folding a newly finalized
// blob's commitment into the container's running accumulator. Unlike FoldChunk, this is
// the cross-blob merge used once per finalized blob, not once per chunk.
func StoreHash(accumulator, blobCommitment Hash) Hash {
	buf := make([]byte, 0, 2*Size)
	buf = append(buf, accumulator[:]...)
	buf = append(buf, blobCommitment[:]...)
	return Hash(sha256.Sum256(buf))
}

// BlobCommitment is one finalized blob's entry in a container's accumulator history: the
// blob's on-chain staging-account pubkey, together with the "useful bytes" hashed at
// finalize time — the 32-byte rolling digest and the 4-byte little-endian blob size.
// accountlayout.BlobStaging has no field for either value.
type BlobCommitment struct {
	BlobPubkey [32]byte
	BlobDigest Hash
	BlobSize   uint32
}

// Leaf computes this commitment's store-hash leaf: H(pubkey ‖ digest ‖ size_le). This is
// the per-blob hash the container accumulator folds in, not the blob digest itself —
// binding a leaf to the staging account that produced it is what lets an accumulator
// proof distinguish two blobs that happen to share a digest.
func (c BlobCommitment) Leaf() Hash {
	buf := make([]byte, 0, Size+Size+4)
	buf = append(buf, c.BlobPubkey[:]...)
	buf = append(buf, c.BlobDigest[:]...)
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], c.BlobSize)
	buf = append(buf, sizeBuf[:]...)
	return Hash(sha256.Sum256(buf))
}

// SlotCommitments is one slot's ordered list of finalized blob commitments — the unit
// Accumulate replays the store-hash rule over.
type SlotCommitments struct {
	Slot        uint64
	Commitments []BlobCommitment
}

// Accumulate replays the store-hash rule over a sequence of per-slot commitment groups,
// supplied in ascending slot order: the first leaf folded into a slot *replaces* the
// running accumulator outright (the on-chain program resets the stored hash whenever the
// last-touched slot changes), and every subsequent leaf within that same slot merges via
// StoreHash. A container that has never stored a blob accumulates to Zero. This is how a
// verifier reconstructs a container's expected accumulator value from the finalized blob
// commitments it claims to contain.
func Accumulate(groups []SlotCommitments) Hash {
	acc := zeroHash
	for _, g := range groups {
		for i, c := range g.Commitments {
			leaf := c.Leaf()
			if i == 0 {
				acc = leaf
			} else {
				acc = StoreHash(acc, leaf)
			}
		}
	}
	return acc
}
