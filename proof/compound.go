package proof

import "github.com/dablob/client-go/digest"

// CompoundProof composes a set of BlobProofs with the AccumulatorProof for the container
// they were (claimed to be) finalized into, letting a verifier check both "these bytes
// are the blob" and "this blob was actually committed into this container" in one call.
//
// BlobPubkeys carries the blob-staging account address each entry in Blobs belongs to,
// in the same order — the accumulator's leaves are keyed on that pubkey, not on the blob
// digest alone, so it takes both to recompute a blob's accumulator commitment.
type CompoundProof struct {
	Blobs       []BlobProof
	BlobPubkeys [][32]byte
	Accumulator AccumulatorProof
}

// NewCompoundProof composes per-blob proofs, the staging pubkey each one belongs to, and
// the accumulator proof for the container they belong to.
func NewCompoundProof(blobs []BlobProof, pubkeys [][32]byte, accumulator AccumulatorProof) CompoundProof {
	return CompoundProof{
		Blobs:       append([]BlobProof(nil), blobs...),
		BlobPubkeys: append([][32]byte(nil), pubkeys...),
		Accumulator: accumulator,
	}
}

// Verify checks every blob's bytes against its BlobProof, recomputes each blob's
// accumulator commitment from its staging pubkey and the supplied bytes' length, and
// checks that every recomputed commitment appears in the accumulator proof's claimed
// commitment set, which — combined with the accumulator proof's own check against the
// container account — reproduces the container account's recorded accumulator.
//
// blobs must be supplied in the same order as p.Blobs. container is the raw account
// bytes for the container both sets of proofs claim to belong to; expectedContainer is
// the caller's independently-known address for that same container, so a proof cannot
// be replayed against the wrong container's account data just because its internal
// accumulator happens to verify.
func (p CompoundProof) Verify(blobs [][]byte, chunkSize int, container []byte, expectedContainer [32]byte) error {
	if p.Accumulator.Container != expectedContainer {
		return &ErrContainerMismatch{}
	}

	if len(blobs) != len(p.Blobs) || len(blobs) != len(p.BlobPubkeys) {
		return &ErrBlobCountMismatch{ProofCount: len(p.Blobs), DataCount: len(blobs)}
	}

	for i, bp := range p.Blobs {
		if err := bp.Verify(blobs[i], chunkSize); err != nil {
			return err
		}
	}

	if err := p.Accumulator.Verify(container); err != nil {
		return err
	}

	for i, bp := range p.Blobs {
		commitment := digest.BlobCommitment{
			BlobPubkey: p.BlobPubkeys[i],
			BlobDigest: bp.Digest(),
			BlobSize:   uint32(len(blobs[i])),
		}
		if !p.Accumulator.includes(commitment) {
			return &ErrCommitmentNotIncluded{BlobDigest: [32]byte(bp.Digest())}
		}
	}

	return nil
}
