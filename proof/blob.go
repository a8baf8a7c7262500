package proof

import (
	"fmt"

	"github.com/dablob/client-go/digest"
)

// BlobProof proves that a specific blob digest was produced by folding chunks, in
// chunk_order, over the blob bytes it is verified against. It does not prove the blob
// was ever committed on-chain; combine it with an AccumulatorProof for that.
type BlobProof struct {
	digestValue digest.Hash
	chunkOrder  []uint16
}

// NewBlobProof builds a BlobProof for a blob that was uploaded in the given chunk order.
func NewBlobProof(d digest.Hash, chunkOrder []uint16) BlobProof {
	return BlobProof{digestValue: d, chunkOrder: append([]uint16(nil), chunkOrder...)}
}

// Digest returns the proven digest.
func (p BlobProof) Digest() digest.Hash { return p.digestValue }

// ChunkOrder returns the chunk ordering this proof was constructed over.
func (p BlobProof) ChunkOrder() []uint16 { return append([]uint16(nil), p.chunkOrder...) }

// Verify checks that folding blob's bytes, sliced into ChunkSize-wide pieces in
// chunk_order, reproduces the proof's digest. An empty chunk_order only verifies against
// an empty blob.
func (p BlobProof) Verify(blob []byte, chunkSize int) error {
	if len(p.chunkOrder) == 0 {
		if len(blob) != 0 {
			return &ErrChunkStructure{Index: 0, Len: len(blob)}
		}
		if p.digestValue != digest.Zero() {
			return &ErrBlobDigestMismatch{Expected: p.digestValue, Found: digest.Zero()}
		}
		return nil
	}

	chunks := make([][]byte, len(p.chunkOrder))
	for i, idx := range p.chunkOrder {
		start := int(idx) * chunkSize
		if start > len(blob) {
			return &ErrChunkStructure{Index: int(idx), Len: len(blob)}
		}
		end := start + chunkSize
		if end > len(blob) {
			end = len(blob)
		}
		chunks[i] = blob[start:end]
	}

	found := digest.BlobDigest(chunks)
	if found != p.digestValue {
		return &ErrBlobDigestMismatch{Expected: p.digestValue, Found: found}
	}
	return nil
}

// String implements fmt.Stringer with a compact, non-pretty-printed form — matching the
// reference proof types' deliberately terse Debug output.
func (p BlobProof) String() string {
	return fmt.Sprintf("BlobProof{digest: %x, chunks: %d}", p.digestValue, len(p.chunkOrder))
}
