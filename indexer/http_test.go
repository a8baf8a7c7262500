package indexer

import (
	"testing"

	"github.com/dablob/client-go/digest"
)

func TestWireCompoundProofRoundTrip(t *testing.T) {
	digA := digest.Hash{1, 2, 3}
	pubA := [32]byte{5}
	wire := wireCompoundProof{
		Blobs: []wireBlobProof{
			{Digest: [32]byte(digA), ChunkOrder: []uint16{0, 1}, Pubkey: pubA},
		},
		Container: [32]byte{9},
		Slot:      42,
		Groups: []wireSlotCommitments{
			{Slot: 42, Commitments: []wireBlobCommitment{{Pubkey: pubA, Digest: [32]byte(digA), Size: 1830}}},
		},
	}

	cp := wire.toCompoundProof()
	if len(cp.Blobs) != 1 {
		t.Fatalf("expected 1 blob proof, got %d", len(cp.Blobs))
	}
	if cp.Blobs[0].Digest() != digA {
		t.Fatalf("expected blob digest to round-trip, got %x", cp.Blobs[0].Digest())
	}
	if len(cp.BlobPubkeys) != 1 || cp.BlobPubkeys[0] != pubA {
		t.Fatalf("expected blob pubkey to round-trip")
	}
	if cp.Accumulator.Slot != 42 {
		t.Fatalf("expected slot to round-trip, got %d", cp.Accumulator.Slot)
	}
	if len(cp.Accumulator.Groups) != 1 || len(cp.Accumulator.Groups[0].Commitments) != 1 {
		t.Fatalf("expected commitment groups to round-trip")
	}
	got := cp.Accumulator.Groups[0].Commitments[0]
	if got.BlobPubkey != pubA || got.BlobDigest != digA || got.BlobSize != 1830 {
		t.Fatalf("expected commitment fields to round-trip, got %+v", got)
	}
}
