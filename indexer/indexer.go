// Package indexer defines the query surface this client expects from an indexer
// service, plus one concrete HTTP (with optional WebSocket subscription) implementation.
// Building or tuning the indexer itself is out of scope for this library; this package
// exists so the interface has at least one real, testable caller.
package indexer

import (
	"context"

	"github.com/dablob/client-go/proof"
)

// BlobRecord is what the indexer reports about one finalized blob.
type BlobRecord struct {
	BlobID      uint64
	Container   [32]byte
	Slot        uint64
	Size        uint32
	ChunkCount  uint16
	Digest      [32]byte
}

// Client is the indexer query surface this library depends on.
type Client interface {
	// BlobsByContainer lists finalized blobs in a container, most recent first.
	BlobsByContainer(ctx context.Context, container [32]byte, limit int) ([]BlobRecord, error)
	// BlobByID fetches a single blob's record.
	BlobByID(ctx context.Context, container [32]byte, blobID uint64) (BlobRecord, error)
	// FetchBlobBytes downloads the reconstructed bytes of a finalized blob.
	FetchBlobBytes(ctx context.Context, container [32]byte, blobID uint64) ([]byte, error)
	// Subscribe streams newly finalized blobs for a container until ctx is cancelled
	// or the returned channel is drained and closed.
	Subscribe(ctx context.Context, container [32]byte) (<-chan BlobRecord, error)
	// FetchProof returns the compound proof for a container's state as of slot.
	FetchProof(ctx context.Context, container [32]byte, slot uint64) (proof.CompoundProof, error)
	// FetchProofForBlob returns the compound proof covering a single finalized blob.
	FetchProofForBlob(ctx context.Context, container [32]byte, blobID uint64) (proof.CompoundProof, error)
}

// ErrBlobs and ErrProof mirror the two broad indexer failure categories a caller needs
// to distinguish: a query about blob metadata or bytes failed, versus a proof query
// failed (transport error, error status, or a response that did not decode). Neither is
// returned for a proof that fails verification; this package does not verify proofs.
type ErrBlobs struct{ Cause error }

func (e *ErrBlobs) Error() string { return "indexer: blob query failed: " + e.Cause.Error() }
func (e *ErrBlobs) Unwrap() error  { return e.Cause }

type ErrProof struct{ Cause error }

func (e *ErrProof) Error() string { return "indexer: proof query failed: " + e.Cause.Error() }
func (e *ErrProof) Unwrap() error  { return e.Cause }
