// Package recovery reconstructs a blob's bytes directly from ledger data, bypassing the
// indexer entirely. It exists for the case where the indexer is unavailable or not
// trusted: everything it needs is recoverable from the ledger's own transaction and
// account history.
package recovery

import (
	"context"
	"fmt"
	"sort"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dablob/client-go/digest"
	"github.com/dablob/client-go/ledgerrpc"
	"github.com/dablob/client-go/upload"
)

// ErrDeclareNotFound means no declare_blob transaction was found for the requested blob
// within the configured lookback window.
type ErrDeclareNotFound struct {
	BlobID uint64
}

func (e *ErrDeclareNotFound) Error() string {
	return fmt.Sprintf("recovery: no declare_blob transaction found for blob %d", e.BlobID)
}

// ErrMultipleDeclares means more than one declare_blob transaction was found for the
// same blob id, which should never happen for a well-behaved caller and indicates either
// an id collision or a replayed/duplicated upload.
type ErrMultipleDeclares struct {
	BlobID uint64
	Count  int
}

func (e *ErrMultipleDeclares) Error() string {
	return fmt.Sprintf("recovery: found %d declare_blob transactions for blob %d, expected exactly one", e.Count, e.BlobID)
}

// ErrMultipleFinalizes is the finalize-phase analog of ErrMultipleDeclares.
type ErrMultipleFinalizes struct {
	BlobID uint64
	Count  int
}

func (e *ErrMultipleFinalizes) Error() string {
	return fmt.Sprintf("recovery: found %d finalize_blob transactions for blob %d, expected at most one", e.Count, e.BlobID)
}

// Walker reconstructs blobs from raw ledger transaction history.
type Walker struct {
	RPC         *ledgerrpc.Client
	Concurrency int
	Cache       *Cache // optional, nil disables caching
	Log         *zap.Logger
}

// NewWalker constructs a Walker with the given bounded fetch concurrency.
func NewWalker(rpc *ledgerrpc.Client, concurrency int, cache *Cache, log *zap.Logger) *Walker {
	if concurrency <= 0 {
		concurrency = 8
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Walker{RPC: rpc, Concurrency: concurrency, Cache: cache, Log: log}
}

// Reconstruct walks a container address's signature history looking for the
// declare/insert/finalize transactions belonging to blobID, fetches each transaction's
// raw bytes with bounded concurrency, and reassembles the blob bytes in chunk order. The
// reassembled digest is returned alongside the bytes so the caller can cross-check it
// against an independently obtained BlobProof.
func (w *Walker) Reconstruct(ctx context.Context, containerAddr [32]byte, blobID uint64, lookback int) ([]byte, digest.Hash, error) {
	if w.Cache != nil {
		if cached, ok := w.Cache.Get(containerAddr, blobID); ok {
			return cached, digest.BlobDigest(splitForDigest(cached)), nil
		}
	}

	address := base58.Encode(containerAddr[:])
	sigInfos, err := w.RPC.GetSignaturesForAddress(ctx, address, "", lookback)
	if err != nil {
		return nil, digest.Hash{}, fmt.Errorf("recovery: listing signatures: %w", err)
	}

	// Fetch every candidate transaction with bounded concurrency; order doesn't matter
	// here since we re-sort by chunk index below.
	raws := make([][]byte, len(sigInfos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.Concurrency)
	for i, info := range sigInfos {
		i, info := i, info
		g.Go(func() error {
			raw, _, err := w.RPC.GetTransaction(gctx, info.Signature)
			if err != nil {
				// A single missing/expired transaction shouldn't abort the whole
				// walk; it just means this slot contributes nothing.
				w.Log.Debug("recovery: skipping unfetchable transaction", zap.String("signature", info.Signature), zap.Error(err))
				return nil
			}
			raws[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, digest.Hash{}, fmt.Errorf("recovery: fetching transactions: %w", err)
	}

	var declareCount, finalizeCount int
	chunkByIndex := make(map[uint16][]byte)
	var totalSize uint32
	var chunkCount uint16
	var finalDigest [32]byte

	for _, raw := range raws {
		if raw == nil {
			continue
		}
		_, _, txContainer, instructions, err := upload.DecodeWireTransaction(raw)
		if err != nil || txContainer != containerAddr {
			continue
		}
		for _, ins := range instructions {
			switch ins.Kind {
			case upload.TxDeclareBlob:
				id, size, count, err := upload.DecodeDeclareBlob(ins.Data)
				if err != nil || id != blobID {
					continue
				}
				declareCount++
				totalSize = size
				chunkCount = count
			case upload.TxInsertChunk:
				id, idx, chunk, err := upload.DecodeInsertChunk(ins.Data)
				if err != nil || id != blobID {
					continue
				}
				chunkByIndex[idx] = chunk
			case upload.TxFinalizeBlob:
				id, d, err := upload.DecodeFinalizeBlob(ins.Data)
				if err != nil || id != blobID {
					continue
				}
				finalizeCount++
				finalDigest = d
			}
		}
	}

	if declareCount == 0 {
		return nil, digest.Hash{}, &ErrDeclareNotFound{BlobID: blobID}
	}
	if declareCount > 1 {
		return nil, digest.Hash{}, &ErrMultipleDeclares{BlobID: blobID, Count: declareCount}
	}
	if finalizeCount > 1 {
		return nil, digest.Hash{}, &ErrMultipleFinalizes{BlobID: blobID, Count: finalizeCount}
	}

	ordered := make([]uint16, 0, len(chunkByIndex))
	for idx := range chunkByIndex {
		ordered = append(ordered, idx)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	blob := make([]byte, 0, totalSize)
	for _, idx := range ordered {
		blob = append(blob, chunkByIndex[idx]...)
	}

	if int(chunkCount) != len(ordered) {
		return nil, digest.Hash{}, fmt.Errorf("recovery: declare_blob recorded %d chunks but only %d were found", chunkCount, len(ordered))
	}

	got := digest.BlobDigest(chunksInOrder(chunkByIndex, ordered))
	if finalizeCount == 1 && got != digest.Hash(finalDigest) {
		return nil, digest.Hash{}, fmt.Errorf("recovery: reconstructed digest does not match finalize_blob's recorded digest")
	}

	if w.Cache != nil {
		w.Cache.Put(containerAddr, blobID, blob)
	}

	return blob, got, nil
}

func chunksInOrder(byIndex map[uint16][]byte, order []uint16) [][]byte {
	out := make([][]byte, len(order))
	for i, idx := range order {
		out[i] = byIndex[idx]
	}
	return out
}

// splitForDigest re-chunks a cached, already-reassembled blob back into ChunkSize-wide
// pieces so its digest can be recomputed the same way it was originally folded.
func splitForDigest(blob []byte) [][]byte {
	var out [][]byte
	for start := 0; start < len(blob); start += upload.ChunkSize {
		end := start + upload.ChunkSize
		if end > len(blob) {
			end = len(blob)
		}
		out = append(out, blob[start:end])
	}
	return out
}
