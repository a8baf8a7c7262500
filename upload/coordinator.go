package upload

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mr-tron/base58"

	"github.com/dablob/client-go/accountlayout"
	"github.com/dablob/client-go/batch"
	"github.com/dablob/client-go/digest"
	"github.com/dablob/client-go/fee"
	"github.com/dablob/client-go/internal/uniqts"
	"github.com/dablob/client-go/ledger"
	"github.com/dablob/client-go/proof"
	"github.com/dablob/client-go/walletsign"
)

// Coordinator drives a blob upload end to end: picking a transaction shape, running the
// declare/insert/finalize phases through the batch engine, and rolling back via discard
// if a later phase fails after an earlier one succeeded.
type Coordinator struct {
	Batch  *batch.Client
	Signer walletsign.Signer
	Log    *zap.Logger

	// Fees, when set, is consulted once per Upload to pin a single Fee that every
	// phase (and every resubmission of a phase) of that upload reuses, per §4.G. A
	// nil Fees leaves every transaction at fee.Zero — no prioritization fee, no
	// compute-unit request beyond the default limit.
	Fees     *fee.Estimator
	Priority fee.Priority

	ids uniqts.Source
}

// NewCoordinator constructs a Coordinator over an already-running batch.Client. fees may
// be nil, in which case every upload pins fee.Zero rather than estimating live network
// conditions.
func NewCoordinator(b *batch.Client, signer walletsign.Signer, log *zap.Logger, fees *fee.Estimator, priority fee.Priority) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{Batch: b, Signer: signer, Log: log, Fees: fees, Priority: priority}
}

// pinFee resolves the single Fee this upload's every phase and resubmission will reuse.
// With no estimator configured it returns fee.Zero without touching the network.
//
// numSignatures and blobAccountSize are conservative upper bounds: the same pinned Fee
// is reused across every transaction shape and phase of this upload, so it must cover
// the most expensive one, not the cheapest.
func (co *Coordinator) pinFee(ctx context.Context, container [32]byte, numSignatures uint16, blobAccountSize uint64) (fee.Fee, error) {
	if co.Fees == nil {
		return fee.Zero, nil
	}
	accounts := []string{base58.Encode(container[:])}
	return co.Fees.Estimate(ctx, accounts, numSignatures, DefaultComputeUnitLimit, blobAccountSize, 0, co.Priority)
}

// Result is the outcome of a successful upload.
type Result struct {
	BlobID uint64
	Shape  Shape
	Proof  proof.BlobProof
}

// Upload splits data into chunks, selects a transaction shape by size, and drives the
// upload to completion. On any phase failure after declare has landed, Upload makes a
// best-effort attempt to discard the partially-uploaded staging blob before returning the
// original error (wrapped in ErrRollbackFailed if the discard itself also failed).
func (co *Coordinator) Upload(ctx context.Context, container ledger.ContainerID, data []byte, timeout time.Duration) (Result, error) {
	chunkCount := ChunkCount(len(data))
	if chunkCount > MaxChunks {
		return Result{}, &ErrBlobTooLarge{BlobSize: len(data), MaxChunks: MaxChunks}
	}

	blobID := uint64(co.ids.Next())
	shape := ChooseShape(len(data))
	containerAddr := container.Resolve()
	chunks := splitChunks(data)

	f, err := co.pinFee(ctx, containerAddr, 1, uint64(len(data)))
	if err != nil {
		return Result{}, &ErrDeclareFailed{Cause: err}
	}

	switch shape {
	case ShapeCompound:
		return co.uploadCompound(ctx, containerAddr, blobID, data, chunks, f, timeout)
	case ShapeCompoundDeclare:
		return co.uploadCompoundDeclare(ctx, containerAddr, blobID, data, chunks, f, timeout)
	default:
		return co.uploadStaggered(ctx, containerAddr, blobID, data, chunks, f, timeout)
	}
}

func splitChunks(data []byte) [][]byte {
	chunks := make([][]byte, 0, ChunkCount(len(data)))
	for start := 0; start < len(data); start += ChunkSize {
		end := start + ChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}
	return chunks
}

func (co *Coordinator) blobDigest(chunks [][]byte) digest.Hash {
	return digest.BlobDigest(chunks)
}

func chunkOrder(n int) []uint16 {
	order := make([]uint16, n)
	for i := range order {
		order[i] = uint16(i)
	}
	return order
}

// uploadCompound packs declare, the single insert, and finalize into one transaction —
// only reachable when ChooseShape already confirmed the blob fits within CompoundTxSize.
func (co *Coordinator) uploadCompound(ctx context.Context, container [32]byte, blobID uint64, data []byte, chunks [][]byte, f fee.Fee, timeout time.Duration) (Result, error) {
	d := co.blobDigest(chunks)
	instructions := []instruction{
		declareInstruction(blobID, uint32(len(data)), uint16(len(chunks))),
	}
	for i, c := range chunks {
		instructions = append(instructions, insertInstruction(blobID, uint16(i), c))
	}
	instructions = append(instructions, finalizeInstruction(blobID, d))

	builder := buildTransaction(co.Signer, container, f, instructions)
	outcomes, err := co.Batch.Send(ctx, []batch.Builder{builder}, timeout, nil)
	if err != nil {
		return Result{}, &ErrDeclareFailed{Cause: err}
	}
	if o := outcomes[0]; o.Status == batch.StatusFailed {
		return Result{}, &ErrFinalizeFailed{Cause: o.Err}
	}

	return Result{
		BlobID: blobID,
		Shape:  ShapeCompound,
		Proof:  proof.NewBlobProof(d, chunkOrder(len(chunks))),
	}, nil
}

// uploadCompoundDeclare packs declare and the first insert into one transaction, then
// sends remaining inserts and a separate finalize.
func (co *Coordinator) uploadCompoundDeclare(ctx context.Context, container [32]byte, blobID uint64, data []byte, chunks [][]byte, f fee.Fee, timeout time.Duration) (Result, error) {
	declareAndFirst := []instruction{
		declareInstruction(blobID, uint32(len(data)), uint16(len(chunks))),
	}
	if len(chunks) > 0 {
		declareAndFirst = append(declareAndFirst, insertInstruction(blobID, 0, chunks[0]))
	}
	builder := buildTransaction(co.Signer, container, f, declareAndFirst)
	outcomes, err := co.Batch.Send(ctx, []batch.Builder{builder}, timeout, nil)
	if err != nil || outcomes[0].Status == batch.StatusFailed {
		cause := err
		if cause == nil {
			cause = outcomes[0].Err
		}
		return Result{}, &ErrDeclareFailed{Cause: cause}
	}

	remaining := chunks
	startIdx := 0
	if len(chunks) > 0 {
		remaining = chunks[1:]
		startIdx = 1
	}
	if len(remaining) > 0 {
		if err := co.insertRemaining(ctx, container, blobID, remaining, startIdx, f, timeout); err != nil {
			return Result{}, co.rollbackAfter(ctx, container, blobID, f, timeout, err)
		}
	}

	d := co.blobDigest(chunks)
	if err := co.finalize(ctx, container, blobID, d, f, timeout); err != nil {
		return Result{}, co.rollbackAfter(ctx, container, blobID, f, timeout, err)
	}

	return Result{
		BlobID: blobID,
		Shape:  ShapeCompoundDeclare,
		Proof:  proof.NewBlobProof(d, chunkOrder(len(chunks))),
	}, nil
}

// uploadStaggered sends declare, every insert, and finalize as independent
// transactions — the only shape that scales to MaxChunks.
func (co *Coordinator) uploadStaggered(ctx context.Context, container [32]byte, blobID uint64, data []byte, chunks [][]byte, f fee.Fee, timeout time.Duration) (Result, error) {
	declareBuilder := buildTransaction(co.Signer, container, f, []instruction{
		declareInstruction(blobID, uint32(len(data)), uint16(len(chunks))),
	})
	outcomes, err := co.Batch.Send(ctx, []batch.Builder{declareBuilder}, timeout, nil)
	if err != nil || outcomes[0].Status == batch.StatusFailed {
		cause := err
		if cause == nil {
			cause = outcomes[0].Err
		}
		return Result{}, &ErrDeclareFailed{Cause: cause}
	}

	if err := co.insertRemaining(ctx, container, blobID, chunks, 0, f, timeout); err != nil {
		return Result{}, co.rollbackAfter(ctx, container, blobID, f, timeout, err)
	}

	d := co.blobDigest(chunks)
	if err := co.finalize(ctx, container, blobID, d, f, timeout); err != nil {
		return Result{}, co.rollbackAfter(ctx, container, blobID, f, timeout, err)
	}

	return Result{
		BlobID: blobID,
		Shape:  ShapeStaggered,
		Proof:  proof.NewBlobProof(d, chunkOrder(len(chunks))),
	}, nil
}

func (co *Coordinator) insertRemaining(ctx context.Context, container [32]byte, blobID uint64, chunks [][]byte, startIdx int, f fee.Fee, timeout time.Duration) error {
	builders := make([]batch.Builder, len(chunks))
	for i, c := range chunks {
		builders[i] = buildTransaction(co.Signer, container, f, []instruction{insertInstruction(blobID, uint16(startIdx+i), c)})
	}
	outcomes, err := co.Batch.Send(ctx, builders, timeout, nil)
	if err != nil {
		return &ErrInsertsFailed{Cause: err}
	}
	var failed []int
	for i, o := range outcomes {
		if o.Status == batch.StatusFailed {
			failed = append(failed, startIdx+i)
		}
	}
	if len(failed) > 0 {
		return &ErrInsertsFailed{FailedIndices: failed, Cause: fmt.Errorf("one or more chunk inserts failed")}
	}
	return nil
}

func (co *Coordinator) finalize(ctx context.Context, container [32]byte, blobID uint64, d digest.Hash, f fee.Fee, timeout time.Duration) error {
	builder := buildTransaction(co.Signer, container, f, []instruction{finalizeInstruction(blobID, d)})
	outcomes, err := co.Batch.Send(ctx, []batch.Builder{builder}, timeout, nil)
	if err != nil {
		return &ErrFinalizeFailed{Cause: err}
	}
	if outcomes[0].Status == batch.StatusFailed {
		return &ErrFinalizeFailed{Cause: outcomes[0].Err}
	}
	return nil
}

// rollbackAfter best-effort discards a partially-uploaded staging blob after original,
// the failure that triggered the rollback. It always returns a non-nil error: original
// if the discard succeeded, or ErrRollbackFailed wrapping both if the discard itself
// also failed.
func (co *Coordinator) rollbackAfter(ctx context.Context, container [32]byte, blobID uint64, f fee.Fee, timeout time.Duration, original error) error {
	builder := buildTransaction(co.Signer, container, f, []instruction{discardInstruction(blobID)})
	outcomes, err := co.Batch.Send(ctx, []batch.Builder{builder}, timeout, nil)
	if err != nil {
		co.Log.Warn("discard transaction failed to send", zap.Uint64("blob_id", blobID), zap.Error(err))
		return &ErrRollbackFailed{Original: original, DiscardErr: err}
	}
	if outcomes[0].Status == batch.StatusFailed {
		co.Log.Warn("discard transaction landed but failed", zap.Uint64("blob_id", blobID), zap.Error(outcomes[0].Err))
		return &ErrRollbackFailed{Original: original, DiscardErr: outcomes[0].Err}
	}
	return original
}

// bitmapFor is a small helper retained for callers that want to track staggered-upload
// progress client-side the same way the on-chain staging account does.
func bitmapFor(chunkCount int) []byte {
	return make([]byte, accountlayout.BitmapLen(uint16(chunkCount)))
}
