package fee

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/cenkalti/backoff/v4"

	"github.com/dablob/client-go/ledgerrpc"
)

// ErrEstimationFailed wraps the terminal cause of an estimation attempt that never
// succeeded within the retry budget.
type ErrEstimationFailed struct {
	Attempts int
	Cause    error
}

func (e *ErrEstimationFailed) Error() string {
	return fmt.Sprintf("fee: estimation failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ErrEstimationFailed) Unwrap() error { return e.Cause }

// Priority is one of the six fee-priority levels a caller can request.
type Priority int

const (
	PriorityMin Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityVeryHigh
	PriorityUnsafeMax
)

// percentile returns the sample percentile (0-100) this priority level corresponds to
// when selecting among recent prioritization fee samples.
func (p Priority) percentile() int {
	switch p {
	case PriorityMin:
		return 0
	case PriorityLow:
		return 25
	case PriorityMedium:
		return 50
	case PriorityHigh:
		return 75
	case PriorityVeryHigh:
		return 95
	case PriorityUnsafeMax:
		return 100
	default:
		return 50
	}
}

// Estimator computes Fee values from live network conditions.
type Estimator struct {
	RPC        *ledgerrpc.Client
	MaxRetries int
}

// NewEstimator constructs an Estimator with the default retry budget (up to 5 retries
// after the first attempt, matching the estimator's documented retry policy).
func NewEstimator(rpc *ledgerrpc.Client) *Estimator {
	return &Estimator{RPC: rpc, MaxRetries: 5}
}

// Estimate samples recent prioritization fees paid by the given accounts and returns a
// Fee reflecting the requested priority level, retrying with exponential backoff on
// transient RPC failure.
func (e *Estimator) Estimate(ctx context.Context, accounts []string, numSignatures uint16, computeUnitLimit uint32, blobAccountSize uint64, rentPerByte Lamports, priority Priority) (Fee, error) {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(e.MaxRetries)), ctx)

	var rate MicroLamports
	attempts := 0
	var lastErr error

	err := backoff.Retry(func() error {
		attempts++
		samples, err := e.RPC.GetRecentPrioritizationFees(ctx, accounts)
		if err != nil {
			lastErr = err
			return err
		}
		rate = MicroLamports(percentileFee(samples, priority.percentile()))
		return nil
	}, bo)
	if err != nil {
		return Zero, &ErrEstimationFailed{Attempts: attempts, Cause: lastErr}
	}

	return Fee{
		NumSignatures:         numSignatures,
		PricePerSignature:     PricePerSignature,
		ComputeUnitLimit:      computeUnitLimit,
		PrioritizationFeeRate: rate,
		BlobAccountSize:       blobAccountSize,
		RentExemptLamportsPer: rentPerByte,
	}, nil
}

func percentileFee(samples []ledgerrpc.PrioritizationFeeSample, percentile int) uint64 {
	if len(samples) == 0 {
		return 0
	}
	fees := make([]uint64, len(samples))
	for i, s := range samples {
		fees[i] = s.PrioritizationFee
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })
	idx := int(math.Round(float64(len(fees)) * float64(percentile) / 100))
	if idx >= len(fees) {
		idx = len(fees) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return fees[idx]
}
