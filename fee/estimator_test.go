package fee

import (
	"testing"

	"github.com/dablob/client-go/ledgerrpc"
)

func samples(fees ...uint64) []ledgerrpc.PrioritizationFeeSample {
	out := make([]ledgerrpc.PrioritizationFeeSample, len(fees))
	for i, f := range fees {
		out[i] = ledgerrpc.PrioritizationFeeSample{Slot: uint64(i), PrioritizationFee: f}
	}
	return out
}

func TestPercentileFeeEmpty(t *testing.T) {
	if got := percentileFee(nil, 50); got != 0 {
		t.Fatalf("got %d want 0", got)
	}
}

func TestPercentileFeeBoundaries(t *testing.T) {
	s := samples(10, 20, 30, 40, 50)

	if got := percentileFee(s, 0); got != 10 {
		t.Fatalf("p0: got %d want 10", got)
	}
	if got := percentileFee(s, 100); got != 50 {
		t.Fatalf("p100: got %d want 50", got)
	}
	if got := percentileFee(s, 50); got != 40 {
		t.Fatalf("p50: got %d want 40", got)
	}
}

func TestPriorityPercentileMapping(t *testing.T) {
	cases := map[Priority]int{
		PriorityMin:       0,
		PriorityLow:       25,
		PriorityMedium:    50,
		PriorityHigh:      75,
		PriorityVeryHigh:  95,
		PriorityUnsafeMax: 100,
	}
	for p, want := range cases {
		if got := p.percentile(); got != want {
			t.Fatalf("priority %v: got %d want %d", p, got, want)
		}
	}
}
