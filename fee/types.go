package fee

// Lamports is the ledger's base currency unit. It is a distinct type from MicroLamports
// so the two units cannot be added or compared without an explicit conversion, mirroring
// the newtype pattern the reference fee model uses for the same reason.
type Lamports uint64

// MicroLamports is 1/1,000,000th of a Lamport, the unit prioritization fee rates are
// quoted in.
type MicroLamports uint64

// ToLamportsCeil converts a compute-unit-scaled MicroLamports rate into whole Lamports,
// rounding up so a fee estimate is never short.
func (m MicroLamports) ToLamportsCeil(computeUnits uint32) Lamports {
	total := uint64(m) * uint64(computeUnits)
	lamports := total / 1_000_000
	if total%1_000_000 != 0 {
		lamports++
	}
	return Lamports(lamports)
}

// PricePerSignature is the static, network-wide cost of a single signature verification.
const PricePerSignature Lamports = 5000

// Fee is a complete fee estimate for a single transaction.
type Fee struct {
	NumSignatures          uint16
	PricePerSignature      Lamports
	ComputeUnitLimit       uint32
	PrioritizationFeeRate  MicroLamports
	BlobAccountSize        uint64
	RentExemptLamportsPer  Lamports // per-byte rent-exempt minimum, for BlobAccountSize
}

// Zero is the fee estimate for a transaction that costs nothing (used as a sentinel /
// starting accumulator).
var Zero = Fee{}

// StaticFee is the portion of the fee driven purely by signature count.
func (f Fee) StaticFee() Lamports {
	return f.PricePerSignature * Lamports(f.NumSignatures)
}

// PrioritizationFee is the portion of the fee paid for prioritized inclusion.
func (f Fee) PrioritizationFee() Lamports {
	return f.PrioritizationFeeRate.ToLamportsCeil(f.ComputeUnitLimit)
}

// RentExemption is the one-time rent-exempt deposit required for the account this
// transaction creates or grows, if any.
func (f Fee) RentExemption() Lamports {
	return f.RentExemptLamportsPer * Lamports(f.BlobAccountSize)
}

// Total is the full cost of landing this transaction: signatures, prioritization, and
// any new rent-exempt balance.
func (f Fee) Total() Lamports {
	return f.StaticFee() + f.PrioritizationFee() + f.RentExemption()
}
