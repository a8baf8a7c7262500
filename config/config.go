// Package config holds the structural configuration this client needs. It deliberately
// does not parse any file format (TOML, JSON, env) — that wiring is left to the caller;
// this package only defines the shape and validates it.
package config

import (
	"fmt"
	"net/url"
)

// Config mirrors the external configuration surface this client depends on.
type Config struct {
	// ProgramID is the base58-encoded address of the on-chain program this client
	// talks to.
	ProgramID string

	// Namespace scopes container derivation for callers that do not want to manage
	// container addresses themselves.
	Namespace string

	// PayerKeypairPath is recorded for the caller's own use; this package never reads
	// it (keypair loading is out of scope for this library).
	PayerKeypairPath string

	IndexerURL      string
	IndexerAPIToken string

	LedgerRPCURL string

	UsePriorityFeeEstimateAPI bool

	DefaultConcurrency   int
	DefaultLookbackSlots uint64
}

// DefaultConfig returns a Config with conservative, non-empty-but-unbound defaults for
// the numeric fields.
func DefaultConfig() Config {
	return Config{
		UsePriorityFeeEstimateAPI: true,
		DefaultConcurrency:        8,
		DefaultLookbackSlots:      1_000_000,
	}
}

// Validate checks the structural invariants a Config must satisfy before it is usable,
// independent of whether the values it holds actually resolve to anything live.
func Validate(cfg Config) error {
	if cfg.ProgramID == "" {
		return fmt.Errorf("config: ProgramID is required")
	}
	if cfg.LedgerRPCURL == "" {
		return fmt.Errorf("config: LedgerRPCURL is required")
	}
	if _, err := url.Parse(cfg.LedgerRPCURL); err != nil {
		return fmt.Errorf("config: invalid LedgerRPCURL: %w", err)
	}
	if cfg.IndexerURL != "" {
		if _, err := url.Parse(cfg.IndexerURL); err != nil {
			return fmt.Errorf("config: invalid IndexerURL: %w", err)
		}
	}
	if cfg.DefaultConcurrency <= 0 {
		return fmt.Errorf("config: DefaultConcurrency must be positive, got %d", cfg.DefaultConcurrency)
	}
	return nil
}
