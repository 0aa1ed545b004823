package paygate

import (
	"fmt"
	"time"
)

// TimeoutConfig holds timeout configuration for external collaborator calls.
type TimeoutConfig struct {
	// VerifyTimeout is the maximum time to wait for facilitator verification.
	VerifyTimeout time.Duration

	// SettleTimeout is the maximum time to wait for facilitator settlement.
	SettleTimeout time.Duration

	// LookupTimeout is the maximum time to wait for an on-chain lookup.
	LookupTimeout time.Duration

	// RequestTimeout is the overall timeout for collaborator HTTP requests.
	RequestTimeout time.Duration
}

// DefaultTimeouts provides sensible defaults for collaborator calls.
var DefaultTimeouts = TimeoutConfig{
	VerifyTimeout:  5 * time.Second,
	SettleTimeout:  60 * time.Second,
	LookupTimeout:  10 * time.Second,
	RequestTimeout: 120 * time.Second,
}

// Validate ensures timeout values are reasonable.
func (tc TimeoutConfig) Validate() error {
	if tc.VerifyTimeout <= 0 {
		return fmt.Errorf("verify timeout must be positive, got %v", tc.VerifyTimeout)
	}
	if tc.SettleTimeout <= 0 {
		return fmt.Errorf("settle timeout must be positive, got %v", tc.SettleTimeout)
	}
	if tc.LookupTimeout <= 0 {
		return fmt.Errorf("lookup timeout must be positive, got %v", tc.LookupTimeout)
	}
	if tc.SettleTimeout < tc.VerifyTimeout {
		return fmt.Errorf("settle timeout (%v) should be >= verify timeout (%v)",
			tc.SettleTimeout, tc.VerifyTimeout)
	}
	return nil
}
