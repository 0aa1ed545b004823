// Package chain provides read-only access to the on-chain payment gateway
// contract: a ledger of escrowed payments keyed by credential id, consulted
// when a caller presents an X-PAYMENT-ID header.
package chain

import (
	"context"
	"math/big"
	"sync"
)

// Payment is the escrow record for one credential id.
type Payment struct {
	// Valid reports whether the ledger holds a usable payment for the id.
	Valid bool

	// Payer is the address that escrowed the payment.
	Payer string

	// Amount is the escrowed amount in atomic units.
	Amount *big.Int
}

// Client reads payment records from the escrow ledger. Lookup is a remote,
// read-only call; a transport failure returns an error, an unknown or
// unsettled credential returns a Payment with Valid=false and a nil error.
type Client interface {
	Lookup(ctx context.Context, credentialID string) (*Payment, error)
}

// StaticClient is an in-memory Client for tests and local development.
type StaticClient struct {
	mu       sync.RWMutex
	payments map[string]Payment
}

// NewStaticClient creates an empty static escrow ledger.
func NewStaticClient() *StaticClient {
	return &StaticClient{payments: make(map[string]Payment)}
}

// Add records an escrowed payment under credentialID.
func (c *StaticClient) Add(credentialID string, payment Payment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payments[credentialID] = payment
}

// Lookup returns the payment for credentialID, or Valid=false if absent.
func (c *StaticClient) Lookup(_ context.Context, credentialID string) (*Payment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.payments[credentialID]
	if !ok {
		return &Payment{Valid: false}, nil
	}
	out := p
	if p.Amount != nil {
		out.Amount = new(big.Int).Set(p.Amount)
	}
	return &out, nil
}
