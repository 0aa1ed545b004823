package paygate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod identifies which verification path admitted a payment.
type PaymentMethod string

const (
	// MethodOffChain is a facilitator-verified signed authorization.
	MethodOffChain PaymentMethod = "offchain"

	// MethodOnChain is an escrow-referenced on-chain payment.
	MethodOnChain PaymentMethod = "onchain"
)

// AuditStatus is the terminal state of an audited payment.
type AuditStatus string

const (
	// StatusSettled means the facilitator executed the payment on-chain.
	StatusSettled AuditStatus = "settled"

	// StatusVerified means an escrowed on-chain payment was consumed.
	StatusVerified AuditStatus = "verified"

	// StatusFailed is reserved for operator tooling; the gateway itself only
	// audits fully admitted requests.
	StatusFailed AuditStatus = "failed"
)

// AuditRecord is the immutable record of an admitted payment. Records are
// created exactly once and never mutated.
type AuditRecord struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	// ResourceID is the resource the payment admitted a call to.
	ResourceID string `json:"resourceId"`

	// Payer is the paying address, or the sentinel payer identity.
	Payer string `json:"payer"`

	// Amount is the paid amount in atomic units as a decimal string.
	Amount string `json:"amount"`

	// Method is the verification path that admitted the payment.
	Method PaymentMethod `json:"method"`

	// Status is the terminal payment state.
	Status AuditStatus `json:"status"`

	// CredentialID is set for on-chain payments.
	CredentialID string `json:"credentialId,omitempty"`

	// TxHash is the settlement transaction for off-chain payments.
	TxHash string `json:"txHash,omitempty"`

	// CreatedAt is the record creation time.
	CreatedAt time.Time `json:"createdAt"`
}

// NewAuditRecord creates a record with a fresh id and timestamp.
func NewAuditRecord(resourceID, payer, amount string, method PaymentMethod, status AuditStatus) *AuditRecord {
	return &AuditRecord{
		ID:         uuid.NewString(),
		ResourceID: resourceID,
		Payer:      payer,
		Amount:     amount,
		Method:     method,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
}

// Ledger is an append-only log of admitted payments. Append is the only
// mutation; implementations must support concurrent appends without lost
// writes.
type Ledger interface {
	// Append records an admitted payment.
	Append(ctx context.Context, record *AuditRecord) error

	// ByResource returns the records for a resource, oldest first.
	ByResource(ctx context.Context, resourceID string) ([]AuditRecord, error)
}

// MemoryLedger is an in-memory Ledger safe for concurrent use.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []AuditRecord
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Append records an admitted payment.
func (l *MemoryLedger) Append(_ context.Context, record *AuditRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, *record)
	return nil
}

// ByResource returns the records for a resource in append order.
func (l *MemoryLedger) ByResource(_ context.Context, resourceID string) ([]AuditRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []AuditRecord
	for _, r := range l.records {
		if r.ResourceID == resourceID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Len returns the total number of records.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
