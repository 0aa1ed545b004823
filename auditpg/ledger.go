// Package auditpg provides a Postgres-backed audit ledger. It is selected
// by configuration when admitted payments must survive gateway restarts;
// the in-memory ledger remains the default.
package auditpg

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agentpay/paygate"
)

// paymentRecord is the gorm model for one admitted payment.
type paymentRecord struct {
	ID           string `gorm:"primaryKey"`
	ResourceID   string `gorm:"index;not null"`
	Payer        string `gorm:"not null"`
	Amount       string `gorm:"not null"`
	Method       string `gorm:"not null"`
	Status       string `gorm:"not null"`
	CredentialID string `gorm:"index"`
	TxHash       string
	CreatedAt    time.Time `gorm:"index;not null"`
}

func (paymentRecord) TableName() string {
	return "payment_audit"
}

// Ledger is a paygate.Ledger backed by Postgres.
type Ledger struct {
	db *gorm.DB
}

// Open connects to Postgres, migrates the audit table, and returns the
// ledger.
func Open(dsn string) (*Ledger, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("auditpg: connecting: %w", err)
	}
	if err := db.AutoMigrate(&paymentRecord{}); err != nil {
		return nil, fmt.Errorf("auditpg: migrating: %w", err)
	}
	return &Ledger{db: db}, nil
}

// NewLedger wraps an existing gorm connection.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Append inserts one audit record. Records are never updated or deleted.
func (l *Ledger) Append(ctx context.Context, record *paygate.AuditRecord) error {
	row := paymentRecord{
		ID:           record.ID,
		ResourceID:   record.ResourceID,
		Payer:        record.Payer,
		Amount:       record.Amount,
		Method:       string(record.Method),
		Status:       string(record.Status),
		CredentialID: record.CredentialID,
		TxHash:       record.TxHash,
		CreatedAt:    record.CreatedAt,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("auditpg: appending record %s: %w", record.ID, err)
	}
	return nil
}

// ByResource returns the records for a resource, oldest first.
func (l *Ledger) ByResource(ctx context.Context, resourceID string) ([]paygate.AuditRecord, error) {
	var rows []paymentRecord
	err := l.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("auditpg: listing records for %s: %w", resourceID, err)
	}

	records := make([]paygate.AuditRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, paygate.AuditRecord{
			ID:           row.ID,
			ResourceID:   row.ResourceID,
			Payer:        row.Payer,
			Amount:       row.Amount,
			Method:       paygate.PaymentMethod(row.Method),
			Status:       paygate.AuditStatus(row.Status),
			CredentialID: row.CredentialID,
			TxHash:       row.TxHash,
			CreatedAt:    row.CreatedAt,
		})
	}
	return records, nil
}
