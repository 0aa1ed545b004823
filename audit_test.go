package paygate

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestNewAuditRecord(t *testing.T) {
	record := NewAuditRecord("weather", "0xAlice", "1000", MethodOffChain, StatusSettled)

	if record.ID == "" {
		t.Error("record has no id")
	}
	if record.CreatedAt.IsZero() {
		t.Error("record has no timestamp")
	}
	if record.ResourceID != "weather" || record.Payer != "0xAlice" || record.Amount != "1000" {
		t.Errorf("record fields = %+v", record)
	}

	other := NewAuditRecord("weather", "0xAlice", "1000", MethodOffChain, StatusSettled)
	if other.ID == record.ID {
		t.Error("two records share an id")
	}
}

func TestMemoryLedgerByResource(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	first := NewAuditRecord("weather", "0xAlice", "1000", MethodOffChain, StatusSettled)
	second := NewAuditRecord("translate", "0xBob", "2500", MethodOnChain, StatusVerified)
	third := NewAuditRecord("weather", "0xCarol", "1000", MethodOnChain, StatusVerified)

	for _, r := range []*AuditRecord{first, second, third} {
		if err := l.Append(ctx, r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	records, err := l.ByResource(ctx, "weather")
	if err != nil {
		t.Fatalf("ByResource: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].ID != first.ID || records[1].ID != third.ID {
		t.Error("records not returned in append order")
	}

	none, err := l.ByResource(ctx, "missing")
	if err != nil {
		t.Fatalf("ByResource: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("len(none) = %d, want 0", len(none))
	}
}

func TestMemoryLedgerConcurrentAppends(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			record := NewAuditRecord("weather", fmt.Sprintf("0xPayer%d", n), "1000", MethodOnChain, StatusVerified)
			if err := l.Append(ctx, record); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := l.Len(); got != workers {
		t.Errorf("Len() = %d, want %d", got, workers)
	}
}
