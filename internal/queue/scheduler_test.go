package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/clock"
	"github.com/knoguchi/rag/internal/domain"
)

func TestSchedulerRoundRobinsAcrossTenants(t *testing.T) {
	ctx := context.Background()
	s := NewScheduler(clock.NewFake(time.Unix(0, 0)))

	tenantA := uuid.New()
	tenantB := uuid.New()

	for i := 0; i < 3; i++ {
		if err := s.Enqueue(ctx, tenantA, domain.JobExtract, i, 0); err != nil {
			t.Fatalf("enqueue tenant A: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := s.Enqueue(ctx, tenantB, domain.JobExtract, i, 0); err != nil {
			t.Fatalf("enqueue tenant B: %v", err)
		}
	}

	var order []uuid.UUID
	for i := 0; i < 4; i++ {
		item, ok := s.Dequeue(ctx, domain.JobExtract)
		if !ok {
			t.Fatalf("dequeue %d: expected an item", i)
		}
		order = append(order, item.TenantID)
	}

	// A tenant with a full queue must not starve the other: across four
	// dequeues from two equally-loaded tenants, each tenant must appear at
	// least once, and no tenant may appear twice in a row.
	for i := 1; i < len(order); i++ {
		if order[i] == order[i-1] {
			t.Errorf("tenant %s dequeued twice in a row at position %d; round-robin should alternate", order[i], i)
		}
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range order {
		seen[id] = true
	}
	if len(seen) != 2 {
		t.Errorf("expected both tenants represented in 4 dequeues, got %d distinct tenants", len(seen))
	}
}

func TestSchedulerSkipsEmptyTenantQueues(t *testing.T) {
	ctx := context.Background()
	s := NewScheduler(clock.NewFake(time.Unix(0, 0)))

	tenantA := uuid.New()
	tenantB := uuid.New()

	if err := s.Enqueue(ctx, tenantA, domain.JobChunk, "only-a-1", 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Enqueue(ctx, tenantB, domain.JobChunk, "only-b-1", 0); err != nil {
		t.Fatal(err)
	}
	// Drain tenant B entirely.
	if _, ok := s.DequeueFrom(ctx, tenantB, domain.JobChunk); !ok {
		t.Fatal("expected to drain tenant B's only item")
	}

	// Now only tenant A has work; round-robin must not get stuck skipping
	// forever once a tenant's queue empties.
	item, ok := s.Dequeue(ctx, domain.JobChunk)
	if !ok {
		t.Fatal("expected tenant A's remaining item")
	}
	if item.TenantID != tenantA {
		t.Errorf("expected tenant A's item, got tenant %s", item.TenantID)
	}

	if _, ok := s.Dequeue(ctx, domain.JobChunk); ok {
		t.Error("expected queue to be empty after draining both tenants")
	}
}

func TestSchedulerPriorityOrdersWithinATenant(t *testing.T) {
	ctx := context.Background()
	s := NewScheduler(clock.NewFake(time.Unix(0, 0)))
	tenant := uuid.New()

	if err := s.Enqueue(ctx, tenant, domain.JobEmbed, "low", 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Enqueue(ctx, tenant, domain.JobEmbed, "high", 5); err != nil {
		t.Fatal(err)
	}

	item, ok := s.Dequeue(ctx, domain.JobEmbed)
	if !ok || item.Payload != "high" {
		t.Errorf("expected higher-priority item first, got %#v (ok=%v)", item.Payload, ok)
	}
}

func TestSchedulerSizeAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewScheduler(clock.NewFake(time.Unix(0, 0)))
	tenant := uuid.New()

	for i := 0; i < 3; i++ {
		if err := s.Enqueue(ctx, tenant, domain.JobExtract, i, 0); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.Size(domain.JobExtract, &tenant); got != 3 {
		t.Errorf("Size = %d, want 3", got)
	}

	s.Clear(domain.JobExtract, &tenant)
	if got := s.Size(domain.JobExtract, &tenant); got != 0 {
		t.Errorf("Size after Clear = %d, want 0", got)
	}
}
