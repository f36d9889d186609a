// Package queue implements the tenant-fair job queue: one priority queue
// per (tenant, kind), dispatched by strict round-robin over non-empty
// tenant queues so no single tenant can starve the others.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/domain"
)

// Item is one dispatched unit of work. Payload holds one of
// ExtractPayload, ChunkPayload, or EmbedPayload — the tagged-variant job
// body, reconstructed on dequeue from whatever byte representation the
// queue chooses to serialize as.
type Item struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Kind     domain.JobKind
	Priority int
	Payload  any
	// enqueuedAt breaks priority ties in FIFO order.
	enqueuedAt time.Time
}

// Queue is the capability interface stage workers and facades depend on.
// Dispatch of a single item is atomic; the round-robin cursor backing
// Dequeue is process-local, per the concurrency model's fairness scope.
type Queue interface {
	Enqueue(ctx context.Context, tenantID uuid.UUID, kind domain.JobKind, payload any, priority int) error
	// Dequeue returns the next item of kind chosen by round-robin across
	// tenants with a non-empty queue of that kind, or ok=false if every
	// such queue is currently empty.
	Dequeue(ctx context.Context, kind domain.JobKind) (item Item, ok bool)
	DequeueFrom(ctx context.Context, tenantID uuid.UUID, kind domain.JobKind) (item Item, ok bool)
	Size(kind domain.JobKind, tenantID *uuid.UUID) int
	Clear(kind domain.JobKind, tenantID *uuid.UUID)
}
