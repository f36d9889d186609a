package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/clock"
	"github.com/knoguchi/rag/internal/domain"
)

// itemHeap is a priority-sorted heap of queued items for one (tenant,
// kind) pair: highest priority first, ties broken by insertion order.
// Mirrors the heap.Interface pattern used for upload-chunk scheduling
// elsewhere in this codebase's lineage.
type itemHeap []*Item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].enqueuedAt.Before(h[j].enqueuedAt)
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)   { *h = append(*h, x.(*Item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Scheduler is the in-process, tenant-fair job queue: one itemHeap per
// (tenant, kind), dispatched by a round-robin cursor maintained per kind.
// The cursor is process-local by design — see design notes on horizontal
// scale-out fairness.
type Scheduler struct {
	mu          sync.Mutex
	queues      map[domain.JobKind]map[uuid.UUID]*itemHeap
	tenantOrder map[domain.JobKind][]uuid.UUID
	cursor      map[domain.JobKind]int
	clock       clock.Clock
	// lastEnqueued is the timestamp given to the most recent item.
	lastEnqueued time.Time
}

// NewScheduler returns an empty Scheduler. clk lets tests control
// insertion-order tie-breaking deterministically.
func NewScheduler(clk clock.Clock) *Scheduler {
	return &Scheduler{
		queues:      make(map[domain.JobKind]map[uuid.UUID]*itemHeap),
		tenantOrder: make(map[domain.JobKind][]uuid.UUID),
		cursor:      make(map[domain.JobKind]int),
		clock:       clk,
	}
}

// heapFor returns the itemHeap for (kind, tenantID), creating and
// registering it in tenantOrder on first use. Caller must hold s.mu.
func (s *Scheduler) heapFor(kind domain.JobKind, tenantID uuid.UUID) *itemHeap {
	byTenant, ok := s.queues[kind]
	if !ok {
		byTenant = make(map[uuid.UUID]*itemHeap)
		s.queues[kind] = byTenant
	}
	h, ok := byTenant[tenantID]
	if !ok {
		h = &itemHeap{}
		heap.Init(h)
		byTenant[tenantID] = h
		s.tenantOrder[kind] = append(s.tenantOrder[kind], tenantID)
	}
	return h
}

// Enqueue adds an item to tenantID's (kind) queue.
func (s *Scheduler) Enqueue(_ context.Context, tenantID uuid.UUID, kind domain.JobKind, payload any, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Keep enqueue timestamps strictly increasing so equal-priority items
	// pop in insertion order even when the clock returns the same instant.
	at := s.clock.Now()
	if !at.After(s.lastEnqueued) {
		at = s.lastEnqueued.Add(time.Nanosecond)
	}
	s.lastEnqueued = at

	item := &Item{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Kind:       kind,
		Priority:   priority,
		Payload:    payload,
		enqueuedAt: at,
	}
	h := s.heapFor(kind, tenantID)
	heap.Push(h, item)
	return nil
}

// Dequeue pops the next item of kind chosen by round-robin across tenants
// with a non-empty queue: start from cursor+1 mod N and return the first
// non-empty queue found, advancing the cursor to that position.
func (s *Scheduler) Dequeue(_ context.Context, kind domain.JobKind) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenants := s.tenantOrder[kind]
	n := len(tenants)
	if n == 0 {
		return Item{}, false
	}

	start := (s.cursor[kind] + 1) % n
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		tenantID := tenants[idx]
		h := s.queues[kind][tenantID]
		if h.Len() == 0 {
			continue
		}
		item := heap.Pop(h).(*Item)
		s.cursor[kind] = idx
		return *item, true
	}
	return Item{}, false
}

// DequeueFrom pops the highest-priority item from one specific tenant's
// queue, bypassing round-robin selection.
func (s *Scheduler) DequeueFrom(_ context.Context, tenantID uuid.UUID, kind domain.JobKind) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byTenant, ok := s.queues[kind]
	if !ok {
		return Item{}, false
	}
	h, ok := byTenant[tenantID]
	if !ok || h.Len() == 0 {
		return Item{}, false
	}
	item := heap.Pop(h).(*Item)
	return *item, true
}

// Size reports the queue depth for kind, either for one tenant or summed
// across every tenant when tenantID is nil.
func (s *Scheduler) Size(kind domain.JobKind, tenantID *uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	byTenant, ok := s.queues[kind]
	if !ok {
		return 0
	}
	if tenantID != nil {
		if h, ok := byTenant[*tenantID]; ok {
			return h.Len()
		}
		return 0
	}
	total := 0
	for _, h := range byTenant {
		total += h.Len()
	}
	return total
}

// Clear empties the queue for kind, either for one tenant or every tenant
// when tenantID is nil.
func (s *Scheduler) Clear(kind domain.JobKind, tenantID *uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byTenant, ok := s.queues[kind]
	if !ok {
		return
	}
	if tenantID != nil {
		if h, ok := byTenant[*tenantID]; ok {
			*h = (*h)[:0]
		}
		return
	}
	for _, h := range byTenant {
		*h = (*h)[:0]
	}
}

var _ Queue = (*Scheduler)(nil)
