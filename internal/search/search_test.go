package search

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/domain"
	"github.com/knoguchi/rag/internal/index"
)

type fakeEmbedder struct {
	vector []float32
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return f.vector, nil }
func (f *fakeEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, nil
}
func (f *fakeEmbedder) Dimension() int    { return len(f.vector) }
func (f *fakeEmbedder) ModelName() string { return "fake" }

type fakeVectorIndex struct {
	hits        []index.Hit
	lastLimit   int
	lastTenant  uuid.UUID
	lastVector  []float32
}

func (f *fakeVectorIndex) EnsureCollection(context.Context, int) error { return nil }
func (f *fakeVectorIndex) Upsert(context.Context, []domain.VectorPoint) error {
	return nil
}
func (f *fakeVectorIndex) Search(_ context.Context, tenantID uuid.UUID, vector []float32, limit int, _ float32) ([]index.Hit, error) {
	f.lastTenant = tenantID
	f.lastVector = vector
	f.lastLimit = limit
	return f.hits, nil
}
func (f *fakeVectorIndex) Delete(context.Context, uuid.UUID, []uuid.UUID) error { return nil }

func TestSearchDefaultsLimitWhenNonPositive(t *testing.T) {
	idx := &fakeVectorIndex{}
	f := New(&fakeEmbedder{vector: []float32{0.1}}, idx)

	if _, err := f.Search(context.Background(), uuid.New(), "query", 0, 0); err != nil {
		t.Fatal(err)
	}
	if idx.lastLimit != DefaultLimit {
		t.Errorf("limit = %d, want default %d", idx.lastLimit, DefaultLimit)
	}
}

func TestSearchPassesPositiveLimitThrough(t *testing.T) {
	idx := &fakeVectorIndex{}
	f := New(&fakeEmbedder{vector: []float32{0.1}}, idx)

	if _, err := f.Search(context.Background(), uuid.New(), "query", 25, 0); err != nil {
		t.Fatal(err)
	}
	if idx.lastLimit != 25 {
		t.Errorf("limit = %d, want 25", idx.lastLimit)
	}
}

func TestSearchFiltersOutAnyForeignTenantHit(t *testing.T) {
	tenant := uuid.New()
	foreign := uuid.New()
	idx := &fakeVectorIndex{
		hits: []index.Hit{
			{ChunkID: uuid.New(), TenantID: tenant, Text: "mine"},
			{ChunkID: uuid.New(), TenantID: foreign, Text: "not mine"},
		},
	}
	f := New(&fakeEmbedder{vector: []float32{0.1}}, idx)

	hits, err := f.Search(context.Background(), tenant, "query", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].TenantID != tenant {
		t.Errorf("expected only the matching tenant's hit to survive, got %+v", hits)
	}
}
