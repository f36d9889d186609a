package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/blob"
	"github.com/knoguchi/rag/internal/clock"
	"github.com/knoguchi/rag/internal/domain"
	"github.com/knoguchi/rag/internal/index"
	"github.com/knoguchi/rag/internal/pipeline"
)

type fakeStore struct {
	byID       map[uuid.UUID]*domain.Tenant
	byHash     map[string]*domain.Tenant
	deletedIDs []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[uuid.UUID]*domain.Tenant), byHash: make(map[string]*domain.Tenant)}
}

func (f *fakeStore) CreateTenant(_ context.Context, t *domain.Tenant) error {
	cp := *t
	f.byID[t.ID] = &cp
	f.byHash[t.CredentialHash] = &cp
	return nil
}
func (f *fakeStore) GetTenant(_ context.Context, id uuid.UUID) (*domain.Tenant, error) {
	if t, ok := f.byID[id]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}
func (f *fakeStore) GetTenantByCredentialHash(_ context.Context, hash string) (*domain.Tenant, error) {
	if t, ok := f.byHash[hash]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}
func (f *fakeStore) DeleteTenant(_ context.Context, id uuid.UUID) error {
	f.deletedIDs = append(f.deletedIDs, id)
	delete(f.byID, id)
	return nil
}
func (f *fakeStore) InsertDocument(context.Context, *domain.Document) error { return nil }
func (f *fakeStore) GetDocument(context.Context, uuid.UUID) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeStore) GetDocumentByContentHash(context.Context, uuid.UUID, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeStore) SetDocumentStatus(context.Context, uuid.UUID, domain.DocumentStatus) error {
	return nil
}
func (f *fakeStore) SetDocumentMetadata(context.Context, uuid.UUID, map[string]string) error {
	return nil
}
func (f *fakeStore) ListDocuments(context.Context, uuid.UUID, int, int) ([]*domain.Document, int, error) {
	return nil, 0, nil
}
func (f *fakeStore) DeleteDocumentCascade(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
func (f *fakeStore) InsertChunk(context.Context, *domain.Chunk) error               { return nil }
func (f *fakeStore) SetChunkEmbeddingPath(context.Context, uuid.UUID, string) error { return nil }
func (f *fakeStore) GetChunks(context.Context, uuid.UUID) ([]*domain.Chunk, error)  { return nil, nil }
func (f *fakeStore) CountDocumentChunks(context.Context, uuid.UUID) (int, int, error) {
	return 0, 0, nil
}
func (f *fakeStore) UpsertJob(context.Context, *domain.Job) error { return nil }
func (f *fakeStore) SetJobStatus(context.Context, uuid.UUID, domain.JobStatus, string) error {
	return nil
}
func (f *fakeStore) IncrementJobRetry(context.Context, uuid.UUID, int) error { return nil }
func (f *fakeStore) LatestJobsByDocument(context.Context, uuid.UUID) ([]*domain.Job, error) {
	return nil, nil
}
func (f *fakeStore) Close() {}

type fakeBlobStore struct {
	deletedPrefixes []string
}

func (b *fakeBlobStore) Put(context.Context, string, []byte, string) error { return nil }
func (b *fakeBlobStore) Get(context.Context, string) ([]byte, error)       { return nil, blob.ErrNotFound }
func (b *fakeBlobStore) Delete(context.Context, string) error              { return nil }
func (b *fakeBlobStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	b.deletedPrefixes = append(b.deletedPrefixes, prefix)
	return 0, nil
}
func (b *fakeBlobStore) Exists(context.Context, string) (bool, error) { return false, nil }

var _ index.VectorIndex = (*noopVectorIndex)(nil)

type noopVectorIndex struct{}

func (noopVectorIndex) EnsureCollection(context.Context, int) error { return nil }
func (noopVectorIndex) Upsert(context.Context, []domain.VectorPoint) error { return nil }
func (noopVectorIndex) Search(context.Context, uuid.UUID, []float32, int, float32) ([]index.Hit, error) {
	return nil, nil
}
func (noopVectorIndex) Delete(context.Context, uuid.UUID, []uuid.UUID) error { return nil }

func TestCreateTenantGeneratesCredentialAndPersistsOnlyItsHash(t *testing.T) {
	st := newFakeStore()
	orch := pipeline.NewOrchestrator(st, noopVectorIndex{}, &fakeBlobStore{})
	a := New(st, orch, clock.NewFake(time.Unix(0, 0)))

	created, err := a.CreateTenant(context.Background(), "acme", 120)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Credential == "" {
		t.Fatal("expected a non-empty raw credential")
	}
	if created.Tenant.CredentialHash == created.Credential {
		t.Error("the stored tenant must hold a hash, not the raw credential")
	}

	stored := st.byID[created.Tenant.ID]
	if stored == nil {
		t.Fatal("expected the tenant row to be persisted")
	}
	if stored.CredentialHash != created.Tenant.CredentialHash {
		t.Error("persisted hash must match the hash returned to the caller")
	}
}

func TestAuthenticateCredentialResolvesTheMatchingTenant(t *testing.T) {
	st := newFakeStore()
	orch := pipeline.NewOrchestrator(st, noopVectorIndex{}, &fakeBlobStore{})
	a := New(st, orch, clock.NewFake(time.Unix(0, 0)))

	created, err := a.CreateTenant(context.Background(), "acme", 120)
	if err != nil {
		t.Fatal(err)
	}

	got, err := a.AuthenticateCredential(context.Background(), created.Credential)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != created.Tenant.ID {
		t.Errorf("resolved tenant %s, want %s", got.ID, created.Tenant.ID)
	}
}

func TestAuthenticateCredentialRejectsUnknownCredential(t *testing.T) {
	st := newFakeStore()
	orch := pipeline.NewOrchestrator(st, noopVectorIndex{}, &fakeBlobStore{})
	a := New(st, orch, clock.NewFake(time.Unix(0, 0)))

	_, err := a.AuthenticateCredential(context.Background(), "not-a-real-credential")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTenantCascadesThroughTheOrchestrator(t *testing.T) {
	st := newFakeStore()
	blobs := &fakeBlobStore{}
	orch := pipeline.NewOrchestrator(st, noopVectorIndex{}, blobs)
	a := New(st, orch, clock.NewFake(time.Unix(0, 0)))

	created, err := a.CreateTenant(context.Background(), "acme", 120)
	if err != nil {
		t.Fatal(err)
	}

	if err := a.DeleteTenant(context.Background(), created.Tenant.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := st.byID[created.Tenant.ID]; ok {
		t.Error("expected the tenant row to be removed")
	}
	if len(blobs.deletedPrefixes) != 1 {
		t.Errorf("expected the tenant's blob prefix to be deleted, got %v", blobs.deletedPrefixes)
	}
}
