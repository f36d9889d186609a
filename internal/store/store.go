// Package store defines the Metadata Store capability: the durable
// relational record of tenants, documents, chunks, and jobs that every
// pipeline stage reads and writes under a transaction.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/domain"
)

// MetadataStore is the transactional relational store backing the
// pipeline. All multi-row writes it exposes execute within a single
// transaction; CountDocumentChunks is the atomic predicate the embed stage
// uses to decide document completion.
type MetadataStore interface {
	// Tenants
	CreateTenant(ctx context.Context, t *domain.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetTenantByCredentialHash(ctx context.Context, hash string) (*domain.Tenant, error)
	DeleteTenant(ctx context.Context, id uuid.UUID) error

	// Documents
	InsertDocument(ctx context.Context, d *domain.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	GetDocumentByContentHash(ctx context.Context, tenantID uuid.UUID, hash string) (*domain.Document, error)
	SetDocumentStatus(ctx context.Context, id uuid.UUID, status domain.DocumentStatus) error
	SetDocumentMetadata(ctx context.Context, id uuid.UUID, metadata map[string]string) error
	ListDocuments(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.Document, int, error)

	// DeleteDocumentCascade removes every Chunk row, every Job row, and
	// finally the Document row itself, in one transaction, returning the
	// chunk ids so the caller can cascade the vector index and blob store
	// (which this store does not know about).
	DeleteDocumentCascade(ctx context.Context, documentID uuid.UUID) ([]uuid.UUID, error)

	// Chunks
	InsertChunk(ctx context.Context, c *domain.Chunk) error
	SetChunkEmbeddingPath(ctx context.Context, chunkID uuid.UUID, path string) error
	GetChunks(ctx context.Context, documentID uuid.UUID) ([]*domain.Chunk, error)

	// CountDocumentChunks returns the total chunk count for a document and
	// how many of those chunks have a non-empty embedding path. Must be
	// read with the same consistency a transaction gives, since two
	// concurrent final embeds racing to observe total==embedded is the
	// scenario I2/I4 depend on being serialized.
	CountDocumentChunks(ctx context.Context, documentID uuid.UUID) (total, withEmbedding int, err error)

	// Jobs
	UpsertJob(ctx context.Context, j *domain.Job) error
	SetJobStatus(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, errMessage string) error
	IncrementJobRetry(ctx context.Context, jobID uuid.UUID, newCount int) error
	LatestJobsByDocument(ctx context.Context, documentID uuid.UUID) ([]*domain.Job, error)

	Close()
}
