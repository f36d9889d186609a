// Package domain defines the entities shared across the ingestion pipeline:
// tenants, documents, chunks, jobs, and vector points, plus the status
// enums and sentinel errors every store implementation returns.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a status change is not permitted
// from the entity's current state.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrDuplicateChunkIndex is returned by InsertChunk when a chunk with the
// same (document_id, chunk_index) already exists. Stage workers treat this
// as idempotent success, not a failure.
var ErrDuplicateChunkIndex = errors.New("duplicate chunk index")

// DocumentStatus is the aggregate lifecycle state of a Document.
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

// JobKind identifies which pipeline stage a Job belongs to.
type JobKind string

const (
	JobExtract JobKind = "extract"
	JobChunk   JobKind = "chunk"
	JobEmbed   JobKind = "embed"
)

// JobStatus is the lifecycle state of a single Job row.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Tenant owns a set of documents, chunks, jobs, and vector points. Created
// and deleted only by an operator; deletion cascades to everything it owns.
type Tenant struct {
	ID            uuid.UUID
	Name          string
	RateLimit     int
	CredentialHash string
	CreatedAt     time.Time
}

// Document is one uploaded file moving through Extract -> Chunk -> Embed.
type Document struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Filename    string
	FilePath    string
	FileSize    int64
	ContentHash string
	Status      DocumentStatus
	Metadata    map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chunk is a contiguous substring of a Document's extracted text.
// TenantID is denormalized from the owning document for isolation checks
// that don't require a join (I1).
type Chunk struct {
	ID             uuid.UUID
	DocumentID     uuid.UUID
	TenantID       uuid.UUID
	ChunkIndex     int
	Text           string
	EmbeddingPath  string // empty until the embed stage sets it
	CreatedAt      time.Time
}

// HasEmbedding reports whether this chunk has completed the embed stage.
func (c Chunk) HasEmbedding() bool {
	return c.EmbeddingPath != ""
}

// Job is a durable record of one processing attempt. A fresh row is created
// only when an item is dequeued for the first time; retries within the same
// dequeued item update that row in place (see design notes on job-row
// lifecycle).
type Job struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	DocumentID   uuid.UUID
	Kind         JobKind
	Status       JobStatus
	ErrorMessage string
	RetryCount   int
	MaxRetries   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Exhausted reports whether this job has used up its retry budget (I3).
func (j Job) Exhausted() bool {
	return j.RetryCount > j.MaxRetries
}

// VectorPoint is the vector-index-side projection of a Chunk. Its ID always
// equals the Chunk's ID so the two can be correlated without an extra
// lookup table.
type VectorPoint struct {
	ChunkID    uuid.UUID
	Vector     []float32
	TenantID   uuid.UUID
	DocumentID uuid.UUID
	ChunkIndex int
	Filename   string
	Text       string
	Metadata   map[string]string
}

// StageProgress is one stage's worth of status for the document-status
// accessor: the latest job of that kind, its error, and its retry count.
type StageProgress struct {
	Kind         JobKind
	Status       JobStatus
	ErrorMessage string
	RetryCount   int
}

// DocumentStatusReport is the shape the status accessor returns: aggregate
// status plus one progress entry per stage that has run.
type DocumentStatusReport struct {
	DocumentID uuid.UUID
	Status     DocumentStatus
	Stages     []StageProgress
}
