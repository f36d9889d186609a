// Package ingest implements the Ingestion Facade (component G): the single
// entry point that accepts an uploaded document, validates it, persists the
// source blob and document row, and enqueues the first pipeline job.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/blob"
	"github.com/knoguchi/rag/internal/clock"
	"github.com/knoguchi/rag/internal/domain"
	"github.com/knoguchi/rag/internal/queue"
	"github.com/knoguchi/rag/internal/ratelimit"
	"github.com/knoguchi/rag/internal/store"
)

// ErrUnsupportedExtension is returned when a filename's extension is not in
// the configured allow-list.
var ErrUnsupportedExtension = errors.New("unsupported file extension")

// ErrFileTooLarge is returned when a file exceeds the configured maximum.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// ErrRateLimited is returned when a tenant has exhausted its ingestion
// token bucket.
var ErrRateLimited = errors.New("tenant ingestion rate limit exceeded")

// ErrTooManyFiles is returned when a bulk upload exceeds the configured cap.
var ErrTooManyFiles = errors.New("bulk upload exceeds file count cap")

// Config carries the validation tunables the facade enforces before a file
// is allowed into the pipeline.
type Config struct {
	AllowedExtensions []string
	MaxFileSizeBytes  int64
	BulkUploadCap     int
	DefaultRateLimit  int
}

// Facade is the Ingestion Facade.
type Facade struct {
	store   store.MetadataStore
	blobs   blob.Store
	queue   queue.Queue
	limiter *ratelimit.Limiter
	clock   clock.Clock
	cfg     Config
}

// New wires an ingestion Facade over its collaborators.
func New(s store.MetadataStore, b blob.Store, q queue.Queue, limiter *ratelimit.Limiter, c clock.Clock, cfg Config) *Facade {
	return &Facade{store: s, blobs: b, queue: q, limiter: limiter, clock: c, cfg: cfg}
}

// Upload is a single file handed to Ingest or BulkIngest.
type Upload struct {
	Filename string
	Data     []byte
}

// IngestResult reports the outcome for one uploaded file.
type IngestResult struct {
	Filename   string
	DocumentID uuid.UUID
	Duplicate  bool // true if an existing document with the same content hash was returned instead
	Err        error
}

// Ingest validates, persists, and enqueues a single upload for tenantID.
// A file whose content hash matches an existing document for the same
// tenant is not re-ingested; the existing document id is returned with
// Duplicate set, satisfying the content-hash dedup feature.
func (f *Facade) Ingest(ctx context.Context, tenantID uuid.UUID, tenantRateLimit int, up Upload) IngestResult {
	if !f.limiter.Allow(tenantID, tenantRateLimit) {
		return IngestResult{Filename: up.Filename, Err: ErrRateLimited}
	}

	if err := f.validateExtension(up.Filename); err != nil {
		return IngestResult{Filename: up.Filename, Err: err}
	}
	if int64(len(up.Data)) > f.cfg.MaxFileSizeBytes {
		return IngestResult{Filename: up.Filename, Err: ErrFileTooLarge}
	}

	hash := sha256.Sum256(up.Data)
	contentHash := hex.EncodeToString(hash[:])

	if existing, err := f.store.GetDocumentByContentHash(ctx, tenantID, contentHash); err == nil {
		return IngestResult{Filename: up.Filename, DocumentID: existing.ID, Duplicate: true}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return IngestResult{Filename: up.Filename, Err: fmt.Errorf("check content hash dedup: %w", err)}
	}

	documentID := uuid.New()
	filePath := fmt.Sprintf("%s/%s/source%s", tenantID, documentID, strings.ToLower(filepath.Ext(up.Filename)))

	if err := f.blobs.Put(ctx, filePath, up.Data, contentTypeFor(up.Filename)); err != nil {
		return IngestResult{Filename: up.Filename, Err: fmt.Errorf("write source blob: %w", err)}
	}

	now := f.clock.Now()
	doc := &domain.Document{
		ID:          documentID,
		TenantID:    tenantID,
		Filename:    up.Filename,
		FilePath:    filePath,
		FileSize:    int64(len(up.Data)),
		ContentHash: contentHash,
		Status:      domain.DocumentPending,
		Metadata:    map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.store.InsertDocument(ctx, doc); err != nil {
		return IngestResult{Filename: up.Filename, Err: fmt.Errorf("insert document row: %w", err)}
	}

	err := f.queue.Enqueue(ctx, tenantID, domain.JobExtract, queue.ExtractPayload{
		DocumentID: documentID,
		TenantID:   tenantID,
		FilePath:   filePath,
		Filename:   up.Filename,
	}, 0)
	if err != nil {
		return IngestResult{Filename: up.Filename, Err: fmt.Errorf("enqueue extract job: %w", err)}
	}

	return IngestResult{Filename: up.Filename, DocumentID: documentID}
}

// BulkIngest ingests every upload for tenantID, in order. A batch holding
// more uploads than the configured cap is rejected whole with
// ErrTooManyFiles and nothing is ingested. Each file's outcome is
// independent: one failure does not prevent the rest from being attempted.
func (f *Facade) BulkIngest(ctx context.Context, tenantID uuid.UUID, tenantRateLimit int, uploads []Upload) ([]IngestResult, error) {
	if len(uploads) > f.cfg.BulkUploadCap {
		return nil, fmt.Errorf("%w: %d files exceeds cap of %d", ErrTooManyFiles, len(uploads), f.cfg.BulkUploadCap)
	}

	results := make([]IngestResult, len(uploads))
	for i, up := range uploads {
		results[i] = f.Ingest(ctx, tenantID, tenantRateLimit, up)
	}
	return results, nil
}

func (f *Facade) validateExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range f.cfg.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedExtension, ext)
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	default:
		return "text/plain"
	}
}
