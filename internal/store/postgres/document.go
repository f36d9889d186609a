package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/knoguchi/rag/internal/domain"
)

var allowedDocumentTransitions = map[domain.DocumentStatus]map[domain.DocumentStatus]bool{
	domain.DocumentPending: {
		domain.DocumentProcessing: true,
	},
	domain.DocumentProcessing: {
		domain.DocumentProcessing: true, // idempotent no-op
		domain.DocumentCompleted: true,
		domain.DocumentFailed:    true,
	},
}

// InsertDocument creates a document row with initial status pending.
func (s *Store) InsertDocument(ctx context.Context, d *domain.Document) error {
	metadataJSON, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("marshal document metadata: %w", err)
	}

	query := `
		INSERT INTO documents (id, tenant_id, filename, file_path, file_size, content_hash, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.Pool.Exec(ctx, query,
		d.ID, d.TenantID, d.Filename, d.FilePath, d.FileSize, d.ContentHash,
		domain.DocumentPending, metadataJSON, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Store) scanDocument(ctx context.Context, query string, args ...any) (*domain.Document, error) {
	var d domain.Document
	var metadataJSON []byte

	err := s.db.Pool.QueryRow(ctx, query, args...).Scan(
		&d.ID, &d.TenantID, &d.Filename, &d.FilePath, &d.FileSize, &d.ContentHash,
		&d.Status, &metadataJSON, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	d.Metadata = make(map[string]string)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal document metadata: %w", err)
		}
	}
	return &d, nil
}

// GetDocument retrieves a document by id.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	query := `
		SELECT id, tenant_id, filename, file_path, file_size, content_hash, status, metadata, created_at, updated_at
		FROM documents WHERE id = $1
	`
	return s.scanDocument(ctx, query, id)
}

// GetDocumentByContentHash backs the ingestion dedup path: a document with
// the same tenant and content hash is returned if one exists.
func (s *Store) GetDocumentByContentHash(ctx context.Context, tenantID uuid.UUID, hash string) (*domain.Document, error) {
	query := `
		SELECT id, tenant_id, filename, file_path, file_size, content_hash, status, metadata, created_at, updated_at
		FROM documents WHERE tenant_id = $1 AND content_hash = $2
	`
	return s.scanDocument(ctx, query, tenantID, hash)
}

// SetDocumentStatus applies the permitted transition pending -> processing
// -> {completed, failed}. processing -> processing and same-status writes
// are no-ops; any other transition is rejected.
func (s *Store) SetDocumentStatus(ctx context.Context, id uuid.UUID, status domain.DocumentStatus) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current domain.DocumentStatus
	err = tx.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("read document status: %w", err)
	}

	if current == status {
		return tx.Commit(ctx)
	}
	if !allowedDocumentTransitions[current][status] {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, status)
	}

	_, err = tx.Exec(ctx, `UPDATE documents SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return tx.Commit(ctx)
}

// SetDocumentMetadata merges extracted fields (text_path, text_length) into
// the document's metadata map.
func (s *Store) SetDocumentMetadata(ctx context.Context, id uuid.UUID, metadata map[string]string) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	merged := make(map[string]string, len(doc.Metadata)+len(metadata))
	for k, v := range doc.Metadata {
		merged[k] = v
	}
	for k, v := range metadata {
		merged[k] = v
	}
	metadataJSON, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal document metadata: %w", err)
	}
	_, err = s.db.Pool.Exec(ctx, `UPDATE documents SET metadata = $2, updated_at = NOW() WHERE id = $1`, id, metadataJSON)
	if err != nil {
		return fmt.Errorf("update document metadata: %w", err)
	}
	return nil
}

// ListDocuments pages through a tenant's documents, most recent first.
func (s *Store) ListDocuments(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.Document, int, error) {
	var total int
	err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE tenant_id = $1`, tenantID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	query := `
		SELECT id, tenant_id, filename, file_path, file_size, content_hash, status, metadata, created_at, updated_at
		FROM documents WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	rows, err := s.db.Pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var d domain.Document
		var metadataJSON []byte
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Filename, &d.FilePath, &d.FileSize, &d.ContentHash,
			&d.Status, &metadataJSON, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		d.Metadata = make(map[string]string)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &d.Metadata); err != nil {
				return nil, 0, fmt.Errorf("unmarshal document metadata: %w", err)
			}
		}
		docs = append(docs, &d)
	}
	return docs, total, nil
}

// DeleteDocumentCascade removes every chunk row, every job row, and the
// document row itself inside one transaction, in that order, returning the
// chunk ids removed so the caller can cascade the vector index and blob
// store (see design notes: vectors -> chunks -> blobs -> document -> jobs;
// this store owns the chunks/jobs/document part of that order).
func (s *Store) DeleteDocumentCascade(ctx context.Context, documentID uuid.UUID) ([]uuid.UUID, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT id FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunk ids: %w", err)
	}
	var chunkIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan chunk id: %w", err)
		}
		chunkIDs = append(chunkIDs, id)
	}
	rows.Close()

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return nil, fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM jobs WHERE document_id = $1`, documentID); err != nil {
		return nil, fmt.Errorf("delete jobs: %w", err)
	}
	result, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, documentID)
	if err != nil {
		return nil, fmt.Errorf("delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cascade delete: %w", err)
	}
	return chunkIDs, nil
}
