package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/knoguchi/rag/internal/domain"
)

// InsertChunk inserts a chunk row. A unique constraint on
// (document_id, chunk_index) makes a duplicate insert under at-least-once
// delivery return domain.ErrDuplicateChunkIndex, which stage workers treat
// as idempotent success rather than failure.
func (s *Store) InsertChunk(ctx context.Context, c *domain.Chunk) error {
	query := `
		INSERT INTO chunks (id, document_id, tenant_id, chunk_index, text, embedding_path, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
	`
	_, err := s.db.Pool.Exec(ctx, query, c.ID, c.DocumentID, c.TenantID, c.ChunkIndex, c.Text, c.EmbeddingPath, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateChunkIndex
		}
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

// SetChunkEmbeddingPath records where the embed stage persisted this
// chunk's embedding artifact.
func (s *Store) SetChunkEmbeddingPath(ctx context.Context, chunkID uuid.UUID, path string) error {
	result, err := s.db.Pool.Exec(ctx, `UPDATE chunks SET embedding_path = $2 WHERE id = $1`, chunkID, path)
	if err != nil {
		return fmt.Errorf("set chunk embedding path: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetChunks returns every chunk of a document ordered by chunk_index.
func (s *Store) GetChunks(ctx context.Context, documentID uuid.UUID) ([]*domain.Chunk, error) {
	query := `
		SELECT id, document_id, tenant_id, chunk_index, text, COALESCE(embedding_path, ''), created_at
		FROM chunks WHERE document_id = $1 ORDER BY chunk_index
	`
	rows, err := s.db.Pool.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.TenantID, &c.ChunkIndex, &c.Text, &c.EmbeddingPath, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, &c)
	}
	return chunks, nil
}

// CountDocumentChunks is the atomic predicate the embed stage uses to
// decide whether a document is fully embedded. Reads happen through a
// single query so there is one consistent snapshot of both counts.
func (s *Store) CountDocumentChunks(ctx context.Context, documentID uuid.UUID) (total, withEmbedding int, err error) {
	query := `
		SELECT COUNT(*), COUNT(embedding_path)
		FROM chunks WHERE document_id = $1
	`
	row := s.db.Pool.QueryRow(ctx, query, documentID)
	if scanErr := row.Scan(&total, &withEmbedding); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("count document chunks: %w", scanErr)
	}
	return total, withEmbedding, nil
}
