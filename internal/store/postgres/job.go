package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/knoguchi/rag/internal/domain"
)

// UpsertJob inserts a job row, or updates it in place if one with the same
// id already exists. A fresh row is created only for a freshly dequeued
// item; retries within that item's handling update the same row in place
// through IncrementJobRetry, not through this method.
func (s *Store) UpsertJob(ctx context.Context, j *domain.Job) error {
	query := `
		INSERT INTO jobs (id, tenant_id, document_id, kind, status, error_message, retry_count, max_retries, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			retry_count = EXCLUDED.retry_count,
			updated_at = NOW()
	`
	_, err := s.db.Pool.Exec(ctx, query,
		j.ID, j.TenantID, j.DocumentID, j.Kind, j.Status, j.ErrorMessage,
		j.RetryCount, j.MaxRetries, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

// SetJobStatus updates a job's status and optional error message.
func (s *Store) SetJobStatus(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, errMessage string) error {
	result, err := s.db.Pool.Exec(ctx,
		`UPDATE jobs SET status = $2, error_message = NULLIF($3, ''), updated_at = NOW() WHERE id = $1`,
		jobID, status, errMessage)
	if err != nil {
		return fmt.Errorf("set job status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementJobRetry records a new retry_count on the job's single row and
// puts it back into processing, matching the retry-in-place semantics of
// the common stage handler template.
func (s *Store) IncrementJobRetry(ctx context.Context, jobID uuid.UUID, newCount int) error {
	result, err := s.db.Pool.Exec(ctx,
		`UPDATE jobs SET retry_count = $2, status = $3, updated_at = NOW() WHERE id = $1`,
		jobID, newCount, domain.JobProcessing)
	if err != nil {
		return fmt.Errorf("increment job retry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// LatestJobsByDocument returns the most recent job row per kind for a
// document, backing the status accessor's per-stage progress report.
func (s *Store) LatestJobsByDocument(ctx context.Context, documentID uuid.UUID) ([]*domain.Job, error) {
	query := `
		SELECT DISTINCT ON (kind) id, tenant_id, document_id, kind, status, COALESCE(error_message, ''), retry_count, max_retries, created_at, updated_at
		FROM jobs
		WHERE document_id = $1
		ORDER BY kind, updated_at DESC
	`
	rows, err := s.db.Pool.Query(ctx, query, documentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest jobs by document: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		var j domain.Job
		if err := rows.Scan(&j.ID, &j.TenantID, &j.DocumentID, &j.Kind, &j.Status, &j.ErrorMessage,
			&j.RetryCount, &j.MaxRetries, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, nil
}
