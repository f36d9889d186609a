package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/knoguchi/rag/internal/domain"
)

// CreateTenant inserts a new tenant row.
func (s *Store) CreateTenant(ctx context.Context, t *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, rate_limit, credential_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.Pool.Exec(ctx, query, t.ID, t.Name, t.RateLimit, t.CredentialHash, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// GetTenant retrieves a tenant by id.
func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `SELECT id, name, rate_limit, credential_hash, created_at FROM tenants WHERE id = $1`
	return s.scanTenant(ctx, query, id)
}

// GetTenantByCredentialHash looks a tenant up by its hashed credential, the
// operation the (excluded) auth layer would call to resolve a request.
func (s *Store) GetTenantByCredentialHash(ctx context.Context, hash string) (*domain.Tenant, error) {
	query := `SELECT id, name, rate_limit, credential_hash, created_at FROM tenants WHERE credential_hash = $1`
	return s.scanTenant(ctx, query, hash)
}

func (s *Store) scanTenant(ctx context.Context, query string, args ...any) (*domain.Tenant, error) {
	var t domain.Tenant
	err := s.db.Pool.QueryRow(ctx, query, args...).Scan(&t.ID, &t.Name, &t.RateLimit, &t.CredentialHash, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// DeleteTenant removes the tenant row. Cascading deletion of its documents,
// chunks, jobs, vectors, and blobs is an operator-level orchestration step,
// not something this single-table delete does on its own (see
// pipeline.Orchestrator.DeleteTenant).
func (s *Store) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
