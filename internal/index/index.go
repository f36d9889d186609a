// Package index defines the Vector Index capability: an
// approximate-nearest-neighbor index of chunk embeddings, filtered by a
// tenant_id payload field so that a search or delete can never cross a
// tenant boundary.
package index

import (
	"context"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/domain"
)

// Hit is one ranked result from Search.
type Hit struct {
	ChunkID    uuid.UUID
	DocumentID uuid.UUID
	TenantID   uuid.UUID
	ChunkIndex int
	Filename   string
	Text       string
	Score      float32
	Metadata   map[string]string
}

// VectorIndex is the pluggable ANN index capability.
type VectorIndex interface {
	// EnsureCollection creates the backing collection if it does not
	// already exist, with dim-dimensional cosine-distance vectors and a
	// keyword index on the tenant_id payload field.
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []domain.VectorPoint) error
	Search(ctx context.Context, tenantID uuid.UUID, vector []float32, limit int, scoreThreshold float32) ([]Hit, error)
	// Delete removes points by id, scoped to tenantID regardless of which
	// ids are supplied — a caller cannot delete another tenant's points by
	// guessing an identifier.
	Delete(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error
}
