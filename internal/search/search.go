// Package search implements the Search Facade (component H): embed a
// query and return tenant-scoped nearest-neighbor chunk hits.
package search

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/embed"
	"github.com/knoguchi/rag/internal/index"
)

// DefaultLimit is used when a caller passes limit <= 0.
const DefaultLimit = 10

// Facade is the Search Facade.
type Facade struct {
	embedder embed.Embedder
	vectors  index.VectorIndex
}

// New wires a search Facade over its collaborators.
func New(embedder embed.Embedder, vectors index.VectorIndex) *Facade {
	return &Facade{embedder: embedder, vectors: vectors}
}

// Search embeds query and returns the top matching chunks for tenantID,
// never crossing into another tenant's vectors regardless of what the
// index implementation does internally (belt-and-suspenders on top of the
// index's own tenant filter).
func (f *Facade) Search(ctx context.Context, tenantID uuid.UUID, query string, limit int, scoreThreshold float32) ([]index.Hit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	vector, err := f.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := f.vectors.Search(ctx, tenantID, vector, limit, scoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("search vector index: %w", err)
	}

	filtered := hits[:0]
	for _, h := range hits {
		if h.TenantID == tenantID {
			filtered = append(filtered, h)
		}
	}
	return filtered, nil
}
