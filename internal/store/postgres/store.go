package postgres

import "github.com/knoguchi/rag/internal/store"

// Store implements store.MetadataStore over a shared *DB. Table-specific
// methods live in tenant.go, document.go, chunk.go, and job.go.
type Store struct {
	db *DB
}

// NewStore wraps db as a store.MetadataStore.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.db.Close()
}

var _ store.MetadataStore = (*Store)(nil)
