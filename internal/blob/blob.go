// Package blob defines the Blob Store capability: content-addressed,
// path-keyed byte storage, tenant-prefixed by convention but opaque to the
// store itself.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested object path does not exist.
var ErrNotFound = errors.New("object not found")

// Store is opaque byte storage keyed by object path. It does not interpret
// paths; the "{tenant_id}/..." prefix convention is enforced by callers.
type Store interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	// DeletePrefix removes every object whose path starts with prefix and
	// returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Exists(ctx context.Context, path string) (bool, error)
}
