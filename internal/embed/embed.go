// Package embed defines the Embedder capability and the embed stage's
// artifact serialization format.
package embed

import "context"

// Embedder produces fixed-width dense embeddings for text. Dimension is
// fixed for the lifetime of an Embedder instance.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}
