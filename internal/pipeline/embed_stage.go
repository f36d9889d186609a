package pipeline

import (
	"context"
	"fmt"

	"github.com/knoguchi/rag/internal/blob"
	"github.com/knoguchi/rag/internal/domain"
	"github.com/knoguchi/rag/internal/embed"
	"github.com/knoguchi/rag/internal/index"
	"github.com/knoguchi/rag/internal/pipeline/errs"
	"github.com/knoguchi/rag/internal/queue"
	"github.com/knoguchi/rag/internal/store"
)

// EmbedAction builds the Action for the embed stage (4.E.3): read the
// chunk's text blob, embed it, upsert the vector, write the embedding
// artifact blob, record the embedding path, and let the orchestrator check
// whether the document is now complete. An embed job has no downstream job
// of its own; completion is signaled through document status instead.
func EmbedAction(blobs blob.Store, embedder embed.Embedder, vectors index.VectorIndex, metadata store.MetadataStore, orch *Orchestrator) Action {
	return func(ctx context.Context, item queue.Item, retryCount int) (func(context.Context) error, error) {
		payload, ok := item.Payload.(queue.EmbedPayload)
		if !ok {
			return nil, errs.Wrapf(errs.ClassInternal, "embed stage: unexpected payload type %T", item.Payload)
		}

		data, err := blobs.Get(ctx, payload.ChunkPath)
		if err != nil {
			return nil, errs.Wrapf(errs.ClassTransient, "read chunk text blob: %w", err)
		}
		text := string(data)

		vector, err := embedder.Embed(ctx, text)
		if err != nil {
			return nil, err // classified by the embedder (rate limit, transient HTTP failure, etc.)
		}

		point := domain.VectorPoint{
			ChunkID:    payload.ChunkID,
			Vector:     vector,
			TenantID:   payload.TenantID,
			DocumentID: payload.DocumentID,
			ChunkIndex: payload.ChunkIndex,
			Filename:   payload.Filename,
			Text:       text,
		}
		if err := vectors.Upsert(ctx, []domain.VectorPoint{point}); err != nil {
			return nil, errs.Wrapf(errs.ClassTransient, "upsert vector point: %w", err)
		}

		artifact := embed.EncodeArtifact(embedder.ModelName(), vector)
		embeddingPath := fmt.Sprintf("%s/%s/embeddings/%s", payload.TenantID, payload.DocumentID, payload.ChunkID)
		if err := blobs.Put(ctx, embeddingPath, artifact, "application/octet-stream"); err != nil {
			return nil, errs.Wrapf(errs.ClassTransient, "write embedding artifact blob: %w", err)
		}

		if err := metadata.SetChunkEmbeddingPath(ctx, payload.ChunkID, embeddingPath); err != nil {
			return nil, errs.Wrapf(errs.ClassTransient, "record chunk embedding path: %w", err)
		}

		// No downstream job: completion is driven by the document-wide
		// chunk count, checked only after the job row itself is durable.
		enqueueDownstream := func(ctx context.Context) error {
			if err := orch.OnEmbedSucceeded(ctx, payload.DocumentID); err != nil {
				return fmt.Errorf("check document completion: %w", err)
			}
			return nil
		}
		return enqueueDownstream, nil
	}
}
