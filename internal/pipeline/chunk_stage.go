package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/blob"
	"github.com/knoguchi/rag/internal/domain"
	"github.com/knoguchi/rag/internal/pipeline/errs"
	"github.com/knoguchi/rag/internal/queue"
	"github.com/knoguchi/rag/internal/store"
)

// ChunkConfig carries the tunables the chunk stage needs from config.Config
// without importing it directly (avoids a config<->pipeline import cycle
// if config ever needs pipeline types).
type ChunkConfig struct {
	ChunkSizeTokens    int
	ChunkOverlapTokens int
}

// ChunkAction builds the Action for the chunk stage (4.E.2): read the
// extracted text blob, segment it with the character-approximate
// algorithm, persist each chunk's text and row, and enqueue one embed job
// per chunk. A chunk insert colliding on (document_id, chunk_index) under
// at-least-once redelivery is treated as idempotent success for that
// chunk, not a stage failure.
func ChunkAction(blobs blob.Store, metadata store.MetadataStore, q queue.Queue, orch *Orchestrator, cfg ChunkConfig) Action {
	return func(ctx context.Context, item queue.Item, retryCount int) (func(context.Context) error, error) {
		payload, ok := item.Payload.(queue.ChunkPayload)
		if !ok {
			return nil, errs.Wrapf(errs.ClassInternal, "chunk stage: unexpected payload type %T", item.Payload)
		}

		data, err := blobs.Get(ctx, payload.TextPath)
		if err != nil {
			return nil, errs.Wrapf(errs.ClassTransient, "read extracted text blob: %w", err)
		}

		segments := chunkText(string(data), cfg.ChunkSizeTokens, cfg.ChunkOverlapTokens)
		if len(segments) == 0 {
			if err := orch.OnStageTerminalFailure(ctx, payload.DocumentID); err != nil {
				return nil, errs.Wrapf(errs.ClassTransient, "fail empty document: %w", err)
			}
			return nil, errs.Wrapf(errs.ClassInvalidInput, "document %s produced no chunks", payload.DocumentID)
		}

		persisted := make([]domain.Chunk, 0, len(segments))
		for _, seg := range segments {
			chunkID := uuid.New()
			chunkPath := fmt.Sprintf("%s/%s/chunks/%s", payload.TenantID, payload.DocumentID, chunkID)

			if err := blobs.Put(ctx, chunkPath, []byte(seg.Text), "text/plain"); err != nil {
				return nil, errs.Wrapf(errs.ClassTransient, "write chunk blob: %w", err)
			}

			chunk := domain.Chunk{
				ID:         chunkID,
				DocumentID: payload.DocumentID,
				TenantID:   payload.TenantID,
				ChunkIndex: seg.Index,
				Text:       seg.Text,
			}
			err := metadata.InsertChunk(ctx, &chunk)
			if err != nil {
				if errors.Is(err, domain.ErrDuplicateChunkIndex) {
					// Another attempt already persisted this index; skip
					// and continue with the rest of the batch.
					continue
				}
				return nil, errs.Wrapf(errs.ClassTransient, "insert chunk row: %w", err)
			}
			persisted = append(persisted, chunk)
		}

		enqueueDownstream := func(ctx context.Context) error {
			for _, c := range persisted {
				chunkPath := fmt.Sprintf("%s/%s/chunks/%s", payload.TenantID, payload.DocumentID, c.ID)
				err := q.Enqueue(ctx, payload.TenantID, domain.JobEmbed, queue.EmbedPayload{
					ChunkID:    c.ID,
					DocumentID: payload.DocumentID,
					TenantID:   payload.TenantID,
					ChunkPath:  chunkPath,
					ChunkIndex: c.ChunkIndex,
					Filename:   payload.Filename,
				}, 0)
				if err != nil {
					return fmt.Errorf("enqueue embed job for chunk %s: %w", c.ID, err)
				}
			}
			return nil
		}
		return enqueueDownstream, nil
	}
}
