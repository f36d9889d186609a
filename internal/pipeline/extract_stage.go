package pipeline

import (
	"context"
	"fmt"

	"github.com/knoguchi/rag/internal/blob"
	"github.com/knoguchi/rag/internal/domain"
	"github.com/knoguchi/rag/internal/extract"
	"github.com/knoguchi/rag/internal/pipeline/errs"
	"github.com/knoguchi/rag/internal/queue"
	"github.com/knoguchi/rag/internal/store"
)

// ExtractAction builds the Action for the extract stage (4.E.1): read the
// source blob, dispatch to a TextExtractor, write the extracted text
// blob, update document metadata, and enqueue one chunk job.
func ExtractAction(blobs blob.Store, extractor extract.TextExtractor, metadata store.MetadataStore, q queue.Queue, orch *Orchestrator) Action {
	return func(ctx context.Context, item queue.Item, retryCount int) (func(context.Context) error, error) {
		payload, ok := item.Payload.(queue.ExtractPayload)
		if !ok {
			return nil, errs.Wrapf(errs.ClassInternal, "extract stage: unexpected payload type %T", item.Payload)
		}

		if retryCount == 0 {
			if err := orch.OnFirstExtractAttempt(ctx, payload.DocumentID); err != nil {
				return nil, errs.Wrapf(errs.ClassTransient, "transition document to processing: %w", err)
			}
		}

		data, err := blobs.Get(ctx, payload.FilePath)
		if err != nil {
			return nil, errs.Wrapf(errs.ClassTransient, "read source blob %s: %w", payload.FilePath, err)
		}

		text, err := extractor.Extract(ctx, data, payload.Filename)
		if err != nil {
			return nil, err // already classified by the extractor (InvalidInput for bad format/empty text)
		}

		textPath := fmt.Sprintf("%s/%s/extracted_text.txt", payload.TenantID, payload.DocumentID)
		if err := blobs.Put(ctx, textPath, []byte(text), "text/plain"); err != nil {
			return nil, errs.Wrapf(errs.ClassTransient, "write extracted text blob: %w", err)
		}

		meta := map[string]string{
			"text_path":   textPath,
			"text_length": fmt.Sprintf("%d", len(text)),
		}
		if err := metadata.SetDocumentMetadata(ctx, payload.DocumentID, meta); err != nil {
			return nil, errs.Wrapf(errs.ClassTransient, "update document metadata: %w", err)
		}

		enqueueDownstream := func(ctx context.Context) error {
			return q.Enqueue(ctx, payload.TenantID, domain.JobChunk, queue.ChunkPayload{
				DocumentID: payload.DocumentID,
				TenantID:   payload.TenantID,
				TextPath:   textPath,
				Filename:   payload.Filename,
			}, 0)
		}
		return enqueueDownstream, nil
	}
}
