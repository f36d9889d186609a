package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/blob"
	"github.com/knoguchi/rag/internal/domain"
	"github.com/knoguchi/rag/internal/index"
	"github.com/knoguchi/rag/internal/store"
)

// Orchestrator implements Document Orchestration (component F): a thin
// set of rules that advance a document's aggregate status from stage
// completions. It does not own a process; its methods are invoked from
// stage workers after the triggering job status write, and from the
// facades for deletion and status reporting. Each method issues its own
// store calls; none of them shares a transaction with the job status
// write, and OnEmbedSucceeded's count read and status write are two
// separate calls.
type Orchestrator struct {
	store   store.MetadataStore
	index   index.VectorIndex
	blobs   blob.Store
}

// NewOrchestrator wires an Orchestrator over the three stores it
// coordinates deletion and status across.
func NewOrchestrator(s store.MetadataStore, idx index.VectorIndex, b blob.Store) *Orchestrator {
	return &Orchestrator{store: s, index: idx, blobs: b}
}

// OnFirstExtractAttempt transitions a freshly-created document from
// pending to processing, on the first attempt at its extract job.
func (o *Orchestrator) OnFirstExtractAttempt(ctx context.Context, documentID uuid.UUID) error {
	return o.store.SetDocumentStatus(ctx, documentID, domain.DocumentProcessing)
}

// OnStageTerminalFailure marks documentID failed: any stage exhausting its
// retry budget, or producing no content, terminates the document.
func (o *Orchestrator) OnStageTerminalFailure(ctx context.Context, documentID uuid.UUID) error {
	return o.store.SetDocumentStatus(ctx, documentID, domain.DocumentFailed)
}

// OnEmbedSucceeded re-reads the document's chunk-completion counters and,
// iff every chunk now has an embedding and there is at least one chunk,
// transitions the document to completed. Reads CountDocumentChunks after
// the embedding write is durable, so this is safe to call once per
// successful embed without additional locking: the transition itself is
// idempotent (a no-op if the document is already completed).
func (o *Orchestrator) OnEmbedSucceeded(ctx context.Context, documentID uuid.UUID) error {
	total, withEmbedding, err := o.store.CountDocumentChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("count document chunks: %w", err)
	}
	if total > 0 && total == withEmbedding {
		return o.store.SetDocumentStatus(ctx, documentID, domain.DocumentCompleted)
	}
	return nil
}

// DocumentStatus implements the status accessor: aggregate status plus
// one progress entry per stage that has run.
func (o *Orchestrator) DocumentStatus(ctx context.Context, documentID uuid.UUID) (domain.DocumentStatusReport, error) {
	doc, err := o.store.GetDocument(ctx, documentID)
	if err != nil {
		return domain.DocumentStatusReport{}, fmt.Errorf("get document: %w", err)
	}

	jobs, err := o.store.LatestJobsByDocument(ctx, documentID)
	if err != nil {
		return domain.DocumentStatusReport{}, fmt.Errorf("latest jobs by document: %w", err)
	}

	stages := make([]domain.StageProgress, 0, len(jobs))
	for _, j := range jobs {
		stages = append(stages, domain.StageProgress{
			Kind:         j.Kind,
			Status:       j.Status,
			ErrorMessage: j.ErrorMessage,
			RetryCount:   j.RetryCount,
		})
	}

	return domain.DocumentStatusReport{
		DocumentID: documentID,
		Status:     doc.Status,
		Stages:     stages,
	}, nil
}

// DeleteDocument removes every shadow representation of a document in this
// order: vector points, then the chunk, job and document rows (one store
// transaction, in that order), then every blob under the document's path
// prefix. Blobs are removed after the rows, not between chunks and the
// document row.
func (o *Orchestrator) DeleteDocument(ctx context.Context, tenantID, documentID uuid.UUID) error {
	chunks, err := o.store.GetChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get chunks for deletion: %w", err)
	}

	chunkIDs := make([]uuid.UUID, len(chunks))
	for i, c := range chunks {
		chunkIDs[i] = c.ID
	}
	if len(chunkIDs) > 0 {
		if err := o.index.Delete(ctx, tenantID, chunkIDs); err != nil {
			return fmt.Errorf("delete vector points: %w", err)
		}
	}

	// DeleteDocumentCascade removes the chunk and job rows and the
	// document row itself in one transaction; the store-side half of the
	// documented cascade order.
	if _, err := o.store.DeleteDocumentCascade(ctx, documentID); err != nil {
		return fmt.Errorf("delete document cascade: %w", err)
	}

	prefix := fmt.Sprintf("%s/%s/", tenantID, documentID)
	if _, err := o.blobs.DeletePrefix(ctx, prefix); err != nil {
		return fmt.Errorf("delete document blobs: %w", err)
	}

	return nil
}

// DeleteTenant cascades deletion across every document a tenant owns,
// then its tenant row, matching the lifecycle spec.md §3 describes:
// "deleted by operator (cascades to documents, chunks, jobs, vectors,
// blobs with the tenant's path prefix)".
func (o *Orchestrator) DeleteTenant(ctx context.Context, tenantID uuid.UUID) error {
	const pageSize = 100
	for {
		// Always read the first page: documents deleted in the previous
		// pass no longer appear in the listing.
		docs, _, err := o.store.ListDocuments(ctx, tenantID, pageSize, 0)
		if err != nil {
			return fmt.Errorf("list tenant documents: %w", err)
		}
		if len(docs) == 0 {
			break
		}
		for _, d := range docs {
			if err := o.DeleteDocument(ctx, tenantID, d.ID); err != nil {
				return fmt.Errorf("delete document %s: %w", d.ID, err)
			}
		}
	}

	if _, err := o.blobs.DeletePrefix(ctx, tenantID.String()+"/"); err != nil {
		return fmt.Errorf("delete tenant blob prefix: %w", err)
	}
	return o.store.DeleteTenant(ctx, tenantID)
}
