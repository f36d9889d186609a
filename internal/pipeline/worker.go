package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/clock"
	"github.com/knoguchi/rag/internal/domain"
	"github.com/knoguchi/rag/internal/pipeline/errs"
	"github.com/knoguchi/rag/internal/queue"
	"github.com/knoguchi/rag/internal/store"
)

// Action is the kind-specific part of a stage handler: perform the work
// for item (on attempt number retryCount, 0-based), and on success return
// a closure that enqueues whatever downstream job(s) this stage produces.
// The closure is invoked by the worker only after the job's completed
// status is durable, preserving the fan-out-closure invariant (I4).
type Action func(ctx context.Context, item queue.Item, retryCount int) (enqueueDownstream func(context.Context) error, err error)

// RetryPolicy bounds how many times and how long a worker retries a
// failed item in-process before giving up.
type RetryPolicy struct {
	MaxRetries  int
	BackoffBase float64
	BackoffCap  time.Duration
}

func (p RetryPolicy) backoff(retryCount int) time.Duration {
	seconds := 1.0
	for i := 0; i < retryCount; i++ {
		seconds *= p.BackoffBase
	}
	d := time.Duration(seconds * float64(time.Second))
	if p.BackoffCap > 0 && d > p.BackoffCap {
		return p.BackoffCap
	}
	return d
}

// Worker runs one stage's handler loop: dequeue an item of Kind, run
// Action against it with the shared retry/backoff template, sleep on an
// empty queue. A shutdown signal (ctx cancellation) ends the loop after
// the current item finishes.
type Worker struct {
	Kind         domain.JobKind
	Queue        queue.Queue
	Store        store.MetadataStore
	Clock        clock.Clock
	Logger       *slog.Logger
	Policy       RetryPolicy
	PollInterval time.Duration
	Action       Action
	// OnTerminalFailure is called once a job has exhausted its retry
	// budget or failed non-retriably, letting the caller apply
	// stage-specific document-status consequences (Document
	// Orchestration rule F: any stage failing terminally -> document
	// failed).
	OnTerminalFailure func(ctx context.Context, item queue.Item, err error)
}

// Run loops until ctx is cancelled, processing one item at a time. A
// cancellation is only honored between items: a dequeued item always
// finishes its handler (including in-process retry backoff) before the
// loop checks ctx again, matching the graceful-drain shutdown policy.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		item, ok := w.Queue.Dequeue(ctx, w.Kind)
		if !ok {
			w.Clock.Sleep(w.PollInterval)
			continue
		}

		w.runItem(ctx, item)
	}
}

func (w *Worker) runItem(ctx context.Context, item queue.Item) {
	log := w.Logger.With("tenant_id", item.TenantID, "document_id", documentIDOf(item), "kind", item.Kind, "job_id", item.ID)
	retryCount := 0

	for {
		if retryCount == 0 {
			job := &domain.Job{
				ID:         item.ID,
				TenantID:   item.TenantID,
				Kind:       item.Kind,
				Status:     domain.JobProcessing,
				RetryCount: 0,
				MaxRetries: w.Policy.MaxRetries,
				CreatedAt:  w.Clock.Now(),
				UpdatedAt:  w.Clock.Now(),
			}
			job.DocumentID = documentIDOf(item)
			if err := w.Store.UpsertJob(ctx, job); err != nil {
				log.Error("job row create failed", "error", err)
			}
			log.Info("job dispatched")
		} else if err := w.Store.IncrementJobRetry(ctx, item.ID, retryCount); err != nil {
			log.Error("job retry update failed", "error", err)
		}

		enqueueDownstream, err := w.Action(ctx, item, retryCount)

		if err == nil || errs.Idempotent(err) {
			if setErr := w.Store.SetJobStatus(ctx, item.ID, domain.JobCompleted, ""); setErr != nil {
				log.Error("job completion write failed", "error", setErr)
			}
			log.Info("job completed", "retry_count", retryCount)
			if enqueueDownstream != nil {
				if deErr := enqueueDownstream(ctx); deErr != nil {
					log.Error("downstream enqueue failed", "error", deErr)
				}
			}
			return
		}

		if !errs.Retriable(err) {
			w.fail(ctx, log, item, err, retryCount)
			return
		}

		retryCount++
		if retryCount > w.Policy.MaxRetries {
			w.fail(ctx, log, item, err, retryCount)
			return
		}

		backoff := w.Policy.backoff(retryCount)
		log.Warn("job retrying", "retry_count", retryCount, "backoff", backoff, "error", err)
		w.Clock.Sleep(backoff)
	}
}

func (w *Worker) fail(ctx context.Context, log *slog.Logger, item queue.Item, err error, retryCount int) {
	if setErr := w.Store.SetJobStatus(ctx, item.ID, domain.JobFailed, err.Error()); setErr != nil {
		log.Error("job failure write failed", "error", setErr)
	}
	log.Error("job failed", "retry_count", retryCount, "error", err)
	if w.OnTerminalFailure != nil {
		w.OnTerminalFailure(ctx, item, err)
	}
}

// documentIDOf extracts the owning document id from whichever payload
// variant item carries.
func documentIDOf(item queue.Item) uuid.UUID {
	switch p := item.Payload.(type) {
	case queue.ExtractPayload:
		return p.DocumentID
	case queue.ChunkPayload:
		return p.DocumentID
	case queue.EmbedPayload:
		return p.DocumentID
	}
	return uuid.UUID{}
}
