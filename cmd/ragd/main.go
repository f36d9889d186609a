package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/blob"
	"github.com/knoguchi/rag/internal/clock"
	"github.com/knoguchi/rag/internal/config"
	"github.com/knoguchi/rag/internal/embed"
	"github.com/knoguchi/rag/internal/extract"
	"github.com/knoguchi/rag/internal/index"
	"github.com/knoguchi/rag/internal/pipeline"
	"github.com/knoguchi/rag/internal/queue"
	"github.com/knoguchi/rag/internal/store"
	"github.com/knoguchi/rag/internal/store/postgres"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run pipeline", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting ingestion pipeline",
		"environment", cfg.Environment,
		"extract_workers", cfg.ExtractWorkers,
		"chunk_workers", cfg.ChunkWorkers,
		"embed_workers", cfg.EmbedWorkers,
	)

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("connected to PostgreSQL")

	metadataStore := postgres.NewStore(db)

	vectorIndex, err := index.NewQdrantIndex(cfg.QdrantGRPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	if err := vectorIndex.EnsureCollection(ctx, cfg.EmbeddingDim); err != nil {
		return fmt.Errorf("failed to ensure qdrant collection: %w", err)
	}
	slog.Info("connected to Qdrant")

	blobStore, err := blob.NewFSStore(cfg.BlobStoreRoot)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	embedder := embed.NewOllamaEmbedder(embed.OllamaConfig{
		BaseURL:          cfg.OllamaURL,
		Model:            cfg.OllamaEmbeddingModel,
		Dimension:        cfg.EmbeddingDim,
		BatchConcurrency: cfg.EmbedWorkers,
	})
	slog.Info("initialized Ollama embedder", "model", cfg.OllamaEmbeddingModel)

	extractor := extract.NewDispatcher()
	clk := clock.System{}
	scheduler := queue.NewScheduler(clk)
	orchestrator := pipeline.NewOrchestrator(metadataStore, vectorIndex, blobStore)

	policy := pipeline.RetryPolicy{
		MaxRetries:  cfg.MaxRetries,
		BackoffBase: cfg.RetryBackoffBase,
		BackoffCap:  time.Duration(cfg.RetryBackoffCap) * time.Second,
	}
	pollInterval := time.Duration(cfg.QueuePollInterval) * time.Second

	onTerminalFailure := func(ctx context.Context, item queue.Item, err error) {
		id := documentIDFromItem(item)
		if failErr := orchestrator.OnStageTerminalFailure(ctx, id); failErr != nil {
			slog.Error("failed to mark document failed", "document_id", id, "error", failErr)
		}
	}

	extractWorkers := spawnWorkers(ctx, cfg.ExtractWorkers, func() *pipeline.Worker {
		return &pipeline.Worker{
			Kind:              "extract",
			Queue:             scheduler,
			Store:             metadataStore,
			Clock:             clk,
			Logger:            slog.Default(),
			Policy:            policy,
			PollInterval:      pollInterval,
			Action:            pipeline.ExtractAction(blobStore, extractor, metadataStore, scheduler, orchestrator),
			OnTerminalFailure: onTerminalFailure,
		}
	})

	chunkWorkers := spawnWorkers(ctx, cfg.ChunkWorkers, func() *pipeline.Worker {
		return &pipeline.Worker{
			Kind:         "chunk",
			Queue:        scheduler,
			Store:        metadataStore,
			Clock:        clk,
			Logger:       slog.Default(),
			Policy:       policy,
			PollInterval: pollInterval,
			Action: pipeline.ChunkAction(blobStore, metadataStore, scheduler, orchestrator, pipeline.ChunkConfig{
				ChunkSizeTokens:    cfg.ChunkSizeTokens,
				ChunkOverlapTokens: cfg.ChunkOverlapTokens,
			}),
			OnTerminalFailure: onTerminalFailure,
		}
	})

	embedWorkers := spawnWorkers(ctx, cfg.EmbedWorkers, func() *pipeline.Worker {
		return &pipeline.Worker{
			Kind:              "embed",
			Queue:             scheduler,
			Store:             metadataStore,
			Clock:             clk,
			Logger:            slog.Default(),
			Policy:            policy,
			PollInterval:      pollInterval,
			Action:            pipeline.EmbedAction(blobStore, embedder, vectorIndex, metadataStore, orchestrator),
			OnTerminalFailure: onTerminalFailure,
		}
	})

	var wg sync.WaitGroup
	runAll(&wg, ctx, extractWorkers)
	runAll(&wg, ctx, chunkWorkers)
	runAll(&wg, ctx, embedWorkers)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received shutdown signal", "signal", sig)

	cancel()
	wg.Wait()
	slog.Info("pipeline stopped")
	return nil
}

// spawnWorkers constructs n workers from factory, one per concurrent stage
// slot.
func spawnWorkers(_ context.Context, n int, factory func() *pipeline.Worker) []*pipeline.Worker {
	workers := make([]*pipeline.Worker, n)
	for i := range workers {
		workers[i] = factory()
	}
	return workers
}

// runAll starts each worker's Run loop in its own goroutine, tracked by wg
// so the caller can wait for a graceful drain after ctx is cancelled.
func runAll(wg *sync.WaitGroup, ctx context.Context, workers []*pipeline.Worker) {
	for _, w := range workers {
		wg.Add(1)
		go func(w *pipeline.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}
}

func documentIDFromItem(item queue.Item) uuid.UUID {
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

// Ensure interfaces are satisfied at compile time.
var (
	_ store.MetadataStore   = (*postgres.Store)(nil)
	_ index.VectorIndex     = (*index.QdrantIndex)(nil)
	_ blob.Store            = (*blob.FSStore)(nil)
	_ embed.Embedder        = (*embed.OllamaEmbedder)(nil)
	_ extract.TextExtractor = (*extract.Dispatcher)(nil)
)
