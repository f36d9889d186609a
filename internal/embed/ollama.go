package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/semaphore"

	"github.com/knoguchi/rag/internal/pipeline/errs"
)

const (
	// DefaultBaseURL is the default Ollama API base URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is the default embedding model.
	DefaultModel = "nomic-embed-text"

	// DefaultDimension matches the original system's BAAI/bge-small-en-v1.5
	// model dimension, used as the default independent of which model an
	// OllamaEmbedder is actually configured against.
	DefaultDimension = 384

	// DefaultBatchConcurrency caps concurrent in-flight embedding requests
	// during EmbedBatch.
	DefaultBatchConcurrency = 4
)

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	BaseURL          string
	Model            string
	Dimension        int
	BatchConcurrency int
	HTTPClient       *http.Client
}

// OllamaEmbedder implements Embedder against Ollama's HTTP embeddings API.
type OllamaEmbedder struct {
	baseURL   string
	model     string
	dimension int
	sem       *semaphore.Weighted
	client    *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewOllamaEmbedder wires an OllamaEmbedder, filling in defaults for any
// zero-valued field of cfg.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	concurrency := cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &OllamaEmbedder{
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
		sem:       semaphore.NewWeighted(int64(concurrency)),
		client:    client,
	}
}

// Embed generates one embedding vector.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embeddings", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errs.Wrapf(errs.ClassTransient, "send embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		class := errs.ClassInternal
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			class = errs.ClassTransient
		}
		return nil, errs.Wrapf(class, "ollama embed error (status %d): %s", resp.StatusCode, respBody)
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned from ollama")
	}

	vec := make([]float32, len(parsed.Embedding))
	for i, v := range parsed.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// EmbedBatch embeds every text concurrently, bounded by the embedder's
// semaphore, preserving input order in the result.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	done := make(chan int, len(texts))
	for i, text := range texts {
		i, text := i, text
		if err := e.sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			done <- i
			continue
		}
		go func() {
			defer e.sem.Release(1)
			vec, err := e.Embed(ctx, text)
			if err != nil {
				errs[i] = fmt.Errorf("embed text at index %d: %w", i, err)
			} else {
				results[i] = vec
			}
			done <- i
		}()
	}
	for range texts {
		<-done
	}

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("batch embed failed at index %d: %w", i, err)
		}
	}
	return results, nil
}

// Dimension returns the configured embedding width.
func (e *OllamaEmbedder) Dimension() int { return e.dimension }

// ModelName returns the configured model name.
func (e *OllamaEmbedder) ModelName() string { return e.model }

var _ Embedder = (*OllamaEmbedder)(nil)
