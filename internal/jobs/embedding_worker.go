package jobs

import (
	"context"
	"fmt"
)

// EmbeddingBackfiller defines the interface for embedding backfill passes
type EmbeddingBackfiller interface {
	EmbedPending(ctx context.Context) error
}

// EmbeddingWorker backfills missing chunk embeddings. Each poll runs one
// bounded pass; the batching and rate limiting live in the backfiller.
type EmbeddingWorker struct {
	backfiller EmbeddingBackfiller
}

// NewEmbeddingWorker creates a new EmbeddingWorker instance
func NewEmbeddingWorker(backfiller EmbeddingBackfiller) *EmbeddingWorker {
	return &EmbeddingWorker{backfiller: backfiller}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	if err := w.backfiller.EmbedPending(ctx); err != nil {
		return fmt.Errorf("embedding backfill pass failed: %w", err)
	}
	return nil
}
