package indexing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rahulpr7/Agentic-RAG/internal/core"
	"github.com/rahulpr7/Agentic-RAG/internal/models"
)

var _ core.IndexingClient = (*VectorIndexer)(nil)

// ChunkStore is the slice of persistence the indexer needs.
// core.JobStore satisfies it.
type ChunkStore interface {
	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error
	SearchDocumentChunks(ctx context.Context, documentID string, queryVec []float32, limit int) ([]models.DocumentChunk, error)
}

// Config tunes the indexing client.
//
// BatchSize:    chunks embedded per provider call.
// Concurrency:  batches embedded in parallel.
// MaxAttempts:  embed attempts per batch before the call fails.
// BaseDelay:    first retry delay; doubles per attempt.
type Config struct {
	BatchSize   int
	Concurrency int
	MaxAttempts int
	BaseDelay   time.Duration
}

func (c *Config) withDefaults() Config {
	out := Config{BatchSize: 16, Concurrency: 4, MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
	if c == nil {
		return out
	}
	if c.BatchSize > 0 {
		out.BatchSize = c.BatchSize
	}
	if c.Concurrency > 0 {
		out.Concurrency = c.Concurrency
	}
	if c.MaxAttempts > 0 {
		out.MaxAttempts = c.MaxAttempts
	}
	if c.BaseDelay > 0 {
		out.BaseDelay = c.BaseDelay
	}
	return out
}

// VectorIndexer embeds chunks in batches and persists them with their vectors.
// A call either indexes every chunk and returns one id per chunk, or fails
// without inserting anything; rate-limit hiccups are absorbed by bounded
// retries on each embedding batch.
type VectorIndexer struct {
	store    ChunkStore
	embedder core.EmbeddingProvider
	cfg      Config
	log      zerolog.Logger
}

func NewVectorIndexer(store ChunkStore, embedder core.EmbeddingProvider, cfg *Config, logger zerolog.Logger) *VectorIndexer {
	return &VectorIndexer{
		store:    store,
		embedder: embedder,
		cfg:      cfg.withDefaults(),
		log:      logger.With().Str("component", "VectorIndexer").Logger(),
	}
}

// Index embeds and persists all chunks for one document. Rows are built in
// memory across all batches and written in a single insert, so a failure in
// any batch leaves nothing behind.
func (v *VectorIndexer) Index(ctx context.Context, documentID string, chunks []models.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	rows := make([]models.DocumentChunk, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.Concurrency)

	for start := 0; start < len(chunks); start += v.cfg.BatchSize {
		end := start + v.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		offset := start

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i := range batch {
				texts[i] = batch[i].Text
			}

			vecs, err := v.embedBatch(gctx, texts)
			if err != nil {
				return err
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(batch))
			}

			now := time.Now()
			for i := range batch {
				rows[offset+i] = models.DocumentChunk{
					ID:         uuid.NewString(),
					DocumentID: documentID,
					Source:     batch[i].Source,
					Page:       batch[i].Page,
					Position:   batch[i].Position,
					Text:       batch[i].Text,
					Embedding:  vecs[i],
					CreatedAt:  now,
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &core.IndexingError{Err: err}
	}

	if err := v.store.InsertDocumentChunks(ctx, rows); err != nil {
		return nil, &core.IndexingError{Err: fmt.Errorf("insert chunks: %w", err)}
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	return ids, nil
}

// Search embeds the query and returns the top-k nearest chunks of a document.
// This is the retrieval side consumed by the downstream reasoning pipeline.
func (v *VectorIndexer) Search(ctx context.Context, documentID, query string, limit int) ([]models.DocumentChunk, error) {
	vecs, err := v.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	return v.store.SearchDocumentChunks(ctx, documentID, vecs[0], limit)
}

// embedBatch retries the provider call with exponential backoff; the provider
// may be rate limited under load.
func (v *VectorIndexer) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := v.cfg.BaseDelay

	for attempt := 1; attempt <= v.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		vecs, err := v.embedder.EmbedTexts(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err

		if attempt == v.cfg.MaxAttempts {
			break
		}
		v.log.Warn().Err(err).Int("attempt", attempt).Msg("embed batch failed; retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return nil, fmt.Errorf("embed batch after %d attempts: %w", v.cfg.MaxAttempts, lastErr)
}
