package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rahulpr7/Agentic-RAG/internal/config"
	"github.com/rahulpr7/Agentic-RAG/internal/core"
	db "github.com/rahulpr7/Agentic-RAG/internal/core/database"
	"github.com/rahulpr7/Agentic-RAG/internal/core/indexing"
	"github.com/rahulpr7/Agentic-RAG/internal/core/ingestion_engine"
	"github.com/rahulpr7/Agentic-RAG/internal/core/llm"
	"github.com/rahulpr7/Agentic-RAG/internal/core/loader"
	objectclient "github.com/rahulpr7/Agentic-RAG/internal/core/object-client"
	"github.com/rahulpr7/Agentic-RAG/internal/core/splitter"
	"github.com/rahulpr7/Agentic-RAG/internal/services"
)

// App owns every long-lived component: the store, object storage, the
// embedder, the runner pool and the HTTP server.
type App struct {
	Store    core.JobStore
	Objects  core.ObjectClient
	Embedder *llm.GeminiEmbedder
	Pool     *ingestion_engine.Pool
	Service  *services.IngestService
	Server   *Server

	log zerolog.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	logger.Info().Msg("database initialized and ready")

	objects, err := objectclient.NewS3Client(appCtx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize object storage: %w", err)
	}
	logger.Info().Msg("object client initialized and ready")

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	pdfLoader := loader.NewPDFLoader(logger)
	chunker := splitter.New(cfg.ChunkSize, cfg.ChunkOverlapPct)
	indexer := indexing.NewVectorIndexer(store, embedder, &indexing.Config{BatchSize: cfg.EmbedBatchSize}, logger)

	runner := ingestion_engine.NewRunner(store, objects, pdfLoader, chunker, indexer, logger)
	pool, err := ingestion_engine.NewPool(cfg.IngestWorkers, runner, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize runner pool: %w", err)
	}

	service := services.NewIngestService(store, objects, pool, cfg.BucketName, logger)
	server := NewServer(cfg, service, logger)

	return &App{
		Store:    store,
		Objects:  objects,
		Embedder: embedder,
		Pool:     pool,
		Service:  service,
		Server:   server,
		log:      logger,
	}, nil
}

// Close releases background workers and connections. In-flight runners are
// given no grace period beyond the pool's own release semantics; their status
// writes are retried independently.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Release()
	}
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
