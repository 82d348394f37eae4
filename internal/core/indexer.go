package core

import (
	"context"

	"github.com/rahulpr7/Agentic-RAG/internal/models"
)

// IndexingClient is the boundary to the chunk indexing service. Index either
// returns one opaque id per successfully indexed chunk or fails the whole call
// with an *IndexingError; callers can never observe partial success within one
// invocation. Batching and transient rate-limit retries are the client's own
// concern.
type IndexingClient interface {
	Index(ctx context.Context, documentID string, chunks []models.Chunk) ([]string, error)
}

// PageLoader converts raw file bytes into ordered page-level text units.
// Unparsable input yields a *LoadError; a validly parsed document with zero
// pages yields an empty slice and no error.
type PageLoader interface {
	Load(ctx context.Context, data []byte, filename string) ([]models.Page, error)
}
