package core

import "context"

// EmbeddingProvider turns chunk texts into embedding vectors, one per input.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
