// Package embedding provides text embedding via ONNX, deterministic mocks for
// tests, and an in-process LRU cache for repeated texts.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations return
// L2-normalized vectors so that inner product equals cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
