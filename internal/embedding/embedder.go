// Package embedding turns chunk and query text into vectors. Implementations
// cover ONNX Runtime (local), Gemini (remote) and a deterministic hashing
// embedder for tests and offline use.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// ModelName identifies the model so stored vectors can be checked against it.
	ModelName() string
	Close() error
}
