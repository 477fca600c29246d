package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// maxGeminiBatch is the largest batch the embedding endpoint accepts.
const maxGeminiBatch = 100

// GeminiEmbedder calls the Gemini embedding endpoint. The client is owned by
// the caller; Close does not close it.
type GeminiEmbedder struct {
	model      *genai.EmbeddingModel
	name       string
	dimensions int
	cache      *EmbeddingCache
}

// NewGeminiEmbedder wraps client's embedding model name (e.g. "text-embedding-004").
func NewGeminiEmbedder(client *genai.Client, name string, dimensions, cacheSize int) (*GeminiEmbedder, error) {
	if client == nil {
		return nil, errors.New("gemini client is required")
	}
	if err := checkDims(dimensions, 1); err != nil {
		return nil, err
	}
	return &GeminiEmbedder{
		model:      client.EmbeddingModel(name),
		name:       name,
		dimensions: dimensions,
		cache:      NewEmbeddingCache(cacheSize),
	}, nil
}

// Embed returns the embedding for text, using cache when available.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	resp, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", err)
	}
	if resp.Embedding == nil {
		return nil, errors.New("gemini returned no embedding")
	}
	if err := e.checkLen(resp.Embedding.Values); err != nil {
		return nil, err
	}
	e.cache.Set(text, resp.Embedding.Values)
	return resp.Embedding.Values, nil
}

// EmbedBatch embeds texts in requests of at most 100, skipping cached texts.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var pending []int
	for i, t := range texts {
		if cached, ok := e.cache.Get(t); ok {
			out[i] = cached
			continue
		}
		pending = append(pending, i)
	}
	for start := 0; start < len(pending); start += maxGeminiBatch {
		end := start + maxGeminiBatch
		if end > len(pending) {
			end = len(pending)
		}
		batch := e.model.NewBatch()
		for _, idx := range pending[start:end] {
			batch.AddContent(genai.Text(texts[idx]))
		}
		resp, err := e.model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("gemini batch embed failed: %w", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), end-start)
		}
		for j, emb := range resp.Embeddings {
			if err := e.checkLen(emb.Values); err != nil {
				return nil, err
			}
			idx := pending[start+j]
			out[idx] = emb.Values
			e.cache.Set(texts[idx], emb.Values)
		}
	}
	return out, nil
}

func (e *GeminiEmbedder) checkLen(v []float32) error {
	if len(v) != e.dimensions {
		return fmt.Errorf("gemini embedding has %d dimensions, configured %d", len(v), e.dimensions)
	}
	return nil
}

// Dimensions returns the embedding dimension.
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the Gemini embedding model name.
func (e *GeminiEmbedder) ModelName() string {
	return e.name
}

// Close is a no-op; the client belongs to the caller.
func (e *GeminiEmbedder) Close() error {
	return nil
}
