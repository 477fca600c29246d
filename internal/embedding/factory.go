package embedding

import (
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"github.com/hyperjump/scireview/internal/config"
	"github.com/hyperjump/scireview/pkg/utils"
)

// Provider names accepted in config.
const (
	ProviderONNX   = "onnx"
	ProviderGemini = "gemini"
	ProviderHash   = "hash"
)

// New builds the embedder selected by cfg.Provider. When the Gemini provider
// has no client or the ONNX runtime cannot start, New logs a warning and
// falls back to the hash embedder so the CLI stays usable.
func New(cfg config.EmbeddingConfig, client *genai.Client, logger *zap.Logger) (Embedder, error) {
	logger = utils.LoggerOrNop(logger)
	switch cfg.Provider {
	case ProviderGemini:
		if client == nil {
			logger.Warn("GEMINI_API_KEY not set, using hash embedder")
			return NewHashEmbedder(cfg.Dimensions), nil
		}
		return NewGeminiEmbedder(client, cfg.Model, cfg.Dimensions, cfg.CacheSize)
	case ProviderONNX:
		emb, err := NewONNXEmbedder(ONNXOptions{
			Name:       cfg.Model,
			ModelPath:  cfg.ModelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
			CacheSize:  cfg.CacheSize,
		})
		if err != nil {
			logger.Warn("ONNX embedder unavailable, using hash embedder", zap.Error(err))
			return NewHashEmbedder(cfg.Dimensions), nil
		}
		return emb, nil
	case ProviderHash, "":
		return NewHashEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

func checkDims(dimensions, maxTokens int) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	if maxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}
	return nil
}
