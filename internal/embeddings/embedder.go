// Package embeddings turns knowledge text into vectors for the vector store.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/ziadkadry99/testkb/internal/config"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// ErrMissingAPIKey is returned by New when a hosted provider has no key.
var ErrMissingAPIKey = errors.New("embedding provider API key not set")

// New builds the embedder selected by cfg. API keys are read from the
// provider's conventional environment variable.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	defaults := config.EmbeddingDefaults(cfg.Provider)
	model := cfg.Model
	if model == "" {
		model = defaults.Model
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = defaults.Dimensions
	}

	switch cfg.Provider {
	case config.ProviderLocal, "":
		return NewLocalEmbedder(dims), nil
	case config.ProviderOpenAI:
		key, err := apiKey(cfg.Provider)
		if err != nil {
			return nil, err
		}
		return NewOpenAIEmbedder(key, model, dims), nil
	case config.ProviderGoogle:
		key, err := apiKey(cfg.Provider)
		if err != nil {
			return nil, err
		}
		return NewGoogleEmbedder(key, model, dims), nil
	case config.ProviderOllama:
		return NewOllamaEmbedder(model, dims, os.Getenv("OLLAMA_HOST")), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

func apiKey(p config.ProviderType) (string, error) {
	envVar := config.APIKeyEnvVar(p)
	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingAPIKey, envVar)
	}
	return key, nil
}

// normalize scales v to unit length in place. A zero vector is left as is.
func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
