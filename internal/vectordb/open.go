package vectordb

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ziadkadry99/testkb/internal/config"
	"github.com/ziadkadry99/testkb/internal/embeddings"
)

// Open builds the backend selected by cfg.Backend.
func Open(cfg config.StoreConfig, embedder embeddings.Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendChromem, "":
		return NewChromemStore(cfg.Path, cfg.Compress, embedder, logger)
	case config.BackendMemory:
		return NewMemoryStore(embedder), nil
	case config.BackendQdrant:
		return NewQdrantStore(QdrantConfig{
			Host:   cfg.QdrantHost,
			Port:   cfg.QdrantPort,
			UseTLS: cfg.QdrantTLS,
			APIKey: os.Getenv("QDRANT_API_KEY"),
		}, embedder, logger)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}
