package config

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = ".testkb.yml"

// embeddingDefaults maps each provider to its default model and vector size.
var embeddingDefaults = map[ProviderType]EmbeddingConfig{
	ProviderLocal:  {Provider: ProviderLocal, Model: "hash-v1", Dimensions: 384},
	ProviderOpenAI: {Provider: ProviderOpenAI, Model: "text-embedding-3-small", Dimensions: 1536},
	ProviderGoogle: {Provider: ProviderGoogle, Model: "text-embedding-004", Dimensions: 768},
	ProviderOllama: {Provider: ProviderOllama, Model: "nomic-embed-text", Dimensions: 768},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:    BackendChromem,
			Path:       "./rag_storage",
			QdrantHost: "localhost",
			QdrantPort: 6334,
		},
		Embedding: embeddingDefaults[ProviderLocal],
		Retrieval: RetrievalConfig{
			ExactThreshold:   90,
			PartialThreshold: 60,
			Floor:            30,
			SimilarityWeight: 0.7,
			SuccessWeight:    0.3,
			DefaultResults:   3,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "./rag_storage/journal.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Port: 8088,
		},
	}
}

// EmbeddingDefaults returns the default embedding settings for a provider.
// Unknown providers fall back to the local embedder.
func EmbeddingDefaults(p ProviderType) EmbeddingConfig {
	if d, ok := embeddingDefaults[p]; ok {
		return d
	}
	return embeddingDefaults[ProviderLocal]
}
