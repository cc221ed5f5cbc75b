package config

// BackendType identifies a vector store backend.
type BackendType string

const (
	BackendChromem BackendType = "chromem"
	BackendMemory  BackendType = "memory"
	BackendQdrant  BackendType = "qdrant"
)

// ProviderType identifies an embedding provider.
type ProviderType string

const (
	ProviderLocal  ProviderType = "local"
	ProviderOpenAI ProviderType = "openai"
	ProviderGoogle ProviderType = "google"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level testkb configuration, corresponding to .testkb.yml.
type Config struct {
	Store     StoreConfig     `yaml:"store" koanf:"store"`
	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Journal   JournalConfig   `yaml:"journal" koanf:"journal"`
	Log       LogConfig       `yaml:"log" koanf:"log"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Backend    BackendType `yaml:"backend" koanf:"backend"`
	Path       string      `yaml:"path" koanf:"path"`
	Compress   bool        `yaml:"compress" koanf:"compress"`
	QdrantHost string      `yaml:"qdrant_host" koanf:"qdrant_host"`
	QdrantPort int         `yaml:"qdrant_port" koanf:"qdrant_port"`
	QdrantTLS  bool        `yaml:"qdrant_tls" koanf:"qdrant_tls"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   ProviderType `yaml:"provider" koanf:"provider"`
	Model      string       `yaml:"model" koanf:"model"`
	Dimensions int          `yaml:"dimensions" koanf:"dimensions"`
}

// RetrievalConfig holds the similarity thresholds (percentages, 0-100) and
// the fix ranking weights.
type RetrievalConfig struct {
	ExactThreshold   float64 `yaml:"exact_threshold" koanf:"exact_threshold"`
	PartialThreshold float64 `yaml:"partial_threshold" koanf:"partial_threshold"`
	Floor            float64 `yaml:"floor" koanf:"floor"`
	SimilarityWeight float64 `yaml:"similarity_weight" koanf:"similarity_weight"`
	SuccessWeight    float64 `yaml:"success_weight" koanf:"success_weight"`
	DefaultResults   int     `yaml:"default_results" koanf:"default_results"`
}

// JournalConfig controls the SQLite write journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	Path    string `yaml:"path" koanf:"path"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all" koanf:"allow_all"`
}
