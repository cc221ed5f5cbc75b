package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "TESTKB_"

// sections lists the top-level keys that env overrides can address.
var sections = []string{"store", "embedding", "retrieval", "journal", "log", "server"}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (TESTKB_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// TESTKB_STORE_BACKEND -> store.backend, TESTKB_RETRIEVAL_EXACT_THRESHOLD -> retrieval.exact_threshold
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps an environment variable name to a koanf key path.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validBackends = map[BackendType]bool{
	BackendChromem: true,
	BackendMemory:  true,
	BackendQdrant:  true,
}

var validProviders = map[ProviderType]bool{
	ProviderLocal:  true,
	ProviderOpenAI: true,
	ProviderGoogle: true,
	ProviderOllama: true,
}

var validLogFormats = map[string]bool{
	"console": true,
	"json":    true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store.backend %q: must be one of chromem, memory, qdrant", c.Store.Backend)
	}
	if c.Store.Backend == BackendChromem && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for the chromem backend")
	}
	if c.Store.Backend == BackendQdrant {
		if c.Store.QdrantHost == "" {
			return fmt.Errorf("store.qdrant_host is required for the qdrant backend")
		}
		if c.Store.QdrantPort <= 0 || c.Store.QdrantPort > 65535 {
			return fmt.Errorf("invalid store.qdrant_port %d", c.Store.QdrantPort)
		}
	}

	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding.provider %q: must be one of local, openai, google, ollama", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must be non-negative")
	}

	r := c.Retrieval
	if r.Floor < 0 || r.ExactThreshold > 100 {
		return fmt.Errorf("retrieval thresholds must lie within [0,100]")
	}
	if r.Floor > r.PartialThreshold || r.PartialThreshold > r.ExactThreshold {
		return fmt.Errorf("retrieval thresholds must satisfy floor <= partial_threshold <= exact_threshold")
	}
	if r.SimilarityWeight < 0 || r.SuccessWeight < 0 {
		return fmt.Errorf("retrieval weights must be non-negative")
	}
	if r.SimilarityWeight+r.SuccessWeight == 0 {
		return fmt.Errorf("retrieval weights must not both be zero")
	}
	if r.DefaultResults <= 0 {
		return fmt.Errorf("retrieval.default_results must be positive")
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}

	if c.Log.Format != "" && !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log.format %q: must be console or json", c.Log.Format)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}
