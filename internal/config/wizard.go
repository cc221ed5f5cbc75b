package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and saves the result
// to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to testkb! Let's configure the knowledge store.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Backend.
	backendPrompt := promptui.Select{
		Label: "Select vector store backend",
		Items: []string{
			"chromem - embedded, persisted to a local directory",
			"qdrant  - remote Qdrant server over gRPC",
			"memory  - process-local, nothing persisted",
		},
	}
	backendIdx, _, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend selection: %w", err)
	}
	cfg.Store.Backend = []BackendType{BackendChromem, BackendQdrant, BackendMemory}[backendIdx]

	switch cfg.Store.Backend {
	case BackendChromem:
		pathPrompt := promptui.Prompt{
			Label:   "Storage directory",
			Default: cfg.Store.Path,
		}
		dir, err := pathPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("storage directory: %w", err)
		}
		cfg.Store.Path = dir
	case BackendQdrant:
		hostPrompt := promptui.Prompt{
			Label:   "Qdrant host",
			Default: cfg.Store.QdrantHost,
		}
		host, err := hostPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("qdrant host: %w", err)
		}
		portPrompt := promptui.Prompt{
			Label:    "Qdrant gRPC port",
			Default:  strconv.Itoa(cfg.Store.QdrantPort),
			Validate: validatePort,
		}
		portStr, err := portPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("qdrant port: %w", err)
		}
		port, _ := strconv.Atoi(portStr)
		cfg.Store.QdrantHost = host
		cfg.Store.QdrantPort = port
	}

	// 2. Embedding provider.
	providerPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"local", "openai", "google", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Embedding = EmbeddingDefaults(ProviderType(providerStr))

	if envVar := APIKeyEnvVar(cfg.Embedding.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running testkb seed.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", s)
	}
	return nil
}
