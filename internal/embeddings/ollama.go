package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaEmbedder calls the /api/embed endpoint of an Ollama server.
type OllamaEmbedder struct {
	url        string
	model      string
	dimensions int
	client     *http.Client
}

// NewOllamaEmbedder accepts an empty baseURL (local default) or a bare
// host:port as OLLAMA_HOST is usually written.
func NewOllamaEmbedder(model string, dimensions int, baseURL string) *OllamaEmbedder {
	switch {
	case baseURL == "":
		baseURL = defaultOllamaBaseURL
	case !strings.Contains(baseURL, "://"):
		baseURL = "http://" + baseURL
	}
	return &OllamaEmbedder{
		url:        strings.TrimRight(baseURL, "/") + "/api/embed",
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: providerTimeout},
	}
}

func (e *OllamaEmbedder) Name() string    { return "ollama/" + e.model }
func (e *OllamaEmbedder) Dimensions() int { return e.dimensions }

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var res ollamaEmbedResponse
	if err := postJSON(ctx, e.client, "ollama", e.url, nil, ollamaEmbedRequest{Model: e.model, Input: texts}, &res); err != nil {
		return nil, err
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: got %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}
	return res.Embeddings, nil
}
