package embeddings

import (
	"context"
	"fmt"
	"net/http"
)

const googleBatchEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:batchEmbedContents"

// googleMaxBatch is the request limit of batchEmbedContents.
const googleMaxBatch = 100

// GoogleEmbedder calls the Generative Language batchEmbedContents API.
type GoogleEmbedder struct {
	apiKey     string
	model      string
	dims       int
	endpoint   string
	httpClient *http.Client
}

// NewGoogleEmbedder creates a new Google embedder.
func NewGoogleEmbedder(apiKey, model string, dims int) *GoogleEmbedder {
	return &GoogleEmbedder{
		apiKey:     apiKey,
		model:      model,
		dims:       dims,
		endpoint:   fmt.Sprintf(googleBatchEndpoint, model),
		httpClient: &http.Client{Timeout: providerTimeout},
	}
}

func (e *GoogleEmbedder) Name() string    { return "google/" + e.model }
func (e *GoogleEmbedder) Dimensions() int { return e.dims }

type googleBatchRequest struct {
	Requests []googleEmbedRequest `json:"requests"`
}

type googleEmbedRequest struct {
	Model                string        `json:"model"`
	Content              googleContent `json:"content"`
	OutputDimensionality int           `json:"outputDimensionality,omitempty"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleBatchResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

func (e *GoogleEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += googleMaxBatch {
		end := min(start+googleMaxBatch, len(texts))
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *GoogleEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	batch := googleBatchRequest{Requests: make([]googleEmbedRequest, len(texts))}
	for i, text := range texts {
		batch.Requests[i] = googleEmbedRequest{
			Model:                "models/" + e.model,
			Content:              googleContent{Parts: []googlePart{{Text: text}}},
			OutputDimensionality: e.dims,
		}
	}

	var res googleBatchResponse
	header := http.Header{"x-goog-api-key": []string{e.apiKey}}
	if err := postJSON(ctx, e.httpClient, "google", e.endpoint, header, batch, &res); err != nil {
		return nil, err
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("google: got %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if len(emb.Values) == 0 {
			return nil, fmt.Errorf("google: empty embedding at index %d", i)
		}
		// Truncated gemini vectors are not unit length.
		out[i] = normalize(emb.Values)
	}
	return out, nil
}
