package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	strata "github.com/strata-kb/strata"
)

const defaultDimensions = 1536

// EmbeddingProvider implements strata.EmbeddingProvider over the OpenAI
// embeddings API.
type EmbeddingProvider struct {
	apiKey     string
	model      string
	baseURL    string
	client     *http.Client
	name       string
	dimensions int
}

var _ strata.EmbeddingProvider = (*EmbeddingProvider)(nil)

// NewEmbeddingProvider creates an embedding provider. The /embeddings path
// is appended to baseURL.
func NewEmbeddingProvider(apiKey, model, baseURL string, opts ...ProviderOption) *EmbeddingProvider {
	s := settings{name: "openai", client: &http.Client{}, dimensions: defaultDimensions}
	for _, opt := range opts {
		opt(&s)
	}
	return &EmbeddingProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		client:     s.client,
		name:       s.name,
		dimensions: s.dimensions,
	}
}

func (p *EmbeddingProvider) Name() string    { return p.name }
func (p *EmbeddingProvider) Dimensions() int { return p.dimensions }

// Embed returns one vector per text, in input order. An empty input returns
// an empty result without a network call; a blank individual text is a
// ValidationError.
func (p *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, &strata.ValidationError{
				Field:  "texts",
				Reason: fmt.Sprintf("text %d is empty or whitespace-only", i),
			}
		}
	}

	resp, err := postJSON(ctx, p.client, p.baseURL+"/embeddings", p.apiKey, embeddingsBody{
		Model: p.model,
		Input: texts,
	}, p.name, "embed")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp, p.name)
	}

	var result embeddingsResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%s: decode embeddings: %w", p.name, err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("%s: got %d embeddings for %d texts", p.name, len(result.Data), len(texts))
	}

	// The API may return data out of order; the index field is authoritative.
	out := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%s: embedding index %d out of range", p.name, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
