package strata

import "context"

// Provider abstracts the chat-completion backend used for LLM-assisted
// chunking and cleanup.
type Provider interface {
	// Chat sends a request and returns the complete response. When
	// req.ResponseSchema is set, the provider requests strict structured
	// JSON output.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// Name returns the provider name (e.g. "openai").
	Name() string
}

// EmbeddingProvider abstracts text embedding.
type EmbeddingProvider interface {
	// Embed returns one vector per input text, in input order. An empty
	// input returns an empty result; an individual empty or whitespace-only
	// text is a ValidationError.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the provider name.
	Name() string
}
