package openaicompat

import "net/http"

// Option configures the request body sent with every chat call.
type Option func(*chatBody)

// WithTemperature sets the sampling temperature (0.0-2.0).
func WithTemperature(t float64) Option {
	return func(b *chatBody) { b.Temperature = &t }
}

// WithTopP sets nucleus sampling top-p (0.0-1.0).
func WithTopP(p float64) Option {
	return func(b *chatBody) { b.TopP = &p }
}

// WithMaxTokens sets the maximum number of output tokens.
func WithMaxTokens(n int) Option {
	return func(b *chatBody) { b.MaxTokens = n }
}

// WithSeed sets a deterministic seed for reproducible outputs.
func WithSeed(s int) Option {
	return func(b *chatBody) { b.Seed = &s }
}

// WithStop sets one or more stop sequences.
func WithStop(s ...string) Option {
	return func(b *chatBody) { b.Stop = s }
}

// ProviderOption configures a Provider or EmbeddingProvider instance.
type ProviderOption func(*settings)

type settings struct {
	name       string
	client     *http.Client
	opts       []Option
	dimensions int
}

// WithName sets the name reported by Name() (default "openai"). Use it to
// distinguish providers in logs.
func WithName(name string) ProviderOption {
	return func(s *settings) { s.name = name }
}

// WithHTTPClient sets a custom HTTP client (timeouts, proxies).
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(s *settings) {
		if c != nil {
			s.client = c
		}
	}
}

// WithRequestOptions appends body options applied to every chat request.
func WithRequestOptions(opts ...Option) ProviderOption {
	return func(s *settings) { s.opts = append(s.opts, opts...) }
}

// WithDimensions sets the embedding vector size reported by Dimensions().
func WithDimensions(n int) ProviderOption {
	return func(s *settings) {
		if n > 0 {
			s.dimensions = n
		}
	}
}
