package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	strata "github.com/strata-kb/strata"
)

// Provider implements strata.Provider over the OpenAI chat completions API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	name    string
	opts    []Option
}

var _ strata.Provider = (*Provider)(nil)

// NewProvider creates a chat provider. baseURL is the API base, e.g.
// "https://api.openai.com/v1" or "http://localhost:11434/v1"; the
// /chat/completions path is appended.
func NewProvider(apiKey, model, baseURL string, opts ...ProviderOption) *Provider {
	s := settings{name: "openai", client: &http.Client{}}
	for _, opt := range opts {
		opt(&s)
	}
	return &Provider{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  s.client,
		name:    s.name,
		opts:    s.opts,
	}
}

// Name returns the provider name (default "openai").
func (p *Provider) Name() string { return p.name }

// Chat sends a non-streaming chat request. When req.ResponseSchema is set,
// strict json_schema output is requested; a model refusal arrives in
// ChatResponse.Refusal, never as content.
func (p *Provider) Chat(ctx context.Context, req strata.ChatRequest) (strata.ChatResponse, error) {
	body := p.buildBody(req)
	resp, err := postJSON(ctx, p.client, p.baseURL+"/chat/completions", p.apiKey, body, p.name, "chat")
	if err != nil {
		return strata.ChatResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return strata.ChatResponse{}, httpError(resp, p.name)
	}

	var result chatResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return strata.ChatResponse{}, &strata.ParseError{Kind: strata.ParseSchema, Reason: fmt.Sprintf("decode response: %v", err)}
	}
	return parseChat(result), nil
}

func (p *Provider) buildBody(req strata.ChatRequest) chatBody {
	msgs := make([]wireMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = wireMessage{Role: m.Role, Content: m.Content}
	}
	body := chatBody{Model: p.model, Messages: msgs}
	if req.ResponseSchema != nil && len(req.ResponseSchema.Schema) > 0 {
		body.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   req.ResponseSchema.Name,
				Schema: req.ResponseSchema.Schema,
				Strict: true,
			},
		}
	}
	for _, opt := range p.opts {
		opt(&body)
	}
	return body
}

// parseChat extracts content, refusal, and usage from choices[0].
func parseChat(result chatResult) strata.ChatResponse {
	var out strata.ChatResponse
	if len(result.Choices) > 0 && result.Choices[0].Message != nil {
		out.Content = result.Choices[0].Message.Content
		out.Refusal = result.Choices[0].Message.Refusal
	}
	if result.Usage != nil {
		out.Usage = strata.Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		}
	}
	return out
}

// postJSON marshals body and posts it with auth headers. Transport-level
// timeouts surface as TimeoutError; other transport failures pass through.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, body any, provider, op string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &strata.TimeoutError{Op: provider + " " + op, Err: err}
		}
		return nil, err
	}
	return resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// httpError maps a non-200 response into the error taxonomy: 429 carries
// the Retry-After hint, everything else becomes an APIError whose status
// decides retryability.
func httpError(resp *http.Response, provider string) error {
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return &strata.RateLimitError{
			Provider:   provider,
			RetryAfter: strata.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       string(body),
		}
	}
	return &strata.APIError{Provider: provider, Status: resp.StatusCode, Body: string(body)}
}
