package chunk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	strata "github.com/strata-kb/strata"
)

// semanticPrompt instructs the model to segment text into self-contained
// chunks. The output contract is pinned by semanticSchema.
const semanticPrompt = `You segment documents for a retrieval system. Split the given text into self-contained chunks of roughly 200-400 words each. Every chunk must stand on its own: keep a heading with the text it introduces, never split a sentence, and never drop or rewrite content. Mark a chunk dirty only if its text is boilerplate or navigation noise rather than knowledge.`

// semanticSchema is the strict response schema sent with every chunking
// request.
var semanticSchema = &strata.ResponseSchema{
	Name: "chunk_list",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"chunks": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"id": {"type": "string"},
						"text": {"type": "string"},
						"is_dirty": {"type": "boolean"}
					},
					"required": ["id", "text", "is_dirty"],
					"additionalProperties": false
				}
			}
		},
		"required": ["chunks"],
		"additionalProperties": false
	}`),
}

type semanticChunk struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	IsDirty bool   `json:"is_dirty"`
}

type semanticResult struct {
	Chunks []semanticChunk `json:"chunks"`
}

// WindowedSemanticChunker asks an LLM to place chunk boundaries. Text
// longer than the provider's comfortable context is cut into overlapping
// windows chunked independently; the overlap plus deduplication stitches
// the window seams back together.
type WindowedSemanticChunker struct {
	provider   strata.Provider
	maxContent int
	overlap    int
	dropDirty  bool
	classifier Classifier
	deduper    *Deduper
	logger     *slog.Logger
}

// SemanticOption configures a WindowedSemanticChunker.
type SemanticOption func(*WindowedSemanticChunker)

// WithMaxContentLength caps the characters sent in a single request.
// The window overlap is derived from it and never exceeds half of it.
func WithMaxContentLength(n int) SemanticOption {
	return func(c *WindowedSemanticChunker) {
		if n > 0 {
			c.maxContent = n
		}
	}
}

// WithDropDirty discards chunks the model flagged as boilerplate instead
// of keeping them.
func WithDropDirty(drop bool) SemanticOption {
	return func(c *WindowedSemanticChunker) { c.dropDirty = drop }
}

// WithSemanticLogger sets the logger.
func WithSemanticLogger(l *slog.Logger) SemanticOption {
	return func(c *WindowedSemanticChunker) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewWindowedSemanticChunker creates an LLM-driven chunker on top of the
// given provider.
func NewWindowedSemanticChunker(provider strata.Provider, opts ...SemanticOption) *WindowedSemanticChunker {
	c := &WindowedSemanticChunker{
		provider:   provider,
		maxContent: 20000,
		deduper:    NewDeduper(),
		logger:     strata.NopLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.overlap = min(500, c.maxContent/2)
	return c
}

// Chunk segments text into classified candidates. Text within the content
// budget goes out as one request; longer text is windowed. Results keep
// document order, window overlaps deduplicated.
func (c *WindowedSemanticChunker) Chunk(ctx context.Context, text string) ([]strata.ChunkCandidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var raw []semanticChunk
	if len(text) <= c.maxContent {
		chunks, err := c.chunkWindow(ctx, text)
		if err != nil {
			return nil, err
		}
		raw = chunks
	} else {
		windows := c.windows(text)
		c.logger.Debug("windowed chunking", "windows", len(windows), "chars", len(text))
		for i, w := range windows {
			chunks, err := c.chunkWindow(ctx, w)
			if err != nil {
				return nil, fmt.Errorf("window %d/%d: %w", i+1, len(windows), err)
			}
			raw = append(raw, chunks...)
		}
	}

	candidates := make([]strata.ChunkCandidate, 0, len(raw))
	for _, sc := range raw {
		t := strings.TrimSpace(sc.Text)
		if t == "" {
			continue
		}
		if sc.IsDirty && c.dropDirty {
			continue
		}
		candidates = append(candidates, strata.ChunkCandidate{
			Text: t,
			Type: c.classifier.Classify(t, nil),
		})
	}
	return c.deduper.Dedup(candidates), nil
}

// windows cuts text into slices of at most maxContent characters. Adjacent
// windows share an overlap so a chunk straddling a cut appears whole in at
// least one window. The start always advances.
func (c *WindowedSemanticChunker) windows(text string) []string {
	var out []string
	start := 0
	for start < len(text) {
		end := start + c.maxContent
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		out = append(out, text[start:end])
		next := end - c.overlap
		for next > start && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// chunkWindow sends one window to the provider and decodes the chunk list.
// The three failure modes stay distinct: a refusal, an empty response, and
// schema-invalid content each produce their own ParseError kind.
func (c *WindowedSemanticChunker) chunkWindow(ctx context.Context, window string) ([]semanticChunk, error) {
	resp, err := c.provider.Chat(ctx, strata.ChatRequest{
		Messages: []strata.ChatMessage{
			strata.SystemMessage(semanticPrompt),
			strata.UserMessage(window),
		},
		ResponseSchema: semanticSchema,
	})
	if err != nil {
		return nil, err
	}
	if resp.Refusal != "" {
		return nil, &strata.ParseError{Kind: strata.ParseRefusal, Reason: resp.Refusal}
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, &strata.ParseError{Kind: strata.ParseEmpty, Reason: "no content in response"}
	}
	var result semanticResult
	if err := json.Unmarshal([]byte(resp.Content), &result); err != nil {
		return nil, &strata.ParseError{Kind: strata.ParseSchema, Reason: err.Error(), Raw: resp.Content}
	}
	if result.Chunks == nil {
		return nil, &strata.ParseError{Kind: strata.ParseSchema, Reason: "missing chunks array", Raw: resp.Content}
	}
	return result.Chunks, nil
}
