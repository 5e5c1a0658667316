package strata

import (
	"encoding/json"
	"strings"
)

// --- Document structure (parser output) ---

// DocumentStructure is the structural view of one ingested document:
// an optional title, a heading hierarchy, and the tables and code blocks
// extracted alongside it.
type DocumentStructure struct {
	Title      string
	Sections   []*Section
	Tables     []Table
	CodeBlocks []CodeBlock
}

// Section is one heading plus the prose that belongs to it. Content holds
// only the section's own text; nested sub-headings live in Children.
type Section struct {
	Level    int // 1-6
	Heading  string
	Content  string
	Children []*Section
	Span     Span
}

// Span marks a byte range in the source markup. Best-effort: parsers that
// cannot recover offsets leave it zero.
type Span struct {
	Start int
	End   int
}

// Table holds a header row (possibly empty) and body rows. Rows are flat
// cell arrays; a row may contain only empty cells.
type Table struct {
	Headers []string
	Rows    [][]string
	Caption string
}

// CodeBlock is a fenced or macro code block with an optional language tag.
type CodeBlock struct {
	Language string
	Code     string
}

// --- Chunk model ---

// ChunkType classifies what kind of knowledge a chunk carries.
type ChunkType string

const (
	TypeKnowledge  ChunkType = "knowledge"
	TypeNavigation ChunkType = "navigation"
	TypeTableRow   ChunkType = "table_row"
	TypeCode       ChunkType = "code"
	TypeFAQ        ChunkType = "faq"
	TypeGlossary   ChunkType = "glossary"
)

// ChunkCandidate is the transient unit emitted by chunkers. It becomes a
// persisted Chunk once assembled and published.
type ChunkCandidate struct {
	Text        string
	HeadingPath []string
	Type        ChunkType
	Span        Span
}

// Chunk is the persisted, addressable knowledge unit.
type Chunk struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	Index       int       `json:"index"`
	Type        ChunkType `json:"type"`
	HeadingPath []string  `json:"heading_path"`
	Section     string    `json:"section"`
	Text        string    `json:"text"`
	ContentHash string    `json:"content_hash"`
	Lang        string    `json:"lang"`
}

// DocMetadata is provenance for one ingested source document.
type DocMetadata struct {
	SourceType     string `json:"source_type"`
	SourceID       string `json:"source_id"`
	URL            string `json:"url"`
	Title          string `json:"title,omitempty"`
	Revision       string `json:"revision"`
	LastModifiedAt int64  `json:"last_modified_at"`
	LastModifiedBy string `json:"last_modified_by"`
}

// EditorMeta carries post-publish editing state for a chunk.
type EditorMeta struct {
	Position      int      `json:"position"`
	QualityScore  float64  `json:"quality_score,omitempty"`
	QualityIssues []string `json:"quality_issues,omitempty"`
	EditCount     int      `json:"edit_count"`
}

// JoinHeadingPath renders a heading path for display ("A / B / C").
func JoinHeadingPath(path []string) string {
	return strings.Join(path, " / ")
}

// --- LLM protocol types ---

type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ResponseSchema requests strict structured JSON output from a provider.
type ResponseSchema struct {
	Name   string
	Schema json.RawMessage
}

type ChatRequest struct {
	Messages       []ChatMessage
	ResponseSchema *ResponseSchema
}

type ChatResponse struct {
	Content string
	// Refusal is set when the model declined to answer instead of
	// producing content.
	Refusal string
	Usage   Usage
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// --- ChatMessage constructors ---

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}
