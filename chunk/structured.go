package chunk

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	strata "github.com/strata-kb/strata"
)

// Option configures a chunker.
type Option func(*config)

type config struct {
	targetTokens int
	maxTokens    int
	minTokens    int
	logger       *slog.Logger
}

func defaultConfig() config {
	return config{targetTokens: 300, maxTokens: 512, minTokens: 40, logger: strata.NopLogger}
}

// WithTargetTokens sets the preferred chunk size; boundary search starts
// looking at this size (default 300). Tokens are approximated as 4 chars.
func WithTargetTokens(n int) Option {
	return func(c *config) { c.targetTokens = n }
}

// WithMaxTokens sets the hard upper bound per chunk (default 512).
func WithMaxTokens(n int) Option {
	return func(c *config) { c.maxTokens = n }
}

// WithMinTokens sets the smallest piece a split may leave behind (default
// 40). The boundary search pulls back rather than strand a final fragment
// under this size; whole sections below it still emit as-is.
func WithMinTokens(n int) Option {
	return func(c *config) { c.minTokens = n }
}

// WithLogger sets a structured logger (default: no output).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// StructuredChunker walks parsed document structure and emits token-bounded
// candidates: one per leaf-enough section (split when oversized), one per
// non-empty table row, one or more per code block.
type StructuredChunker struct {
	targetChars int
	maxChars    int
	minChars    int
	classifier  Classifier
	logger      *slog.Logger
}

// NewStructuredChunker creates a StructuredChunker with the given options.
func NewStructuredChunker(opts ...Option) *StructuredChunker {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &StructuredChunker{
		targetChars: cfg.targetTokens * 4,
		maxChars:    cfg.maxTokens * 4,
		minChars:    cfg.minTokens * 4,
		logger:      cfg.logger,
	}
}

// Chunk emits candidates for every section (depth-first, children as
// independent candidates), table row, and code block in doc. An empty
// structure yields an empty list.
func (c *StructuredChunker) Chunk(doc strata.DocumentStructure) []strata.ChunkCandidate {
	var out []strata.ChunkCandidate
	for _, sec := range doc.Sections {
		out = c.walkSection(sec, nil, out)
	}
	for _, tbl := range doc.Tables {
		out = append(out, c.tableRows(tbl)...)
	}
	for _, cb := range doc.CodeBlocks {
		out = append(out, c.codeBlock(cb)...)
	}
	c.logger.Debug("structured chunking done",
		"sections", len(doc.Sections), "tables", len(doc.Tables),
		"code_blocks", len(doc.CodeBlocks), "candidates", len(out))
	return out
}

func (c *StructuredChunker) walkSection(sec *strata.Section, parentPath []string, out []strata.ChunkCandidate) []strata.ChunkCandidate {
	path := append(append([]string(nil), parentPath...), sec.Heading)
	if strings.TrimSpace(sec.Content) != "" {
		out = append(out, c.emit(sec.Content, path, sec.Span)...)
	}
	for _, child := range sec.Children {
		out = c.walkSection(child, path, out)
	}
	return out
}

// emit produces one candidate for text within budget, or several split on
// safe boundaries. Pieces after the first carry a "(part N)" heading path
// suffix so fragments of one logical section stay distinguishable.
func (c *StructuredChunker) emit(text string, path []string, span strata.Span) []strata.ChunkCandidate {
	kind := c.classifier.Classify(text, path)
	pieces := c.splitBounded(text)
	out := make([]strata.ChunkCandidate, 0, len(pieces))
	for i, piece := range pieces {
		p := path
		if i > 0 {
			p = append(append([]string(nil), path...), fmt.Sprintf("(part %d)", i+1))
		}
		out = append(out, strata.ChunkCandidate{
			Text:        piece,
			HeadingPath: p,
			Type:        kind,
			Span:        span,
		})
	}
	return out
}

// tableRows emits one table_row candidate per row with any non-empty cell,
// cells joined by " / ". Fully empty rows are dropped here, not by the
// parser.
func (c *StructuredChunker) tableRows(tbl strata.Table) []strata.ChunkCandidate {
	path := []string{"Table"}
	if tbl.Caption != "" {
		path = append(path, tbl.Caption)
	}
	var out []strata.ChunkCandidate
	for _, row := range tbl.Rows {
		if !rowHasContent(row) {
			continue
		}
		out = append(out, strata.ChunkCandidate{
			Text:        strings.Join(row, " / "),
			HeadingPath: path,
			Type:        strata.TypeTableRow,
		})
	}
	return out
}

func rowHasContent(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}

// codeBlock emits code candidates under ["Code", language], split on the
// same boundary rules as sections when oversized.
func (c *StructuredChunker) codeBlock(cb strata.CodeBlock) []strata.ChunkCandidate {
	if strings.TrimSpace(cb.Code) == "" {
		return nil
	}
	path := []string{"Code"}
	if cb.Language != "" {
		path = append(path, cb.Language)
	}
	pieces := c.splitBounded(cb.Code)
	out := make([]strata.ChunkCandidate, 0, len(pieces))
	for i, piece := range pieces {
		p := path
		if i > 0 {
			p = append(append([]string(nil), path...), fmt.Sprintf("(part %d)", i+1))
		}
		out = append(out, strata.ChunkCandidate{Text: piece, HeadingPath: p, Type: strata.TypeCode})
	}
	return out
}

// splitBounded returns text as one piece when it fits maxChars, otherwise
// repeatedly cuts at the best boundary inside the trailing search window
// and continues on the remainder.
func (c *StructuredChunker) splitBounded(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var pieces []string
	for len(text) > c.maxChars {
		cut := c.boundaryCut(text)
		piece := strings.TrimSpace(text[:cut])
		if piece != "" {
			pieces = append(pieces, piece)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}

// boundaryCut finds the cut position for an oversized span. The search is
// confined to a window above the target size and below the max so pieces
// stay near the target; preference order: double line break, single line
// break, sentence end, any whitespace, hard cut.
func (c *StructuredChunker) boundaryCut(text string) int {
	hi := c.maxChars
	lo := c.targetChars
	if lo <= 0 || lo >= hi {
		lo = hi / 2
	}
	// Cutting at hi could strand a final fragment under minChars; pull the
	// window back when there is room, so the remainder stays a real piece.
	if len(text)-hi < c.minChars && len(text)-c.minChars > lo {
		hi = len(text) - c.minChars
	}
	window := text[lo:hi]

	if idx := strings.LastIndex(window, "\n\n"); idx >= 0 {
		return lo + idx
	}
	if idx := strings.LastIndexByte(window, '\n'); idx >= 0 {
		return lo + idx
	}
	if idx := lastSentenceEnd(window); idx >= 0 {
		return lo + idx
	}
	if idx := strings.LastIndexFunc(window, unicode.IsSpace); idx >= 0 {
		return lo + idx
	}
	// No boundary at all: hard cut at a rune boundary.
	cut := hi
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}

// lastSentenceEnd returns the position just after the last sentence-ending
// punctuation mark that is followed by whitespace, or -1.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		ch := s[i]
		if ch != ' ' && ch != '\n' && ch != '\t' {
			continue
		}
		prev := s[i-1]
		if prev == '.' || prev == '!' || prev == '?' {
			return i
		}
	}
	return -1
}
