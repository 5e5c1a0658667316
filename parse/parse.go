// Package parse recovers document structure (title, heading hierarchy,
// tables, code blocks) from source markup. Parsing is total: malformed or
// dialect-less input degrades to a single flat section instead of failing,
// so downstream chunking always has at least one section to work from.
package parse

import (
	"strings"

	strata "github.com/strata-kb/strata"
)

// Dialect identifies the source markup flavor.
type Dialect string

const (
	// DialectMarkdown is lightweight markup (CommonMark + tables).
	DialectMarkdown Dialect = "markdown"
	// DialectStorage is rich storage XML (Confluence-style ac:/ri: markup).
	DialectStorage Dialect = "storage"
	// DialectPlain is flat text or plain HTML.
	DialectPlain Dialect = "plain"
)

// genericHeading labels sections recovered from input with no headings.
const genericHeading = "Document"

// Parse recovers a DocumentStructure from raw markup. It never fails: an
// unknown dialect or unparseable input yields a single flat section
// spanning the whole input.
func Parse(raw string, dialect Dialect) strata.DocumentStructure {
	switch dialect {
	case DialectMarkdown:
		return parseMarkdown(raw)
	case DialectStorage:
		return parseStorage(raw)
	default:
		return parsePlain(raw)
	}
}

// flatStructure wraps raw text in a single level-1 section.
func flatStructure(raw, title string) strata.DocumentStructure {
	heading := title
	if heading == "" {
		heading = genericHeading
	}
	doc := strata.DocumentStructure{Title: title}
	text := strings.TrimSpace(raw)
	if text == "" {
		return doc
	}
	doc.Sections = []*strata.Section{{
		Level:   1,
		Heading: heading,
		Content: text,
		Span:    strata.Span{Start: 0, End: len(raw)},
	}}
	return doc
}

// builder assembles a DocumentStructure from a linear walk of headings,
// text blocks, tables, and code blocks. The hierarchy comes from a
// stack-based reduction over heading levels.
type builder struct {
	doc      strata.DocumentStructure
	stack    []*strata.Section
	preamble []string // text seen before the first heading
}

func newBuilder() *builder {
	return &builder{}
}

// Heading starts a new section at the given level (clamped to 1-6). The
// stack pops while its top has level >= the new heading's level, then the
// section attaches to the new stack top or the document root.
func (b *builder) Heading(level int, heading string, span strata.Span) {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	if b.doc.Title == "" && level == 1 {
		b.doc.Title = heading
	}

	sec := &strata.Section{Level: level, Heading: heading, Span: span}
	for len(b.stack) > 0 && b.stack[len(b.stack)-1].Level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	if len(b.stack) == 0 {
		b.doc.Sections = append(b.doc.Sections, sec)
	} else {
		top := b.stack[len(b.stack)-1]
		top.Children = append(top.Children, sec)
	}
	b.stack = append(b.stack, sec)
}

// Text appends a text block to the current section's own content, or to
// the preamble when no heading has been seen yet.
func (b *builder) Text(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if len(b.stack) == 0 {
		b.preamble = append(b.preamble, text)
		return
	}
	top := b.stack[len(b.stack)-1]
	if top.Content != "" {
		top.Content += "\n\n" + text
	} else {
		top.Content = text
	}
}

func (b *builder) Table(t strata.Table) {
	b.doc.Tables = append(b.doc.Tables, t)
}

func (b *builder) Code(c strata.CodeBlock) {
	if strings.TrimSpace(c.Code) == "" {
		return
	}
	b.doc.CodeBlocks = append(b.doc.CodeBlocks, c)
}

// Finish returns the assembled structure. Preamble text becomes a leading
// section; a document with no headings at all degrades to a flat section.
func (b *builder) Finish() strata.DocumentStructure {
	if len(b.preamble) > 0 {
		heading := b.doc.Title
		if heading == "" {
			heading = genericHeading
		}
		lead := &strata.Section{
			Level:   1,
			Heading: heading,
			Content: strings.Join(b.preamble, "\n\n"),
		}
		b.doc.Sections = append([]*strata.Section{lead}, b.doc.Sections...)
	}
	return b.doc
}
