package parse

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	gtext "github.com/yuin/goldmark/text"

	strata "github.com/strata-kb/strata"
)

// parseMarkdown walks the goldmark AST (with the table extension) and feeds
// headings, text blocks, tables, and code fences into the builder.
func parseMarkdown(raw string) strata.DocumentStructure {
	src := []byte(raw)
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(gtext.NewReader(src))

	b := newBuilder()
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.Heading(node.Level, strings.TrimSpace(inlineText(node, src)), spanOf(node))
		case *ast.FencedCodeBlock:
			b.Code(strata.CodeBlock{
				Language: string(node.Language(src)),
				Code:     rawLines(node, src),
			})
		case *ast.CodeBlock:
			b.Code(strata.CodeBlock{Code: rawLines(node, src)})
		case *east.Table:
			b.Table(markdownTable(node, src))
		default:
			b.Text(blockText(n, src))
		}
	}
	return b.Finish()
}

// markdownTable converts a table node: the header row (if present) plus
// body rows, each a flat array of cell text.
func markdownTable(t *east.Table, src []byte) strata.Table {
	var out strata.Table
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		var cells []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, strings.TrimSpace(inlineText(c, src)))
		}
		if _, ok := r.(*east.TableHeader); ok {
			out.Headers = cells
		} else {
			out.Rows = append(out.Rows, cells)
		}
	}
	return out
}

// blockText renders a block node to plain text. Images collapse to their
// alt text and links to their label; raw HTML is dropped.
func blockText(n ast.Node, src []byte) string {
	switch node := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return strings.TrimSpace(inlineText(n, src))
	case *ast.List:
		var lines []string
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			if t := strings.TrimSpace(childBlocksText(item, src)); t != "" {
				lines = append(lines, "- "+t)
			}
		}
		return strings.Join(lines, "\n")
	case *ast.Blockquote:
		return childBlocksText(n, src)
	case *ast.HTMLBlock, *ast.ThematicBreak:
		return ""
	default:
		if t := strings.TrimSpace(inlineText(n, src)); t != "" {
			return t
		}
		return rawLines(n, src)
	}
}

// childBlocksText joins the rendered child blocks of a container node.
func childBlocksText(n ast.Node, src []byte) string {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// inlineText collects the plain text of a node's inline children.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.URL(src))
		case *ast.RawHTML:
			// markup decoration, dropped
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}

// rawLines returns the verbatim source lines of a block node.
func rawLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// spanOf recovers the byte range of a block node, when goldmark kept it.
func spanOf(n ast.Node) strata.Span {
	lines := n.Lines()
	if lines.Len() == 0 {
		return strata.Span{}
	}
	return strata.Span{Start: lines.At(0).Start, End: lines.At(lines.Len() - 1).Stop}
}
