package parse

import (
	"strings"
	"testing"
)

const nestedDoc = `# Alpha

Alpha intro text.

## Beta

Beta body text.

### Gamma

Gamma body text.

## Delta

Delta body text.
`

func TestMarkdownHeadingHierarchy(t *testing.T) {
	doc := Parse(nestedDoc, DialectMarkdown)

	if doc.Title != "Alpha" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 root section, got %d", len(doc.Sections))
	}
	alpha := doc.Sections[0]
	if alpha.Level != 1 || alpha.Heading != "Alpha" || alpha.Content != "Alpha intro text." {
		t.Errorf("alpha = %+v", alpha)
	}
	if len(alpha.Children) != 2 {
		t.Fatalf("expected 2 children of Alpha, got %d", len(alpha.Children))
	}
	beta := alpha.Children[0]
	if beta.Heading != "Beta" || beta.Content != "Beta body text." {
		t.Errorf("beta = %+v", beta)
	}
	if len(beta.Children) != 1 || beta.Children[0].Heading != "Gamma" {
		t.Fatalf("gamma not nested under beta")
	}
	if beta.Children[0].Content != "Gamma body text." {
		t.Errorf("gamma content = %q", beta.Children[0].Content)
	}
	if alpha.Children[1].Heading != "Delta" {
		t.Errorf("delta not attached to alpha")
	}
}

func TestMarkdownContentExcludesSubheadings(t *testing.T) {
	doc := Parse(nestedDoc, DialectMarkdown)
	alpha := doc.Sections[0]
	if strings.Contains(alpha.Content, "Beta") {
		t.Error("parent content includes nested sub-heading text")
	}
}

func TestMarkdownSiblingAfterDeepNesting(t *testing.T) {
	src := "# A\n\n### Deep\n\ndeep text\n\n# B\n\nb text\n"
	doc := Parse(src, DialectMarkdown)
	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 root sections, got %d", len(doc.Sections))
	}
	if doc.Sections[1].Heading != "B" || doc.Sections[1].Content != "b text" {
		t.Errorf("second root = %+v", doc.Sections[1])
	}
}

func TestMarkdownTable(t *testing.T) {
	src := "# T\n\n| Name | Role |\n|------|------|\n| Ann  | Dev  |\n| Bo   | PM   |\n"
	doc := Parse(src, DialectMarkdown)
	if len(doc.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(doc.Tables))
	}
	tbl := doc.Tables[0]
	if len(tbl.Headers) != 2 || tbl.Headers[0] != "Name" || tbl.Headers[1] != "Role" {
		t.Errorf("headers = %v", tbl.Headers)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[0][0] != "Ann" || tbl.Rows[1][1] != "PM" {
		t.Errorf("rows = %v", tbl.Rows)
	}
}

func TestMarkdownCodeFence(t *testing.T) {
	src := "# C\n\n```go\nfunc main() {}\n```\n"
	doc := Parse(src, DialectMarkdown)
	if len(doc.CodeBlocks) != 1 {
		t.Fatalf("expected 1 code block, got %d", len(doc.CodeBlocks))
	}
	cb := doc.CodeBlocks[0]
	if cb.Language != "go" || !strings.Contains(cb.Code, "func main()") {
		t.Errorf("code block = %+v", cb)
	}
}

func TestMarkdownListAndLinks(t *testing.T) {
	src := "# L\n\n- first item\n- see [the docs](https://example.com)\n"
	doc := Parse(src, DialectMarkdown)
	content := doc.Sections[0].Content
	if !strings.Contains(content, "- first item") {
		t.Errorf("list items missing: %q", content)
	}
	if !strings.Contains(content, "the docs") || strings.Contains(content, "example.com") {
		t.Errorf("link not reduced to label: %q", content)
	}
}

func TestMarkdownPreambleBecomesLeadingSection(t *testing.T) {
	src := "intro before any heading\n\n# First\n\nbody\n"
	doc := Parse(src, DialectMarkdown)
	if len(doc.Sections) != 2 {
		t.Fatalf("expected preamble + heading sections, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Content != "intro before any heading" {
		t.Errorf("preamble = %+v", doc.Sections[0])
	}
}

func TestMarkdownNoHeadings(t *testing.T) {
	doc := Parse("just a paragraph\n\nand another", DialectMarkdown)
	if len(doc.Sections) != 1 {
		t.Fatalf("expected single flat section, got %d", len(doc.Sections))
	}
	sec := doc.Sections[0]
	if sec.Heading != "Document" || !strings.Contains(sec.Content, "just a paragraph") {
		t.Errorf("flat section = %+v", sec)
	}
}

func TestMarkdownEmptyInput(t *testing.T) {
	doc := Parse("", DialectMarkdown)
	if len(doc.Sections) != 0 || len(doc.Tables) != 0 || len(doc.CodeBlocks) != 0 {
		t.Errorf("empty input produced structure: %+v", doc)
	}
}
