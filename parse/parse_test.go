package parse

import (
	"strings"
	"testing"

	strata "github.com/strata-kb/strata"
)

func TestParseUnknownDialectFlatFallback(t *testing.T) {
	doc := Parse("some plain document text", Dialect("unknown"))
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 flat section, got %d", len(doc.Sections))
	}
	sec := doc.Sections[0]
	if sec.Level != 1 || sec.Heading != "Document" {
		t.Errorf("fallback section = %+v", sec)
	}
	if sec.Content != "some plain document text" {
		t.Errorf("content = %q", sec.Content)
	}
}

func TestParsePlainText(t *testing.T) {
	doc := Parse("line one\n\nline two", DialectPlain)
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(doc.Sections))
	}
	if !strings.Contains(doc.Sections[0].Content, "line one") {
		t.Errorf("content = %q", doc.Sections[0].Content)
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, d := range []Dialect{DialectMarkdown, DialectStorage, DialectPlain} {
		doc := Parse("   \n\n  ", d)
		if len(doc.Sections) != 0 {
			t.Errorf("dialect %s: whitespace input produced %d sections", d, len(doc.Sections))
		}
	}
}

func TestLooksLikeHTML(t *testing.T) {
	if !looksLikeHTML("<!DOCTYPE html><html><body>x</body></html>") {
		t.Error("doctype not detected")
	}
	if looksLikeHTML("just text with < and > signs") {
		t.Error("plain text misdetected")
	}
}

func TestBuilderHeadingLevelClamp(t *testing.T) {
	b := newBuilder()
	b.Heading(0, "low", strata.Span{})
	b.Heading(9, "high", strata.Span{})
	doc := b.Finish()
	if len(doc.Sections) != 1 {
		t.Fatalf("sections = %+v", doc.Sections)
	}
	if doc.Sections[0].Level != 1 || doc.Sections[0].Children[0].Level != 6 {
		t.Errorf("levels not clamped: %+v", doc.Sections[0])
	}
}
