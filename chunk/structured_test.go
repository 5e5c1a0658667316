package chunk

import (
	"fmt"
	"strings"
	"testing"

	strata "github.com/strata-kb/strata"
)

func TestStructuredChunkerSections(t *testing.T) {
	doc := strata.DocumentStructure{
		Title: "Guide",
		Sections: []*strata.Section{
			{
				Level:   1,
				Heading: "Guide",
				Content: "Top level introduction.",
				Children: []*strata.Section{
					{
						Level:   2,
						Heading: "Setup",
						Content: "Install the binary first.",
						Children: []*strata.Section{
							{Level: 3, Heading: "Linux", Content: "Use the tarball."},
						},
					},
					{Level: 2, Heading: "Usage", Content: "Run it."},
				},
			},
		},
	}

	got := NewStructuredChunker().Chunk(doc)
	wantPaths := [][]string{
		{"Guide"},
		{"Guide", "Setup"},
		{"Guide", "Setup", "Linux"},
		{"Guide", "Usage"},
	}
	if len(got) != len(wantPaths) {
		t.Fatalf("got %d candidates, want %d", len(got), len(wantPaths))
	}
	for i, want := range wantPaths {
		if strata.JoinHeadingPath(got[i].HeadingPath) != strata.JoinHeadingPath(want) {
			t.Errorf("candidate %d path = %v, want %v", i, got[i].HeadingPath, want)
		}
		if got[i].Type != strata.TypeKnowledge {
			t.Errorf("candidate %d type = %q, want knowledge", i, got[i].Type)
		}
	}
}

func TestStructuredChunkerEmptySectionSkipped(t *testing.T) {
	doc := strata.DocumentStructure{
		Sections: []*strata.Section{
			{
				Level:   1,
				Heading: "Empty parent",
				Content: "   ",
				Children: []*strata.Section{
					{Level: 2, Heading: "Child", Content: "Actual text."},
				},
			},
		},
	}
	got := NewStructuredChunker().Chunk(doc)
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Text != "Actual text." {
		t.Errorf("text = %q", got[0].Text)
	}
}

func TestStructuredChunkerTableRows(t *testing.T) {
	// Scenario: two body rows, cells joined by " / ".
	doc := strata.DocumentStructure{
		Tables: []strata.Table{{
			Headers: []string{"Name", "Role"},
			Rows:    [][]string{{"Ann", "Dev"}, {"Bo", "PM"}},
		}},
	}
	got := NewStructuredChunker().Chunk(doc)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	wantTexts := []string{"Ann / Dev", "Bo / PM"}
	for i, want := range wantTexts {
		if got[i].Text != want {
			t.Errorf("row %d text = %q, want %q", i, got[i].Text, want)
		}
		if got[i].Type != strata.TypeTableRow {
			t.Errorf("row %d type = %q, want table_row", i, got[i].Type)
		}
	}
}

func TestStructuredChunkerEmptyRowDropped(t *testing.T) {
	doc := strata.DocumentStructure{
		Tables: []strata.Table{{
			Rows: [][]string{{"Ann", "Dev"}, {"", "  "}, {"Bo", "PM"}},
		}},
	}
	got := NewStructuredChunker().Chunk(doc)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2 (empty row dropped)", len(got))
	}
}

func TestStructuredChunkerCodeBlock(t *testing.T) {
	doc := strata.DocumentStructure{
		CodeBlocks: []strata.CodeBlock{{Language: "go", Code: "func main() {}\n"}},
	}
	got := NewStructuredChunker().Chunk(doc)
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Type != strata.TypeCode {
		t.Errorf("type = %q, want code", got[0].Type)
	}
	wantPath := []string{"Code", "go"}
	if strata.JoinHeadingPath(got[0].HeadingPath) != strata.JoinHeadingPath(wantPath) {
		t.Errorf("path = %v, want %v", got[0].HeadingPath, wantPath)
	}
}

func TestStructuredChunkerSplitsOversized(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("All work and no play makes a dull day. ", 10))
	doc := strata.DocumentStructure{
		Sections: []*strata.Section{{Level: 1, Heading: "Long", Content: text}},
	}
	// maxTokens=25 -> 100 chars, so the section must split.
	got := NewStructuredChunker(WithTargetTokens(15), WithMaxTokens(25)).Chunk(doc)
	if len(got) < 2 {
		t.Fatalf("got %d candidates, want at least 2", len(got))
	}
	for i, c := range got {
		if len(c.Text) > 100 {
			t.Errorf("piece %d is %d chars, exceeds max", i, len(c.Text))
		}
	}
	if got[0].HeadingPath[len(got[0].HeadingPath)-1] != "Long" {
		t.Errorf("first piece path = %v, want unsuffixed", got[0].HeadingPath)
	}
	for i := 1; i < len(got); i++ {
		want := fmt.Sprintf("(part %d)", i+1)
		last := got[i].HeadingPath[len(got[i].HeadingPath)-1]
		if last != want {
			t.Errorf("piece %d path suffix = %q, want %q", i, last, want)
		}
	}

	// Splitting must not lose or reorder words.
	var joined []string
	for _, c := range got {
		joined = append(joined, c.Text)
	}
	if gotWords, wantWords := strings.Fields(strings.Join(joined, " ")), strings.Fields(text); !equalStrings(gotWords, wantWords) {
		t.Errorf("split dropped or reordered words")
	}
}

func TestStructuredChunkerSplitRespectsMinSize(t *testing.T) {
	// 26 words, 129 chars: a max-position cut would leave a 29-char tail,
	// under minTokens*4 = 40. The boundary search must pull back instead.
	text := strings.TrimSpace(strings.Repeat("word ", 26))
	doc := strata.DocumentStructure{
		Sections: []*strata.Section{{Level: 1, Heading: "Words", Content: text}},
	}
	got := NewStructuredChunker(WithTargetTokens(15), WithMaxTokens(25), WithMinTokens(10)).Chunk(doc)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	for i, c := range got {
		if len(c.Text) > 100 {
			t.Errorf("piece %d is %d chars, exceeds max", i, len(c.Text))
		}
		if len(c.Text) < 40 {
			t.Errorf("piece %d is %d chars, under min", i, len(c.Text))
		}
	}
}

func TestStructuredChunkerEmptyDocument(t *testing.T) {
	if got := NewStructuredChunker().Chunk(strata.DocumentStructure{}); len(got) != 0 {
		t.Errorf("got %d candidates for empty document", len(got))
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
