package publish

import (
	"testing"

	strata "github.com/strata-kb/strata"
)

func TestAssembleDenseOrdering(t *testing.T) {
	cands := []strata.ChunkCandidate{
		{Text: "First section content goes here with enough words to pass quality."},
		{Text: "   "}, // dropped
		{Text: "Second section content goes here with enough words to pass quality."},
		{Text: "Third section content goes here with enough words to pass quality."},
	}
	doc := strata.DocMetadata{SourceID: "doc-a", SourceType: "wiki"}

	got := Assembler{}.Assemble(cands, doc)
	if len(got) != 3 {
		t.Fatalf("got %d payloads, want 3", len(got))
	}
	for i, pl := range got {
		if pl.Chunk.Index != i {
			t.Errorf("payload %d has index %d, want dense zero-based ordering", i, pl.Chunk.Index)
		}
		if pl.Editor.Position != i {
			t.Errorf("payload %d has position %d", i, pl.Editor.Position)
		}
		if pl.Chunk.SourceID != "doc-a" {
			t.Errorf("payload %d source = %q", i, pl.Chunk.SourceID)
		}
	}
}

func TestAssembleStableIDs(t *testing.T) {
	cands := []strata.ChunkCandidate{{Text: "Identical text in both runs, long enough to matter."}}
	doc := strata.DocMetadata{SourceID: "doc-a"}

	first := Assembler{}.Assemble(cands, doc)
	second := Assembler{}.Assemble(cands, doc)
	if first[0].Chunk.ID != second[0].Chunk.ID {
		t.Errorf("same (source, text) produced different ids: %s vs %s", first[0].Chunk.ID, second[0].Chunk.ID)
	}

	other := Assembler{}.Assemble(cands, strata.DocMetadata{SourceID: "doc-b"})
	if first[0].Chunk.ID == other[0].Chunk.ID {
		t.Error("different sources must not share ids")
	}
}

func TestAssembleDropsInBatchDuplicates(t *testing.T) {
	cands := []strata.ChunkCandidate{
		{Text: "Repeated block of knowledge text appearing twice in one batch."},
		{Text: "Repeated  block of knowledge text appearing twice in one batch. "}, // same after normalization
		{Text: "A distinct block of knowledge text that must survive assembly."},
	}
	got := Assembler{}.Assemble(cands, strata.DocMetadata{SourceID: "doc-a"})
	if len(got) != 2 {
		t.Fatalf("got %d payloads, want 2 (normalized duplicate dropped)", len(got))
	}
	if got[1].Chunk.Index != 1 {
		t.Errorf("index not dense after dedupe: %d", got[1].Chunk.Index)
	}
}

func TestAssembleSectionAndTags(t *testing.T) {
	cands := []strata.ChunkCandidate{{
		Text:        "Deployment happens through the pipeline described in this section.",
		HeadingPath: []string{"Operations", "Deploy", "(part 2)"},
		Type:        strata.TypeKnowledge,
	}}
	doc := strata.DocMetadata{SourceID: "doc-a", Title: "Runbook"}

	got := Assembler{}.Assemble(cands, doc)
	if got[0].Chunk.Section != "Operations / Deploy / (part 2)" {
		t.Errorf("section = %q", got[0].Chunk.Section)
	}
	wantTags := []string{"runbook", "operations", "deploy"}
	if len(got[0].Tags) != len(wantTags) {
		t.Fatalf("tags = %v, want %v", got[0].Tags, wantTags)
	}
	for i, w := range wantTags {
		if got[0].Tags[i] != w {
			t.Errorf("tag %d = %q, want %q", i, got[0].Tags[i], w)
		}
	}
}

func TestAssembleACL(t *testing.T) {
	cands := []strata.ChunkCandidate{{Text: "Restricted content for the engineering group only, nobody else."}}
	got := Assembler{ACL: []string{"group:eng"}}.Assemble(cands, strata.DocMetadata{SourceID: "doc-a"})
	if len(got[0].ACL) != 1 || got[0].ACL[0] != "group:eng" {
		t.Errorf("acl = %v", got[0].ACL)
	}
}

func TestAssembleLang(t *testing.T) {
	cands := []strata.ChunkCandidate{
		{Text: "Plain english text that is comfortably long enough for scoring."},
		{Text: "Обычный русский текст, достаточно длинный для оценки качества."},
	}
	got := Assembler{}.Assemble(cands, strata.DocMetadata{SourceID: "doc-a"})
	if got[0].Chunk.Lang != "latn" {
		t.Errorf("lang = %q, want latn", got[0].Chunk.Lang)
	}
	if got[1].Chunk.Lang != "cyrl" {
		t.Errorf("lang = %q, want cyrl", got[1].Chunk.Lang)
	}
}

func TestScoreChunk(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		kind       strata.ChunkType
		wantIssues []string
	}{
		{
			name: "clean prose",
			text: "This chunk is long enough, ends with a full stop, and carries no residue.",
			kind: strata.TypeKnowledge,
		},
		{
			name:       "too short",
			text:       "Tiny.",
			kind:       strata.TypeKnowledge,
			wantIssues: []string{"too_short"},
		},
		{
			name:       "truncated",
			text:       "This chunk is long enough but stops at a comma, which signals a cut mid-sentence,",
			kind:       strata.TypeKnowledge,
			wantIssues: []string{"truncated"},
		},
		{
			name:       "markup residue",
			text:       "This chunk still carries <ac:structured-macro leftovers from extraction work.",
			kind:       strata.TypeKnowledge,
			wantIssues: []string{"markup_residue"},
		},
		{
			name: "short code is fine",
			text: "x := 1",
			kind: strata.TypeCode,
		},
		{
			name: "short table row is fine",
			text: "Ann / Dev",
			kind: strata.TypeTableRow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, issues := ScoreChunk(tt.text, tt.kind)
			if len(issues) != len(tt.wantIssues) {
				t.Fatalf("issues = %v, want %v", issues, tt.wantIssues)
			}
			for i, w := range tt.wantIssues {
				if issues[i] != w {
					t.Errorf("issue %d = %q, want %q", i, issues[i], w)
				}
			}
			if len(issues) == 0 && score != 1.0 {
				t.Errorf("clean chunk score = %v, want 1.0", score)
			}
			if len(issues) > 0 && score >= 1.0 {
				t.Errorf("flagged chunk score = %v, want below 1.0", score)
			}
		})
	}
}
