package strata

import "testing"

func TestPayloadField(t *testing.T) {
	p := Payload{
		Chunk: Chunk{
			Index:       3,
			Type:        TypeKnowledge,
			Lang:        "latn",
			ContentHash: "abc123",
		},
		Doc: DocMetadata{
			SourceID:   "page-9",
			SourceType: "wiki",
			Revision:   "v7",
		},
		Editor: EditorMeta{Position: 3},
	}

	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"doc.source_id", "page-9", true},
		{"doc.source_type", "wiki", true},
		{"doc.revision", "v7", true},
		{"chunk.type", "knowledge", true},
		{"chunk.lang", "latn", true},
		{"chunk.content_hash", "abc123", true},
		{"chunk.index", "3", true},
		{"editor.position", "3", true},
		{"chunk.text", "", false},
		{"bogus", "", false},
	}
	for _, tt := range tests {
		got, ok := p.Field(tt.key)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Field(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFilterMatches(t *testing.T) {
	p := Payload{
		Chunk: Chunk{Type: TypeCode},
		Doc:   DocMetadata{SourceID: "page-1"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"zero filter matches everything", Filter{}, true},
		{"single match", FilterBySource("page-1"), true},
		{"single mismatch", FilterBySource("page-2"), false},
		{"conjunction all match", Filter{Must: []Match{
			{Key: "doc.source_id", Value: "page-1"},
			{Key: "chunk.type", Value: "code"},
		}}, true},
		{"conjunction one mismatch", Filter{Must: []Match{
			{Key: "doc.source_id", Value: "page-1"},
			{Key: "chunk.type", Value: "knowledge"},
		}}, false},
		{"unknown key never matches", Filter{Must: []Match{
			{Key: "bogus", Value: ""},
		}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(p); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortPointsNumeric(t *testing.T) {
	points := []Point{
		{ID: "a", Payload: Payload{Chunk: Chunk{Index: 10}}},
		{ID: "b", Payload: Payload{Chunk: Chunk{Index: 2}}},
		{ID: "c", Payload: Payload{Chunk: Chunk{Index: 1}}},
	}
	SortPoints(points, "chunk.index")

	// Numeric order, not lexicographic: 1, 2, 10.
	want := []string{"c", "b", "a"}
	for i, id := range want {
		if points[i].ID != id {
			t.Errorf("points[%d].ID = %q, want %q", i, points[i].ID, id)
		}
	}
}

func TestSortPointsTiebreakAndDefault(t *testing.T) {
	points := []Point{
		{ID: "z", Payload: Payload{Chunk: Chunk{Index: 5}}},
		{ID: "a", Payload: Payload{Chunk: Chunk{Index: 5}}},
	}
	SortPoints(points, "chunk.index")
	if points[0].ID != "a" {
		t.Errorf("equal field values should fall back to id order, got %q first", points[0].ID)
	}

	SortPoints(points, "")
	if points[0].ID != "a" || points[1].ID != "z" {
		t.Errorf("empty orderBy should sort by id, got %q, %q", points[0].ID, points[1].ID)
	}
}
