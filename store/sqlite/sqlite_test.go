package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	strata "github.com/strata-kb/strata"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "points.db"))
	t.Cleanup(func() { s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func testPoints(sourceID string, n int) []strata.Point {
	points := make([]strata.Point, n)
	for i := range points {
		id := sourceID + "-" + strconv.Itoa(i)
		points[i] = strata.Point{
			ID:     id,
			Vector: []float32{float32(i), 1},
			Payload: strata.Payload{
				Chunk: strata.Chunk{
					ID:       id,
					SourceID: sourceID,
					Index:    i,
					Type:     strata.TypeKnowledge,
					Text:     "chunk " + strconv.Itoa(i),
				},
				Doc:    strata.DocMetadata{SourceID: sourceID, SourceType: "wiki"},
				Editor: strata.EditorMeta{Position: i},
			},
		}
	}
	return points
}

func TestCollections(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok, err := s.CollectionExists(ctx, "kb")
	if err != nil || ok {
		t.Fatalf("got (%v, %v), want missing", ok, err)
	}
	if err := s.CreateCollection(ctx, "kb"); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if err := s.CreateCollection(ctx, "kb"); err != nil {
		t.Fatalf("repeat CreateCollection: %v", err)
	}
	if ok, _ = s.CollectionExists(ctx, "kb"); !ok {
		t.Error("collection missing after create")
	}
}

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	points := testPoints("doc-a", 2)
	if err := s.UpsertPoints(ctx, "kb", points); err != nil {
		t.Fatalf("UpsertPoints: %v", err)
	}

	got, err := s.GetPoints(ctx, "kb", []string{"doc-a-1", "missing", "doc-a-0"})
	if err != nil {
		t.Fatalf("GetPoints: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d points, want 2", len(got))
	}
	if got[0].ID != "doc-a-1" || got[0].Payload.Chunk.Text != "chunk 1" {
		t.Errorf("wrong point: %+v", got[0])
	}
	if len(got[0].Vector) != 2 {
		t.Errorf("vector not round-tripped: %v", got[0].Vector)
	}

	// Upserting the same id replaces the row.
	points[0].Payload.Chunk.Text = "rewritten"
	if err := s.UpsertPoints(ctx, "kb", points[:1]); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	got, _ = s.GetPoints(ctx, "kb", []string{"doc-a-0"})
	if got[0].Payload.Chunk.Text != "rewritten" {
		t.Errorf("upsert did not replace: %q", got[0].Payload.Chunk.Text)
	}
	if n, _ := s.CountPoints(ctx, "kb", nil); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestScrollOrderedPages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.UpsertPoints(ctx, "kb", testPoints("doc-a", 5)); err != nil {
		t.Fatal(err)
	}

	f := strata.FilterBySource("doc-a")
	var got []strata.Point
	cursor := ""
	for {
		page, next, err := s.Scroll(ctx, "kb", strata.ScrollOptions{
			Limit: 2, Offset: cursor, Filter: &f, OrderBy: "chunk.index",
		})
		if err != nil {
			t.Fatalf("Scroll: %v", err)
		}
		got = append(got, page...)
		if next == "" {
			break
		}
		cursor = next
	}
	if len(got) != 5 {
		t.Fatalf("got %d points, want 5", len(got))
	}
	for i, pt := range got {
		if pt.Payload.Chunk.Index != i {
			t.Errorf("point %d has index %d", i, pt.Payload.Chunk.Index)
		}
	}
}

func TestCountAndFilterByPayloadField(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	points := testPoints("doc-a", 3)
	points[1].Payload.Chunk.Type = strata.TypeTableRow
	if err := s.UpsertPoints(ctx, "kb", points); err != nil {
		t.Fatal(err)
	}

	f := strata.Filter{Must: []strata.Match{
		{Key: "doc.source_id", Value: "doc-a"},
		{Key: "chunk.type", Value: "table_row"},
	}}
	n, err := s.CountPoints(ctx, "kb", &f)
	if err != nil || n != 1 {
		t.Errorf("count = (%d, %v), want 1", n, err)
	}
}

func TestDeleteBySourceFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.UpsertPoints(ctx, "kb", testPoints("doc-a", 3)); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertPoints(ctx, "kb", testPoints("doc-b", 2)); err != nil {
		t.Fatal(err)
	}

	if err := s.DeletePointsByFilter(ctx, "kb", strata.FilterBySource("doc-a")); err != nil {
		t.Fatalf("DeletePointsByFilter: %v", err)
	}
	if n, _ := s.CountPoints(ctx, "kb", nil); n != 2 {
		t.Errorf("%d points remain, want 2", n)
	}
}

func TestUpdatePayloads(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	points := testPoints("doc-a", 1)
	if err := s.UpsertPoints(ctx, "kb", points); err != nil {
		t.Fatal(err)
	}

	patched := points[0].Payload
	patched.Editor.Position = 7
	if err := s.UpdatePayloads(ctx, "kb", []strata.PayloadPatch{{ID: "doc-a-0", Payload: patched}}); err != nil {
		t.Fatalf("UpdatePayloads: %v", err)
	}
	got, _ := s.GetPoints(ctx, "kb", []string{"doc-a-0"})
	if got[0].Payload.Editor.Position != 7 {
		t.Errorf("position = %d, want 7", got[0].Payload.Editor.Position)
	}
	if len(got[0].Vector) != 2 {
		t.Error("payload patch touched the vector")
	}

	err := s.UpdatePayloads(ctx, "kb", []strata.PayloadPatch{{ID: "ghost", Payload: patched}})
	var verr *strata.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("err = %v, want ValidationError", err)
	}
}

func TestDeletePoints(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.UpsertPoints(ctx, "kb", testPoints("doc-a", 2)); err != nil {
		t.Fatal(err)
	}
	if err := s.DeletePoints(ctx, "kb", []string{"doc-a-0"}); err != nil {
		t.Fatalf("DeletePoints: %v", err)
	}
	if n, _ := s.CountPoints(ctx, "kb", nil); n != 1 {
		t.Errorf("%d points remain, want 1", n)
	}
}
