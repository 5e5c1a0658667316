package publish

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	strata "github.com/strata-kb/strata"
)

// Editor applies post-publish edits to chunks directly in the point store.
// Every text-changing edit regenerates the content hash, the id, and the
// embedding; metadata-only edits patch the payload and keep the vector.
// Concurrent edits to the same chunk are not coordinated; the store's last
// write wins.
type Editor struct {
	store      strata.PointStore
	embedder   strata.EmbeddingProvider
	collection string
	logger     *slog.Logger
}

// NewEditor creates an Editor over the named collection.
func NewEditor(store strata.PointStore, embedder strata.EmbeddingProvider, collection string, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = strata.NopLogger
	}
	return &Editor{store: store, embedder: embedder, collection: collection, logger: logger}
}

// SplitRequest describes how to split one chunk. Either Texts carries the
// explicit pieces, or Offsets carries byte positions to slice the original
// text at; Texts wins when both are set.
type SplitRequest struct {
	ChunkID string
	Texts   []string
	Offsets []int
}

// Split replaces one chunk with two or more pieces. Each piece gets a fresh
// id, hash, and embedding; positions run sequentially from the original
// chunk's position. Fewer than two non-empty pieces fails the whole
// operation with no store change.
func (e *Editor) Split(ctx context.Context, req SplitRequest) ([]strata.Chunk, error) {
	orig, err := e.getPoint(ctx, req.ChunkID)
	if err != nil {
		return nil, err
	}

	pieces := splitPieces(orig.Payload.Chunk.Text, req)
	if len(pieces) < 2 {
		return nil, &strata.ValidationError{Field: "pieces", Reason: "split must produce at least 2 non-empty pieces"}
	}

	vectors, err := e.embedder.Embed(ctx, pieces)
	if err != nil {
		return nil, fmt.Errorf("embed split pieces: %w", err)
	}
	if len(vectors) != len(pieces) {
		return nil, fmt.Errorf("embed split pieces: got %d vectors for %d texts", len(vectors), len(pieces))
	}

	points := make([]strata.Point, len(pieces))
	chunks := make([]strata.Chunk, len(pieces))
	for i, text := range pieces {
		pl := orig.Payload
		// Editor-authored pieces get fresh ids, not content-derived ones;
		// two pieces with equal normalized text must stay distinct points.
		pl.Chunk.ID = strata.NewID()
		pl.Chunk.Text = text
		pl.Chunk.ContentHash = strata.ContentHash(text)
		pl.Chunk.Index = orig.Payload.Chunk.Index + i
		pl.Chunk.Lang = strata.DetectScript(text)
		pl.Editor.Position = orig.Payload.Editor.Position + i
		pl.Editor.EditCount = orig.Payload.Editor.EditCount + 1
		pl.Editor.QualityScore, pl.Editor.QualityIssues = ScoreChunk(text, pl.Chunk.Type)
		points[i] = strata.Point{ID: pl.Chunk.ID, Vector: vectors[i], Payload: pl}
		chunks[i] = pl.Chunk
	}

	ctx = context.WithoutCancel(ctx)
	if err := e.store.DeletePoints(ctx, e.collection, []string{orig.ID}); err != nil {
		return nil, fmt.Errorf("delete original: %w", err)
	}
	if err := e.store.UpsertPoints(ctx, e.collection, points); err != nil {
		return nil, fmt.Errorf("insert pieces: %w", err)
	}

	e.logger.Info("chunk split", "chunk_id", orig.ID, "pieces", len(points))
	return chunks, nil
}

// splitPieces resolves the requested pieces: explicit texts, or offset
// slices of the original. Pieces are trimmed and blanks dropped.
func splitPieces(text string, req SplitRequest) []string {
	var raw []string
	if len(req.Texts) > 0 {
		raw = req.Texts
	} else {
		offsets := append([]int(nil), req.Offsets...)
		sort.Ints(offsets)
		prev := 0
		for _, off := range offsets {
			if off <= prev || off >= len(text) {
				continue
			}
			raw = append(raw, text[prev:off])
			prev = off
		}
		raw = append(raw, text[prev:])
	}

	pieces := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// Merge replaces two or more chunks with their concatenation. Inputs are
// ordered by current position; the result takes the lowest position, the
// union of the input tags, and one fresh embedding.
func (e *Editor) Merge(ctx context.Context, ids []string, separator string) (strata.Chunk, error) {
	if len(ids) < 2 {
		return strata.Chunk{}, &strata.ValidationError{Field: "ids", Reason: "merge needs at least 2 chunks"}
	}
	points, err := e.getPoints(ctx, ids)
	if err != nil {
		return strata.Chunk{}, err
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Payload.Editor.Position < points[j].Payload.Editor.Position
	})

	texts := make([]string, len(points))
	var tags []string
	seen := make(map[string]struct{})
	for i, pt := range points {
		texts[i] = pt.Payload.Chunk.Text
		for _, t := range pt.Payload.Tags {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				tags = append(tags, t)
			}
		}
	}
	merged := strings.Join(texts, separator)

	vectors, err := e.embedder.Embed(ctx, []string{merged})
	if err != nil {
		return strata.Chunk{}, fmt.Errorf("embed merged chunk: %w", err)
	}

	pl := points[0].Payload
	pl.Chunk.ID = strata.NewID()
	pl.Chunk.Text = merged
	pl.Chunk.ContentHash = strata.ContentHash(merged)
	pl.Chunk.Lang = strata.DetectScript(merged)
	pl.Tags = tags
	pl.Editor.EditCount++
	pl.Editor.QualityScore, pl.Editor.QualityIssues = ScoreChunk(merged, pl.Chunk.Type)

	ctx = context.WithoutCancel(ctx)
	if err := e.store.DeletePoints(ctx, e.collection, ids); err != nil {
		return strata.Chunk{}, fmt.Errorf("delete inputs: %w", err)
	}
	point := strata.Point{ID: pl.Chunk.ID, Vector: vectors[0], Payload: pl}
	if err := e.store.UpsertPoints(ctx, e.collection, []strata.Point{point}); err != nil {
		return strata.Chunk{}, fmt.Errorf("insert merged: %w", err)
	}

	e.logger.Info("chunks merged", "inputs", len(ids), "chunk_id", pl.Chunk.ID)
	return pl.Chunk, nil
}

// Move assigns a chunk a new position.
type Move struct {
	ChunkID  string
	Position int
}

// Reorder applies new positions as a payload-only update; no vector is
// touched. Every referenced chunk must exist or the whole operation fails.
func (e *Editor) Reorder(ctx context.Context, moves []Move) error {
	if len(moves) == 0 {
		return nil
	}
	ids := make([]string, len(moves))
	for i, m := range moves {
		ids[i] = m.ChunkID
	}
	points, err := e.getPoints(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]strata.Point, len(points))
	for _, pt := range points {
		byID[pt.ID] = pt
	}

	patches := make([]strata.PayloadPatch, len(moves))
	for i, m := range moves {
		pl := byID[m.ChunkID].Payload
		pl.Editor.Position = m.Position
		pl.Editor.EditCount++
		patches[i] = strata.PayloadPatch{ID: m.ChunkID, Payload: pl}
	}
	if err := e.store.UpdatePayloads(ctx, e.collection, patches); err != nil {
		return fmt.Errorf("reorder: %w", err)
	}
	e.logger.Info("chunks reordered", "count", len(moves))
	return nil
}

// UpdateRequest carries the fields to change on one chunk. Nil fields are
// left as they are.
type UpdateRequest struct {
	ChunkID     string
	Text        *string
	HeadingPath []string
	Tags        []string
	Type        strata.ChunkType
}

// Update edits one chunk. A text change regenerates hash, id, and embedding
// and replaces the point; a metadata-only change patches the payload and
// keeps the existing vector.
func (e *Editor) Update(ctx context.Context, req UpdateRequest) (strata.Chunk, error) {
	orig, err := e.getPoint(ctx, req.ChunkID)
	if err != nil {
		return strata.Chunk{}, err
	}

	pl := orig.Payload
	if req.HeadingPath != nil {
		pl.Chunk.HeadingPath = req.HeadingPath
		pl.Chunk.Section = strata.JoinHeadingPath(req.HeadingPath)
	}
	if req.Tags != nil {
		pl.Tags = req.Tags
	}
	if req.Type != "" {
		pl.Chunk.Type = req.Type
	}
	pl.Editor.EditCount++

	textChanged := false
	if req.Text != nil {
		text := strings.TrimSpace(*req.Text)
		if text == "" {
			return strata.Chunk{}, &strata.ValidationError{Field: "text", Reason: "chunk text cannot be empty"}
		}
		hash := strata.ContentHash(text)
		// A case- or whitespace-only edit hashes the same; the submitted
		// text is still what gets stored, it just keeps the id and vector.
		textChanged = hash != pl.Chunk.ContentHash
		pl.Chunk.Text = text
		pl.Chunk.ContentHash = hash
		pl.Chunk.Lang = strata.DetectScript(text)
		pl.Editor.QualityScore, pl.Editor.QualityIssues = ScoreChunk(text, pl.Chunk.Type)
		if textChanged {
			pl.Chunk.ID = strata.NewID()
		}
	}

	if !textChanged {
		patch := strata.PayloadPatch{ID: orig.ID, Payload: pl}
		if err := e.store.UpdatePayloads(ctx, e.collection, []strata.PayloadPatch{patch}); err != nil {
			return strata.Chunk{}, fmt.Errorf("patch payload: %w", err)
		}
		return pl.Chunk, nil
	}

	vectors, err := e.embedder.Embed(ctx, []string{pl.Chunk.Text})
	if err != nil {
		return strata.Chunk{}, fmt.Errorf("embed updated text: %w", err)
	}

	ctx = context.WithoutCancel(ctx)
	if err := e.store.DeletePoints(ctx, e.collection, []string{orig.ID}); err != nil {
		return strata.Chunk{}, fmt.Errorf("delete original: %w", err)
	}
	point := strata.Point{ID: pl.Chunk.ID, Vector: vectors[0], Payload: pl}
	if err := e.store.UpsertPoints(ctx, e.collection, []strata.Point{point}); err != nil {
		return strata.Chunk{}, fmt.Errorf("insert updated: %w", err)
	}

	e.logger.Info("chunk updated", "old_id", orig.ID, "chunk_id", pl.Chunk.ID)
	return pl.Chunk, nil
}

// Delete removes chunks by id.
func (e *Editor) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return e.store.DeletePoints(ctx, e.collection, ids)
}

func (e *Editor) getPoint(ctx context.Context, id string) (strata.Point, error) {
	points, err := e.getPoints(ctx, []string{id})
	if err != nil {
		return strata.Point{}, err
	}
	return points[0], nil
}

// getPoints fetches ids and fails if any are missing.
func (e *Editor) getPoints(ctx context.Context, ids []string) ([]strata.Point, error) {
	points, err := e.store.GetPoints(ctx, e.collection, ids)
	if err != nil {
		return nil, fmt.Errorf("get points: %w", err)
	}
	if len(points) != len(ids) {
		found := make(map[string]struct{}, len(points))
		for _, pt := range points {
			found[pt.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return nil, &strata.ValidationError{Field: "chunk_id", Reason: fmt.Sprintf("chunk %s not found", id)}
			}
		}
	}
	return points, nil
}
