package strata

import (
	"context"
	"sort"
	"strconv"
)

// Point is one stored chunk record: stable id, embedding vector, and the
// full payload (chunk + provenance + tags + acl + editor state).
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector,omitempty"`
	Payload Payload   `json:"payload"`
}

// Payload is the persisted record attached to a point.
type Payload struct {
	Chunk  Chunk       `json:"chunk"`
	Doc    DocMetadata `json:"doc"`
	Tags   []string    `json:"tags,omitempty"`
	ACL    []string    `json:"acl,omitempty"`
	Editor EditorMeta  `json:"editor"`
}

// Field resolves a dotted filter/order key against the payload. Stores use
// it so filter semantics stay identical across backends.
func (p Payload) Field(key string) (string, bool) {
	switch key {
	case "doc.source_id":
		return p.Doc.SourceID, true
	case "doc.source_type":
		return p.Doc.SourceType, true
	case "doc.revision":
		return p.Doc.Revision, true
	case "chunk.type":
		return string(p.Chunk.Type), true
	case "chunk.lang":
		return p.Chunk.Lang, true
	case "chunk.content_hash":
		return p.Chunk.ContentHash, true
	case "chunk.index":
		return strconv.Itoa(p.Chunk.Index), true
	case "editor.position":
		return strconv.Itoa(p.Editor.Position), true
	}
	return "", false
}

// Match is one equality condition over a payload field.
type Match struct {
	Key   string
	Value string
}

// Filter is a conjunction of matches. A zero filter matches everything.
type Filter struct {
	Must []Match
}

// Matches reports whether p satisfies every condition in f.
func (f Filter) Matches(p Payload) bool {
	for _, m := range f.Must {
		v, ok := p.Field(m.Key)
		if !ok || v != m.Value {
			return false
		}
	}
	return true
}

// FilterBySource matches all points belonging to one source document.
func FilterBySource(sourceID string) Filter {
	return Filter{Must: []Match{{Key: "doc.source_id", Value: sourceID}}}
}

// ScrollOptions page through points in a collection.
type ScrollOptions struct {
	Limit   int
	Offset  string // cursor from a previous Scroll, "" for the first page
	Filter  *Filter
	OrderBy string // payload field key, e.g. "chunk.index"; "" = id order
}

// PayloadPatch replaces a point's payload while leaving its vector intact.
type PayloadPatch struct {
	ID      string
	Payload Payload
}

// SortPoints orders points by a payload field key, numerically when both
// values parse as integers, with id as the tiebreak so the order is total.
// Stores share it so OrderBy semantics stay identical across backends.
func SortPoints(points []Point, orderBy string) {
	sort.Slice(points, func(i, j int) bool {
		if orderBy != "" {
			a, aok := points[i].Payload.Field(orderBy)
			b, bok := points[j].Payload.Field(orderBy)
			if aok && bok && a != b {
				an, aerr := strconv.Atoi(a)
				bn, berr := strconv.Atoi(b)
				if aerr == nil && berr == nil {
					return an < bn
				}
				return a < b
			}
		}
		return points[i].ID < points[j].ID
	})
}

// PointStore abstracts the vector store as a filtered point store. Storage
// and indexing internals are the store's concern; this core only needs the
// operations below. Each call is atomic at the call level.
type PointStore interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CountPoints(ctx context.Context, name string, filter *Filter) (int, error)
	// Scroll returns up to Limit points and a cursor for the next page;
	// an empty cursor means the scroll is exhausted.
	Scroll(ctx context.Context, name string, opts ScrollOptions) ([]Point, string, error)
	GetPoints(ctx context.Context, name string, ids []string) ([]Point, error)
	UpsertPoints(ctx context.Context, name string, points []Point) error
	UpdatePayloads(ctx context.Context, name string, patches []PayloadPatch) error
	DeletePoints(ctx context.Context, name string, ids []string) error
	DeletePointsByFilter(ctx context.Context, name string, filter Filter) error
}
