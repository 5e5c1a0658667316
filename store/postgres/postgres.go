// Package postgres implements strata.PointStore using PostgreSQL with
// pgvector. Payloads live in a JSONB column, so filters and ordering are
// pushed down as JSONB path expressions instead of loading rows into the
// process.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	strata "github.com/strata-kb/strata"
)

// Option configures a PostgreSQL Store.
type Option func(*pgConfig)

type pgConfig struct {
	embeddingDimension int // 0 = untyped vector column
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
}

// WithEmbeddingDimension sets the vector column dimension (e.g. 1536, 768).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, catching
// dimension mismatches at insert time. Only affects new table creation.
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

// WithHNSWM sets the HNSW m parameter (max connections per node). Only
// affects index creation.
func WithHNSWM(m int) Option {
	return func(c *pgConfig) { c.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter. Only affects
// index creation.
func WithEFConstruction(ef int) Option {
	return func(c *pgConfig) { c.hnswEFConstruction = ef }
}

// Store holds points in PostgreSQL with pgvector embeddings.
type Store struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

var _ strata.PointStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool. The caller owns the
// pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	var cfg pgConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg}
}

func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

func (s *Store) hnswWithClause() string {
	var parts []string
	if s.cfg.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", s.cfg.hnswM))
	}
	if s.cfg.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", s.cfg.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// Init creates the pgvector extension, tables, and indexes.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			created_at BIGINT NOT NULL
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS points (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			source_id TEXT NOT NULL,
			embedding %s,
			payload JSONB NOT NULL,
			PRIMARY KEY (collection, id)
		)`, s.vectorType()),

		`CREATE INDEX IF NOT EXISTS points_source_idx ON points(collection, source_id)`,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS points_embedding_idx ON points USING hnsw (embedding vector_cosine_ops)%s`, s.hnswWithClause()),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// CreateCollection registers a collection. Creating an existing collection
// is a no-op.
func (s *Store) CreateCollection(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO collections (name, created_at) VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING`,
		name, strata.NowUnix())
	if err != nil {
		return fmt.Errorf("postgres: create collection: %w", err)
	}
	return nil
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM collections WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: collection exists: %w", err)
	}
	return exists, nil
}

func (s *Store) CountPoints(ctx context.Context, name string, filter *strata.Filter) (int, error) {
	where, args := filterClause(name, filter)
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM points`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count points: %w", err)
	}
	return n, nil
}

// Scroll pages through matching points. The cursor is the integer offset
// into the ordered result.
func (s *Store) Scroll(ctx context.Context, name string, opts strata.ScrollOptions) ([]strata.Point, string, error) {
	start := 0
	if opts.Offset != "" {
		n, err := strconv.Atoi(opts.Offset)
		if err != nil {
			return nil, "", &strata.ValidationError{Field: "offset", Reason: "malformed scroll cursor"}
		}
		start = n
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 256
	}

	where, args := filterClause(name, opts.Filter)
	query := `SELECT id, embedding::text, payload FROM points` + where +
		orderClause(opts.OrderBy) +
		fmt.Sprintf(` LIMIT %d OFFSET %d`, limit+1, start)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("postgres: scroll: %w", err)
	}
	defer rows.Close()

	var points []strata.Point
	for rows.Next() {
		var id string
		var embStr *string
		var payloadJSON []byte
		if err := rows.Scan(&id, &embStr, &payloadJSON); err != nil {
			return nil, "", fmt.Errorf("postgres: scan point: %w", err)
		}
		pt, err := decodePoint(id, embStr, payloadJSON)
		if err != nil {
			return nil, "", err
		}
		points = append(points, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("postgres: scroll rows: %w", err)
	}

	next := ""
	if len(points) > limit {
		points = points[:limit]
		next = strconv.Itoa(start + limit)
	}
	return points, next, nil
}

func (s *Store) GetPoints(ctx context.Context, name string, ids []string) ([]strata.Point, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, embedding::text, payload FROM points
		 WHERE collection = $1 AND id = ANY($2)`, name, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: get points: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]strata.Point, len(ids))
	for rows.Next() {
		var id string
		var embStr *string
		var payloadJSON []byte
		if err := rows.Scan(&id, &embStr, &payloadJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan point: %w", err)
		}
		pt, err := decodePoint(id, embStr, payloadJSON)
		if err != nil {
			return nil, err
		}
		byID[id] = pt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: get points rows: %w", err)
	}

	// Preserve request order, skipping ids that do not exist.
	points := make([]strata.Point, 0, len(byID))
	for _, id := range ids {
		if pt, ok := byID[id]; ok {
			points = append(points, pt)
		}
	}
	return points, nil
}

func (s *Store) UpsertPoints(ctx context.Context, name string, points []strata.Point) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, pt := range points {
		payloadJSON, err := json.Marshal(pt.Payload)
		if err != nil {
			return fmt.Errorf("postgres: marshal payload %s: %w", pt.ID, err)
		}
		var emb any
		if len(pt.Vector) > 0 {
			emb = serializeEmbedding(pt.Vector)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO points (collection, id, source_id, embedding, payload)
			 VALUES ($1, $2, $3, $4::vector, $5::jsonb)
			 ON CONFLICT (collection, id) DO UPDATE SET
			   source_id = EXCLUDED.source_id,
			   embedding = EXCLUDED.embedding,
			   payload = EXCLUDED.payload`,
			name, pt.ID, pt.Payload.Doc.SourceID, emb, payloadJSON)
		if err != nil {
			return fmt.Errorf("postgres: upsert point %s: %w", pt.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) UpdatePayloads(ctx context.Context, name string, patches []strata.PayloadPatch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, patch := range patches {
		payloadJSON, err := json.Marshal(patch.Payload)
		if err != nil {
			return fmt.Errorf("postgres: marshal payload %s: %w", patch.ID, err)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE points SET payload = $1::jsonb, source_id = $2
			 WHERE collection = $3 AND id = $4`,
			payloadJSON, patch.Payload.Doc.SourceID, name, patch.ID)
		if err != nil {
			return fmt.Errorf("postgres: update point %s: %w", patch.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return &strata.ValidationError{Field: "id", Reason: "point " + patch.ID + " not found"}
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) DeletePoints(ctx context.Context, name string, ids []string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM points WHERE collection = $1 AND id = ANY($2)`, name, ids)
	if err != nil {
		return fmt.Errorf("postgres: delete points: %w", err)
	}
	return nil
}

func (s *Store) DeletePointsByFilter(ctx context.Context, name string, filter strata.Filter) error {
	where, args := filterClause(name, &filter)
	_, err := s.pool.Exec(ctx, `DELETE FROM points`+where, args...)
	if err != nil {
		return fmt.Errorf("postgres: delete by filter: %w", err)
	}
	return nil
}

// fieldExpr maps a payload field key to its JSONB path expression. The key
// set mirrors Payload.Field so all backends filter identically.
func fieldExpr(key string) (string, bool) {
	switch key {
	case "doc.source_id":
		return `source_id`, true
	case "doc.source_type":
		return `payload->'doc'->>'source_type'`, true
	case "doc.revision":
		return `payload->'doc'->>'revision'`, true
	case "chunk.type":
		return `payload->'chunk'->>'type'`, true
	case "chunk.lang":
		return `payload->'chunk'->>'lang'`, true
	case "chunk.content_hash":
		return `payload->'chunk'->>'content_hash'`, true
	case "chunk.index":
		return `payload->'chunk'->>'index'`, true
	case "editor.position":
		return `payload->'editor'->>'position'`, true
	}
	return "", false
}

// numericField reports whether a field key holds an integer on the wire.
func numericField(key string) bool {
	return key == "chunk.index" || key == "editor.position"
}

func filterClause(name string, filter *strata.Filter) (string, []any) {
	conds := []string{"collection = $1"}
	args := []any{name}
	if filter != nil {
		for _, m := range filter.Must {
			expr, ok := fieldExpr(m.Key)
			if !ok {
				// Unknown keys match nothing, same as Payload.Field.
				conds = append(conds, "FALSE")
				continue
			}
			args = append(args, m.Value)
			conds = append(conds, fmt.Sprintf("%s = $%d", expr, len(args)))
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(orderBy string) string {
	expr, ok := fieldExpr(orderBy)
	if !ok {
		return ` ORDER BY id`
	}
	if numericField(orderBy) {
		return fmt.Sprintf(` ORDER BY (%s)::int, id`, expr)
	}
	return fmt.Sprintf(` ORDER BY %s, id`, expr)
}

// serializeEmbedding converts []float32 to pgvector's text input format,
// e.g. "[0.1,0.2,0.3]".
func serializeEmbedding(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseEmbedding parses pgvector's text output format back to []float32.
func parseEmbedding(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parse embedding value %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func decodePoint(id string, embStr *string, payloadJSON []byte) (strata.Point, error) {
	pt := strata.Point{ID: id}
	if embStr != nil {
		vec, err := parseEmbedding(*embStr)
		if err != nil {
			return strata.Point{}, fmt.Errorf("postgres: decode embedding %s: %w", id, err)
		}
		pt.Vector = vec
	}
	if err := json.Unmarshal(payloadJSON, &pt.Payload); err != nil {
		return strata.Point{}, fmt.Errorf("postgres: decode payload %s: %w", id, err)
	}
	return pt, nil
}
