// Package sqlite implements strata.PointStore on pure-Go SQLite. Zero CGO
// required. Vectors and payloads are stored as JSON text; filtering and
// ordering run in-process through the shared payload field resolver, with
// the source id extracted into its own indexed column for the common
// publish-time filter.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	strata "github.com/strata-kb/strata"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store. When set, the store
// emits debug logs for every operation including timing and row counts.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store holds points in a local SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ strata.PointStore = (*Store)(nil)

// New creates a Store at dbPath. A single shared connection serializes all
// writers, eliminating SQLITE_BUSY errors from concurrent publishes.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: strata.NopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates the schema.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS points (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			source_id TEXT NOT NULL,
			vector TEXT,
			payload TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_source ON points(collection, source_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.Error("sqlite: init failed", "error", err)
			return fmt.Errorf("sqlite init: %w", err)
		}
	}
	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// CreateCollection registers a collection. Creating an existing collection
// is a no-op.
func (s *Store) CreateCollection(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, created_at) VALUES (?, ?)`,
		name, strata.NowUnix())
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM collections WHERE name = ?`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("collection exists: %w", err)
	}
	return true, nil
}

func (s *Store) CountPoints(ctx context.Context, name string, filter *strata.Filter) (int, error) {
	points, err := s.load(ctx, name, filter)
	if err != nil {
		return 0, err
	}
	return len(points), nil
}

// Scroll pages through matching points ordered by the requested payload
// field. The cursor is the integer offset into the ordered result.
func (s *Store) Scroll(ctx context.Context, name string, opts strata.ScrollOptions) ([]strata.Point, string, error) {
	points, err := s.load(ctx, name, opts.Filter)
	if err != nil {
		return nil, "", err
	}
	strata.SortPoints(points, opts.OrderBy)

	start := 0
	if opts.Offset != "" {
		n, err := strconv.Atoi(opts.Offset)
		if err != nil {
			return nil, "", &strata.ValidationError{Field: "offset", Reason: "malformed scroll cursor"}
		}
		start = n
	}
	if start >= len(points) {
		return nil, "", nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = len(points) - start
	}
	end := min(start+limit, len(points))
	next := ""
	if end < len(points) {
		next = strconv.Itoa(end)
	}
	return points[start:end], next, nil
}

func (s *Store) GetPoints(ctx context.Context, name string, ids []string) ([]strata.Point, error) {
	points := make([]strata.Point, 0, len(ids))
	for _, id := range ids {
		var vecJSON sql.NullString
		var payloadJSON string
		err := s.db.QueryRowContext(ctx,
			`SELECT vector, payload FROM points WHERE collection = ? AND id = ?`,
			name, id).Scan(&vecJSON, &payloadJSON)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get point %s: %w", id, err)
		}
		pt, err := decodePoint(id, vecJSON.String, payloadJSON)
		if err != nil {
			return nil, err
		}
		points = append(points, pt)
	}
	return points, nil
}

func (s *Store) UpsertPoints(ctx context.Context, name string, points []strata.Point) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert begin: %w", err)
	}
	defer tx.Rollback()

	for _, pt := range points {
		vecJSON, err := json.Marshal(pt.Vector)
		if err != nil {
			return fmt.Errorf("marshal vector %s: %w", pt.ID, err)
		}
		payloadJSON, err := json.Marshal(pt.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload %s: %w", pt.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO points (collection, id, source_id, vector, payload)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (collection, id) DO UPDATE SET
				source_id = excluded.source_id,
				vector = excluded.vector,
				payload = excluded.payload`,
			name, pt.ID, pt.Payload.Doc.SourceID, string(vecJSON), string(payloadJSON))
		if err != nil {
			return fmt.Errorf("upsert point %s: %w", pt.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert commit: %w", err)
	}
	s.logger.Debug("sqlite: upsert", "collection", name, "points", len(points), "duration", time.Since(start))
	return nil
}

func (s *Store) UpdatePayloads(ctx context.Context, name string, patches []strata.PayloadPatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update begin: %w", err)
	}
	defer tx.Rollback()

	for _, patch := range patches {
		payloadJSON, err := json.Marshal(patch.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload %s: %w", patch.ID, err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE points SET payload = ?, source_id = ? WHERE collection = ? AND id = ?`,
			string(payloadJSON), patch.Payload.Doc.SourceID, name, patch.ID)
		if err != nil {
			return fmt.Errorf("update point %s: %w", patch.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &strata.ValidationError{Field: "id", Reason: "point " + patch.ID + " not found"}
		}
	}
	return tx.Commit()
}

func (s *Store) DeletePoints(ctx context.Context, name string, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete begin: %w", err)
	}
	defer tx.Rollback()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM points WHERE collection = ? AND id = ?`, name, id); err != nil {
			return fmt.Errorf("delete point %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *Store) DeletePointsByFilter(ctx context.Context, name string, filter strata.Filter) error {
	// The common filter is by source id alone, which the index serves
	// directly without loading payloads.
	if sourceID, ok := sourceOnlyFilter(filter); ok {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM points WHERE collection = ? AND source_id = ?`, name, sourceID)
		if err != nil {
			return fmt.Errorf("delete by source: %w", err)
		}
		return nil
	}

	points, err := s.load(ctx, name, &filter)
	if err != nil {
		return err
	}
	ids := make([]string, len(points))
	for i, pt := range points {
		ids[i] = pt.ID
	}
	return s.DeletePoints(ctx, name, ids)
}

// load reads all points of a collection matching filter. A source-id match
// in the filter is pushed down to SQL; remaining conditions run in-process.
func (s *Store) load(ctx context.Context, name string, filter *strata.Filter) ([]strata.Point, error) {
	query := `SELECT id, vector, payload FROM points WHERE collection = ?`
	args := []any{name}
	if filter != nil {
		for _, m := range filter.Must {
			if m.Key == "doc.source_id" {
				query += ` AND source_id = ?`
				args = append(args, m.Value)
				break
			}
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load points: %w", err)
	}
	defer rows.Close()

	var points []strata.Point
	for rows.Next() {
		var id string
		var vecJSON sql.NullString
		var payloadJSON string
		if err := rows.Scan(&id, &vecJSON, &payloadJSON); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		pt, err := decodePoint(id, vecJSON.String, payloadJSON)
		if err != nil {
			return nil, err
		}
		if filter == nil || filter.Matches(pt.Payload) {
			points = append(points, pt)
		}
	}
	return points, rows.Err()
}

func decodePoint(id, vecJSON, payloadJSON string) (strata.Point, error) {
	pt := strata.Point{ID: id}
	if vecJSON != "" {
		if err := json.Unmarshal([]byte(vecJSON), &pt.Vector); err != nil {
			return strata.Point{}, fmt.Errorf("decode vector %s: %w", id, err)
		}
	}
	if err := json.Unmarshal([]byte(payloadJSON), &pt.Payload); err != nil {
		return strata.Point{}, fmt.Errorf("decode payload %s: %w", id, err)
	}
	return pt, nil
}

func sourceOnlyFilter(f strata.Filter) (string, bool) {
	if len(f.Must) == 1 && f.Must[0].Key == "doc.source_id" {
		return f.Must[0].Value, true
	}
	return "", false
}
