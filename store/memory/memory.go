// Package memory provides an in-process PointStore used in tests and small
// single-process deployments. All operations are linearized behind one
// mutex; filter and ordering semantics are shared with the persistent
// backends through the payload field resolver.
package memory

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	strata "github.com/strata-kb/strata"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a structured logger for the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store holds points per collection in plain maps.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]strata.Point
	logger      *slog.Logger
}

var _ strata.PointStore = (*Store)(nil)

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]map[string]strata.Point),
		logger:      strata.NopLogger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateCollection makes an empty collection. Creating an existing
// collection is a no-op.
func (s *Store) CreateCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = make(map[string]strata.Point)
	}
	return nil
}

func (s *Store) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Store) CountPoints(_ context.Context, name string, filter *strata.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, pt := range s.collections[name] {
		if filter == nil || filter.Matches(pt.Payload) {
			n++
		}
	}
	return n, nil
}

// Scroll pages through matching points. The cursor is the integer offset
// into the filtered, ordered snapshot; it stays valid only as long as the
// collection does not change between pages.
func (s *Store) Scroll(_ context.Context, name string, opts strata.ScrollOptions) ([]strata.Point, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]strata.Point, 0, len(s.collections[name]))
	for _, pt := range s.collections[name] {
		if opts.Filter == nil || opts.Filter.Matches(pt.Payload) {
			matched = append(matched, pt)
		}
	}
	strata.SortPoints(matched, opts.OrderBy)

	start := 0
	if opts.Offset != "" {
		n, err := strconv.Atoi(opts.Offset)
		if err != nil {
			return nil, "", &strata.ValidationError{Field: "offset", Reason: "malformed scroll cursor"}
		}
		start = n
	}
	if start >= len(matched) {
		return nil, "", nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = len(matched) - start
	}
	end := min(start+limit, len(matched))

	next := ""
	if end < len(matched) {
		next = strconv.Itoa(end)
	}
	return matched[start:end], next, nil
}

func (s *Store) GetPoints(_ context.Context, name string, ids []string) ([]strata.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	points := make([]strata.Point, 0, len(ids))
	for _, id := range ids {
		if pt, ok := s.collections[name][id]; ok {
			points = append(points, pt)
		}
	}
	return points, nil
}

func (s *Store) UpsertPoints(_ context.Context, name string, points []strata.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string]strata.Point)
		s.collections[name] = coll
	}
	for _, pt := range points {
		coll[pt.ID] = pt
	}
	s.logger.Debug("memory: upsert", "collection", name, "points", len(points))
	return nil
}

func (s *Store) UpdatePayloads(_ context.Context, name string, patches []strata.PayloadPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, patch := range patches {
		pt, ok := s.collections[name][patch.ID]
		if !ok {
			return &strata.ValidationError{Field: "id", Reason: "point " + patch.ID + " not found"}
		}
		pt.Payload = patch.Payload
		s.collections[name][patch.ID] = pt
	}
	return nil
}

func (s *Store) DeletePoints(_ context.Context, name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.collections[name], id)
	}
	return nil
}

func (s *Store) DeletePointsByFilter(_ context.Context, name string, filter strata.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, pt := range s.collections[name] {
		if filter.Matches(pt.Payload) {
			delete(s.collections[name], id)
		}
	}
	return nil
}
