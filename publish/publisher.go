package publish

import (
	"context"
	"fmt"
	"log/slog"

	strata "github.com/strata-kb/strata"
)

const defaultEmbedBatchSize = 64

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithEmbedBatchSize sets how many texts go into one embedding call.
func WithEmbedBatchSize(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithACL attaches an access list to every published payload.
func WithACL(acl []string) PublisherOption {
	return func(p *Publisher) { p.assembler.ACL = acl }
}

// WithPublisherLogger sets the logger.
func WithPublisherLogger(l *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// Publisher commits a finished chunk set for one source to the point store,
// replacing whatever that source had before. Embedding happens strictly
// before any store mutation, so an embedding failure leaves the store
// untouched.
type Publisher struct {
	store      strata.PointStore
	embedder   strata.EmbeddingProvider
	assembler  Assembler
	collection string
	batchSize  int
	logger     *slog.Logger
}

// NewPublisher creates a Publisher writing to the named collection.
func NewPublisher(store strata.PointStore, embedder strata.EmbeddingProvider, collection string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:      store,
		embedder:   embedder,
		collection: collection,
		batchSize:  defaultEmbedBatchSize,
		logger:     strata.NopLogger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishResult reports what a publish committed.
type PublishResult struct {
	PublishedCount int
}

// Ready verifies the target collection exists.
func (p *Publisher) Ready(ctx context.Context) error {
	ok, err := p.store.CollectionExists(ctx, p.collection)
	if err != nil {
		return fmt.Errorf("collection check: %w", err)
	}
	if !ok {
		return &strata.ValidationError{Field: "collection", Reason: fmt.Sprintf("collection %q does not exist", p.collection)}
	}
	return nil
}

// Publish assembles candidates into points and replaces all prior points
// for doc.SourceID. Blank candidates are dropped first; a set that reduces
// to nothing publishes zero chunks without touching the store. Once the
// delete has been issued the operation runs to completion even if the
// caller's context is cancelled.
func (p *Publisher) Publish(ctx context.Context, candidates []strata.ChunkCandidate, doc strata.DocMetadata) (PublishResult, error) {
	if doc.SourceID == "" {
		return PublishResult{}, &strata.ValidationError{Field: "doc.source_id", Reason: "source id is required"}
	}

	payloads := p.assembler.Assemble(candidates, doc)
	if len(payloads) == 0 {
		p.logger.Info("publish: nothing to publish", "source_id", doc.SourceID)
		return PublishResult{PublishedCount: 0}, nil
	}

	vectors, err := p.embed(ctx, payloads)
	if err != nil {
		// No store call has happened yet; prior chunks are intact.
		return PublishResult{}, err
	}

	points := make([]strata.Point, len(payloads))
	for i, pl := range payloads {
		points[i] = strata.Point{ID: pl.Chunk.ID, Vector: vectors[i], Payload: pl}
	}

	// Point of no return: delete then insert must both run.
	ctx = context.WithoutCancel(ctx)
	if err := p.store.DeletePointsByFilter(ctx, p.collection, strata.FilterBySource(doc.SourceID)); err != nil {
		return PublishResult{}, fmt.Errorf("delete prior chunks: %w", err)
	}
	if err := p.store.UpsertPoints(ctx, p.collection, points); err != nil {
		return PublishResult{}, fmt.Errorf("upsert chunks: %w", err)
	}

	p.logger.Info("publish complete",
		"source_id", doc.SourceID, "chunks", len(points), "collection", p.collection)
	return PublishResult{PublishedCount: len(points)}, nil
}

// embed generates one vector per payload in order, batched.
func (p *Publisher) embed(ctx context.Context, payloads []strata.Payload) ([][]float32, error) {
	vectors := make([][]float32, 0, len(payloads))
	for i := 0; i < len(payloads); i += p.batchSize {
		end := min(i+p.batchSize, len(payloads))
		texts := make([]string, 0, end-i)
		for _, pl := range payloads[i:end] {
			texts = append(texts, pl.Chunk.Text)
		}
		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", i, end, err)
		}
		if len(embeddings) != len(texts) {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors for %d texts", i, end, len(embeddings), len(texts))
		}
		vectors = append(vectors, embeddings...)
	}
	return vectors, nil
}

// CountChunks returns how many chunks a source currently has.
func (p *Publisher) CountChunks(ctx context.Context, sourceID string) (int, error) {
	f := strata.FilterBySource(sourceID)
	return p.store.CountPoints(ctx, p.collection, &f)
}

// ListChunks returns all chunks for a source ordered by index.
func (p *Publisher) ListChunks(ctx context.Context, sourceID string) ([]strata.Chunk, error) {
	f := strata.FilterBySource(sourceID)
	var chunks []strata.Chunk
	cursor := ""
	for {
		points, next, err := p.store.Scroll(ctx, p.collection, strata.ScrollOptions{
			Limit:   256,
			Offset:  cursor,
			Filter:  &f,
			OrderBy: "chunk.index",
		})
		if err != nil {
			return nil, fmt.Errorf("scroll %s: %w", sourceID, err)
		}
		for _, pt := range points {
			chunks = append(chunks, pt.Payload.Chunk)
		}
		if next == "" {
			return chunks, nil
		}
		cursor = next
	}
}
