// Command strata-ingest reads one document, chunks it, and publishes the
// chunks with embeddings to the configured point store.
//
// Usage:
//
//	strata-ingest [-config strata.toml] [-source-id id] [-semantic] file
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	strata "github.com/strata-kb/strata"
	"github.com/strata-kb/strata/chunk"
	"github.com/strata-kb/strata/internal/config"
	"github.com/strata-kb/strata/observe"
	"github.com/strata-kb/strata/parse"
	"github.com/strata-kb/strata/provider/openaicompat"
	"github.com/strata-kb/strata/publish"
	"github.com/strata-kb/strata/store/memory"
	"github.com/strata-kb/strata/store/postgres"
	"github.com/strata-kb/strata/store/sqlite"
)

func main() {
	configPath := flag.String("config", os.Getenv("STRATA_CONFIG"), "path to strata.toml")
	sourceID := flag.String("source-id", "", "document source id (default: file name)")
	semantic := flag.Bool("semantic", false, "force LLM-windowed chunking")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: strata-ingest [flags] file")
		os.Exit(2)
	}
	file := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(context.Background(), *configPath, file, *sourceID, *semantic, logger); err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, file, sourceID string, semantic bool, logger *slog.Logger) error {
	cfg := config.Load(configPath)

	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if sourceID == "" {
		sourceID = filepath.Base(file)
	}

	// Providers
	llm := strata.WithRetry(
		openaicompat.NewProvider(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL),
		strata.RetryLogger(logger))
	embedder := strata.WithEmbeddingRetry(
		openaicompat.NewEmbeddingProvider(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL,
			openaicompat.WithDimensions(cfg.Embedding.Dimensions)),
		strata.RetryLogger(logger))

	var inst *observe.Instruments
	if cfg.Observe.Enabled {
		pricing := make(map[string]observe.ModelPricing, len(cfg.Observe.Pricing))
		for model, p := range cfg.Observe.Pricing {
			pricing[model] = observe.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		var shutdown func(context.Context) error
		inst, shutdown, err = observe.Init(ctx, pricing)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
		llm = observe.WrapProvider(llm, cfg.LLM.Model, inst)
		embedder = observe.WrapEmbedding(embedder, cfg.Embedding.Model, inst)
	}

	// Store
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}

	// Chunk
	text := string(raw)
	var candidates []strata.ChunkCandidate
	if semantic || cfg.Chunking.Strategy == "semantic" {
		chunker := chunk.NewWindowedSemanticChunker(llm,
			chunk.WithMaxContentLength(cfg.Chunking.MaxContent),
			chunk.WithDropDirty(cfg.Chunking.DropDirty),
			chunk.WithSemanticLogger(logger))
		candidates, err = chunker.Chunk(ctx, text)
		if err != nil {
			return err
		}
	} else {
		doc := parse.Parse(text, dialectOf(file))
		chunker := chunk.NewStructuredChunker(
			chunk.WithTargetTokens(cfg.Chunking.TargetTokens),
			chunk.WithMaxTokens(cfg.Chunking.MaxTokens),
			chunk.WithLogger(logger))
		candidates = chunker.Chunk(doc)
		if cfg.LLM.APIKey != "" && cfg.Chunking.CleanupWorkers > 0 {
			chunk.CleanupCandidates(ctx, llm, candidates, cfg.Chunking.CleanupWorkers, logger)
		}
	}

	// Publish
	publisher := publish.NewPublisher(store, embedder, cfg.Store.Collection,
		publish.WithEmbedBatchSize(cfg.Publish.EmbedBatchSize),
		publish.WithACL(cfg.Publish.ACL),
		publish.WithPublisherLogger(logger))
	if err := publisher.Ready(ctx); err != nil {
		return err
	}

	doc := strata.DocMetadata{
		SourceType: "file",
		SourceID:   sourceID,
		URL:        file,
		Title:      strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
	}

	start := time.Now()
	var span trace.Span
	if inst != nil {
		ctx, span = inst.StartPublish(ctx, doc.SourceType, doc.SourceID)
	}
	result, err := publisher.Publish(ctx, candidates, doc)
	if inst != nil {
		inst.RecordPublish(ctx, span, doc.SourceType, result.PublishedCount, float64(time.Since(start).Milliseconds()), err)
		span.End()
	}
	if err != nil {
		return err
	}

	total, err := publisher.CountChunks(ctx, sourceID)
	if err != nil {
		return err
	}
	fmt.Printf("published %d chunks for %s (%d stored)\n", result.PublishedCount, sourceID, total)
	return nil
}

// openStore builds the configured PointStore backend and makes sure the
// collection exists.
func openStore(ctx context.Context, cfg config.StoreConfig) (strata.PointStore, error) {
	switch cfg.Backend {
	case "memory":
		s := memory.New()
		if err := s.CreateCollection(ctx, cfg.Collection); err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		s := postgres.New(pool)
		if err := s.Init(ctx); err != nil {
			return nil, err
		}
		if err := s.CreateCollection(ctx, cfg.Collection); err != nil {
			return nil, err
		}
		return s, nil
	default:
		s := sqlite.New(cfg.Path)
		if err := s.Init(ctx); err != nil {
			return nil, err
		}
		if err := s.CreateCollection(ctx, cfg.Collection); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// dialectOf infers the markup dialect from the file extension.
func dialectOf(file string) parse.Dialect {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".md", ".markdown":
		return parse.DialectMarkdown
	case ".xml", ".storage":
		return parse.DialectStorage
	default:
		return parse.DialectPlain
	}
}
