// Package strata turns raw document markup into bounded, classified,
// content-addressed knowledge chunks and commits them to a searchable point
// store with replace-on-publish semantics.
//
// The pipeline, leaf to root:
//
//   - [Normalize]/[ContentHash]/[DetectScript]: stable hashing and script
//     classification for chunk text
//   - parse: recovers title, heading hierarchy, tables, and code blocks
//     from markdown, rich storage XML, or flat text/HTML
//   - chunk: token-bounded structural chunking, an LLM-assisted windowed
//     chunker for flat input, and a plain character splitter
//   - publish: assembles addressable chunk records, embeds them in batches,
//     and atomically replaces all prior chunks for a source; also the
//     post-publish split/merge/reorder/update operations
//
// The root package defines the contracts collaborators implement:
//
//   - [Provider]: chat completion backend (structured output capable)
//   - [EmbeddingProvider]: text-to-vector embedding
//   - [PointStore]: the vector store's scroll/filter/upsert/delete surface
//
// Included implementations: provider/openaicompat (any OpenAI-compatible
// API), store/memory, store/sqlite, store/postgres. Wrap providers with
// [WithRetry]/[WithEmbeddingRetry] for bounded retry with backoff, and with
// the observe package for OTEL telemetry.
package strata
