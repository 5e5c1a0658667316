package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	strata "github.com/strata-kb/strata"
)

const cleanupPrompt = `Here is a chunk of text extracted from a knowledge base document:
<chunk>
%s
</chunk>

Rewrite this chunk with extraction noise removed: stray markup fragments, broken wiki syntax, duplicated whitespace, orphaned link labels. Do not summarize, reorder, or drop information. If the chunk is already clean, return it unchanged. Answer only with the cleaned text and nothing else.`

// CleanupCandidates sends each candidate through an LLM cleanup pass that
// strips extraction noise without changing meaning. Candidates are processed
// independently via a bounded worker pool. Individual LLM failures are
// logged but do not block, the candidate keeps its original text.
func CleanupCandidates(ctx context.Context, provider strata.Provider, candidates []strata.ChunkCandidate, workers int, logger *slog.Logger) {
	if len(candidates) == 0 {
		return
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = strata.NopLogger
	}

	numWorkers := min(workers, len(candidates))
	work := make(chan int, len(candidates))
	done := make(chan struct{})

	logger.Info("cleanup: worker pool started",
		"candidate_count", len(candidates), "workers", numWorkers)

	var cleaned, failed, skipped atomic.Int32

	for w := 0; w < numWorkers; w++ {
		go func() {
			for i := range work {
				if ctx.Err() != nil {
					skipped.Add(1)
					logger.Warn("cleanup: context cancelled, skipping candidate",
						"index", i)
					continue
				}

				// Code and table rows must survive byte-for-byte.
				if candidates[i].Type == strata.TypeCode || candidates[i].Type == strata.TypeTableRow {
					continue
				}

				prompt := fmt.Sprintf(cleanupPrompt, candidates[i].Text)
				resp, err := provider.Chat(ctx, strata.ChatRequest{
					Messages: []strata.ChatMessage{strata.UserMessage(prompt)},
				})
				if err != nil {
					failed.Add(1)
					logger.Warn("cleanup: LLM call failed", "index", i, "err", err)
					continue
				}
				if resp.Refusal != "" {
					failed.Add(1)
					logger.Warn("cleanup: model refused", "index", i)
					continue
				}

				text := strings.TrimSpace(resp.Content)
				if text == "" {
					logger.Warn("cleanup: empty response from LLM", "index", i)
					continue
				}
				if text != candidates[i].Text {
					candidates[i].Text = text
					cleaned.Add(1)
				}
			}
			done <- struct{}{}
		}()
	}

	for i := range candidates {
		work <- i
	}
	close(work)

	for w := 0; w < numWorkers; w++ {
		<-done
	}

	c, f, s := cleaned.Load(), failed.Load(), skipped.Load()
	if f > 0 || s > 0 {
		logger.Warn("cleanup completed with issues",
			"cleaned", c, "failed", f, "skipped", s, "total", len(candidates))
	} else {
		logger.Info("cleanup complete", "cleaned", c, "total", len(candidates))
	}
}
