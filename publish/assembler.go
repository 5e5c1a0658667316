package publish

import (
	"strings"

	strata "github.com/strata-kb/strata"
)

// Assembler builds the final addressable payloads from chunk candidates.
// Ids are derived from (source id, content hash), so republishing unchanged
// text yields the same id.
type Assembler struct {
	// ACL is attached verbatim to every assembled payload.
	ACL []string
}

// Assemble filters out blank candidates, drops in-batch duplicates by
// content hash, and emits payloads with dense zero-based indexes. The
// candidate slice order is preserved.
func (a Assembler) Assemble(candidates []strata.ChunkCandidate, doc strata.DocMetadata) []strata.Payload {
	payloads := make([]strata.Payload, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for _, cand := range candidates {
		text := strings.TrimSpace(cand.Text)
		if text == "" {
			continue
		}
		hash := strata.ContentHash(text)
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}

		index := len(payloads)
		kind := cand.Type
		if kind == "" {
			kind = strata.TypeKnowledge
		}
		score, issues := ScoreChunk(text, kind)

		payloads = append(payloads, strata.Payload{
			Chunk: strata.Chunk{
				ID:          strata.DeriveID(doc.SourceID, hash),
				SourceID:    doc.SourceID,
				Index:       index,
				Type:        kind,
				HeadingPath: cand.HeadingPath,
				Section:     strata.JoinHeadingPath(cand.HeadingPath),
				Text:        text,
				ContentHash: hash,
				Lang:        strata.DetectScript(text),
			},
			Doc:  doc,
			Tags: deriveTags(cand.HeadingPath, doc.Title),
			ACL:  a.ACL,
			Editor: strata.EditorMeta{
				Position:      index,
				QualityScore:  score,
				QualityIssues: issues,
			},
		})
	}
	return payloads
}

// deriveTags turns the heading path and document title into lower-cased
// topic tags, first occurrence wins.
func deriveTags(headingPath []string, title string) []string {
	var tags []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		tags = append(tags, s)
	}
	add(title)
	for _, h := range headingPath {
		// Split-piece suffixes are bookkeeping, not topics.
		if strings.HasPrefix(h, "(part ") {
			continue
		}
		add(h)
	}
	return tags
}
