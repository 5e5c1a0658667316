package chunk

import (
	"strings"

	strata "github.com/strata-kb/strata"
)

// Deduper detects near-duplicate chunk texts produced by overlapping
// chunking windows. The same passage can come back twice with slightly
// ragged edges, so a pure equality check is not enough.
type Deduper struct {
	// MinOverlapLen is the shortest text the middle-slice check applies
	// to. Shorter texts only dedupe on exact or substring matches.
	MinOverlapLen int
	// EdgeTrim is how many characters to shave off each end of the
	// shorter text before the containment probe.
	EdgeTrim int
}

// NewDeduper returns a Deduper with the default thresholds.
func NewDeduper() *Deduper {
	return &Deduper{MinOverlapLen: 50, EdgeTrim: 10}
}

// Duplicate reports whether a and b are the same chunk in substance.
// It checks exact equality, containment either way, and for long texts a
// middle slice of the shorter one (edges trimmed) against the longer one.
func (d *Deduper) Duplicate(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	shorter, longer := a, b
	if len(b) < len(a) {
		shorter, longer = b, a
	}
	if len(shorter) <= d.MinOverlapLen {
		return false
	}
	// Window edges get mangled at split points. A middle slice of the
	// shorter text surviving inside the longer one means they overlap.
	if len(shorter) <= 2*d.EdgeTrim {
		return false
	}
	middle := shorter[d.EdgeTrim : len(shorter)-d.EdgeTrim]
	return strings.Contains(longer, middle)
}

// Dedup filters candidates in order, dropping any whose text duplicates
// an earlier survivor. The first occurrence wins.
func (d *Deduper) Dedup(candidates []strata.ChunkCandidate) []strata.ChunkCandidate {
	if len(candidates) < 2 {
		return candidates
	}
	kept := make([]strata.ChunkCandidate, 0, len(candidates))
	for _, c := range candidates {
		dup := false
		for _, k := range kept {
			if d.Duplicate(k.Text, c.Text) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	return kept
}
