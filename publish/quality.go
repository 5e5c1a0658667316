// Package publish turns chunk candidates into persisted points: it assembles
// the addressable chunk records, coordinates embed-then-replace publishes,
// and applies post-publish edits (split, merge, reorder, update) against the
// point store.
package publish

import (
	"regexp"
	"strings"

	strata "github.com/strata-kb/strata"
)

const (
	qualityMinChars = 40
	qualityMaxChars = 4000
)

var residueRe = regexp.MustCompile(`</?(?:ac|ri):[\w-]+|\[\[[^\]]*\]\]|\{\{[^}]*\}\}|&[a-z]+;`)

// ScoreChunk runs cheap heuristics over assembled chunk text and returns a
// quality score in [0,1] plus the list of detected issues. Code and table
// rows are exempt from the prose checks.
func ScoreChunk(text string, kind strata.ChunkType) (float64, []string) {
	var issues []string
	prose := kind != strata.TypeCode && kind != strata.TypeTableRow

	if prose && len(text) < qualityMinChars {
		issues = append(issues, "too_short")
	}
	if len(text) > qualityMaxChars {
		issues = append(issues, "too_long")
	}
	if prose && truncatedMidSentence(text) {
		issues = append(issues, "truncated")
	}
	if residueRe.MatchString(text) {
		issues = append(issues, "markup_residue")
	}

	score := 1.0 - 0.25*float64(len(issues))
	if score < 0 {
		score = 0
	}
	return score, issues
}

// truncatedMidSentence reports whether text ends without a sentence-closing
// character. Headings and list lines end cleanly without punctuation, so a
// trailing word by itself is not enough; a trailing comma or open bracket is.
func truncatedMidSentence(text string) bool {
	t := strings.TrimRight(text, " \n\t")
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case ',', ';', '(', '[', '{', '-':
		return true
	}
	return false
}
