// Package chunk turns parsed document structure (or flat text) into
// token-bounded, classified chunk candidates. It hosts the structural
// chunker, the LLM-assisted windowed chunker, the plain character splitter,
// and the overlap deduplicator.
package chunk

import (
	"regexp"
	"strings"

	strata "github.com/strata-kb/strata"
)

// Classifier tags a text span with one of the fixed chunk kinds using
// cheap lexical heuristics. Table rows and code blocks are typed by the
// chunker directly; the classifier decides among the prose kinds.
type Classifier struct{}

var (
	glossaryLineRe = regexp.MustCompile(`^\S[^\n]{0,60}\s+[—–:-]\s+\S`)
	questionRe     = regexp.MustCompile(`(?mi)^(q[:.]|question[:.]?)\s`)
	linkishRe      = regexp.MustCompile(`https?://|\[[^\]]+\]\([^)]+\)`)
)

// Classify returns the chunk type for text under the given heading path.
func (Classifier) Classify(text string, headingPath []string) strata.ChunkType {
	heading := strings.ToLower(strata.JoinHeadingPath(headingPath))

	if strings.Contains(heading, "faq") || looksLikeFAQ(text) {
		return strata.TypeFAQ
	}
	if strings.Contains(heading, "glossary") || looksLikeGlossary(text) {
		return strata.TypeGlossary
	}
	if looksLikeCode(text) {
		return strata.TypeCode
	}
	if looksLikeNavigation(text) {
		return strata.TypeNavigation
	}
	return strata.TypeKnowledge
}

// looksLikeFAQ: explicit Q:/Question: markers, or at least two question
// lines each followed by non-question prose.
func looksLikeFAQ(text string) bool {
	if questionRe.MatchString(text) {
		return true
	}
	lines := nonEmptyLines(text)
	questions, answered := 0, 0
	for i, l := range lines {
		if strings.HasSuffix(l, "?") {
			questions++
			if i+1 < len(lines) && !strings.HasSuffix(lines[i+1], "?") {
				answered++
			}
		}
	}
	return questions >= 2 && answered >= 2
}

// looksLikeGlossary: a run of short term-definition lines.
func looksLikeGlossary(text string) bool {
	lines := nonEmptyLines(text)
	if len(lines) < 3 {
		return false
	}
	matches := 0
	for _, l := range lines {
		if glossaryLineRe.MatchString(strings.TrimPrefix(l, "- ")) {
			matches++
		}
	}
	return matches*3 >= len(lines)*2
}

// looksLikeNavigation: mostly short link/bullet lines with little prose.
func looksLikeNavigation(text string) bool {
	lines := nonEmptyLines(text)
	if len(lines) < 3 {
		return false
	}
	navish := 0
	for _, l := range lines {
		short := len(l) <= 80
		bullet := strings.HasPrefix(l, "- ") || strings.HasPrefix(l, "* ")
		if short && (bullet || linkishRe.MatchString(l)) {
			navish++
		}
	}
	return navish*10 >= len(lines)*7
}

// looksLikeCode: fenced content or mostly indented lines with code
// punctuation.
func looksLikeCode(text string) bool {
	if strings.HasPrefix(strings.TrimSpace(text), "```") {
		return true
	}
	lines := nonEmptyLines(text)
	if len(lines) < 2 {
		return false
	}
	indented := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "    ") || strings.HasPrefix(l, "\t") {
			indented++
		}
	}
	return indented*10 >= len(lines)*6
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if t := strings.TrimRight(l, " \t"); strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}
