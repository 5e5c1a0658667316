package parse

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	strata "github.com/strata-kb/strata"
)

// parsePlain handles flat text and plain HTML. HTML goes through
// readability extraction for a title and article text; anything else (or a
// failed extraction) is the raw text. Either way the result is a single
// flat section; there is no heading structure to recover.
func parsePlain(raw string) strata.DocumentStructure {
	if looksLikeHTML(raw) {
		u, _ := url.Parse("https://localhost/")
		article, err := readability.FromReader(strings.NewReader(raw), u)
		if err == nil && strings.TrimSpace(article.TextContent) != "" {
			return flatStructure(article.TextContent, strings.TrimSpace(article.Title))
		}
	}
	return flatStructure(raw, "")
}

// looksLikeHTML is a cheap sniff for markup worth running through
// readability extraction.
func looksLikeHTML(raw string) bool {
	head := strings.ToLower(raw)
	if len(head) > 512 {
		head = head[:512]
	}
	for _, marker := range []string{"<html", "<!doctype html", "<body", "<div", "<p>", "<article"} {
		if strings.Contains(head, marker) {
			return true
		}
	}
	return false
}
