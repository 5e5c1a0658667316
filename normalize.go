package strata

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds text for hashing: NFKC normalization, lower case, and all
// whitespace runs (including blank lines and leading/trailing space)
// collapsed to single spaces. Two texts that differ only in whitespace or
// case normalize identically.
func Normalize(text string) string {
	folded := strings.ToLower(norm.NFKC.String(text))
	return strings.Join(strings.Fields(folded), " ")
}

// ContentHash returns the hex SHA-256 of the normalized text. Equal
// normalized texts always hash equal, which drives both deduplication and
// derived chunk ids.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// scriptRanges maps a reported script tag to its unicode range table.
// Order matters only for deterministic tie-breaking.
var scriptRanges = []struct {
	tag   string
	table *unicode.RangeTable
}{
	{"latn", unicode.Latin},
	{"cyrl", unicode.Cyrillic},
	{"grek", unicode.Greek},
	{"arab", unicode.Arabic},
	{"hebr", unicode.Hebrew},
	{"deva", unicode.Devanagari},
	{"hani", unicode.Han},
	{"kana", unicode.Katakana},
	{"hira", unicode.Hiragana},
	{"hang", unicode.Hangul},
	{"thai", unicode.Thai},
}

// DetectScript classifies the dominant script of a text span, returning a
// lower-cased ISO 15924 tag ("latn", "cyrl", "hani", ...) or "und" when no
// letters are present. Hiragana/Katakana presence beside Han reports "jpan".
func DetectScript(text string) string {
	counts := make(map[string]int, len(scriptRanges))
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		for _, s := range scriptRanges {
			if unicode.Is(s.table, r) {
				counts[s.tag]++
				break
			}
		}
	}

	best, bestCount := "und", 0
	for _, s := range scriptRanges {
		if c := counts[s.tag]; c > bestCount {
			best, bestCount = s.tag, c
		}
	}
	if best == "hani" && (counts["kana"] > 0 || counts["hira"] > 0) {
		return "jpan"
	}
	if best == "kana" || best == "hira" {
		return "jpan"
	}
	return best
}
