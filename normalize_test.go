package strata

import "testing"

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello World", "hello world"},
		{"  Hello   World  ", "hello world"},
		{"Hello\n\n\nWorld", "hello world"},
		{"Hello\tWorld\n", "hello world"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestContentHashIdempotent(t *testing.T) {
	a := ContentHash("Some chunk text.")
	b := ContentHash("Some chunk text.")
	if a != b {
		t.Error("same text hashed differently")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestContentHashIgnoresWhitespaceVariants(t *testing.T) {
	base := ContentHash("First line.\n\nSecond line.")
	variants := []string{
		"  First line.\n\nSecond line.  ",
		"First line.\n\n\n\nSecond line.",
		"First line. Second line.",
	}
	for _, v := range variants {
		if ContentHash(v) != base {
			t.Errorf("hash changed for whitespace variant %q", v)
		}
	}
}

func TestContentHashDiffersForDifferentText(t *testing.T) {
	if ContentHash("alpha") == ContentHash("beta") {
		t.Error("different texts collided")
	}
}

func TestDetectScript(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"The quick brown fox", "latn"},
		{"Быстрая коричневая лиса", "cyrl"},
		{"你好世界，这是一段中文", "hani"},
		{"これは日本語のテキストです", "jpan"},
		{"안녕하세요 세계", "hang"},
		{"مرحبا بالعالم", "arab"},
		{"12345 --- !!!", "und"},
		{"", "und"},
	}
	for _, c := range cases {
		if got := DetectScript(c.in); got != c.want {
			t.Errorf("DetectScript(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDetectScriptMixedPicksDominant(t *testing.T) {
	// Mostly latin with a few cyrillic letters.
	if got := DetectScript("hello world это test of detection over longer text"); got != "latn" {
		t.Errorf("expected latn, got %q", got)
	}
}
