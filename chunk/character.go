package chunk

import "strings"

// CharacterChunker is the plain character splitter: the last-resort path
// when neither structure nor an LLM drives chunk boundaries. It splits on
// paragraph, then sentence, then word boundaries, merging segments back up
// to the chunk size with a trailing-text overlap between chunks.
type CharacterChunker struct {
	chunkSize int // max chunk length in characters
	overlap   int // characters repeated from the previous chunk
}

// NewCharacterChunker creates a splitter with the given character budget
// and overlap. Overlap is capped at half the chunk size.
func NewCharacterChunker(chunkSize, overlap int) *CharacterChunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > chunkSize/2 {
		overlap = chunkSize / 2
	}
	return &CharacterChunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk splits text into chunks of at most the configured size. Text that
// already fits comes back as a single trimmed chunk.
func (cc *CharacterChunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= cc.chunkSize {
		return []string{text}
	}
	return cc.merge(cc.segments(text))
}

// packSize is the budget used when packing sentences and words into
// segments. Room is reserved for the overlap carried into the next chunk
// so merge can actually prepend it without blowing the size limit.
func (cc *CharacterChunker) packSize() int {
	return max(cc.chunkSize-cc.overlap, 1)
}

// segments breaks text into pieces no longer than chunkSize, preferring
// paragraph boundaries, then sentences, then words.
func (cc *CharacterChunker) segments(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= cc.chunkSize {
			out = append(out, para)
			continue
		}
		out = append(out, cc.sentenceSegments(para)...)
	}
	return out
}

func (cc *CharacterChunker) sentenceSegments(text string) []string {
	size := cc.packSize()
	var out []string
	var cur strings.Builder
	for _, sent := range splitSentences(text) {
		if len(sent) > size {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			out = append(out, cc.wordSegments(sent)...)
			continue
		}
		if cur.Len() > 0 && cur.Len()+1+len(sent) > size {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(sent)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func (cc *CharacterChunker) wordSegments(text string) []string {
	size := cc.packSize()
	var out []string
	var cur strings.Builder
	for _, word := range strings.Fields(text) {
		// A single word longer than the budget gets hard-sliced.
		if len(word) > size {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			for i := 0; i < len(word); i += size {
				end := min(i+size, len(word))
				out = append(out, word[i:end])
			}
			continue
		}
		if cur.Len() > 0 && cur.Len()+1+len(word) > size {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// merge joins segments back into chunks up to chunkSize, carrying an
// overlap suffix from each emitted chunk into the next.
func (cc *CharacterChunker) merge(segments []string) []string {
	var chunks []string
	var cur strings.Builder
	for _, seg := range segments {
		needed := len(seg)
		if cur.Len() > 0 {
			needed += cur.Len() + 1
		}
		if needed > cc.chunkSize && cur.Len() > 0 {
			chunk := cur.String()
			chunks = append(chunks, chunk)
			cur.Reset()
			if ov := overlapSuffix(chunk, cc.overlap); ov != "" && len(ov)+1+len(seg) <= cc.chunkSize {
				cur.WriteString(ov)
				cur.WriteByte('\n')
			}
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(seg)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}

	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// overlapSuffix returns up to n trailing characters of text, moved forward
// to the next word boundary so the overlap never starts mid-word.
func overlapSuffix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(text) <= n {
		return text
	}
	suffix := text[len(text)-n:]
	if idx := strings.IndexAny(suffix, " \n"); idx >= 0 {
		return strings.TrimSpace(suffix[idx+1:])
	}
	return strings.TrimSpace(suffix)
}

// splitSentences splits on sentence-ending punctuation followed by
// whitespace. It keeps the punctuation with the sentence and never splits
// inside a run without whitespace.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		ch := text[i]
		if (ch == '.' || ch == '!' || ch == '?') && (text[i+1] == ' ' || text[i+1] == '\n') {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
