// Package chunker splits extracted text into overlapping token-budgeted
// chunks that respect paragraph and sentence boundaries. It never calls
// a real tokenizer: token count is approximated as ceil(len(text)/4),
// and every downstream component accepts that approximation.
package chunker

import (
	"math"
	"regexp"
	"strings"
)

const charsPerToken = 4

type ChunkResult struct {
	Text       string
	Index      int
	TokenCount int
	StartChar  int
	EndChar    int
}

type paragraph struct {
	text       string
	start, end int
}

var blankLine = regexp.MustCompile(`\n[ \t]*\n+`)

func splitParagraphs(text string) []paragraph {
	locs := blankLine.FindAllStringIndex(text, -1)
	var spans [][2]int
	cursor := 0
	for _, loc := range locs {
		spans = append(spans, [2]int{cursor, loc[0]})
		cursor = loc[1]
	}
	spans = append(spans, [2]int{cursor, len(text)})

	var paragraphs []paragraph
	for _, sp := range spans {
		raw := text[sp[0]:sp[1]]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		leading := strings.Index(raw, trimmed)
		start := sp[0] + leading
		paragraphs = append(paragraphs, paragraph{text: trimmed, start: start, end: start + len(trimmed)})
	}
	return paragraphs
}

func ApproxTokens(text string) int {
	return int(math.Ceil(float64(len(text)) / charsPerToken))
}

// Chunk splits text into chunks targeting chunkSizeTokens with
// overlapSizeTokens of shared content between consecutive chunks.
func Chunk(text string, chunkSizeTokens, overlapSizeTokens int) []ChunkResult {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	limit := chunkSizeTokens * charsPerToken
	overlapLimit := overlapSizeTokens * charsPerToken

	var chunks []ChunkResult
	index := 0

	var curParts []string
	curStart := paragraphs[0].start
	curEnd := paragraphs[0].start

	curLen := func() int {
		if len(curParts) == 0 {
			return 0
		}
		return len(strings.Join(curParts, "\n\n"))
	}

	emit := func() {
		if len(curParts) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(curParts, "\n\n"))
		if text == "" {
			return
		}
		chunks = append(chunks, ChunkResult{
			Text:       text,
			Index:      index,
			TokenCount: ApproxTokens(text),
			StartChar:  curStart,
			EndChar:    curEnd,
		})
		index++
	}

	for _, p := range paragraphs {
		sep := 0
		if len(curParts) > 0 {
			sep = 2
		}
		if len(curParts) > 0 && curLen()+sep+len(p.text) > limit {
			emit()
			prefix, prefixLen := overlapPrefix(curParts, overlapLimit)
			curParts = nil
			if prefix != "" {
				curParts = append(curParts, prefix)
			}
			curStart = curEnd - prefixLen
		}
		curParts = append(curParts, p.text)
		curEnd = p.end
	}
	emit()

	return chunks
}

var sentenceBreak = regexp.MustCompile(`[.!?]\s+[A-Z]`)

// overlapPrefix takes the tail overlapLimit characters of the
// just-emitted chunk's parts and, if a sentence boundary is found
// within it, begins the prefix right after that boundary's punctuation.
// Otherwise it returns the tail verbatim.
func overlapPrefix(parts []string, overlapLimit int) (string, int) {
	if overlapLimit <= 0 || len(parts) == 0 {
		return "", 0
	}
	combined := strings.Join(parts, "\n\n")
	tailStart := len(combined) - overlapLimit
	if tailStart < 0 {
		tailStart = 0
	}
	tail := combined[tailStart:]

	matches := sentenceBreak.FindAllStringIndex(tail, -1)
	if len(matches) > 0 {
		last := matches[len(matches)-1]
		prefix := strings.TrimLeft(tail[last[0]+1:], " \t\n")
		return prefix, len(prefix)
	}
	return tail, len(tail)
}
