package chunker

import (
	"strings"
	"testing"
)

func TestChunk_EmptyText(t *testing.T) {
	if chunks := Chunk("", 100, 10); chunks != nil {
		t.Fatalf("expected nil chunks for empty text, got %v", chunks)
	}
}

func TestChunk_SingleParagraphFitsOneChunk(t *testing.T) {
	text := "This is a short onboarding paragraph about benefits enrollment."
	chunks := Chunk(text, 512, 50)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Fatalf("expected chunk text to equal input, got %q", chunks[0].Text)
	}
	if chunks[0].Index != 0 {
		t.Fatalf("expected first chunk index 0, got %d", chunks[0].Index)
	}
}

func TestChunk_SplitsOversizedTextAndOverlaps(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 20; i++ {
		paragraphs = append(paragraphs, strings.Repeat("word ", 30))
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := Chunk(text, 50, 10)
	if len(chunks) < 2 {
		t.Fatalf("expected text to split into multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has Index %d, want sequential index", i, c.Index)
		}
		if c.TokenCount != ApproxTokens(c.Text) {
			t.Errorf("chunk %d TokenCount %d does not match ApproxTokens(%q)", i, c.TokenCount, c.Text)
		}
	}
	for i := 1; i < len(chunks); i++ {
		prefix, _, _ := strings.Cut(chunks[i].Text, "\n\n")
		if len(prefix) > 10*4 || !strings.HasSuffix(chunks[i-1].Text, prefix) {
			t.Errorf("chunk %d does not begin with an overlap prefix taken from the end of chunk %d: %q", i, i-1, prefix)
		}
	}
}

func TestApproxTokens(t *testing.T) {
	cases := map[string]int{
		"":         0,
		"abcd":     1,
		"abcdefgh": 2,
		"abcde":    2,
	}
	for text, want := range cases {
		if got := ApproxTokens(text); got != want {
			t.Errorf("ApproxTokens(%q) = %d, want %d", text, got, want)
		}
	}
}
