package chunker

import (
	"strings"
	"testing"
)

func TestSplitShortText(t *testing.T) {
	chunks := Split("just one small paragraph", DefaultOptions())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "just one small paragraph" {
		t.Errorf("content = %q", chunks[0].Content)
	}
	if chunks[0].Index != 0 {
		t.Errorf("index = %d, want 0", chunks[0].Index)
	}
}

func TestSplitEmptyText(t *testing.T) {
	if chunks := Split("", DefaultOptions()); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
	if chunks := Split("   \n\n  ", DefaultOptions()); len(chunks) != 0 {
		t.Errorf("expected no chunks for whitespace text, got %d", len(chunks))
	}
}

func TestSplitRespectsParagraphs(t *testing.T) {
	text := "First paragraph about one topic.\n\nSecond paragraph about another topic."
	chunks := Split(text, Options{Size: 50})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Content, "First") || !strings.HasPrefix(chunks[1].Content, "Second") {
		t.Errorf("chunks split at the wrong boundary: %q / %q", chunks[0].Content, chunks[1].Content)
	}
}

func TestSplitLongUnbrokenText(t *testing.T) {
	text := strings.Repeat("x", 2500)
	chunks := Split(text, Options{Size: 1000})
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks for 2500 chars at size 1000, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Content) > 1000 {
			t.Errorf("chunk %d exceeds size: %d chars", i, len(c.Content))
		}
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}
}

func TestSplitKeepsAllContent(t *testing.T) {
	text := "Alpha sentence one. Beta sentence two. Gamma sentence three."
	chunks := Split(text, Options{Size: 25})
	joined := ""
	for _, c := range chunks {
		joined += c.Content + " "
	}
	for _, word := range []string{"Alpha", "Beta", "Gamma"} {
		if !strings.Contains(joined, word) {
			t.Errorf("word %q lost during splitting", word)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"word", 2},
		{strings.Repeat("a", 400), 101},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}
