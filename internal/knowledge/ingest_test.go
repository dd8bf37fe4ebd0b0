package knowledge

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateSummaryShortTextUntouched(t *testing.T) {
	if got := truncateSummary("  brief note  ", 280); got != "brief note" {
		t.Errorf("got %q, want trimmed original", got)
	}
}

func TestTruncateSummaryCutsAtWordBoundary(t *testing.T) {
	text := strings.Repeat("word ", 100)

	got := truncateSummary(text, 280)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated summary should end with ellipsis: %q", got)
	}
	if strings.HasSuffix(strings.TrimSuffix(got, "..."), "wor") {
		t.Errorf("cut should land on a word boundary: %q", got)
	}
	if utf8.RuneCountInString(got) > 283 {
		t.Errorf("summary too long: %d runes", utf8.RuneCountInString(got))
	}
}

func TestTruncateSummaryMultibyteStaysValid(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 50)

	got := truncateSummary(text, 280)
	if !utf8.ValidString(got) {
		t.Errorf("summary is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("long multibyte text should be truncated: %q", got)
	}
}
