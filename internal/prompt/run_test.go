package prompt

import (
	"strings"
	"testing"
)

func TestAugmentWithContext(t *testing.T) {
	got := augmentWithContext("Paris is the capital of France.", "What is the capital of France?")

	if !strings.HasPrefix(got, "Based on the following context information:") {
		t.Errorf("augmented prompt has wrong prefix: %q", got)
	}
	if !strings.Contains(got, "Paris is the capital of France.") {
		t.Error("context block missing from augmented prompt")
	}
	if !strings.HasSuffix(got, "Please answer the following question:\nWhat is the capital of France?") {
		t.Errorf("question missing from augmented prompt: %q", got)
	}
}

func TestInlineFileContent(t *testing.T) {
	got := inlineFileContent("File content:\n", "quarterly revenue table", "Summarize the report")

	want := "File content:\nquarterly revenue table\n\nUser prompt: Summarize the report"
	if got != want {
		t.Errorf("composed content = %q, want %q", got, want)
	}
}

func TestInlineFileContentCustomPrefix(t *testing.T) {
	got := inlineFileContent("Reference material:\n", "doc body", "question")

	if !strings.HasPrefix(got, "Reference material:\ndoc body") {
		t.Errorf("custom prefix not honored: %q", got)
	}
	if !strings.HasSuffix(got, "User prompt: question") {
		t.Errorf("user text should trail the document: %q", got)
	}
}

func TestExtractFiles(t *testing.T) {
	r := &Runner{}

	out, err := r.extractFiles([]Attachment{
		{Name: "first.txt", Data: []byte("alpha content")},
		{Name: "second.md", Data: []byte("beta content")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"--- first.txt ---", "alpha content", "--- second.md ---", "beta content"} {
		if !strings.Contains(out, want) {
			t.Errorf("extracted text missing %q", want)
		}
	}
}

func TestExtractFilesSkipsEmpty(t *testing.T) {
	r := &Runner{}

	out, err := r.extractFiles([]Attachment{
		{Name: "blank.txt", Data: []byte("   \n  ")},
		{Name: "real.txt", Data: []byte("content")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "blank.txt") {
		t.Error("empty file should be skipped")
	}
	if !strings.Contains(out, "real.txt") {
		t.Error("non-empty file should be present")
	}
}

func TestExtractFilesRejectsUnsupported(t *testing.T) {
	r := &Runner{}

	if _, err := r.extractFiles([]Attachment{{Name: "binary.exe", Data: []byte{0x4d, 0x5a}}}); err == nil {
		t.Error("expected error for unsupported file type")
	}
}
