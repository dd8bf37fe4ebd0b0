package textextract

import (
	"strings"
	"testing"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"notes.txt", true},
		{"README.md", true},
		{"data.csv", true},
		{"report.pdf", true},
		{"slides.pptx", true},
		{"doc.docx", true},
		{"archive.zip", false},
		{"image.png", false},
		{"noextension", false},
		{"UPPER.TXT", true},
	}
	for _, tt := range tests {
		if got := IsSupported(tt.filename); got != tt.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestExtractBytesPlainText(t *testing.T) {
	content := "line one\nline two\n"
	got, err := ExtractBytes("notes.txt", []byte(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "line one") || !strings.Contains(got, "line two") {
		t.Errorf("ExtractBytes = %q, want both lines present", got)
	}
}

func TestExtractBytesMarkdownAndCSV(t *testing.T) {
	for _, name := range []string{"doc.md", "table.csv"} {
		got, err := ExtractBytes(name, []byte("a,b,c"))
		if err != nil {
			t.Fatalf("ExtractBytes(%q) error: %v", name, err)
		}
		if !strings.Contains(got, "a,b,c") {
			t.Errorf("ExtractBytes(%q) = %q, expected raw passthrough", name, got)
		}
	}
}

func TestExtractBytesUnsupported(t *testing.T) {
	if _, err := ExtractBytes("photo.png", []byte{0x89, 0x50}); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestExtractBytesCorruptPDF(t *testing.T) {
	if _, err := ExtractBytes("broken.pdf", []byte("not a pdf at all")); err == nil {
		t.Error("expected error for corrupt pdf data")
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"pdf", "pdf"},
		{".pdf", "pdf"},
		{"application/pdf", "pdf"},
		{"md", "txt"},
		{"text/plain", "txt"},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx"},
		{"exe", "exe"},
	}
	for _, tt := range tests {
		if got := normalizeType(tt.in); got != tt.want {
			t.Errorf("normalizeType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
