// Package chunker splits extracted document text into overlapping pieces
// sized for embedding models.
package chunker

import (
	"strings"
	"unicode/utf8"
)

type Options struct {
	Size    int // target chunk size in characters
	Overlap int // characters carried over between adjacent fixed chunks
}

func DefaultOptions() Options {
	return Options{Size: 1000, Overlap: 200}
}

type Chunk struct {
	Content string
	Index   int
}

// Split breaks text on paragraph, line, and sentence boundaries, falling back
// to fixed-size windows when a single segment exceeds the target size.
func Split(text string, opts Options) []Chunk {
	if opts.Size <= 0 {
		opts.Size = 1000
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}

	parts := splitBySeparators(text, []string{"\n\n", "\n", ". ", " "}, opts.Size)

	var chunks []Chunk
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chunks = append(chunks, Chunk{Content: p, Index: len(chunks)})
	}
	return chunks
}

func splitBySeparators(text string, separators []string, size int) []string {
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	if len(separators) == 0 {
		return splitFixed(text, size)
	}

	sep := separators[0]
	segments := strings.Split(text, sep)
	if len(segments) == 1 {
		return splitBySeparators(text, separators[1:], size)
	}

	var out []string
	var current strings.Builder
	for _, seg := range segments {
		candidate := seg
		if current.Len() > 0 {
			candidate = current.String() + sep + seg
		}
		if utf8.RuneCountInString(candidate) > size && current.Len() > 0 {
			out = append(out, splitBySeparators(current.String(), separators[1:], size)...)
			current.Reset()
			current.WriteString(seg)
			continue
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(seg)
	}
	if current.Len() > 0 {
		out = append(out, splitBySeparators(current.String(), separators[1:], size)...)
	}
	return out
}

func splitFixed(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// EstimateTokens is the usual ~4 characters per token heuristic.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return n/4 + 1
}
