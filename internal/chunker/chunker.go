package chunker

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the character budget used when none is configured.
const DefaultMaxChars = 2500

// separator joins paragraphs inside a chunk and is counted against the budget.
const separator = "\n\n"

// ErrInvalidMaxChars is returned when the character budget is not positive.
var ErrInvalidMaxChars = errors.New("max chars must be positive")

// Options controls how text is chunked.
type Options struct {
	MaxChars int
}

// Chunk represents a slice of the document text.
type Chunk struct {
	Index     int
	Text      string
	CharCount int
}

// Split groups the paragraphs of text into chunks of at most maxChars
// characters. Paragraphs are never broken, so a paragraph longer than
// maxChars becomes a chunk on its own.
func Split(text string, maxChars int) []string {
	var (
		chunks []string
		acc    []string
		count  int
	)
	for _, p := range strings.Split(text, separator) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n := utf8.RuneCountInString(p) + len(separator)
		if count+n > maxChars && len(acc) > 0 {
			chunks = append(chunks, strings.Join(acc, separator))
			acc = acc[:0]
			count = 0
		}
		acc = append(acc, p)
		count += n
	}
	if len(acc) > 0 {
		chunks = append(chunks, strings.Join(acc, separator))
	}
	return chunks
}

// ChunkText validates opts and splits text into indexed chunks.
func ChunkText(text string, opts Options) ([]Chunk, error) {
	if opts.MaxChars <= 0 {
		return nil, ErrInvalidMaxChars
	}

	parts := Split(text, opts.MaxChars)
	chunks := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, Chunk{
			Index:     i,
			Text:      part,
			CharCount: utf8.RuneCountInString(part),
		})
	}
	return chunks, nil
}
