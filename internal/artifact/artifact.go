// Package artifact writes the intermediate and final files of a pipeline run.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Kind selects which artifact file to write.
type Kind string

const (
	Raw            Kind = ".raw.txt"
	Clean          Kind = ".clean.txt"
	Chunks         Kind = ".chunks.txt"
	ChunkSummaries Kind = ".chunk_summaries.txt"
	Summary        Kind = ".summary.txt"
	Text           Kind = ".txt"
)

// Writer places artifacts named <stem><kind> in a directory.
type Writer struct {
	fs   afero.Fs
	dir  string
	stem string
}

// NewWriter creates dir if needed.
func NewWriter(fs afero.Fs, dir, stem string) (*Writer, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}
	return &Writer{fs: fs, dir: dir, stem: stem}, nil
}

// Path returns where an artifact of kind is written.
func (w *Writer) Path(kind Kind) string {
	return filepath.Join(w.dir, w.stem+string(kind))
}

// Write stores content and returns the file path.
func (w *Writer) Write(kind Kind, content string) (string, error) {
	path := w.Path(kind)
	if err := afero.WriteFile(w.fs, path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Stem is the file name of path without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FormatChunks renders chunks with a numbered banner before each one.
func FormatChunks(chunks []string) string {
	var b strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&b, "\n\n===== CHUNK %d/%d =====\n\n", i+1, len(chunks))
		b.WriteString(c)
	}
	return b.String()
}
