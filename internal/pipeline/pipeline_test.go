package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-clerk/internal/chunker"
	"doc-clerk/internal/logger"
	"doc-clerk/internal/summarizer"
)

type fakeExtractor struct {
	pages []string
	err   error
}

func (f fakeExtractor) Pages(context.Context, string) ([]string, error) {
	return f.pages, f.err
}

type fakeSummarizer struct {
	calls      atomic.Int32
	failChunk  string
	combineErr error
}

func (f *fakeSummarizer) SummarizeChunk(_ context.Context, body string, meta summarizer.Meta) (string, error) {
	f.calls.Add(1)
	if f.failChunk != "" && strings.Contains(body, f.failChunk) {
		return "", errors.New("rate limited")
	}
	first := strings.SplitN(body, "\n\n", 2)[0]
	return fmt.Sprintf("%s: %s", meta.Section, first), nil
}

func (f *fakeSummarizer) Combine(_ context.Context, summaries []string) (string, error) {
	if f.combineErr != nil {
		return "", f.combineErr
	}
	return "brief of " + summarizer.JoinSummaries(summaries), nil
}

func newTestPipeline(fs afero.Fs, ex Extractor, s Summarizer, opts Options) *Pipeline {
	return New(fs, ex, s, logger.NewWithWriter(io.Discard, "error", "json"), opts)
}

const rawDoc = "Alpha paragraph\nwraps here.\narXiv:2310.08754v4\n\nBeta paragraph.\n\n7\n\nGamma paragraph.\n\nReferences\n\n[1] Someone. A paper."

func TestProcess(t *testing.T) {
	s := &fakeSummarizer{}
	p := newTestPipeline(afero.NewMemMapFs(), nil, s, Options{MaxChars: 40, Concurrency: 3})

	res, err := p.Process(context.Background(), rawDoc)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "Alpha paragraph wraps here.\n\nBeta paragraph.\n\nGamma paragraph.", res.Clean)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "Alpha paragraph wraps here.", res.Chunks[0].Text)
	assert.Equal(t, "Beta paragraph.\n\nGamma paragraph.", res.Chunks[1].Text)
	assert.Equal(t, []string{
		"chunk-1: Alpha paragraph wraps here.",
		"chunk-2: Beta paragraph.",
	}, res.ChunkSummaries)
	assert.Equal(t, "brief of chunk-1: Alpha paragraph wraps here.\n\n---\n\nchunk-2: Beta paragraph.", res.Summary)
	assert.Zero(t, res.Failed)
	assert.Empty(t, res.Files)
}

func TestProcessKeepRefs(t *testing.T) {
	p := newTestPipeline(afero.NewMemMapFs(), nil, &fakeSummarizer{}, Options{MaxChars: 2500, KeepRefs: true})

	res, err := p.Process(context.Background(), rawDoc)
	require.NoError(t, err)
	assert.Contains(t, res.Clean, "References\n\n[1] Someone. A paper.")
}

func TestProcessChunkFailureContinues(t *testing.T) {
	s := &fakeSummarizer{failChunk: "Beta"}
	p := newTestPipeline(afero.NewMemMapFs(), nil, s, Options{MaxChars: 20})

	res, err := p.Process(context.Background(), "Alpha one.\n\nBeta two.\n\nGamma three.")
	require.NoError(t, err)

	require.Len(t, res.ChunkSummaries, 3)
	assert.Equal(t, "chunk-1: Alpha one.", res.ChunkSummaries[0])
	assert.Equal(t, "(summary failed: rate limited)", res.ChunkSummaries[1])
	assert.Equal(t, "chunk-3: Gamma three.", res.ChunkSummaries[2])
	assert.Equal(t, 1, res.Failed)
	assert.EqualValues(t, 3, s.calls.Load())
}

func TestProcessFinalFailure(t *testing.T) {
	s := &fakeSummarizer{combineErr: errors.New("quota")}
	p := newTestPipeline(afero.NewMemMapFs(), nil, s, Options{MaxChars: 2500})

	res, err := p.Process(context.Background(), "Some text.")
	require.NoError(t, err)
	assert.Equal(t, "(final summary failed: quota)", res.Summary)
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		opts    Options
		wantErr error
	}{
		{"empty document", "  \n12\n", Options{MaxChars: 2500}, ErrNoText},
		{"invalid max chars", "text", Options{MaxChars: 0}, chunker.ErrInvalidMaxChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSummarizer{}
			p := newTestPipeline(afero.NewMemMapFs(), nil, s, tt.opts)
			_, err := p.Process(context.Background(), tt.raw)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, s.calls.Load())
		})
	}
}

func TestProcessCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(afero.NewMemMapFs(), nil, &fakeSummarizer{}, Options{MaxChars: 2500})
	_, err := p.Process(ctx, "Some text.")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	ex := fakeExtractor{pages: []string{"Alpha paragraph.\n1", "Beta paragraph."}}
	p := newTestPipeline(fs, ex, &fakeSummarizer{}, Options{MaxChars: 2500, OutputDir: "out"})

	res, err := p.Run(context.Background(), "/data/2310.08754v4.pdf")
	require.NoError(t, err)

	want := map[string]string{
		"2310.08754v4.raw.txt":             "Alpha paragraph.\n1\n\nBeta paragraph.",
		"2310.08754v4.clean.txt":           "Alpha paragraph.\n\nBeta paragraph.",
		"2310.08754v4.chunks.txt":          "\n\n===== CHUNK 1/1 =====\n\nAlpha paragraph.\n\nBeta paragraph.",
		"2310.08754v4.chunk_summaries.txt": "chunk-1: Alpha paragraph.",
		"2310.08754v4.summary.txt":         "brief of chunk-1: Alpha paragraph.",
	}
	require.Len(t, res.Files, len(want))
	for name, content := range want {
		path := filepath.Join("out", name)
		assert.Contains(t, res.Files, path)
		got, err := afero.ReadFile(fs, path)
		require.NoError(t, err, name)
		assert.Equal(t, content, string(got), name)
	}
}

func TestRunExtractionFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newTestPipeline(fs, fakeExtractor{err: errors.New("bad pdf")}, &fakeSummarizer{}, Options{MaxChars: 2500, OutputDir: "out"})

	_, err := p.Run(context.Background(), "broken.pdf")
	require.Error(t, err)

	exists, _ := afero.Exists(fs, filepath.Join("out", "broken.raw.txt"))
	assert.False(t, exists)
}

func TestClean(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "in.txt", []byte("One\nline.\n\n\n3\n\nTwo."), 0o644))
	p := newTestPipeline(fs, nil, nil, Options{MaxChars: 2500})

	n, err := p.Clean(context.Background(), "in.txt", "in.cleaned.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := afero.ReadFile(fs, "in.cleaned.txt")
	require.NoError(t, err)
	assert.Equal(t, "One line.\n\nTwo.", string(got))

	_, err = p.Clean(context.Background(), "missing.txt", "x.txt")
	assert.Error(t, err)
}

func TestCleanRejectsInvalidMaxCharsBeforeWriting(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "in.txt", []byte("One.\n\nTwo."), 0o644))
	p := newTestPipeline(fs, nil, nil, Options{MaxChars: 0})

	_, err := p.Clean(context.Background(), "in.txt", "in.cleaned.txt")
	assert.ErrorIs(t, err, chunker.ErrInvalidMaxChars)

	exists, _ := afero.Exists(fs, "in.cleaned.txt")
	assert.False(t, exists)
}

func TestExtract(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newTestPipeline(fs, fakeExtractor{pages: []string{"p1", "p2"}}, nil, Options{OutputDir: "out"})

	path, err := p.Extract(context.Background(), "paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "paper.txt"), path)

	got, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "p1\n\np2", string(got))
}
