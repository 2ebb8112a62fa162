// Package pipeline runs the document clerk: PDF text extraction, cleaning,
// chunking, per-chunk summaries and the final research brief.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"doc-clerk/internal/artifact"
	"doc-clerk/internal/chunker"
	"doc-clerk/internal/cleaner"
	"doc-clerk/internal/pdftext"
	"doc-clerk/internal/summarizer"
)

// ErrNoText is returned when a document has no text left after cleaning.
var ErrNoText = errors.New("document has no text after cleaning")

// Extractor returns the text of each page of a document.
type Extractor interface {
	Pages(ctx context.Context, path string) ([]string, error)
}

// Summarizer produces chunk summaries and the combined brief.
type Summarizer interface {
	SummarizeChunk(ctx context.Context, body string, meta summarizer.Meta) (string, error)
	Combine(ctx context.Context, summaries []string) (string, error)
}

// PDFExtractor reads PDF files from a filesystem.
type PDFExtractor struct {
	FS afero.Fs
}

func (e PDFExtractor) Pages(_ context.Context, path string) ([]string, error) {
	return pdftext.ReadFile(e.FS, path)
}

// Options controls a pipeline run.
type Options struct {
	MaxChars    int
	KeepRefs    bool
	Concurrency int
	OutputDir   string
}

// Result holds every stage's output of a run.
type Result struct {
	RunID          string
	Raw            string
	Clean          string
	Chunks         []chunker.Chunk
	ChunkSummaries []string
	// Failed counts chunk summaries replaced by a failure note.
	Failed  int
	Summary string
	// Files lists the artifacts written by Run, in stage order.
	Files []string
}

// Pipeline wires the stages together.
type Pipeline struct {
	fs         afero.Fs
	extractor  Extractor
	summarizer Summarizer
	log        *slog.Logger
	opts       Options
}

// New builds a pipeline. Concurrency below one is treated as one.
func New(fs afero.Fs, extractor Extractor, s Summarizer, log *slog.Logger, opts Options) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Pipeline{
		fs:         fs,
		extractor:  extractor,
		summarizer: s,
		log:        log,
		opts:       opts,
	}
}

// Process cleans, chunks and summarizes raw text without touching the filesystem.
// A failed chunk summary is recorded in its place and processing continues.
func (p *Pipeline) Process(ctx context.Context, raw string) (Result, error) {
	res := Result{RunID: uuid.NewString(), Raw: raw}
	log := p.log.With("run_id", res.RunID)

	if err := p.prepare(&res); err != nil {
		return res, err
	}
	if err := p.summarize(ctx, log, &res); err != nil {
		return res, err
	}
	p.combine(ctx, log, &res)
	return res, nil
}

// Run processes the PDF at pdfPath and writes the raw, clean, chunks,
// chunk summaries and summary artifacts to the output directory.
func (p *Pipeline) Run(ctx context.Context, pdfPath string) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	log := p.log.With("run_id", res.RunID, "pdf", pdfPath)
	start := time.Now()

	w, err := artifact.NewWriter(p.fs, p.opts.OutputDir, artifact.Stem(pdfPath))
	if err != nil {
		return res, err
	}
	write := func(kind artifact.Kind, content string) error {
		path, err := w.Write(kind, content)
		if err != nil {
			return err
		}
		res.Files = append(res.Files, path)
		log.Info("saved", "file", path)
		return nil
	}

	log.Info("extracting text from pdf", "stage", "1/5")
	pages, err := p.extractor.Pages(ctx, pdfPath)
	if err != nil {
		return res, fmt.Errorf("failed to extract text: %w", err)
	}
	res.Raw = pdftext.Join(pages)
	if err := write(artifact.Raw, res.Raw); err != nil {
		return res, err
	}

	log.Info("cleaning text", "stage", "2/5", "pages", len(pages))
	if err := p.prepare(&res); err != nil {
		return res, err
	}
	if err := write(artifact.Clean, res.Clean); err != nil {
		return res, err
	}

	log.Info("splitting into chunks", "stage", "3/5", "chunks", len(res.Chunks))
	texts := make([]string, len(res.Chunks))
	for i, c := range res.Chunks {
		texts[i] = c.Text
	}
	if err := write(artifact.Chunks, artifact.FormatChunks(texts)); err != nil {
		return res, err
	}

	log.Info("summarizing chunks", "stage", "4/5", "concurrency", p.opts.Concurrency)
	if err := p.summarize(ctx, log, &res); err != nil {
		return res, err
	}
	if err := write(artifact.ChunkSummaries, summarizer.JoinSummaries(res.ChunkSummaries)); err != nil {
		return res, err
	}

	log.Info("composing final research brief", "stage", "5/5")
	p.combine(ctx, log, &res)
	if err := write(artifact.Summary, res.Summary); err != nil {
		return res, err
	}

	log.Info("done", "files", len(res.Files), "failed_chunks", res.Failed, "duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// Clean normalizes the text file at inPath into outPath and returns the
// number of chunks the cleaned text splits into.
func (p *Pipeline) Clean(ctx context.Context, inPath, outPath string) (int, error) {
	raw, err := afero.ReadFile(p.fs, inPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", inPath, err)
	}
	cleaned := cleaner.Normalize(string(raw))
	chunks, err := chunker.ChunkText(cleaned, chunker.Options{MaxChars: p.opts.MaxChars})
	if err != nil {
		return 0, err
	}
	if err := afero.WriteFile(p.fs, outPath, []byte(cleaned), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	p.log.Info("saved", "file", outPath, "chunks", len(chunks))
	return len(chunks), nil
}

// Extract writes the text of the PDF at pdfPath to <stem>.txt in the
// output directory and returns that path.
func (p *Pipeline) Extract(ctx context.Context, pdfPath string) (string, error) {
	pages, err := p.extractor.Pages(ctx, pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	w, err := artifact.NewWriter(p.fs, p.opts.OutputDir, artifact.Stem(pdfPath))
	if err != nil {
		return "", err
	}
	path, err := w.Write(artifact.Text, pdftext.Join(pages))
	if err != nil {
		return "", err
	}
	p.log.Info("saved", "file", path, "pages", len(pages))
	return path, nil
}

func (p *Pipeline) prepare(res *Result) error {
	res.Clean = cleaner.Normalize(res.Raw)
	if !p.opts.KeepRefs {
		res.Clean = cleaner.StripReferences(res.Clean)
	}
	chunks, err := chunker.ChunkText(res.Clean, chunker.Options{MaxChars: p.opts.MaxChars})
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return ErrNoText
	}
	res.Chunks = chunks
	return nil
}

// summarize fills res.ChunkSummaries in chunk order. Only cancellation of
// ctx is reported as an error.
func (p *Pipeline) summarize(ctx context.Context, log *slog.Logger, res *Result) error {
	summaries := make([]string, len(res.Chunks))
	failed := make([]bool, len(res.Chunks))

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, c := range res.Chunks {
		g.Go(func() error {
			meta := summarizer.Meta{Section: fmt.Sprintf("chunk-%d", i+1), Pages: "NA"}
			s, err := p.summarizer.SummarizeChunk(ctx, c.Text, meta)
			if err != nil {
				log.Warn("chunk summary failed", "chunk", i+1, "of", len(res.Chunks), "err", err)
				s = fmt.Sprintf("(summary failed: %v)", err)
				failed[i] = true
			} else {
				log.Info("chunk summarized", "chunk", i+1, "of", len(res.Chunks))
			}
			summaries[i] = s
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	res.ChunkSummaries = summaries
	for _, f := range failed {
		if f {
			res.Failed++
		}
	}
	return nil
}

func (p *Pipeline) combine(ctx context.Context, log *slog.Logger, res *Result) {
	final, err := p.summarizer.Combine(ctx, res.ChunkSummaries)
	if err != nil {
		log.Warn("final summary failed", "err", err)
		final = fmt.Sprintf("(final summary failed: %v)", err)
	}
	res.Summary = final
}
