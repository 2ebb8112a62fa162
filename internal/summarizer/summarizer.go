// Package summarizer turns document chunks into bullet summaries and merges
// them into a research brief.
package summarizer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/template"
	"time"

	"doc-clerk/internal/cache"
	"doc-clerk/internal/llm"
)

// SummarySeparator separates chunk summaries in the combined prompt and in
// the chunk summaries artifact.
const SummarySeparator = "\n\n---\n\n"

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// Options configures generation for both summary stages.
type Options struct {
	Model            string
	Language         string
	ChunkTemperature float32
	ChunkMaxTokens   int
	FinalTemperature float32
	FinalMaxTokens   int
	CacheTTL         time.Duration
}

// Meta describes where a chunk came from.
type Meta struct {
	Section string
	Pages   string
}

// Summarizer renders prompts and calls the model. Results are memoized in
// the cache; cache failures are logged and otherwise ignored.
type Summarizer struct {
	client llm.Client
	cache  cache.Cache
	log    *slog.Logger
	opts   Options
	system string
}

// New builds a Summarizer. A nil cache disables memoization.
func New(client llm.Client, c cache.Cache, log *slog.Logger, opts Options) (*Summarizer, error) {
	if opts.Language == "" {
		opts.Language = "English"
	}
	if c == nil {
		c = cache.NewNoOpCache()
	}
	system, err := render("system", opts)
	if err != nil {
		return nil, err
	}
	return &Summarizer{
		client: client,
		cache:  c,
		log:    log,
		opts:   opts,
		system: system,
	}, nil
}

// SummarizeChunk produces the Claim/Method/Evidence/Limitations bullets for one chunk.
func (s *Summarizer) SummarizeChunk(ctx context.Context, body string, meta Meta) (string, error) {
	if meta.Section == "" {
		meta.Section = "Unknown"
	}
	if meta.Pages == "" {
		meta.Pages = "NA"
	}
	prompt, err := render("chunk", struct {
		Language string
		Section  string
		Pages    string
		Body     string
	}{s.opts.Language, meta.Section, meta.Pages, body})
	if err != nil {
		return "", err
	}
	return s.generate(ctx, "chunk", prompt, s.opts.ChunkTemperature, s.opts.ChunkMaxTokens)
}

// Combine merges chunk summaries into the final research brief.
func (s *Summarizer) Combine(ctx context.Context, summaries []string) (string, error) {
	prompt, err := render("final", struct {
		Language string
		Joined   string
	}{s.opts.Language, JoinSummaries(summaries)})
	if err != nil {
		return "", err
	}
	return s.generate(ctx, "final", prompt, s.opts.FinalTemperature, s.opts.FinalMaxTokens)
}

// JoinSummaries joins summaries with SummarySeparator.
func JoinSummaries(summaries []string) string {
	return strings.Join(summaries, SummarySeparator)
}

func (s *Summarizer) generate(ctx context.Context, stage, prompt string, temperature float32, maxTokens int) (string, error) {
	key := cache.Key(
		s.opts.Model,
		stage,
		strconv.FormatFloat(float64(temperature), 'g', -1, 32),
		strconv.Itoa(maxTokens),
		s.system,
		prompt,
	)

	cached, ok, err := s.cache.GetSummary(ctx, key)
	if err != nil {
		s.log.Warn("summary cache lookup failed", "stage", stage, "err", err)
	} else if ok {
		s.log.Debug("summary cache hit", "stage", stage)
		return cached, nil
	}

	text, err := llm.GenerateText(ctx, s.client, llm.Request{
		Model:             s.opts.Model,
		SystemInstruction: s.system,
		Messages:          []llm.Message{llm.UserMessage(prompt)},
		Temperature:       llm.Temperature(temperature),
		MaxOutputTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate %s summary: %w", stage, err)
	}

	if err := s.cache.SetSummary(ctx, key, text, s.opts.CacheTTL); err != nil {
		s.log.Warn("summary cache store failed", "stage", stage, "err", err)
	}
	return text, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, err)
	}
	return buf.String(), nil
}
