package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"doc-clerk/internal/app"
	"doc-clerk/internal/chunker"
	"doc-clerk/internal/config"
	"doc-clerk/internal/pipeline"
	"doc-clerk/internal/summarizer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "[Error]", err)
		stop()
		os.Exit(1)
	}
}

type summarizeFlags struct {
	pdf         string
	outDir      string
	model       string
	maxChars    int
	keepRefs    bool
	concurrency int
	purgeCache  bool
}

func newRootCommand() *cobra.Command {
	var f summarizeFlags
	cmd := &cobra.Command{
		Use:           "summarize --pdf FILE",
		Short:         "PDF to text, clean, chunk, summarize each chunk and compose a research brief",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runSummarize(cmd.Context(), cmd.OutOrStdout(), cfg, log, f)
		},
	}
	cmd.Flags().StringVar(&f.pdf, "pdf", "", "PDF file path")
	cmd.Flags().StringVar(&f.outDir, "outdir", "", "Output directory (default $OUTPUT_DIR or ./output)")
	cmd.Flags().StringVar(&f.model, "model", "", "Model name (defaults to the configured model)")
	cmd.Flags().IntVar(&f.maxChars, "max-chars", chunker.DefaultMaxChars, "Max chars per chunk")
	cmd.Flags().BoolVar(&f.keepRefs, "keep-refs", false, "Keep the References section")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 1, "Chunks summarized in parallel")
	cmd.Flags().BoolVar(&f.purgeCache, "purge-cache", false, "Drop cached summaries before running")
	_ = cmd.MarkFlagRequired("pdf")

	cmd.AddCommand(newExtractCommand())
	cmd.AddCommand(newCleanCommand())
	return cmd
}

// loadConfig reads the environment and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command, f summarizeFlags) (config.Config, *slog.Logger, error) {
	cfg, log, err := app.LoadConfig()
	if err != nil {
		return cfg, log, err
	}
	flags := cmd.Flags()
	if flags.Changed("outdir") {
		cfg.OutputDir = f.outDir
	}
	if flags.Changed("model") {
		cfg.SetModel(f.model)
	}
	if flags.Changed("max-chars") {
		cfg.MaxChars = f.maxChars
	}
	if flags.Changed("keep-refs") {
		cfg.KeepRefs = f.keepRefs
	}
	if flags.Changed("concurrency") {
		cfg.SummaryConcurrency = f.concurrency
	}
	if err := cfg.Validate(); err != nil {
		return cfg, log, err
	}
	return cfg, log, nil
}

func runSummarize(ctx context.Context, out io.Writer, cfg config.Config, log *slog.Logger, f summarizeFlags) error {
	deps, err := app.BuildWith(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	if f.purgeCache {
		if err := deps.Cache.Purge(ctx); err != nil {
			return fmt.Errorf("failed to purge cache: %w", err)
		}
		log.Info("summary cache purged")
	}

	summ, err := summarizer.New(deps.LLM, deps.Cache, log, summarizer.Options{
		Model:            cfg.Model(),
		Language:         cfg.BriefLanguage,
		ChunkTemperature: cfg.ChunkTemperature,
		ChunkMaxTokens:   cfg.ChunkMaxTokens,
		FinalTemperature: cfg.FinalTemperature,
		FinalMaxTokens:   cfg.FinalMaxTokens,
		CacheTTL:         cfg.CacheTTL,
	})
	if err != nil {
		return err
	}

	p := pipeline.New(deps.FS, pipeline.PDFExtractor{FS: deps.FS}, summ, log, pipelineOptions(cfg))
	res, err := p.Run(ctx, f.pdf)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nDone (%d chunks", len(res.Chunks))
	if res.Failed > 0 {
		fmt.Fprintf(out, ", %d failed", res.Failed)
	}
	fmt.Fprintln(out, ")")
	fmt.Fprintln(out, "Files:")
	for _, path := range res.Files {
		fmt.Fprintln(out, " -", path)
	}
	return nil
}

func newExtractCommand() *cobra.Command {
	var pdfPath, outDir string
	cmd := &cobra.Command{
		Use:   "extract --pdf FILE",
		Short: "Extract the text of a PDF into <stem>.txt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("outdir") {
				cfg.OutputDir = outDir
			}
			fs := afero.NewOsFs()
			p := pipeline.New(fs, pipeline.PDFExtractor{FS: fs}, nil, log, pipelineOptions(cfg))

			path, err := p.Extract(cmd.Context(), pdfPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved:", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "PDF file path")
	cmd.Flags().StringVar(&outDir, "outdir", "", "Output directory (default $OUTPUT_DIR or ./output)")
	_ = cmd.MarkFlagRequired("pdf")
	return cmd
}

func newCleanCommand() *cobra.Command {
	var inPath, outPath string
	var maxChars int
	cmd := &cobra.Command{
		Use:   "clean --in FILE [--out FILE]",
		Short: "Normalize an extracted text file and report its chunk count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-chars") {
				cfg.MaxChars = maxChars
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if outPath == "" {
				outPath = cleanedPath(inPath)
			}
			p := pipeline.New(afero.NewOsFs(), nil, nil, log, pipelineOptions(cfg))

			n, err := p.Clean(cmd.Context(), inPath, outPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s | chunks: %d\n", outPath, n)
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "Text file to clean")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file (default <stem>.cleaned.txt next to the input)")
	cmd.Flags().IntVar(&maxChars, "max-chars", chunker.DefaultMaxChars, "Max chars per chunk")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func pipelineOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		MaxChars:    cfg.MaxChars,
		KeepRefs:    cfg.KeepRefs,
		Concurrency: cfg.SummaryConcurrency,
		OutputDir:   cfg.OutputDir,
	}
}

func cleanedPath(in string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + ".cleaned.txt"
}
